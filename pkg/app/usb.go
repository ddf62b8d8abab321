package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"

	"github.com/rcmsmash/rcmsmash/pkg/devices"
)

// gousbChannel implements devices.Usb on top of libusb.
type gousbChannel struct {
	usb  *gousb.Device
	intf *gousb.Interface
	done func()

	in  map[int]*gousb.InEndpoint
	out map[int]*gousb.OutEndpoint
}

func newChannel(usb *gousb.Device) (*gousbChannel, error) {
	if err := usb.SetAutoDetach(true); err != nil {
		return nil, err
	}
	intf, done, err := usb.DefaultInterface()
	if err != nil {
		return nil, err
	}
	return &gousbChannel{
		usb:  usb,
		intf: intf,
		done: done,
		in:   make(map[int]*gousb.InEndpoint),
		out:  make(map[int]*gousb.OutEndpoint),
	}, nil
}

func (c *gousbChannel) outEndpoint(ep uint8) (*gousb.OutEndpoint, error) {
	num := int(ep & 0x0f)
	if e, ok := c.out[num]; ok {
		return e, nil
	}
	e, err := c.intf.OutEndpoint(num)
	if err != nil {
		return nil, fmt.Errorf("OUT endpoint 0x%02x: %w", ep, err)
	}
	c.out[num] = e
	return e, nil
}

func (c *gousbChannel) inEndpoint(ep uint8) (*gousb.InEndpoint, error) {
	num := int(ep & 0x0f)
	if e, ok := c.in[num]; ok {
		return e, nil
	}
	e, err := c.intf.InEndpoint(num)
	if err != nil {
		return nil, fmt.Errorf("IN endpoint 0x%02x: %w", ep, err)
	}
	c.in[num] = e
	return e, nil
}

// classify wraps a libusb error with the matching devices sentinel.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var sentinel error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, gousb.ErrorTimeout),
		errors.Is(err, gousb.TransferTimedOut),
		errors.Is(err, gousb.TransferCancelled):
		sentinel = devices.UsbTimeoutError
	case errors.Is(err, gousb.ErrorNoDevice),
		errors.Is(err, gousb.TransferNoDevice):
		sentinel = devices.UsbNoDeviceError
	case errors.Is(err, gousb.ErrorInvalidParam),
		errors.Is(err, gousb.ErrorPipe),
		errors.Is(err, gousb.TransferStall):
		sentinel = devices.UsbRejectedError
	case errors.Is(err, gousb.ErrorIO),
		errors.Is(err, gousb.TransferError),
		errors.Is(err, gousb.ErrorOverflow),
		errors.Is(err, gousb.TransferOverflow):
		sentinel = devices.UsbIOError
	default:
		return err
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}

func (c *gousbChannel) WriteBulk(ep uint8, data []byte, timeout time.Duration) (int, error) {
	e, err := c.outEndpoint(ep)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	n, err := e.WriteContext(ctx, data)
	return n, classify(err)
}

func (c *gousbChannel) ReadBulk(ep uint8, length int, timeout time.Duration) ([]byte, error) {
	e, err := c.inEndpoint(ep)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	buf := make([]byte, length)
	n, err := e.ReadContext(ctx, buf)
	if err != nil {
		return nil, classify(err)
	}
	return buf[:n], nil
}

func (c *gousbChannel) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	n, err := c.usb.Control(rType, request, val, idx, data)
	return n, classify(err)
}

func (c *gousbChannel) SetControlTimeout(d time.Duration) error {
	c.usb.ControlTimeout = d
	return nil
}

func (c *gousbChannel) Close() error {
	if c.done != nil {
		c.done()
		c.done = nil
	}
	return c.usb.Close()
}
