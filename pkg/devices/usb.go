package devices

import (
	"errors"
	"time"
)

// Usb describes the small set of transfer primitives needed to talk to a
// device in recovery mode. All calls are synchronous and bounded by a
// timeout.
type Usb interface {
	// WriteBulk writes data to the given bulk OUT endpoint address (eg.
	// 0x01) and returns the number of bytes accepted by the device.
	WriteBulk(ep uint8, data []byte, timeout time.Duration) (int, error)

	// ReadBulk reads up to length bytes from the given bulk IN endpoint
	// address (eg. 0x81).
	ReadBulk(ep uint8, length int, timeout time.Duration) ([]byte, error)

	// Control sends a control request to the device.
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)

	SetControlTimeout(time.Duration) error

	// Close disposes of this device. No other functions may be called on the
	// interface afterwards.
	Close() error
}

// Implementations of Usb wrap one of these so that callers can tell apart a
// device that went away from a transfer that merely failed.
var (
	UsbTimeoutError  = errors.New("USB timeout error")
	UsbNoDeviceError = errors.New("USB device gone")
	UsbIOError       = errors.New("USB I/O error")
	UsbRejectedError = errors.New("USB request rejected")
)
