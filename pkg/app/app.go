package app

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/google/gousb"
	"github.com/hashicorp/go-multierror"

	"github.com/rcmsmash/rcmsmash/pkg/devices"
	"github.com/rcmsmash/rcmsmash/pkg/rcm"
)

// App is a connection to a device in RCM, together with the memory map used
// to smash it.
type App struct {
	ctx  *gousb.Context
	Usb  devices.Usb
	Desc *devices.Description
	Cfg  *rcm.Config
}

// Close releases the device and the USB context.
func (a *App) Close() error {
	if a.Usb != nil {
		if err := a.Usb.Close(); err != nil {
			return fmt.Errorf("when closing USB device: %w", err)
		}
	}
	if err := a.ctx.Close(); err != nil {
		return fmt.Errorf("when closing context: %w", err)
	}
	return nil
}

// Driver returns a transfer driver for the connected device.
func (a *App) Driver(opts ...rcm.Option) *rcm.Driver {
	return rcm.NewDriver(a.Usb, a.Cfg, opts...)
}

func newContext() (*gousb.Context, error) {
	resC := make(chan *gousb.Context)
	errC := make(chan error)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				errC <- fmt.Errorf("%v", r)
			}
		}()

		resC <- gousb.NewContext()
	}()

	select {
	case err := <-errC:
		return nil, err
	case res := <-resC:
		return res, nil
	}
}

// Config overrides the memory map picked for a discovered device. If nil, the
// default for the device kind is used.
type Config func(devices.Kind) (*rcm.Config, error)

func defaultConfig(k devices.Kind) (*rcm.Config, error) {
	cfg, ok := rcm.ConfigForKind[k]
	if !ok {
		return nil, fmt.Errorf("no memory map for %s", k)
	}
	return cfg, nil
}

// open tries every known device description. Errors from opening devices
// are collected in scanErrs; err is only set for failures that make retrying
// pointless.
func (a *App) open(getCfg Config) (found bool, scanErrs error, err error) {
	if getCfg == nil {
		getCfg = defaultConfig
	}
	for _, deviceDesc := range devices.Descriptions {
		usb, err := a.ctx.OpenDeviceWithVIDPID(deviceDesc.VID, deviceDesc.PID)
		if err != nil {
			scanErrs = multierror.Append(scanErrs, err)
		}
		if usb == nil {
			continue
		}

		cfg, err := getCfg(deviceDesc.Kind)
		if err != nil {
			usb.Close()
			return false, scanErrs, err
		}
		ch, err := newChannel(usb)
		if err != nil {
			usb.Close()
			return false, scanErrs, fmt.Errorf("could not claim %s: %w", deviceDesc.Kind, err)
		}
		desc := deviceDesc
		a.Usb = ch
		a.Desc = &desc
		a.Cfg = cfg
		glog.Infof("Found %s (%s) in RCM", desc.Kind, desc.Kind.Product())
		return true, nil, nil
	}
	return false, scanErrs, nil
}

// New opens the first device found in RCM.
func New(getCfg Config) (*App, error) {
	ctx, err := newContext()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize USB: %w", err)
	}
	a := &App{ctx: ctx}
	found, scanErrs, err := a.open(getCfg)
	if err != nil {
		ctx.Close()
		return nil, err
	}
	if !found {
		ctx.Close()
		if scanErrs != nil {
			return nil, scanErrs
		}
		return nil, fmt.Errorf("no device found")
	}
	return a, nil
}

// Wait polls for a device in RCM until one shows up or the context is
// cancelled.
func Wait(ctx context.Context, getCfg Config) (*App, error) {
	uctx, err := newContext()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize USB: %w", err)
	}
	a := &App{ctx: uctx}
	announced := false
	for {
		found, scanErrs, err := a.open(getCfg)
		if err != nil {
			uctx.Close()
			return nil, err
		}
		if found {
			return a, nil
		}
		if scanErrs != nil {
			glog.V(1).Infof("Device scan: %v", scanErrs)
		}
		if !announced {
			glog.Infof("Looking for device...")
			announced = true
		}

		select {
		case <-ctx.Done():
			uctx.Close()
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}
