package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/gousb"

	"github.com/rcmsmash/rcmsmash/pkg/devices"
)

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		in   error
		want error
	}{
		{gousb.ErrorTimeout, devices.UsbTimeoutError},
		{gousb.TransferTimedOut, devices.UsbTimeoutError},
		{context.DeadlineExceeded, devices.UsbTimeoutError},
		{gousb.ErrorNoDevice, devices.UsbNoDeviceError},
		{gousb.TransferNoDevice, devices.UsbNoDeviceError},
		{gousb.ErrorInvalidParam, devices.UsbRejectedError},
		{gousb.ErrorPipe, devices.UsbRejectedError},
		{gousb.TransferStall, devices.UsbRejectedError},
		{gousb.ErrorIO, devices.UsbIOError},
		{gousb.TransferError, devices.UsbIOError},
		{fmt.Errorf("wrapped: %w", gousb.ErrorIO), devices.UsbIOError},
	} {
		got := classify(tc.in)
		if !errors.Is(got, tc.want) {
			t.Errorf("classify(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestClassifyPassthrough(t *testing.T) {
	if classify(nil) != nil {
		t.Fatalf("classify(nil) is not nil")
	}
	other := gousb.ErrorAccess
	if got := classify(other); got != other {
		t.Fatalf("classify(%v) = %v, want unchanged", other, got)
	}
}
