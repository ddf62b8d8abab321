package rcm

import (
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"

	"github.com/rcmsmash/rcmsmash/pkg/devices"
)

func TestDefaultConfigsValid(t *testing.T) {
	for kind, cfg := range ConfigForKind {
		if err := cfg.Validate(); err != nil {
			t.Errorf("%s: %v", kind, err)
		}
	}
}

func TestTegraX1Geometry(t *testing.T) {
	cfg := ConfigForKind[devices.TegraX1]
	if got, want := cfg.WindowSize(), 0x4000; got != want {
		t.Errorf("window size 0x%x, want 0x%x", got, want)
	}
	if got, want := cfg.RepeatCount(), 0x870; got != want {
		t.Errorf("repeat count 0x%x, want 0x%x", got, want)
	}
	if got, want := cfg.StubCapacity(), 0xe40; got != want {
		t.Errorf("stub capacity 0x%x, want 0x%x", got, want)
	}
}

func TestValidateReportsAll(t *testing.T) {
	cfg := ConfigForKind[devices.TegraX1].Clone()
	cfg.UserAddr = cfg.StubAddr
	cfg.StackEnd = cfg.StackStart + 6
	cfg.DMABuffers[1] = cfg.DMABuffers[0]

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("broken config validated")
	}
	merr, ok := err.(*multierror.Error)
	if !ok {
		t.Fatalf("got %T, want *multierror.Error", err)
	}
	if got, want := len(merr.Errors), 3; got != want {
		t.Fatalf("got %d errors, want %d: %v", got, want, err)
	}
	for _, want := range []string{"user payload address", "not a multiple of 4", "DMA buffers must be distinct"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestValidateStackWindow(t *testing.T) {
	cfg := ConfigForKind[devices.TegraX1].Clone()
	cfg.StackEnd = cfg.StackStart
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "stack window end") {
		t.Fatalf("empty stack window: got %v", err)
	}

	cfg = ConfigForKind[devices.TegraX1].Clone()
	cfg.StackStart = cfg.UserAddr - 4
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "stack window start") {
		t.Fatalf("stack window below payload: got %v", err)
	}
}

func TestValidateUserAboveLoadAddress(t *testing.T) {
	cfg := ConfigForKind[devices.TegraX1].Clone()
	cfg.StubAddr = cfg.PayloadAddr - 0x1000
	cfg.UserAddr = cfg.PayloadAddr
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "payload address 0x40010000") {
		t.Fatalf("user payload at load address: got %v", err)
	}
}

func TestValidateMaxLength(t *testing.T) {
	cfg := ConfigForKind[devices.TegraX1].Clone()
	cfg.MaxLength = 0x1000
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "fixed overhead") {
		t.Fatalf("tiny max length: got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	base := ConfigForKind[devices.TegraX1]
	c := base.Clone()
	c.DMABuffers[0] = 0
	if base.DMABuffers[0] == 0 {
		t.Fatalf("Clone shares DMA buffer array with original")
	}
}
