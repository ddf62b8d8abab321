// Package rcm implements the Tegra RCM stack smash: building the memory image
// that overruns the boot ROM's DMA receive buffer, and the chunked upload that
// keeps the ROM's two DMA buffers in a known state before triggering it.
package rcm

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/rcmsmash/rcmsmash/pkg/devices"
)

const (
	// HeaderSize is the size of the RCM command header block. Only the
	// first four bytes (the declared length) matter to us.
	HeaderSize = 680
	// ChunkSize is the size of a single bulk write. The ROM alternates DMA
	// buffers on each of these.
	ChunkSize = 0x1000

	EndpointOut uint8 = 0x01
	EndpointIn  uint8 = 0x81

	DeviceIDLength = 16

	DefaultTimeout = 1000 * time.Millisecond

	returnAddrWidth = 4
)

// Config holds the memory map of a device family. Values are never mutated
// after construction; use Clone to derive a modified copy.
type Config struct {
	// MaxLength is the largest image the ROM accepts. It's also what gets
	// declared in the header.
	MaxLength uint32
	// PayloadAddr is where the ROM receives the image (minus header) and
	// the value sprayed over the stack window.
	PayloadAddr uint32
	// StackTop is the end of the ROM stack.
	StackTop uint32
	// StubAddr is the nominal relocation stub address. The stub always
	// sits right after the header, so the ROM loads it at PayloadAddr.
	StubAddr uint32
	// UserAddr is where the user payload starts.
	UserAddr uint32
	// StackStart and StackEnd delimit the window of return address slots
	// to overwrite, [StackStart, StackEnd).
	StackStart uint32
	StackEnd   uint32
	// DMABuffers are the two buffers the ROM alternates between.
	DMABuffers [2]uint32
}

var ConfigForKind = map[devices.Kind]*Config{
	devices.TegraX1: {
		MaxLength:   0x30298,
		PayloadAddr: 0x40010000,
		StackTop:    0x40010000,
		StubAddr:    0x40010000,
		UserAddr:    0x40010e40,
		StackStart:  0x40014e40,
		StackEnd:    0x40017000,
		DMABuffers:  [2]uint32{0x40005000, 0x40009000},
	},
}

func (c *Config) Clone() *Config {
	n := *c
	return &n
}

// WindowSize is the number of user payload bytes that fit between UserAddr
// and the start of the stack window.
func (c *Config) WindowSize() int {
	return int(c.StackStart - c.UserAddr)
}

// RepeatCount is the number of return address slots in the stack window.
func (c *Config) RepeatCount() int {
	return int(c.StackEnd-c.StackStart) / returnAddrWidth
}

// StubCapacity is the maximum relocation stub length that still lets the
// user payload start at UserAddr. The loaded image starts at PayloadAddr.
func (c *Config) StubCapacity() int {
	return int(c.UserAddr - c.PayloadAddr)
}

// Overhead is the image length used by everything except the user payload,
// assuming the worst case of a full trailing pad chunk.
func (c *Config) Overhead() int {
	return HeaderSize + c.StubCapacity() + c.RepeatCount()*returnAddrWidth + ChunkSize
}

// Validate checks the ordering invariants of the memory map. All violations
// are reported, not just the first.
func (c *Config) Validate() error {
	var errs error
	if c.UserAddr <= c.StubAddr || c.UserAddr <= c.PayloadAddr {
		errs = multierror.Append(errs, fmt.Errorf("user payload address 0x%08x must be above stub address 0x%08x and payload address 0x%08x", c.UserAddr, c.StubAddr, c.PayloadAddr))
	}
	if c.StackStart < c.UserAddr {
		errs = multierror.Append(errs, fmt.Errorf("stack window start 0x%08x must not be below user payload address 0x%08x", c.StackStart, c.UserAddr))
	}
	if c.StackEnd <= c.StackStart {
		errs = multierror.Append(errs, fmt.Errorf("stack window end 0x%08x must be above start 0x%08x", c.StackEnd, c.StackStart))
	} else if (c.StackEnd-c.StackStart)%returnAddrWidth != 0 {
		errs = multierror.Append(errs, fmt.Errorf("stack window size 0x%x is not a multiple of %d", c.StackEnd-c.StackStart, returnAddrWidth))
	}
	if c.DMABuffers[0] == c.DMABuffers[1] {
		errs = multierror.Append(errs, fmt.Errorf("DMA buffers must be distinct, both are 0x%08x", c.DMABuffers[0]))
	}
	if c.StackTop <= c.DMABuffers[1] {
		errs = multierror.Append(errs, fmt.Errorf("stack top 0x%08x must be above DMA buffer 0x%08x", c.StackTop, c.DMABuffers[1]))
	}
	if errs == nil && int(c.MaxLength) < c.Overhead() {
		errs = multierror.Append(errs, fmt.Errorf("max length 0x%x cannot hold fixed overhead of 0x%x bytes", c.MaxLength, c.Overhead()))
	}
	return errs
}

func (c *Config) String() string {
	return fmt.Sprintf("max 0x%x, payload @0x%08x, stub @0x%08x, user @0x%08x, stack [0x%08x, 0x%08x), top 0x%08x, dma 0x%08x/0x%08x",
		c.MaxLength, c.PayloadAddr, c.StubAddr, c.UserAddr, c.StackStart, c.StackEnd, c.StackTop, c.DMABuffers[0], c.DMABuffers[1])
}
