// Package stub generates the relocation stub that the smashed ROM returns
// into. The ROM leaves the user payload split in two around the return
// address flood; the stub stitches it back together at its entry point and
// jumps there.
//
// The stub runs in two stages, as stage 1 lives in the very memory the
// payload gets copied over:
//
//	stage 1 (at PayloadAddr): copy stage 2 to the scratch area, jump there.
//	stage 2 (at Scratch):     copy prefix from UserAddr and suffix from
//	                          StackEnd to Entry, jump to Entry.
package stub

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/rcmsmash/rcmsmash/pkg/rcm"
	"github.com/rcmsmash/rcmsmash/pkg/uasm"
)

// DefaultScratch is an area of IRAM below the DMA buffers that is not part of
// any image, used to run stage 2 from.
const DefaultScratch = 0x40003000

// Params configures a generated stub.
type Params struct {
	Cfg *rcm.Config
	// PayloadLen is the length of the user payload, in bytes.
	PayloadLen int
	// Entry is where the payload is reassembled and jumped to. Defaults to
	// the ROM's payload address.
	Entry uint32
	// Scratch is where stage 2 runs from. Defaults to DefaultScratch.
	Scratch uint32
}

func (p *Params) defaults() {
	if p.Entry == 0 {
		p.Entry = p.Cfg.PayloadAddr
	}
	if p.Scratch == 0 {
		p.Scratch = DefaultScratch
	}
}

type region struct {
	name       string
	start, end uint32
}

func (r region) String() string {
	return fmt.Sprintf("%s [0x%08x, 0x%08x)", r.name, r.start, r.end)
}

func (r region) overlaps(o region) bool {
	return r.start < o.end && o.start < r.end
}

func copyLoop(label string, step uint32, load, store uasm.Statement) []uasm.Statement {
	return []uasm.Statement{
		uasm.Label(label),
		uasm.Cmp{A: uasm.R1, B: uasm.R2},
		uasm.B{Cond: uasm.EQ, Dest: uasm.LabelRef(label + "_done")},
		load,
		store,
		uasm.Add{Dest: uasm.R0, Src: uasm.R0, Compl: uasm.Immediate(step)},
		uasm.Add{Dest: uasm.R1, Src: uasm.R1, Compl: uasm.Immediate(step)},
		uasm.B{Dest: uasm.LabelRef(label)},
		uasm.Label(label + "_done"),
	}
}

func byteCopy(label string, src, end uint32) []uasm.Statement {
	res := []uasm.Statement{
		uasm.Ldr{Dest: uasm.R1, Src: uasm.Constant(src)},
		uasm.Ldr{Dest: uasm.R2, Src: uasm.Constant(end)},
	}
	return append(res, copyLoop(label, 1,
		uasm.Ldrb{Dest: uasm.R3, Src: uasm.Deref(uasm.R1, 0)},
		uasm.Strb{Src: uasm.R3, Dest: uasm.Deref(uasm.R0, 0)},
	)...)
}

func stage2(p Params) *uasm.Program {
	window := p.Cfg.WindowSize()
	prefix := p.PayloadLen
	if prefix > window {
		prefix = window
	}
	suffix := p.PayloadLen - prefix

	var listing []uasm.Statement
	listing = append(listing, uasm.Ldr{Dest: uasm.R0, Src: uasm.Constant(p.Entry)})
	listing = append(listing, byteCopy("prefix", p.Cfg.UserAddr, p.Cfg.UserAddr+uint32(prefix))...)
	listing = append(listing, byteCopy("suffix", p.Cfg.StackEnd, p.Cfg.StackEnd+uint32(suffix))...)
	listing = append(listing,
		uasm.Ldr{Dest: uasm.R0, Src: uasm.Constant(p.Entry)},
		uasm.Bx{Dest: uasm.R0},
	)
	return &uasm.Program{
		Address: p.Scratch,
		Listing: listing,
	}
}

func stage1(p Params, next []byte) *uasm.Program {
	var listing []uasm.Statement
	listing = append(listing,
		uasm.Ldr{Dest: uasm.R0, Src: uasm.Constant(p.Scratch)},
		uasm.Ldr{Dest: uasm.R1, Src: uasm.LabelRef("stage2")},
		uasm.Ldr{Dest: uasm.R2, Src: uasm.LabelRef("stage2_end")},
	)
	listing = append(listing, copyLoop("copy", 4,
		uasm.Ldr{Dest: uasm.R3, Src: uasm.Deref(uasm.R1, 0)},
		uasm.Str{Src: uasm.R3, Dest: uasm.Deref(uasm.R0, 0)},
	)...)
	listing = append(listing,
		uasm.Ldr{Dest: uasm.R0, Src: uasm.Constant(p.Scratch)},
		uasm.Bx{Dest: uasm.R0},
		uasm.Label("stage2"),
		uasm.Embed(next),
		uasm.Label("stage2_end"),
	)
	// The stub is the first thing after the header, and the flooded return
	// addresses point at it.
	return &uasm.Program{
		Address: p.Cfg.PayloadAddr,
		Listing: listing,
	}
}

// Assemble generates a relocation stub for a payload of the given length.
func Assemble(p Params) ([]byte, error) {
	if p.Cfg == nil {
		return nil, fmt.Errorf("no memory map")
	}
	p.defaults()
	if p.PayloadLen < 0 {
		return nil, fmt.Errorf("invalid payload length %d", p.PayloadLen)
	}
	if p.Entry%4 != 0 {
		return nil, fmt.Errorf("entry point 0x%08x is not word aligned", p.Entry)
	}
	if p.Scratch%4 != 0 {
		return nil, fmt.Errorf("scratch area 0x%08x is not word aligned", p.Scratch)
	}

	next, err := stage2(p).SafeAssemble()
	if err != nil {
		return nil, fmt.Errorf("stage 2: %w", err)
	}
	res, err := stage1(p, next).SafeAssemble()
	if err != nil {
		return nil, fmt.Errorf("stage 1: %w", err)
	}
	if err := rcm.CheckStub(res, p.Cfg); err != nil {
		return nil, err
	}

	scratch := region{"scratch area", p.Scratch, p.Scratch + uint32(len(next))}
	l := rcm.Plan(p.PayloadLen, len(res), p.Cfg)
	image := region{"loaded image", p.Cfg.PayloadAddr, p.Cfg.PayloadAddr + uint32(l.Length-rcm.HeaderSize)}
	dest := region{"relocated payload", p.Entry, p.Entry + uint32(p.PayloadLen)}
	for _, r := range []region{image, dest} {
		if scratch.overlaps(r) {
			return nil, fmt.Errorf("%s overlaps %s", scratch, r)
		}
	}

	glog.V(1).Infof("Stub: %d bytes (stage 2: %d bytes), %s, entry 0x%08x", len(res), len(next), scratch, p.Entry)
	return res, nil
}
