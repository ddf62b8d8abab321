package uasm

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

func assemble(t *testing.T, p Program, wantHex string) {
	t.Helper()
	res, err := p.SafeAssemble()
	if err != nil {
		t.Fatalf("SafeAssemble: %v", err)
	}
	want, _ := hex.DecodeString(wantHex)
	if !bytes.Equal(res, want) {
		t.Fatalf("wrong assembly\n got: %x\nwant: %x", res, want)
	}
}

func TestByteCopy(t *testing.T) {
	assemble(t, Program{
		Address: 0x2202dc08,
		Listing: []Statement{
			Ldr{Dest: R0, Src: Constant(0x2202db00)},
			Ldr{Dest: R1, Src: Deref(R0, 0)},

			// Copy 0x40 bytes from R1 to R0.
			Mov{Dest: R2, Src: Immediate(0)},

			Label("loop"),
			Ldrb{Dest: R3, Src: Deref(R1, 0)},
			Strb{Src: R3, Dest: Deref(R0, 0)},
			Add{Dest: R0, Src: R0, Compl: Immediate(1)},
			Add{Dest: R1, Src: R1, Compl: Immediate(1)},
			Add{Dest: R2, Src: R2, Compl: Immediate(1)},
			Cmp{A: R2, B: Immediate(0x40)},
			B{Cond: NE, Dest: LabelRef("loop")},

			Ldr{Dest: LR, Src: Constant(0x20004d70)},
			Bx{Dest: LR},
		},
	}, "28009fe5001090e50020a0e30030d1e50030c0e5010080e2011081e2012082e2400052e3f8ffff1a04e09fe51eff2fe100db0222704d0020")
}

func TestJump(t *testing.T) {
	assemble(t, Program{
		Address: 0x40010000,
		Listing: []Statement{
			Ldr{Dest: R0, Src: Constant(0x4000e000)},
			Bx{Dest: R0},
		},
	}, "00009fe510ff2fe100e00040")
}

func TestConditionalBranches(t *testing.T) {
	assemble(t, Program{
		Address: 0x1000,
		Listing: []Statement{
			Label("loop"),
			Cmp{A: R1, B: R4},
			B{Cond: EQ, Dest: LabelRef("done")},
			Add{Dest: R1, Src: R1, Compl: Immediate(1)},
			B{Dest: LabelRef("loop")},
			Label("done"),
			Bx{Dest: LR},
		},
	}, "040051e10100000a011081e2fbffffea1eff2fe1")
}

func TestLabelLoad(t *testing.T) {
	p := Program{
		Address: 0x40010000,
		Listing: []Statement{
			Ldr{Dest: R0, Src: LabelRef("data")},
			Bx{Dest: LR},
			Label("data"),
			Embed{0xaa, 0xbb, 0xcc, 0xdd},
		},
	}
	// data is at 0x40010008, its address lands in the pool after the embed.
	assemble(t, p, "04009fe51eff2fe1aabbccdd08000140")
	if p.Size() != 12 {
		t.Errorf("size %d, want 12", p.Size())
	}
}

func TestImmediate(t *testing.T) {
	for _, te := range []struct {
		val  uint32
		want uint32
		ok   bool
	}{
		{0, 0, true},
		{0x40, 0x40, true},
		{0xff, 0xff, true},
		{0x100, 0xc01, true},
		{0x3fc, 0xfff, true},
		{0xff000000, 0x4ff, true},
		{0x101, 0, false},
		{0x12345678, 0, false},
	} {
		got, ok := encodeImmediate(te.val)
		if ok != te.ok || got != te.want {
			t.Errorf("encodeImmediate(0x%x) = 0x%x, %v; want 0x%x, %v", te.val, got, ok, te.want, te.ok)
		}
	}
}

func TestAssembleErrors(t *testing.T) {
	for _, te := range []struct {
		name    string
		listing []Statement
		want    string
	}{
		{"unknown label", []Statement{B{Dest: LabelRef("nowhere")}}, "unknown label"},
		{"duplicate label", []Statement{Label("a"), Label("a")}, "duplicate label"},
		{"bad immediate", []Statement{Mov{Dest: R0, Src: Immediate(0x101)}}, "unencodable immediate"},
		{"offset", []Statement{Ldr{Dest: R0, Src: Deref(R1, 0x1000)}}, "offset too large"},
	} {
		t.Run(te.name, func(t *testing.T) {
			p := Program{Address: 0x40010000, Listing: te.listing}
			_, err := p.SafeAssemble()
			if err == nil || !strings.Contains(err.Error(), te.want) {
				t.Fatalf("got %v, want error containing %q", err, te.want)
			}
		})
	}
}
