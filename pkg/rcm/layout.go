package rcm

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/golang/glog"
)

// Layout describes where each part of a crafted image ends up, as offsets
// into the image (header included).
type Layout struct {
	StubOffset    int
	PaddingOffset int
	// PayloadOffset is where the user payload starts, ie. what the ROM will
	// place at UserAddr.
	PayloadOffset int
	// StackOffset and StackEndOffset delimit the return address flood.
	StackOffset    int
	StackEndOffset int
	// SuffixOffset is where the remainder of the user payload starts. Equal
	// to StackEndOffset.
	SuffixOffset int
	// TailOffset is where the trailing zero pad starts.
	TailOffset int
	Length     int
}

// Plan computes the layout of an image built from a payload and stub of the
// given lengths.
func Plan(payloadLen, stubLen int, cfg *Config) Layout {
	var l Layout
	l.StubOffset = HeaderSize
	l.PaddingOffset = l.StubOffset + stubLen

	l.PayloadOffset = l.PaddingOffset
	if pad := cfg.StubCapacity() - stubLen; pad > 0 {
		l.PayloadOffset += pad
	}

	prefix := cfg.WindowSize()
	if payloadLen < prefix {
		prefix = payloadLen
	}
	l.StackOffset = l.PayloadOffset + prefix
	l.StackEndOffset = l.StackOffset + cfg.RepeatCount()*returnAddrWidth
	l.SuffixOffset = l.StackEndOffset
	l.TailOffset = l.SuffixOffset + payloadLen - prefix

	// Always pad, even if already aligned: a full trailing chunk of zeroes
	// is what the ROM has always been sent.
	l.Length = l.TailOffset + ChunkSize - (l.TailOffset % ChunkSize)
	return l
}

func (l Layout) String() string {
	return fmt.Sprintf("stub @0x%x, payload @0x%x, flood [0x%x, 0x%x), suffix @0x%x, pad @0x%x, length 0x%x",
		l.StubOffset, l.PayloadOffset, l.StackOffset, l.StackEndOffset, l.SuffixOffset, l.TailOffset, l.Length)
}

// Build crafts an image from a user payload and relocation stub. It always
// succeeds; use Check on the result before sending it to a device.
func Build(payload, stub []byte, cfg *Config) []byte {
	l := Plan(len(payload), len(stub), cfg)
	buf := bytes.NewBuffer(make([]byte, 0, l.Length))

	// Start off with the header. The ROM reads the declared length from it
	// and ignores the rest.
	buf.Write(binary.LittleEndian.AppendUint32(nil, cfg.MaxLength))
	buf.Write(make([]byte, HeaderSize-buf.Len()))

	buf.Write(stub)

	// Pad so that the user payload lands at UserAddr.
	buf.Write(make([]byte, l.PayloadOffset-buf.Len()))

	// Whatever fits before the stack window.
	window := cfg.WindowSize()
	if window > len(payload) {
		window = len(payload)
	}
	buf.Write(payload[:window])

	// Every return address slot in the stack window points back at us.
	ret := binary.LittleEndian.AppendUint32(nil, cfg.PayloadAddr)
	buf.Write(bytes.Repeat(ret, cfg.RepeatCount()))

	// And the rest of the payload after it.
	buf.Write(payload[window:])

	// Pad to fill a USB request exactly, so that we don't send a short packet
	// and break out of the RCM loop.
	buf.Write(make([]byte, l.Length-buf.Len()))

	glog.V(1).Infof("Built %d byte image: %s", buf.Len(), l)
	return buf.Bytes()
}

// Check returns an OversizeError if the image is too large for the ROM.
func Check(image []byte, cfg *Config) error {
	if len(image) > int(cfg.MaxLength) {
		return &OversizeError{
			Length: len(image),
			Max:    int(cfg.MaxLength),
		}
	}
	return nil
}

// CheckStub returns a StubTooLargeError if the stub would spill over into
// the user payload.
func CheckStub(stub []byte, cfg *Config) error {
	if len(stub) > cfg.StubCapacity() {
		return &StubTooLargeError{
			Length:   len(stub),
			Capacity: cfg.StubCapacity(),
		}
	}
	return nil
}

// MaxPayloadLength returns the largest user payload that still produces an
// image accepted by Check, for the given stub length.
func MaxPayloadLength(stubLen int, cfg *Config) int {
	// The trailing pad is always at least one byte and always ends on a
	// chunk boundary, so the pad must start before the last whole chunk
	// boundary within MaxLength.
	limit := int(cfg.MaxLength) / ChunkSize * ChunkSize
	n := limit - 1 - Plan(0, stubLen, cfg).TailOffset
	if n < 0 {
		return 0
	}
	return n
}
