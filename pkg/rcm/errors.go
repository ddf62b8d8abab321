package rcm

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyImage = errors.New("empty image")
)

// OversizeError is returned by Check when a built image is larger than what
// the ROM will accept.
type OversizeError struct {
	Length int
	Max    int
}

// Over returns by how many bytes the image is too large.
func (e *OversizeError) Over() int {
	return e.Length - e.Max
}

func (e *OversizeError) Error() string {
	return fmt.Sprintf("image is too large to be submitted via RCM: 0x%x bytes, %d bytes larger than max", e.Length, e.Over())
}

// StubTooLargeError is returned by CheckStub when the relocation stub would
// overlap the start of the user payload.
type StubTooLargeError struct {
	Length   int
	Capacity int
}

func (e *StubTooLargeError) Error() string {
	return fmt.Sprintf("relocation stub is %d bytes, only %d fit before the user payload", e.Length, e.Capacity)
}

// TransferError is a failed transfer during upload. The DMA sequence cannot
// be resumed after one of these, the device needs to be reset into RCM.
type TransferError struct {
	Op    string
	Chunk int
	Err   error
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s: chunk %d: %v", e.Op, e.Chunk, e.Err)
}
