package devices

import (
	"github.com/google/gousb"
)

type Kind string

const (
	TegraX1 Kind = "t210"
)

func (k Kind) String() string {
	switch k {
	case TegraX1:
		return "Tegra X1"
	}
	return "UNKNOWN"
}

// Product is the consumer device a SoC kind is usually found in. Only used
// for log lines.
func (k Kind) Product() string {
	switch k {
	case TegraX1:
		return "Nintendo Switch"
	}
	return "unknown device"
}

func (k Kind) Description() Description {
	for _, d := range Descriptions {
		if d.Kind == k {
			return d
		}
	}
	panic("unreachable")
}

// Description is the USB identity of a device sitting in RCM.
type Description struct {
	VID, PID gousb.ID
	Kind     Kind
}

var Descriptions = []Description{
	{
		VID:  0x0955,
		PID:  0x7321,
		Kind: TegraX1,
	},
}
