// Package profile loads memory map overrides from YAML or plist files, for
// boards of a supported family whose ROM was built with slightly different
// addresses.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"gopkg.in/yaml.v3"
	"howett.net/plist"

	"github.com/rcmsmash/rcmsmash/pkg/devices"
	"github.com/rcmsmash/rcmsmash/pkg/rcm"
)

// Profile is a set of overrides on top of a device kind's default memory map.
// Zero fields are inherited from the base.
type Profile struct {
	Kind string `yaml:"kind" plist:"Kind"`

	MaxLength   uint32 `yaml:"max_length" plist:"MaxLength"`
	PayloadAddr uint32 `yaml:"payload_addr" plist:"PayloadAddr"`
	StackTop    uint32 `yaml:"stack_top" plist:"StackTop"`
	StubAddr    uint32 `yaml:"stub_addr" plist:"StubAddr"`
	UserAddr    uint32 `yaml:"user_addr" plist:"UserAddr"`
	StackStart  uint32 `yaml:"stack_start" plist:"StackStart"`
	StackEnd    uint32 `yaml:"stack_end" plist:"StackEnd"`
	DMABufferA  uint32 `yaml:"dma_buffer_a" plist:"DMABufferA"`
	DMABufferB  uint32 `yaml:"dma_buffer_b" plist:"DMABufferB"`
}

// Parse decodes a profile. The format is picked by file name extension.
func Parse(name string, data []byte) (*Profile, error) {
	var p Profile
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("could not parse YAML profile: %w", err)
		}
	case ".plist":
		if _, err := plist.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("could not parse plist profile: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown profile format %q (want .yaml, .yml or .plist)", ext)
	}
	return &p, nil
}

// Load reads and parses a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read profile: %w", err)
	}
	p, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	glog.V(1).Infof("Loaded profile %s: %+v", path, *p)
	return p, nil
}

// Base returns the device kind this profile applies to. Profiles that don't
// name one apply to every kind.
func (p *Profile) Base() (devices.Kind, bool) {
	if p.Kind == "" {
		return "", false
	}
	return devices.Kind(p.Kind), true
}

func override(dst *uint32, v uint32) {
	if v != 0 {
		*dst = v
	}
}

// Apply returns a validated copy of base with the profile's overrides.
func (p *Profile) Apply(kind devices.Kind, base *rcm.Config) (*rcm.Config, error) {
	if k, ok := p.Base(); ok && k != kind {
		return nil, fmt.Errorf("profile is for %s, device is %s", k, kind)
	}
	cfg := base.Clone()
	override(&cfg.MaxLength, p.MaxLength)
	override(&cfg.PayloadAddr, p.PayloadAddr)
	override(&cfg.StackTop, p.StackTop)
	override(&cfg.StubAddr, p.StubAddr)
	override(&cfg.UserAddr, p.UserAddr)
	override(&cfg.StackStart, p.StackStart)
	override(&cfg.StackEnd, p.StackEnd)
	override(&cfg.DMABuffers[0], p.DMABufferA)
	override(&cfg.DMABuffers[1], p.DMABufferB)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid memory map after applying profile: %w", err)
	}
	return cfg, nil
}

// Config resolves the memory map for a device kind, applying the profile if
// there is one.
func Config(p *Profile, kind devices.Kind) (*rcm.Config, error) {
	base, ok := rcm.ConfigForKind[kind]
	if !ok {
		return nil, fmt.Errorf("no memory map for %s", kind)
	}
	if p == nil {
		if err := base.Validate(); err != nil {
			return nil, fmt.Errorf("invalid memory map for %s: %w", kind, err)
		}
		return base, nil
	}
	return p.Apply(kind, base)
}
