package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rcmsmash/rcmsmash/pkg/devices"
	"github.com/rcmsmash/rcmsmash/pkg/rcm"
)

const yamlProfile = `
kind: t210
stack_start: 0x40014f00
stack_end: 0x40017100
`

const plistProfile = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Kind</key>
	<string>t210</string>
	<key>DMABufferB</key>
	<integer>1073778944</integer>
</dict>
</plist>
`

func TestParseYAML(t *testing.T) {
	p, err := Parse("board.yaml", []byte(yamlProfile))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	base := rcm.ConfigForKind[devices.TegraX1]
	cfg, err := p.Apply(devices.TegraX1, base)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if cfg.StackStart != 0x40014f00 || cfg.StackEnd != 0x40017100 {
		t.Errorf("stack window [0x%08x, 0x%08x), want [0x40014f00, 0x40017100)", cfg.StackStart, cfg.StackEnd)
	}
	if cfg.UserAddr != base.UserAddr || cfg.MaxLength != base.MaxLength {
		t.Errorf("unset fields not inherited: %s", cfg)
	}
	if base.StackStart == cfg.StackStart {
		t.Errorf("Apply modified the base config")
	}
}

func TestParsePlist(t *testing.T) {
	p, err := Parse("board.plist", []byte(plistProfile))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Kind != "t210" {
		t.Errorf("kind %q, want t210", p.Kind)
	}
	cfg, err := Config(p, devices.TegraX1)
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if cfg.DMABuffers[1] != 0x40009100 {
		t.Errorf("DMA buffer B 0x%08x, want 0x40009100", cfg.DMABuffers[1])
	}
}

func TestParseUnknownFormat(t *testing.T) {
	if _, err := Parse("board.json", []byte("{}")); err == nil {
		t.Fatalf("json profile parsed")
	}
}

func TestApplyWrongKind(t *testing.T) {
	p := &Profile{Kind: "t186"}
	if _, err := Config(p, devices.TegraX1); err == nil || !strings.Contains(err.Error(), "profile is for") {
		t.Fatalf("got %v, want kind mismatch", err)
	}
}

func TestApplyInvalid(t *testing.T) {
	p := &Profile{StackEnd: 0x40014e42}
	if _, err := Config(p, devices.TegraX1); err == nil || !strings.Contains(err.Error(), "invalid memory map") {
		t.Fatalf("got %v, want validation error", err)
	}
}

func TestNilProfile(t *testing.T) {
	cfg, err := Config(nil, devices.TegraX1)
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if cfg != rcm.ConfigForKind[devices.TegraX1] {
		t.Fatalf("nil profile did not return the default config")
	}
}

func TestNilProfileValidates(t *testing.T) {
	orig := rcm.ConfigForKind[devices.TegraX1]
	broken := orig.Clone()
	broken.StackEnd = broken.StackStart
	rcm.ConfigForKind[devices.TegraX1] = broken
	t.Cleanup(func() {
		rcm.ConfigForKind[devices.TegraX1] = orig
	})

	if _, err := Config(nil, devices.TegraX1); err == nil || !strings.Contains(err.Error(), "invalid memory map") {
		t.Fatalf("got %v, want validation error", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yml")
	if err := os.WriteFile(path, []byte(yamlProfile), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if k, ok := p.Base(); !ok || k != devices.TegraX1 {
		t.Fatalf("base %q/%v, want t210", k, ok)
	}
}
