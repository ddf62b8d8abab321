package main

import (
	"errors"
	"testing"

	"github.com/rcmsmash/rcmsmash/pkg/devices"
	"github.com/rcmsmash/rcmsmash/pkg/profile"
	"github.com/rcmsmash/rcmsmash/pkg/rcm"
)

func TestParseNumber(t *testing.T) {
	for _, te := range []struct {
		in   string
		want uint32
		ok   bool
	}{
		{"0", 0, true},
		{"4096", 4096, true},
		{"0x40010000", 0x40010000, true},
		{"0X1f", 0x1f, true},
		{"ff", 0xff, true},
		{"0xfffffffff", 0, false},
		{"zz", 0, false},
	} {
		got, err := parseNumber(te.in)
		if (err == nil) != te.ok || got != te.want {
			t.Errorf("parseNumber(%q) = 0x%x, %v; want 0x%x, ok %v", te.in, got, err, te.want, te.ok)
		}
	}
}

func TestOfflineConfig(t *testing.T) {
	cfg, kind, err := offlineConfig(nil)
	if err != nil {
		t.Fatalf("offlineConfig: %v", err)
	}
	if kind != devices.TegraX1 || cfg != rcm.ConfigForKind[devices.TegraX1] {
		t.Fatalf("got %s/%s, want defaults", kind, cfg)
	}

	if _, _, err := offlineConfig(&profile.Profile{Kind: "t186"}); err == nil {
		t.Fatalf("unknown kind accepted")
	}
}

func TestCraft(t *testing.T) {
	stubPath, stubEntry, stubScratch = "", "0", "0"
	cfg := rcm.ConfigForKind[devices.TegraX1]

	image, err := craft(cfg, make([]byte, 0x9000))
	if err != nil {
		t.Fatalf("craft: %v", err)
	}
	if len(image)%rcm.ChunkSize != 0 {
		t.Errorf("image length 0x%x not chunk aligned", len(image))
	}

	_, err = craft(cfg, make([]byte, int(cfg.MaxLength)))
	var oversize *rcm.OversizeError
	if !errors.As(err, &oversize) {
		t.Fatalf("got %v, want OversizeError", err)
	}
}
