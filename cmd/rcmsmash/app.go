package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/rcmsmash/rcmsmash/pkg/app"
	"github.com/rcmsmash/rcmsmash/pkg/devices"
	"github.com/rcmsmash/rcmsmash/pkg/payloads"
	"github.com/rcmsmash/rcmsmash/pkg/profile"
	"github.com/rcmsmash/rcmsmash/pkg/rcm"
	"github.com/rcmsmash/rcmsmash/pkg/stub"
)

func loadProfile() (*profile.Profile, error) {
	if profilePath == "" {
		return nil, nil
	}
	return profile.Load(profilePath)
}

func knownKinds() string {
	var res []string
	for _, k := range slices.Sorted(maps.Keys(rcm.ConfigForKind)) {
		res = append(res, fmt.Sprintf("%s (%s)", k, k.Product()))
	}
	return strings.Join(res, ", ")
}

// offlineConfig picks the memory map for commands that don't talk to a
// device: the profile's kind if it names one, the only known kind otherwise.
func offlineConfig(p *profile.Profile) (*rcm.Config, devices.Kind, error) {
	kind := devices.TegraX1
	if p != nil {
		if k, ok := p.Base(); ok {
			kind = k
		}
	}
	if _, ok := rcm.ConfigForKind[kind]; !ok {
		return nil, "", fmt.Errorf("unsupported device kind %q, must be one of: %s", kind, knownKinds())
	}
	cfg, err := profile.Config(p, kind)
	if err != nil {
		return nil, "", err
	}
	return cfg, kind, nil
}

// deviceConfig resolves the memory map for a discovered device.
func deviceConfig(p *profile.Profile) app.Config {
	return func(kind devices.Kind) (*rcm.Config, error) {
		return profile.Config(p, kind)
	}
}

func openDevice(ctx context.Context, p *profile.Profile, wait bool) (*app.App, error) {
	if !wait {
		return app.New(deviceConfig(p))
	}
	return app.Wait(ctx, deviceConfig(p))
}

// loadPayload reads the payload named by sel, or asks the user to pick one
// from the store if sel is empty.
func loadPayload(sel string) (*payloads.Entry, []byte, error) {
	store := payloads.Default()
	var e *payloads.Entry
	var err error
	if sel == "" {
		e, err = pickPayload(store)
	} else {
		e, err = store.Resolve(sel)
	}
	if err != nil {
		return nil, nil, err
	}
	data, err := payloads.Read(e)
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("Loaded payload", "name", e.Name, "size", len(data), "sha256", e.Digest)
	return e, data, nil
}

func stubParams(cfg *rcm.Config, payloadLen int) (stub.Params, error) {
	entry, err := parseNumber(stubEntry)
	if err != nil {
		return stub.Params{}, fmt.Errorf("invalid entry point: %w", err)
	}
	scratch, err := parseNumber(stubScratch)
	if err != nil {
		return stub.Params{}, fmt.Errorf("invalid scratch address: %w", err)
	}
	return stub.Params{
		Cfg:        cfg,
		PayloadLen: payloadLen,
		Entry:      entry,
		Scratch:    scratch,
	}, nil
}

// loadStub returns the relocation stub for a payload of the given length,
// either from --stub or generated.
func loadStub(cfg *rcm.Config, payloadLen int) ([]byte, error) {
	if stubPath != "" {
		data, err := os.ReadFile(stubPath)
		if err != nil {
			return nil, fmt.Errorf("could not read stub: %w", err)
		}
		if err := rcm.CheckStub(data, cfg); err != nil {
			return nil, err
		}
		return data, nil
	}
	params, err := stubParams(cfg, payloadLen)
	if err != nil {
		return nil, err
	}
	return stub.Assemble(params)
}

// craft builds and size checks an image.
func craft(cfg *rcm.Config, payload []byte) ([]byte, error) {
	s, err := loadStub(cfg, len(payload))
	if err != nil {
		return nil, err
	}
	image := rcm.Build(payload, s, cfg)
	if err := rcm.Check(image, cfg); err != nil {
		return nil, fmt.Errorf("%w (payload can be at most %d bytes)", err, rcm.MaxPayloadLength(len(s), cfg))
	}
	return image, nil
}
