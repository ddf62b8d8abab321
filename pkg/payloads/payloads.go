// Package payloads manages the directory of user payloads that can be sent
// to a device.
package payloads

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/golang/glog"
	"github.com/ulikunitz/xz"
)

var (
	ErrNoSuchPayload = errors.New("no such payload")
)

// Store is a directory of payload files.
type Store struct {
	Dir string
}

// Default returns the per-user payload store.
func Default() *Store {
	return &Store{
		Dir: path.Join(xdg.DataHome, "rcmsmash", "payloads"),
	}
}

// Entry is a payload file in a store.
type Entry struct {
	// Index is the 1-based position of the entry in List.
	Index  int
	Name   string
	Path   string
	Size   int64
	Digest string
}

// Compressed returns whether the entry is stored xz compressed.
func (e *Entry) Compressed() bool {
	return strings.HasSuffix(e.Name, ".xz")
}

func digest(fspath string) (string, error) {
	f, err := os.Open(fspath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	s := sha256.New()
	if _, err := io.Copy(s, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(s.Sum(nil)), nil
}

// List returns all regular files in the store, sorted by name. A missing
// store directory is an empty store.
func (s *Store) List() ([]Entry, error) {
	des, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not list payloads: %w", err)
	}
	sort.Slice(des, func(i, j int) bool { return des[i].Name() < des[j].Name() })

	var res []Entry
	for _, de := range des {
		if !de.Type().IsRegular() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, fmt.Errorf("could not stat %q: %w", de.Name(), err)
		}
		fspath := filepath.Join(s.Dir, de.Name())
		d, err := digest(fspath)
		if err != nil {
			return nil, fmt.Errorf("could not hash %q: %w", de.Name(), err)
		}
		res = append(res, Entry{
			Index:  len(res) + 1,
			Name:   de.Name(),
			Path:   fspath,
			Size:   info.Size(),
			Digest: d,
		})
	}
	return res, nil
}

// Resolve finds a payload by file path, by 1-based index into List, or by
// name within the store, in that order.
func (s *Store) Resolve(sel string) (*Entry, error) {
	if info, err := os.Stat(sel); err == nil && info.Mode().IsRegular() {
		d, err := digest(sel)
		if err != nil {
			return nil, fmt.Errorf("could not hash %q: %w", sel, err)
		}
		return &Entry{
			Name:   filepath.Base(sel),
			Path:   sel,
			Size:   info.Size(),
			Digest: d,
		}, nil
	}

	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	if ix, err := strconv.Atoi(sel); err == nil {
		return entryAt(entries, ix)
	}
	return lookup(entries, sel)
}

// Choose is Resolve for a menu choice: numbers are always store indices,
// even if a file of that name exists in the working directory.
func (s *Store) Choose(sel string) (*Entry, error) {
	ix, err := strconv.Atoi(sel)
	if err != nil {
		return s.Resolve(sel)
	}
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	return entryAt(entries, ix)
}

func entryAt(entries []Entry, ix int) (*Entry, error) {
	if ix < 1 || ix > len(entries) {
		return nil, fmt.Errorf("%w: index %d out of range (have %d)", ErrNoSuchPayload, ix, len(entries))
	}
	return &entries[ix-1], nil
}

func lookup(entries []Entry, name string) (*Entry, error) {
	for i := range entries {
		if entries[i].Name == name {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoSuchPayload, name)
}

// Read returns the contents of a payload, decompressing it if needed.
func Read(e *Entry) ([]byte, error) {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, fmt.Errorf("could not read payload: %w", err)
	}
	if !e.Compressed() {
		return data, nil
	}
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not open xz payload: %w", err)
	}
	res, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not decompress payload: %w", err)
	}
	glog.V(1).Infof("Decompressed %s: %d -> %d bytes", e.Name, len(data), len(res))
	return res, nil
}

// Import copies a file into the store, keeping its base name.
func (s *Store) Import(src string) (*Entry, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("could not read %q: %w", src, err)
	}
	name := filepath.Base(src)
	fspath := filepath.Join(s.Dir, name)
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create store: %w", err)
	}
	if err := os.WriteFile(fspath, data, 0644); err != nil {
		return nil, fmt.Errorf("could not write: %w", err)
	}
	glog.Infof("Imported %s into %s", name, s.Dir)

	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	return lookup(entries, name)
}
