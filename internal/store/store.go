// Package store persists the horn's mode as a two-byte record:
// a signature byte followed by the mode byte.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sweeney/horn-controller/internal/logic"
)

// Signature marks a record as written by this program.
const Signature = 0xA5

// Encode returns the on-disk record for m.
func Encode(m logic.Mode) []byte {
	return []byte{Signature, byte(m)}
}

// Decode parses a record. ok is false if the record is the wrong size,
// unsigned, or holds an unknown mode.
func Decode(b []byte) (m logic.Mode, ok bool) {
	if len(b) != 2 || b[0] != Signature {
		return logic.DefaultMode, false
	}
	m = logic.Mode(b[1])
	if !m.Valid() {
		return logic.DefaultMode, false
	}
	return m, true
}

// Store reads and writes the mode record at a file path.
type Store struct {
	path string
}

// New returns a store backed by path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted mode. A missing or invalid record is replaced
// by the default mode; rewritten reports that this happened. err is only
// non-nil if the file could not be read or rewritten, in which case the
// default mode is still returned.
func (s *Store) Load() (m logic.Mode, rewritten bool, err error) {
	b, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return logic.DefaultMode, false, fmt.Errorf("read mode: %w", err)
	}
	if m, ok := Decode(b); ok {
		return m, false, nil
	}

	if err := s.Save(logic.DefaultMode); err != nil {
		return logic.DefaultMode, false, err
	}
	return logic.DefaultMode, true, nil
}

// Save writes m atomically (temporary file then rename).
func (s *Store) Save(m logic.Mode) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	f, err := os.CreateTemp(dir, ".mode-*")
	if err != nil {
		return fmt.Errorf("write mode: %w", err)
	}
	tmp := f.Name()

	if _, err := f.Write(Encode(m)); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write mode: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync mode: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write mode: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace mode file: %w", err)
	}
	return nil
}
