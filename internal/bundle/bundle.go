// Package bundle serves the client configuration payload handed to
// authorized users: the addon catalog and streaming server location.
package bundle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Bundle is the configuration payload returned to authorized clients.
type Bundle struct {
	DefaultAddons             []json.RawMessage `json:"defaultAddons"`
	DefaultStreamingServerURL string            `json:"defaultStreamingServerUrl"`
}

// Default is served when no bundle file exists.
func Default() Bundle {
	return Bundle{
		DefaultAddons:             []json.RawMessage{},
		DefaultStreamingServerURL: "http://127.0.0.1:11470",
	}
}

// FileStore reads and writes the bundle as a JSON file on disk. Reads are
// served from memory after the first load.
type FileStore struct {
	path string

	mu     sync.RWMutex
	cached *Bundle
}

// NewFileStore constructs a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns the current bundle, reading the file on first use. A missing
// file yields the defaults.
func (s *FileStore) Load() (Bundle, error) {
	s.mu.RLock()
	if s.cached != nil {
		b := *s.cached
		s.mu.RUnlock()
		return b, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return *s.cached, nil
	}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		b := Default()
		s.cached = &b
		return b, nil
	}
	if err != nil {
		return Bundle{}, fmt.Errorf("read bundle: %w", err)
	}

	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return Bundle{}, fmt.Errorf("decode bundle: %w", err)
	}
	if b.DefaultAddons == nil {
		b.DefaultAddons = []json.RawMessage{}
	}
	s.cached = &b
	return b, nil
}

// Save persists a new bundle and replaces the cached copy. The write goes
// through a temp file so a crash never leaves a torn bundle behind.
func (s *FileStore) Save(b Bundle) error {
	if b.DefaultAddons == nil {
		b.DefaultAddons = []json.RawMessage{}
	}

	raw, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace bundle: %w", err)
	}
	s.cached = &b
	return nil
}
