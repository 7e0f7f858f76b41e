package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"listing-delta/models"
)

// DefaultSnapshotPath is the snapshot file used when none is configured.
const DefaultSnapshotPath = "annonces_seloger.json"

// JSONStore keeps the snapshot as one UTF-8 JSON array in a file, in the
// order the listings were observed.
//
// Save truncates and rewrites the file in place. A crash mid-write leaves a
// truncated file that the next Load reports as an error.
type JSONStore struct {
	mu   sync.Mutex
	path string
}

// NewJSONStore returns a store backed by path. The file is not touched until
// the first Load or Save.
func NewJSONStore(path string) *JSONStore {
	if path == "" {
		path = DefaultSnapshotPath
	}
	return &JSONStore{path: path}
}

// Path returns the snapshot file location.
func (s *JSONStore) Path() string {
	return s.path
}

func (s *JSONStore) Load(_ context.Context) ([]*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []*models.Listing{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("json store: read %q: %w", s.path, err)
	}

	var listings []*models.Listing
	if err := json.Unmarshal(raw, &listings); err != nil {
		return nil, fmt.Errorf("json store: decode %q: %w", s.path, err)
	}
	if listings == nil {
		listings = []*models.Listing{}
	}
	return listings, nil
}

func (s *JSONStore) Save(_ context.Context, listings []*models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if listings == nil {
		listings = []*models.Listing{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(listings); err != nil {
		return fmt.Errorf("json store: encode: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("json store: create dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("json store: write %q: %w", s.path, err)
	}
	return nil
}

func (s *JSONStore) Close() error {
	return nil
}
