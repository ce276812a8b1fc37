// Package state persists the daily alert counter between runs as a small
// JSON file, so the cap survives process restarts.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DateLayout is the local calendar date the counter is keyed by.
const DateLayout = "2006-01-02"

// DailySends records how many alerts went out on one local date. A date
// rollover resets the count implicitly: counts for other dates read as zero.
type DailySends struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CountFor returns the number of sends recorded for the given date.
func (d DailySends) CountFor(date string) int {
	if d.Date != date {
		return 0
	}
	return d.Count
}

// Store reads and writes the counter file.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Load returns the persisted counter, or the zero value when the file does
// not exist yet.
func (s *Store) Load() (DailySends, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DailySends{}, nil
		}
		return DailySends{}, fmt.Errorf("read send state: %w", err)
	}

	var d DailySends
	if err := json.Unmarshal(b, &d); err != nil {
		return DailySends{}, fmt.Errorf("parse send state: %w", err)
	}
	return d, nil
}

// Save writes the counter via a temp file and rename, so a crash mid-write
// never leaves a truncated state file.
func (s *Store) Save(d DailySends) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode send state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write send state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace send state: %w", err)
	}
	return nil
}
