// Package prefs persists user interface preferences between sessions.
package prefs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ViewMode is how the product list is rendered.
type ViewMode string

const (
	ViewCard  ViewMode = "card"
	ViewTable ViewMode = "table"
)

// DefaultViewMode is used when no preference has been stored.
const DefaultViewMode = ViewTable

// ParseViewMode validates s as a ViewMode.
func ParseViewMode(s string) (ViewMode, error) {
	switch m := ViewMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ViewCard, ViewTable:
		return m, nil
	default:
		return "", fmt.Errorf("invalid view mode %q (want card or table)", s)
	}
}

// Other returns the mode a toggle switches to.
func (m ViewMode) Other() ViewMode {
	if m == ViewCard {
		return ViewTable
	}
	return ViewCard
}

// ToggleLabel is the caption of the control that switches away from m.
func (m ViewMode) ToggleLabel() string {
	if m == ViewCard {
		return "Table View"
	}
	return "Card View"
}

type file struct {
	PreferredViewMode string `toml:"preferredViewMode"`
}

// Store reads and writes preferences in a TOML file.
type Store struct {
	path string
}

// NewStore creates a Store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns ~/.config/deverp/ui.toml (or the platform equivalent).
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "deverp", "ui.toml"), nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored view mode. A missing file yields the default with
// no error; an unreadable or invalid one yields the default and the error.
func (s *Store) Load() (ViewMode, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultViewMode, nil
	}
	if err != nil {
		return DefaultViewMode, err
	}

	var f file
	if _, err := toml.Decode(string(data), &f); err != nil {
		return DefaultViewMode, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if f.PreferredViewMode == "" {
		return DefaultViewMode, nil
	}
	mode, err := ParseViewMode(f.PreferredViewMode)
	if err != nil {
		return DefaultViewMode, err
	}
	return mode, nil
}

// Save stores mode.
func (s *Store) Save(mode ViewMode) error {
	if _, err := ParseViewMode(string(mode)); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(file{PreferredViewMode: string(mode)}); err != nil {
		return err
	}
	return os.WriteFile(s.path, buf.Bytes(), 0o644)
}

// Toggle flips the stored mode and returns the new one.
func (s *Store) Toggle() (ViewMode, error) {
	current, err := s.Load()
	if err != nil {
		current = DefaultViewMode
	}
	next := current.Other()
	if err := s.Save(next); err != nil {
		return current, err
	}
	return next, nil
}
