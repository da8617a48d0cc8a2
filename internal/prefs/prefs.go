// Package prefs is the per-device preference store: a small YAML file that is
// created with defaults on first read and rewritten on every explicit save.
package prefs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"activity-hub/internal/model"
)

const (
	DefaultRadiusKm = 25
	MinRadiusKm     = 1
	MaxRadiusKm     = 500
)

type ThemeMode string

const (
	ThemeSystem ThemeMode = "system"
	ThemeLight  ThemeMode = "light"
	ThemeDark   ThemeMode = "dark"
)

// Preferences is the on-disk document.
type Preferences struct {
	RadiusKm  float64   `yaml:"radius_km"`
	ThemeMode ThemeMode `yaml:"theme_mode"`
}

func Default() Preferences {
	return Preferences{RadiusKm: DefaultRadiusKm, ThemeMode: ThemeSystem}
}

// Normalize replaces values a hand-edited file may carry with defaults.
func (p *Preferences) Normalize() {
	if !validRadius(p.RadiusKm) {
		p.RadiusKm = DefaultRadiusKm
	}
	switch p.ThemeMode {
	case ThemeSystem, ThemeLight, ThemeDark:
	default:
		p.ThemeMode = ThemeSystem
	}
}

func validRadius(km float64) bool {
	return km >= MinRadiusKm && km <= MaxRadiusKm
}

// Store guards one preference file. Reads go to disk every time so edits made
// by another process are seen.
type Store struct {
	path string
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("prefs path is empty")
	}
	return &Store{path: path}, nil
}

func (s *Store) Path() string { return s.path }

// Load returns the stored preferences, writing the defaults on first run.
func (s *Store) Load() (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (Preferences, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		p := Default()
		return p, s.save(p)
	}
	if err != nil {
		return Preferences{}, err
	}
	var p Preferences
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Preferences{}, err
	}
	p.Normalize()
	return p, nil
}

// GetRadiusKm returns the saved radius, or the default when none is usable.
func (s *Store) GetRadiusKm() (float64, error) {
	p, err := s.Load()
	if err != nil {
		return DefaultRadiusKm, err
	}
	return p.RadiusKm, nil
}

// SetRadiusKm saves km. Values outside [1, 500] are rejected and nothing is
// written.
func (s *Store) SetRadiusKm(km float64) error {
	if !validRadius(km) {
		return &model.ValidationError{Field: "radius_km", Reason: "must be between 1 and 500"}
	}
	return s.update(func(p *Preferences) { p.RadiusKm = km })
}

func (s *Store) SetThemeMode(m ThemeMode) error {
	switch m {
	case ThemeSystem, ThemeLight, ThemeDark:
	default:
		return &model.ValidationError{Field: "theme_mode", Reason: "must be one of system, light, dark"}
	}
	return s.update(func(p *Preferences) { p.ThemeMode = m })
}

func (s *Store) update(fn func(*Preferences)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.load()
	if err != nil {
		return err
	}
	fn(&p)
	return s.save(p)
}

// save writes via a temp file in the same directory and renames it over the
// target, leaving the file at 0600.
func (s *Store) save(p Preferences) error {
	p.Normalize()
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}
