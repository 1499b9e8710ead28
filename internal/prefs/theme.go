package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"

	keyTheme = "theme"
)

func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight, "light-theme":
		return ThemeLight, nil
	case ThemeDark, "dark-theme":
		return ThemeDark, nil
	}
	return "", fmt.Errorf("unknown theme %q, want light or dark", s)
}

// Store persists the theme preference in a single YAML file.
type Store struct {
	mu   sync.Mutex
	path string
	v    *viper.Viper
}

// Open reads path if it exists. A missing file is not an error.
func Open(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault(keyTheme, string(ThemeLight))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read preferences %s: %w", path, err)
		}
	}
	return &Store{path: path, v: v}, nil
}

// Theme falls back to light for unknown stored values.
func (s *Store) Theme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := ParseTheme(s.v.GetString(keyTheme))
	if err != nil {
		return ThemeLight
	}
	return t
}

func (s *Store) SetTheme(t Theme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(keyTheme, string(t))
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write preferences %s: %w", s.path, err)
	}
	return nil
}

// Toggle flips between light and dark and persists the result.
func (s *Store) Toggle() (Theme, error) {
	next := ThemeDark
	if s.Theme() == ThemeDark {
		next = ThemeLight
	}
	if err := s.SetTheme(next); err != nil {
		return "", err
	}
	return next, nil
}
