package prefs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsToLight(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "prefs.yaml"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Theme() != ThemeLight {
		t.Errorf("theme = %s", s.Theme())
	}
}

func TestTogglePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.yaml")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	got, err := s.Toggle()
	if err != nil || got != ThemeDark {
		t.Fatalf("Toggle = %s, %v", got, err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read prefs: %v", err)
	}
	if !strings.Contains(string(b), "theme: dark") {
		t.Errorf("prefs file = %q", b)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Theme() != ThemeDark {
		t.Errorf("theme after reopen = %s", reopened.Theme())
	}
	if got, _ := reopened.Toggle(); got != ThemeLight {
		t.Errorf("second toggle = %s", got)
	}
}

func TestUnknownStoredValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	if err := os.WriteFile(path, []byte("theme: neon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Theme() != ThemeLight {
		t.Errorf("theme = %s", s.Theme())
	}
}

func TestParseTheme(t *testing.T) {
	for in, want := range map[string]Theme{"dark": ThemeDark, "Light": ThemeLight, "dark-theme": ThemeDark} {
		if got, err := ParseTheme(in); err != nil || got != want {
			t.Errorf("ParseTheme(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseTheme("sepia"); err == nil {
		t.Error("expected error")
	}
}
