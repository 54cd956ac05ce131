package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTitleFrom(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"short one", "short one"},
		{"  spaced \n  out  ", "spaced out"},
		{strings.Repeat("a", 45), strings.Repeat("a", 40) + "..."},
		{strings.Repeat("é", 41), strings.Repeat("é", 40) + "..."},
	}
	for _, tt := range tests {
		if got := titleFrom(tt.in); got != tt.want {
			t.Errorf("titleFrom(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDay(t *testing.T) {
	got, err := parseDay("2026-10-14")
	if err != nil {
		t.Fatal(err)
	}
	if got.Year() != 2026 || got.Month() != time.October || got.Day() != 14 || got.Location() != time.Local {
		t.Errorf("unexpected day %v", got)
	}
	if _, err := parseDay("10/14/2026"); err == nil {
		t.Error("expected error for wrong layout")
	}
	if d, err := parseDay(""); err != nil || d.IsZero() {
		t.Errorf("empty date should mean now, got %v %v", d, err)
	}
}

func TestReadPiped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	if err := os.WriteFile(path, []byte("from a pipe"), 0o600); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := readPiped(f); got != "from a pipe" {
		t.Errorf("readPiped = %q", got)
	}

	f.Close()
	if got := readPiped(f); got != "" {
		t.Errorf("closed file should read as empty, got %q", got)
	}
}
