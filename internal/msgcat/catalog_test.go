package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRender_EmbeddedDefaults(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := c.Render("session.waiting", map[string]any{"Room": "r1"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(got, "r1") {
		t.Fatalf("room not interpolated: %q", got)
	}

	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if _, err := c.Render("session.waiting", map[string]any{}); err == nil {
		t.Fatalf("expected error for missing template data")
	}
}

func TestRender_PlainKeysNeedNoData(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("move.illegal", nil)
	if err != nil || got == "" {
		t.Fatalf("Render: %q %v", got, err)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	body := "move:\n  illegal: \"Nope: {{.SAN}} does not work.\"\n"
	if err := os.WriteFile(filepath.Join(dir, "10-custom.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("move.illegal", map[string]any{"SAN": "Qxf7"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(got, "Qxf7") {
		t.Fatalf("override not applied: %q", got)
	}

	// Keys the override does not touch keep their defaults.
	if _, err := c.Render("draw.no_offer", nil); err != nil {
		t.Fatalf("default key lost: %v", err)
	}
}

func TestOverrideDir_Missing(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing override dir")
	}
}
