package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/autonoma/autonoma-backend/internal/catalog"
)

func TestNewStoreCoversEveryArchetype(t *testing.T) {
	store := NewStore()
	for _, archetype := range catalog.Archetypes() {
		bundle, err := store.Lookup(archetype.ID)
		if err != nil {
			t.Fatalf("missing bundle for %q: %v", archetype.ID, err)
		}
		if len(bundle.Files) == 0 {
			t.Fatalf("bundle for %q has no files", archetype.ID)
		}
		for _, f := range bundle.Files {
			if strings.TrimSpace(f.Content) == "" {
				t.Fatalf("bundle %q file %q has empty content", archetype.ID, f.Path)
			}
		}
	}
}

func TestBundleFilesMatchRequiredFiles(t *testing.T) {
	store := NewStore()
	for _, archetype := range catalog.Archetypes() {
		bundle, err := store.Lookup(archetype.ID)
		if err != nil {
			t.Fatalf("missing bundle for %q: %v", archetype.ID, err)
		}
		have := map[string]bool{}
		for _, f := range bundle.Files {
			have[f.Path] = true
		}
		for _, required := range archetype.RequiredFiles {
			if required == "manifest.json" {
				// Assembled separately, never templated.
				continue
			}
			if !have[required] {
				t.Fatalf("bundle %q missing required file %q", archetype.ID, required)
			}
		}
	}
}

func TestRender(t *testing.T) {
	got := Render("Hello {{name}}: {{description}}", map[string]string{
		"name":        "Tracker",
		"description": "Tracks things",
	})
	if got != "Hello Tracker: Tracks things" {
		t.Fatalf("unexpected render output %q", got)
	}

	untouched := Render("keep {{unknown}}", map[string]string{"name": "X"})
	if untouched != "keep {{unknown}}" {
		t.Fatalf("unknown markers should survive, got %q", untouched)
	}
}

func TestLoadDirOverridesBundle(t *testing.T) {
	dir := t.TempDir()
	bundle := `archetype: popup
files:
  - path: popup.html
    type: html
    description: override
    content: "<html>{{name}}</html>"
  - path: popup.js
    type: js
    description: override
    content: "console.log('{{name}}');"
  - path: popup.css
    type: css
    description: override
    content: "body {}"
`
	if err := os.WriteFile(filepath.Join(dir, "popup.yaml"), []byte(bundle), 0o644); err != nil {
		t.Fatalf("write bundle: %v", err)
	}

	store := NewStore()
	if err := store.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir returned error: %v", err)
	}
	loaded, err := store.Lookup(catalog.TypePopup)
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if loaded.Files[0].Description != "override" {
		t.Fatalf("expected override bundle to win, got %q", loaded.Files[0].Description)
	}
}

func TestLoadDirRejectsUnknownArchetype(t *testing.T) {
	dir := t.TempDir()
	bundle := `archetype: sidebar
files:
  - path: sidebar.html
    type: html
    description: bad
    content: "<html></html>"
`
	if err := os.WriteFile(filepath.Join(dir, "sidebar.yaml"), []byte(bundle), 0o644); err != nil {
		t.Fatalf("write bundle: %v", err)
	}

	store := NewStore()
	if err := store.LoadDir(dir); err == nil {
		t.Fatalf("expected unknown archetype bundle to be rejected")
	}
}

func TestLoadDirMissingDirIsFine(t *testing.T) {
	store := NewStore()
	if err := store.LoadDir(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
}

func TestBaseScaffoldsAvoidGatedAPIs(t *testing.T) {
	gated := []string{"chrome.storage", "chrome.notifications", "chrome.alarms", "chrome.tabs", "chrome.cookies", "chrome.history", "chrome.bookmarks", "chrome.webRequest", "chrome.scripting"}
	store := NewStore()
	for _, archetype := range store.Archetypes() {
		bundle, err := store.Lookup(archetype)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", archetype, err)
		}
		for _, f := range bundle.Files {
			for _, api := range gated {
				if strings.Contains(f.Content, api) {
					t.Fatalf("base scaffold %s/%s references gated API %s", archetype, f.Path, api)
				}
			}
		}
	}
}
