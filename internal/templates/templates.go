// Package templates provides the file scaffolds each archetype starts
// from. Defaults are compiled in; operators can override any archetype
// by dropping YAML bundles into TEMPLATE_DIR. Scaffolds carry
// {{placeholder}} markers that Render substitutes per extension.
package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/autonoma/autonoma-backend/internal/catalog"
)

type FileTemplate struct {
	Path        string `yaml:"path"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
	Content     string `yaml:"content"`
}

type Bundle struct {
	Archetype string         `yaml:"archetype"`
	Files     []FileTemplate `yaml:"files"`
}

type Store struct {
	bundles map[string]*Bundle
}

// NewStore returns a store preloaded with the compiled-in scaffolds for
// every archetype in the catalog.
func NewStore() *Store {
	s := &Store{bundles: map[string]*Bundle{}}
	for _, b := range defaultBundles() {
		bundle := b
		s.bundles[bundle.Archetype] = &bundle
	}
	return s
}

// LoadDir reads every .yaml/.yml bundle in dir and overrides the
// compiled-in scaffold for that archetype. Files load in lexical order
// so later names win deterministically. A missing dir is not an error.
func (s *Store) LoadDir(dir string) error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read template dir %q: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read template bundle %q: %w", path, err)
		}
		var bundle Bundle
		if err := yaml.Unmarshal(raw, &bundle); err != nil {
			return fmt.Errorf("parse template bundle %q: %w", path, err)
		}
		if err := validateBundle(&bundle); err != nil {
			return fmt.Errorf("template bundle %q: %w", path, err)
		}
		s.bundles[bundle.Archetype] = &bundle
	}
	return nil
}

func (s *Store) Lookup(archetype string) (*Bundle, error) {
	bundle, ok := s.bundles[archetype]
	if !ok {
		return nil, fmt.Errorf("no template bundle for archetype %q", archetype)
	}
	return bundle, nil
}

func (s *Store) Archetypes() []string {
	out := make([]string, 0, len(s.bundles))
	for archetype := range s.bundles {
		out = append(out, archetype)
	}
	sort.Strings(out)
	return out
}

// Render substitutes {{key}} markers in a scaffold. Unknown markers are
// left in place so a broken bundle is visible in the output rather than
// silently blanked.
func Render(content string, vars map[string]string) string {
	if len(vars) == 0 {
		return content
	}
	pairs := make([]string, 0, len(vars)*2)
	for key, value := range vars {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(content)
}

func validateBundle(b *Bundle) error {
	if _, ok := catalog.ArchetypeByID(b.Archetype); !ok {
		return fmt.Errorf("unknown archetype %q", b.Archetype)
	}
	if len(b.Files) == 0 {
		return fmt.Errorf("bundle has no files")
	}
	seen := map[string]bool{}
	for i, f := range b.Files {
		if strings.TrimSpace(f.Path) == "" {
			return fmt.Errorf("file %d has an empty path", i)
		}
		if seen[f.Path] {
			return fmt.Errorf("duplicate file path %q", f.Path)
		}
		seen[f.Path] = true
		if strings.TrimSpace(f.Content) == "" {
			return fmt.Errorf("file %q has empty content", f.Path)
		}
	}
	return nil
}
