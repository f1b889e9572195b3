// Package builder turns a validated generation request into the file set
// of a Chrome extension. Each archetype has its own Builder; the
// Registry owns dispatch so callers never switch on extension type.
// Builders are pure templating at the core. When a Drafter is attached
// its output replaces the scaffold per file; a drafting failure fails
// the build so the caller records a failed artifact rather than
// shipping files the model never produced.
package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/autonoma/autonoma-backend/internal/logger"
	"github.com/autonoma/autonoma-backend/internal/templates"
)

type File struct {
	Path        string
	Content     string
	Type        string
	Description string
}

type FileSet []File

// Validate enforces the artifact contract: unique non-empty paths and
// non-empty content for every file.
func (fs FileSet) Validate() error {
	if len(fs) == 0 {
		return fmt.Errorf("file set is empty")
	}
	seen := map[string]bool{}
	for _, f := range fs {
		if strings.TrimSpace(f.Path) == "" {
			return fmt.Errorf("file set contains an entry with an empty path")
		}
		if seen[f.Path] {
			return fmt.Errorf("file set contains duplicate path %q", f.Path)
		}
		seen[f.Path] = true
		if strings.TrimSpace(f.Content) == "" {
			return fmt.Errorf("file %q has empty content", f.Path)
		}
	}
	return nil
}

func (fs FileSet) Paths() []string {
	paths := make([]string, 0, len(fs))
	for _, f := range fs {
		paths = append(paths, f.Path)
	}
	return paths
}

func (fs FileSet) Get(path string) (File, bool) {
	for _, f := range fs {
		if f.Path == path {
			return f, true
		}
	}
	return File{}, false
}

// BuildInput carries everything a builder may use. Permissions and
// TargetSites arrive already validated and normalized.
type BuildInput struct {
	ExtensionType string
	Name          string
	Description   string
	Prompt        string
	Version       string
	Permissions   []string
	TargetSites   []string
	Features      []string
}

// DraftRequest is the unit of work handed to a Drafter: one file,
// with the scaffold as the seed the model refines.
type DraftRequest struct {
	ExtensionName string
	Description   string
	Prompt        string
	FilePath      string
	FileType      string
	Seed          string
	Permissions   []string
	TargetSites   []string
}

// Drafter produces the content of a single component file. A nil
// Drafter means pure template output.
type Drafter interface {
	DraftComponent(ctx context.Context, req DraftRequest) (string, error)
}

type Builder interface {
	ExtensionType() string
	Build(ctx context.Context, in BuildInput) (FileSet, error)
}

type Registry struct {
	builders map[string]Builder
	log      *logger.Logger
}

// NewRegistry wires one builder per supported archetype. All builders
// share the template store and the (possibly nil) drafter.
func NewRegistry(store *templates.Store, drafter Drafter, baseLog *logger.Logger) *Registry {
	log := baseLog.With("component", "BuilderRegistry")
	b := base{store: store, drafter: drafter, log: log}
	registry := &Registry{builders: map[string]Builder{}, log: log}
	for _, builder := range []Builder{
		&popupBuilder{base: b},
		&contentScriptBuilder{base: b},
		&backgroundBuilder{base: b},
		&devtoolsBuilder{base: b},
		&optionsBuilder{base: b},
	} {
		registry.builders[builder.ExtensionType()] = builder
	}
	return registry
}

func (r *Registry) For(extensionType string) (Builder, error) {
	builder, ok := r.builders[extensionType]
	if !ok {
		return nil, fmt.Errorf("no builder registered for extension type %q", extensionType)
	}
	return builder, nil
}

// Build dispatches to the archetype builder, appends the shared README,
// and validates the combined set.
func (r *Registry) Build(ctx context.Context, in BuildInput) (FileSet, error) {
	builder, err := r.For(in.ExtensionType)
	if err != nil {
		return nil, err
	}
	files, err := builder.Build(ctx, in)
	if err != nil {
		return nil, err
	}
	files = append(files, readmeFile(in))
	if err := files.Validate(); err != nil {
		return nil, fmt.Errorf("builder produced an invalid file set: %w", err)
	}
	return files, nil
}
