// Package manifest assembles Manifest V3 documents for generated
// extensions. Assembly is deterministic: the same input always yields
// byte-identical JSON, which keeps packaged artifacts reproducible.
package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/autonoma/autonoma-backend/internal/catalog"
)

const (
	Version         = 3
	DefaultVersion  = "1.0.0"
	FileName        = "manifest.json"
	DefaultRunAt    = "document_idle"
	PopupPage       = "popup.html"
	OptionsPage     = "options.html"
	DevToolsPage    = "devtools.html"
	BackgroundEntry = "background.js"
	ContentScript   = "content.js"
	ContentStyles   = "content.css"
)

type Input struct {
	Name            string
	Description     string
	Version         string
	ExtensionType   string
	Permissions     []string
	HostPermissions []string
}

// IconPaths returns the standard icon set, keyed by pixel size as the
// manifest "icons" object expects.
func IconPaths() map[string]string {
	return map[string]string{
		"16":  "icons/icon16.png",
		"32":  "icons/icon32.png",
		"48":  "icons/icon48.png",
		"128": "icons/icon128.png",
	}
}

// Build assembles the manifest document for the given input. The
// permission slice is carried through untouched: what the caller
// validated is exactly what ships.
func Build(in Input) (map[string]interface{}, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("manifest requires a name")
	}
	if _, ok := catalog.ArchetypeByID(in.ExtensionType); !ok {
		return nil, fmt.Errorf("unknown extension type %q", in.ExtensionType)
	}

	version := in.Version
	if version == "" {
		version = DefaultVersion
	}
	permissions := in.Permissions
	if permissions == nil {
		permissions = []string{}
	}

	m := map[string]interface{}{
		"manifest_version": Version,
		"name":             in.Name,
		"version":          version,
		"description":      in.Description,
		"permissions":      permissions,
		"icons":            IconPaths(),
	}

	if len(in.HostPermissions) > 0 {
		m["host_permissions"] = in.HostPermissions
	}

	switch in.ExtensionType {
	case catalog.TypePopup:
		m["action"] = map[string]interface{}{
			"default_popup": PopupPage,
			"default_title": in.Name,
			"default_icon":  IconPaths(),
		}
	case catalog.TypeContentScript:
		// Never widen to <all_urls> on the caller's behalf: a content
		// script matches exactly the sites the request declared.
		if len(in.HostPermissions) == 0 {
			return nil, fmt.Errorf("content_script manifest requires at least one host permission")
		}
		m["content_scripts"] = []map[string]interface{}{
			{
				"matches": in.HostPermissions,
				"js":      []string{ContentScript},
				"css":     []string{ContentStyles},
				"run_at":  DefaultRunAt,
			},
		}
	case catalog.TypeBackground:
		m["background"] = map[string]interface{}{
			"service_worker": BackgroundEntry,
		}
	case catalog.TypeDevTools:
		m["devtools_page"] = DevToolsPage
	case catalog.TypeOptions:
		m["options_page"] = OptionsPage
	}

	return m, nil
}

// Encode renders the manifest as indented JSON. Map keys marshal in
// sorted order, so encoding is stable across runs.
func Encode(m map[string]interface{}) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// Validate checks an assembled manifest against the input it was built
// from: the declared permission and host permission sets must match the
// request exactly, and the document must stay on manifest version 3.
func Validate(m map[string]interface{}, in Input) error {
	mv, ok := m["manifest_version"].(int)
	if !ok || mv != Version {
		return fmt.Errorf("manifest_version must be %d", Version)
	}
	if name, _ := m["name"].(string); name != in.Name {
		return fmt.Errorf("manifest name %q does not match request %q", m["name"], in.Name)
	}

	declared, err := stringSlice(m["permissions"])
	if err != nil {
		return fmt.Errorf("manifest permissions: %w", err)
	}
	if err := sliceEquals(declared, in.Permissions); err != nil {
		return fmt.Errorf("manifest permissions diverge from request: %w", err)
	}

	if len(in.HostPermissions) > 0 {
		hosts, err := stringSlice(m["host_permissions"])
		if err != nil {
			return fmt.Errorf("manifest host_permissions: %w", err)
		}
		if err := sliceEquals(hosts, in.HostPermissions); err != nil {
			return fmt.Errorf("manifest host_permissions diverge from request: %w", err)
		}
	} else if _, present := m["host_permissions"]; present {
		return fmt.Errorf("manifest declares host_permissions the request never asked for")
	}

	return nil
}

func stringSlice(v interface{}) ([]string, error) {
	switch vals := v.(type) {
	case []string:
		return vals, nil
	case []interface{}:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("non-string entry %v", item)
			}
			out = append(out, s)
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("missing")
	default:
		return nil, fmt.Errorf("unexpected type %T", v)
	}
}

func sliceEquals(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("expected %d entries, found %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("entry %d: expected %q, found %q", i, want[i], got[i])
		}
	}
	return nil
}
