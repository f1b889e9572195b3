package builder

import (
	"fmt"
	"strings"
)

// readmeFile renders the documentation shipped with every artifact.
func readmeFile(in BuildInput) File {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", in.Name)
	fmt.Fprintf(&sb, "%s\n\n", in.Description)

	sb.WriteString("## Features\n\n")
	features := in.Features
	if len(features) == 0 {
		features = []string{in.Prompt}
	}
	for _, feature := range features {
		fmt.Fprintf(&sb, "- %s\n", feature)
	}
	sb.WriteString("\n")

	sb.WriteString("## Installation\n\n")
	sb.WriteString("1. Download the extension files\n")
	sb.WriteString("2. Open Chrome and go to `chrome://extensions/`\n")
	sb.WriteString("3. Enable \"Developer mode\"\n")
	sb.WriteString("4. Click \"Load unpacked\" and select the extension folder\n\n")

	if len(in.Permissions) > 0 {
		sb.WriteString("## Permissions\n\n")
		sb.WriteString("This extension requires the following permissions:\n")
		for _, perm := range in.Permissions {
			fmt.Fprintf(&sb, "- %s\n", perm)
		}
		sb.WriteString("\n")
	}

	if len(in.TargetSites) > 0 {
		sb.WriteString("## Target Sites\n\n")
		for _, site := range in.TargetSites {
			fmt.Fprintf(&sb, "- `%s`\n", site)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Version\n\n")
	fmt.Fprintf(&sb, "Version %s\n\n", versionOrDefault(in.Version))
	sb.WriteString("Generated by Autonoma\n")

	return File{
		Path:        "README.md",
		Content:     sb.String(),
		Type:        "md",
		Description: "Extension documentation",
	}
}
