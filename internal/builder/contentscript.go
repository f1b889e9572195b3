package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/autonoma/autonoma-backend/internal/catalog"
)

type contentScriptBuilder struct {
	base
}

func (b *contentScriptBuilder) ExtensionType() string {
	return catalog.TypeContentScript
}

func (b *contentScriptBuilder) Build(ctx context.Context, in BuildInput) (FileSet, error) {
	// Refusing here rather than defaulting to <all_urls>: an injected
	// script with no declared scope would run on every page the user
	// visits.
	if len(in.TargetSites) == 0 {
		return nil, fmt.Errorf("content script requires at least one target site pattern")
	}
	files, err := b.renderBundle(catalog.TypeContentScript, in)
	if err != nil {
		return nil, err
	}
	files, err = b.draftFiles(ctx, in, files, nil)
	if err != nil {
		return nil, err
	}
	files = appendGatedSnippets(files, "content.js", in.Permissions)

	// Record the match scope at the top of the script so a reader of the
	// unpacked artifact sees where it runs without opening the manifest.
	for i := range files {
		if files[i].Path == "content.js" {
			files[i].Content = "// Runs on: " + strings.Join(in.TargetSites, ", ") + "\n" + files[i].Content
			break
		}
	}
	return files, nil
}
