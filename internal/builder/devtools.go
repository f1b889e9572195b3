package builder

import (
	"context"

	"github.com/autonoma/autonoma-backend/internal/catalog"
)

type devtoolsBuilder struct {
	base
}

func (b *devtoolsBuilder) ExtensionType() string {
	return catalog.TypeDevTools
}

func (b *devtoolsBuilder) Build(ctx context.Context, in BuildInput) (FileSet, error) {
	files, err := b.renderBundle(catalog.TypeDevTools, in)
	if err != nil {
		return nil, err
	}
	// devtools.html is a fixed entry point that only loads devtools.js;
	// drafting it would just risk breaking the panel registration chain.
	files, err = b.draftFiles(ctx, in, files, func(path string) bool {
		return path != "devtools.html"
	})
	if err != nil {
		return nil, err
	}
	files = appendGatedSnippets(files, "panel.js", in.Permissions)
	return files, nil
}
