package builder

import (
	"context"

	"github.com/autonoma/autonoma-backend/internal/catalog"
)

type optionsBuilder struct {
	base
}

func (b *optionsBuilder) ExtensionType() string {
	return catalog.TypeOptions
}

func (b *optionsBuilder) Build(ctx context.Context, in BuildInput) (FileSet, error) {
	files, err := b.renderBundle(catalog.TypeOptions, in)
	if err != nil {
		return nil, err
	}
	files, err = b.draftFiles(ctx, in, files, nil)
	if err != nil {
		return nil, err
	}
	files = appendGatedSnippets(files, "options.js", in.Permissions)
	return files, nil
}
