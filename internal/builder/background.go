package builder

import (
	"context"

	"github.com/autonoma/autonoma-backend/internal/catalog"
)

type backgroundBuilder struct {
	base
}

func (b *backgroundBuilder) ExtensionType() string {
	return catalog.TypeBackground
}

func (b *backgroundBuilder) Build(ctx context.Context, in BuildInput) (FileSet, error) {
	files, err := b.renderBundle(catalog.TypeBackground, in)
	if err != nil {
		return nil, err
	}
	files, err = b.draftFiles(ctx, in, files, nil)
	if err != nil {
		return nil, err
	}
	files = appendGatedSnippets(files, "background.js", in.Permissions)
	return files, nil
}
