package builder

import (
	"context"

	"github.com/autonoma/autonoma-backend/internal/catalog"
)

type popupBuilder struct {
	base
}

func (b *popupBuilder) ExtensionType() string {
	return catalog.TypePopup
}

func (b *popupBuilder) Build(ctx context.Context, in BuildInput) (FileSet, error) {
	files, err := b.renderBundle(catalog.TypePopup, in)
	if err != nil {
		return nil, err
	}
	files, err = b.draftFiles(ctx, in, files, nil)
	if err != nil {
		return nil, err
	}
	files = appendGatedSnippets(files, "popup.js", in.Permissions)
	return files, nil
}
