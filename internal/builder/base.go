package builder

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/autonoma/autonoma-backend/internal/logger"
	"github.com/autonoma/autonoma-backend/internal/templates"
)

// draftParallelism bounds concurrent drafting calls per build so one
// generation cannot monopolize the provider.
const draftParallelism = 3

type base struct {
	store   *templates.Store
	drafter Drafter
	log     *logger.Logger
}

// renderBundle renders the archetype scaffold with the extension's
// variables substituted.
func (b *base) renderBundle(archetype string, in BuildInput) (FileSet, error) {
	bundle, err := b.store.Lookup(archetype)
	if err != nil {
		return nil, err
	}
	vars := map[string]string{
		"name":        in.Name,
		"description": in.Description,
		"version":     versionOrDefault(in.Version),
	}
	files := make(FileSet, 0, len(bundle.Files))
	for _, tmpl := range bundle.Files {
		files = append(files, File{
			Path:        tmpl.Path,
			Content:     templates.Render(tmpl.Content, vars),
			Type:        tmpl.Type,
			Description: tmpl.Description,
		})
	}
	return files, nil
}

// draftFiles runs the drafter over every file draftable selects,
// replacing scaffold content with drafted content. A draft failure
// fails the whole build: the caller records it on the artifact instead
// of shipping a half-drafted archive.
func (b *base) draftFiles(ctx context.Context, in BuildInput, files FileSet, draftable func(path string) bool) (FileSet, error) {
	if b.drafter == nil {
		return files, nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(draftParallelism)

	drafted := make([]string, len(files))
	for i := range files {
		if draftable != nil && !draftable(files[i].Path) {
			continue
		}
		idx := i
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			content, err := b.drafter.DraftComponent(groupCtx, DraftRequest{
				ExtensionName: in.Name,
				Description:   in.Description,
				Prompt:        in.Prompt,
				FilePath:      files[idx].Path,
				FileType:      files[idx].Type,
				Seed:          files[idx].Content,
				Permissions:   in.Permissions,
				TargetSites:   in.TargetSites,
			})
			if err != nil {
				b.log.Warn("component draft failed", "file_path", files[idx].Path, "error", err.Error())
				return fmt.Errorf("draft %s: %w", files[idx].Path, err)
			}
			if strings.TrimSpace(content) == "" {
				return fmt.Errorf("draft %s: provider returned empty content", files[idx].Path)
			}
			drafted[idx] = content
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	for i := range files {
		if drafted[i] != "" {
			files[i].Content = drafted[i]
		}
	}
	return files, nil
}

// appendGatedSnippets appends the permission-specific blocks to the
// archetype's primary script. Only declared permissions contribute, so
// the emitted code never references an API the manifest does not grant.
func appendGatedSnippets(files FileSet, primaryPath string, permissions []string) FileSet {
	blocks := snippetsFor(permissions)
	if len(blocks) == 0 {
		return files
	}
	for i := range files {
		if files[i].Path != primaryPath {
			continue
		}
		var sb strings.Builder
		sb.WriteString(files[i].Content)
		for _, block := range blocks {
			sb.WriteString("\n")
			sb.WriteString(block)
		}
		files[i].Content = sb.String()
		break
	}
	return files
}

func versionOrDefault(version string) string {
	if version == "" {
		return "1.0.0"
	}
	return version
}
