package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/autonoma/autonoma-backend/internal/apierr"
	"github.com/autonoma/autonoma-backend/internal/catalog"
	"github.com/autonoma/autonoma-backend/internal/requestdata"
	"github.com/autonoma/autonoma-backend/internal/types"
)

type extHarness struct {
	svc        ExtensionService
	extensions *fakeExtensionRepo
	components *fakeComponentRepo
	runs       *fakeGenerationRunRepo
	store      *fakeArchiveStore
}

func newExtHarness(t *testing.T) *extHarness {
	t.Helper()
	h := &extHarness{
		extensions: &fakeExtensionRepo{},
		components: &fakeComponentRepo{},
		runs:       &fakeGenerationRunRepo{},
		store:      &fakeArchiveStore{},
	}
	h.svc = NewExtensionService(openTestDB(t), mustServiceLogger(t), h.extensions, h.components, h.runs, h.store)
	return h
}

func authedCtx(userID uuid.UUID) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{UserID: userID})
}

func (h *extHarness) seedExtension(t *testing.T, userID uuid.UUID, status string) *types.Extension {
	t.Helper()
	ext := &types.Extension{UserID: userID, Name: "Click Counter", ExtensionType: catalog.TypePopup, Status: status}
	if _, err := h.extensions.Create(context.Background(), nil, []*types.Extension{ext}); err != nil {
		t.Fatalf("seed extension: %v", err)
	}
	return ext
}

func TestExtensionGetOwnershipBoundary(t *testing.T) {
	h := newExtHarness(t)
	owner := uuid.New()
	ext := h.seedExtension(t, owner, types.StatusComplete)

	got, err := h.svc.Get(authedCtx(owner), ext.ID)
	if err != nil {
		t.Fatalf("Get as owner: %v", err)
	}
	if got.ID != ext.ID {
		t.Fatalf("extension id: want=%s got=%s", ext.ID, got.ID)
	}

	// Foreign and missing ids are indistinguishable to the caller.
	var apiErr *apierr.Error
	if _, err := h.svc.Get(authedCtx(uuid.New()), ext.ID); !errors.As(err, &apiErr) || apiErr.Code != apierr.CodeNotFound {
		t.Fatalf("Get as stranger: want not_found, got %v", err)
	}
	if _, err := h.svc.Get(authedCtx(owner), uuid.New()); !errors.As(err, &apiErr) || apiErr.Code != apierr.CodeNotFound {
		t.Fatalf("Get of missing id: want not_found, got %v", err)
	}
	if _, err := h.svc.Get(context.Background(), ext.ID); !errors.As(err, &apiErr) || apiErr.Code != apierr.CodeUnauthorized {
		t.Fatalf("Get without auth: want unauthorized, got %v", err)
	}
}

func TestExtensionListScopedToUser(t *testing.T) {
	h := newExtHarness(t)
	owner := uuid.New()
	h.seedExtension(t, owner, types.StatusComplete)
	h.seedExtension(t, owner, types.StatusFailed)
	h.seedExtension(t, uuid.New(), types.StatusComplete)

	list, total, err := h.svc.List(authedCtx(owner), 20, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || total != 2 {
		t.Fatalf("list: want 2/2, got %d/%d", len(list), total)
	}
	for _, ext := range list {
		if ext.UserID != owner {
			t.Fatalf("foreign extension in list: %s", ext.ID)
		}
	}

	var apiErr *apierr.Error
	if _, _, err := h.svc.List(context.Background(), 20, 0); !errors.As(err, &apiErr) || apiErr.Code != apierr.CodeUnauthorized {
		t.Fatalf("List without auth: want unauthorized, got %v", err)
	}
}

func TestExtensionPreview(t *testing.T) {
	h := newExtHarness(t)
	owner := uuid.New()
	ext := h.seedExtension(t, owner, types.StatusComplete)
	if _, err := h.components.Create(context.Background(), nil, []*types.ExtensionComponent{
		{ExtensionID: ext.ID, FilePath: "popup.js", Content: "console.log('hi');", FileType: "js"},
		{ExtensionID: ext.ID, FilePath: "manifest.json", Content: "{}", FileType: "json"},
	}); err != nil {
		t.Fatalf("seed components: %v", err)
	}

	component, err := h.svc.Preview(authedCtx(owner), ext.ID, "popup.js")
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if component.Content != "console.log('hi');" {
		t.Fatalf("preview content: got=%q", component.Content)
	}

	var apiErr *apierr.Error
	if _, err := h.svc.Preview(authedCtx(owner), ext.ID, "missing.js"); !errors.As(err, &apiErr) || apiErr.Code != apierr.CodeNotFound {
		t.Fatalf("Preview missing file: want not_found, got %v", err)
	}
	if _, err := h.svc.Preview(authedCtx(owner), ext.ID, "   "); !errors.As(err, &apiErr) || apiErr.Code != apierr.CodeInvalidInput {
		t.Fatalf("Preview empty path: want invalid_input, got %v", err)
	}
}

func TestExtensionLatestRun(t *testing.T) {
	h := newExtHarness(t)
	owner := uuid.New()
	ext := h.seedExtension(t, owner, types.StatusComplete)

	older := &types.GenerationRun{ID: uuid.New(), UserID: owner, ExtensionID: ext.ID, Status: types.StatusFailed, CreatedAt: time.Now().Add(-time.Hour)}
	newer := &types.GenerationRun{ID: uuid.New(), UserID: owner, ExtensionID: ext.ID, Status: types.StatusComplete, CreatedAt: time.Now()}
	if _, err := h.runs.Create(context.Background(), nil, []*types.GenerationRun{older, newer}); err != nil {
		t.Fatalf("seed runs: %v", err)
	}

	run, err := h.svc.LatestRun(authedCtx(owner), ext.ID)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if run.ID != newer.ID {
		t.Fatalf("latest run: want=%s got=%s", newer.ID, run.ID)
	}

	bare := h.seedExtension(t, owner, types.StatusPending)
	var apiErr *apierr.Error
	if _, err := h.svc.LatestRun(authedCtx(owner), bare.ID); !errors.As(err, &apiErr) || apiErr.Code != apierr.CodeNotFound {
		t.Fatalf("LatestRun without runs: want not_found, got %v", err)
	}
}

func TestExtensionDownloadGates(t *testing.T) {
	h := newExtHarness(t)
	owner := uuid.New()
	ext := h.seedExtension(t, owner, types.StatusBuilding)

	var apiErr *apierr.Error
	if _, _, _, err := h.svc.Download(authedCtx(owner), ext.ID); !errors.As(err, &apiErr) || apiErr.Code != apierr.CodeNotReady {
		t.Fatalf("Download while building: want not_ready, got %v", err)
	}

	archive := []byte("zip-bytes")
	key := ArchiveKey(ext.ID)
	if err := h.store.Put(context.Background(), key, archive, "application/zip"); err != nil {
		t.Fatalf("seed archive: %v", err)
	}
	if err := h.extensions.UpdateFields(context.Background(), nil, ext.ID, map[string]interface{}{
		"status":       types.StatusComplete,
		"archive_key":  key,
		"archive_size": int64(len(archive)),
	}); err != nil {
		t.Fatalf("finalize extension: %v", err)
	}

	// Even with the archive in place, a different user reads the id as absent.
	if _, _, _, err := h.svc.Download(authedCtx(uuid.New()), ext.ID); !errors.As(err, &apiErr) || apiErr.Code != apierr.CodeNotFound {
		t.Fatalf("Download by non-owner: want not_found, got %v", err)
	}

	reader, size, filename, err := h.svc.Download(authedCtx(owner), ext.ID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer reader.Close()
	if size != int64(len(archive)) {
		t.Fatalf("download size: want=%d got=%d", len(archive), size)
	}
	if filename != "click-counter.zip" {
		t.Fatalf("download filename: want=click-counter.zip got=%q", filename)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(data) != string(archive) {
		t.Fatalf("download bytes mismatch: got=%q", data)
	}
}

func TestExtensionDeleteCleansUp(t *testing.T) {
	h := newExtHarness(t)
	owner := uuid.New()
	ext := h.seedExtension(t, owner, types.StatusComplete)
	key := ArchiveKey(ext.ID)
	if err := h.store.Put(context.Background(), key, []byte("zip"), "application/zip"); err != nil {
		t.Fatalf("seed archive: %v", err)
	}
	if err := h.extensions.UpdateFields(context.Background(), nil, ext.ID, map[string]interface{}{"archive_key": key}); err != nil {
		t.Fatalf("set archive key: %v", err)
	}
	if _, err := h.components.Create(context.Background(), nil, []*types.ExtensionComponent{
		{ExtensionID: ext.ID, FilePath: "popup.js", FileType: "js"},
	}); err != nil {
		t.Fatalf("seed components: %v", err)
	}

	if err := h.svc.Delete(authedCtx(owner), ext.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(h.store.deleted) != 1 || h.store.deleted[0] != key {
		t.Fatalf("archive not deleted: %v", h.store.deleted)
	}
	if comps := h.components.byExtension(ext.ID); len(comps) != 0 {
		t.Fatalf("components survived delete: %d", len(comps))
	}
	var apiErr *apierr.Error
	if _, err := h.svc.Get(authedCtx(owner), ext.ID); !errors.As(err, &apiErr) || apiErr.Code != apierr.CodeNotFound {
		t.Fatalf("Get after delete: want not_found, got %v", err)
	}
}

func TestExtensionDeleteToleratesArchiveFailure(t *testing.T) {
	h := newExtHarness(t)
	h.store.deleteErr = errors.New("bucket offline")
	owner := uuid.New()
	ext := h.seedExtension(t, owner, types.StatusComplete)
	if err := h.extensions.UpdateFields(context.Background(), nil, ext.ID, map[string]interface{}{"archive_key": ArchiveKey(ext.ID)}); err != nil {
		t.Fatalf("set archive key: %v", err)
	}

	if err := h.svc.Delete(authedCtx(owner), ext.ID); err != nil {
		t.Fatalf("Delete with failing store: %v", err)
	}
	var apiErr *apierr.Error
	if _, err := h.svc.Get(authedCtx(owner), ext.ID); !errors.As(err, &apiErr) || apiErr.Code != apierr.CodeNotFound {
		t.Fatalf("row survived archive failure: %v", err)
	}
}

func TestArchiveFilename(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Click Counter", "click-counter.zip"},
		{"My_Tool v2", "my-tool-v2.zip"},
		{"  Fancy   Name  ", "fancy---name.zip"},
		{"???", "extension.zip"},
		{"", "extension.zip"},
	}
	for _, tc := range cases {
		if got := archiveFilename(tc.name); got != tc.want {
			t.Fatalf("archiveFilename(%q): want=%q got=%q", tc.name, tc.want, got)
		}
	}
}

func TestInstallInstructionsPerType(t *testing.T) {
	for _, extensionType := range []string{catalog.TypePopup, catalog.TypeContentScript, catalog.TypeBackground, catalog.TypeDevTools, catalog.TypeOptions} {
		steps := InstallInstructions(extensionType)
		if len(steps) != 7 {
			t.Fatalf("steps for %s: want=7 got=%d", extensionType, len(steps))
		}
		if !strings.HasPrefix(steps[6], "7.") {
			t.Fatalf("final step for %s not numbered: %q", extensionType, steps[6])
		}
	}
	if steps := InstallInstructions("unknown"); len(steps) != 6 {
		t.Fatalf("steps for unknown type: want=6 got=%d", len(steps))
	}
}
