package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/autonoma/autonoma-backend/internal/builder"
)

func popupFileSet() builder.FileSet {
	return builder.FileSet{
		{Path: "manifest.json", Content: `{"manifest_version":3,"name":"Click Counter","version":"1.0.0"}`, Type: "manifest"},
		{Path: "popup.html", Content: "<!doctype html><html><body></body></html>", Type: "html"},
		{Path: "popup.js", Content: "console.log('ready');", Type: "javascript"},
	}
}

func TestPackagerArchiveRoundTrip(t *testing.T) {
	store := &fakeArchiveStore{}
	svc := NewPackagerService(store, mustServiceLogger(t))

	extensionID := uuid.New()
	icons := map[string][]byte{
		"icons/icon16.png": {0x89, 0x50, 0x4e, 0x47},
	}
	key, size, err := svc.Package(context.Background(), extensionID, popupFileSet(), icons)
	if err != nil {
		t.Fatalf("Package: %v", err)
	}
	if want := "extensions/" + extensionID.String() + ".zip"; key != want {
		t.Fatalf("archive key: want=%q got=%q", want, key)
	}
	if store.putCalls != 1 {
		t.Fatalf("store put calls: want=1 got=%d", store.putCalls)
	}
	if store.lastContentType != "application/zip" {
		t.Fatalf("content type: want=application/zip got=%q", store.lastContentType)
	}
	if size != int64(len(store.lastData)) {
		t.Fatalf("reported size: want=%d got=%d", len(store.lastData), size)
	}

	zr, err := zip.NewReader(bytes.NewReader(store.lastData), int64(len(store.lastData)))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	got := map[string]string{}
	for _, entry := range zr.File {
		rc, err := entry.Open()
		if err != nil {
			t.Fatalf("open %q: %v", entry.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %q: %v", entry.Name, err)
		}
		got[entry.Name] = string(data)
	}
	if len(got) != 4 {
		t.Fatalf("archive entries: want=4 got=%d (%v)", len(got), got)
	}
	for _, f := range popupFileSet() {
		if got[f.Path] != f.Content {
			t.Fatalf("entry %q content mismatch: got=%q", f.Path, got[f.Path])
		}
	}
	if got["icons/icon16.png"] != string(icons["icons/icon16.png"]) {
		t.Fatalf("icon entry mismatch: got=%q", got["icons/icon16.png"])
	}
}

func TestPackagerDeterministicArchives(t *testing.T) {
	store := &fakeArchiveStore{}
	svc := NewPackagerService(store, mustServiceLogger(t))

	if _, _, err := svc.Package(context.Background(), uuid.New(), popupFileSet(), nil); err != nil {
		t.Fatalf("Package first: %v", err)
	}
	first := append([]byte(nil), store.lastData...)

	if _, _, err := svc.Package(context.Background(), uuid.New(), popupFileSet(), nil); err != nil {
		t.Fatalf("Package second: %v", err)
	}
	if !bytes.Equal(first, store.lastData) {
		t.Fatalf("identical file sets produced different archives (%d vs %d bytes)", len(first), len(store.lastData))
	}
}

func TestPackagerRejectsInvalidFileSet(t *testing.T) {
	store := &fakeArchiveStore{}
	svc := NewPackagerService(store, mustServiceLogger(t))

	_, _, err := svc.Package(context.Background(), uuid.New(), builder.FileSet{}, nil)
	if err == nil {
		t.Fatalf("Package: expected error for empty file set")
	}
	if store.putCalls != 0 {
		t.Fatalf("store put calls after invalid set: want=0 got=%d", store.putCalls)
	}
}

func TestPackagerIconPathCollision(t *testing.T) {
	store := &fakeArchiveStore{}
	svc := NewPackagerService(store, mustServiceLogger(t))

	icons := map[string][]byte{"popup.js": {0x01}}
	_, _, err := svc.Package(context.Background(), uuid.New(), popupFileSet(), icons)
	if err == nil {
		t.Fatalf("Package: expected collision error")
	}
	if !strings.Contains(err.Error(), "collides") {
		t.Fatalf("collision error text: got=%q", err.Error())
	}
	if store.putCalls != 0 {
		t.Fatalf("store put calls after collision: want=0 got=%d", store.putCalls)
	}
}

func TestPackagerStoreFailurePropagates(t *testing.T) {
	store := &fakeArchiveStore{putErr: errors.New("bucket offline")}
	svc := NewPackagerService(store, mustServiceLogger(t))

	_, _, err := svc.Package(context.Background(), uuid.New(), popupFileSet(), nil)
	if err == nil {
		t.Fatalf("Package: expected store error")
	}
	if !strings.Contains(err.Error(), "bucket offline") {
		t.Fatalf("store error not propagated: got=%q", err.Error())
	}
}

type fakeArchiveStore struct {
	putCalls        int
	putErr          error
	deleteErr       error
	lastKey         string
	lastData        []byte
	lastContentType string
	objects         map[string][]byte
	deleted         []string
}

func (f *fakeArchiveStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.putCalls++
	f.lastKey = key
	f.lastData = append([]byte(nil), data...)
	f.lastContentType = contentType
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = f.lastData
	return nil
}

func (f *fakeArchiveStore) Open(_ context.Context, key string) (io.ReadCloser, int64, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, 0, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (f *fakeArchiveStore) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}
