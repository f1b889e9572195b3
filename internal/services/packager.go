package services

import (
  "archive/zip"
  "bytes"
  "context"
  "fmt"
  "sort"
  "time"

  "github.com/google/uuid"

  "github.com/autonoma/autonoma-backend/internal/builder"
  "github.com/autonoma/autonoma-backend/internal/logger"
)

// PackagerService zips a built file set together with its icons and
// hands the archive to the store. Package returns the storage key and
// the archive size.
type PackagerService interface {
  Package(ctx context.Context, extensionID uuid.UUID, files builder.FileSet, icons map[string][]byte) (string, int64, error)
}

type packagerService struct {
  store ArchiveStore
  log   *logger.Logger
}

func NewPackagerService(store ArchiveStore, baseLog *logger.Logger) PackagerService {
  return &packagerService{
    store: store,
    log:   baseLog.With("service", "PackagerService"),
  }
}

// ArchiveKey is the storage key for an extension's packaged artifact.
func ArchiveKey(extensionID uuid.UUID) string {
  return fmt.Sprintf("extensions/%s.zip", extensionID.String())
}

func (s *packagerService) Package(ctx context.Context, extensionID uuid.UUID, files builder.FileSet, icons map[string][]byte) (string, int64, error) {
  if err := files.Validate(); err != nil {
    return "", 0, fmt.Errorf("refusing to package invalid file set: %w", err)
  }

  data, err := buildArchive(files, icons)
  if err != nil {
    return "", 0, err
  }

  key := ArchiveKey(extensionID)
  if err := s.store.Put(ctx, key, data, "application/zip"); err != nil {
    return "", 0, fmt.Errorf("failed to store archive %q: %w", key, err)
  }

  s.log.Info("Extension packaged",
    "extension_id", extensionID.String(),
    "archive_key", key,
    "archive_size", len(data),
    "file_count", len(files)+len(icons),
  )
  return key, int64(len(data)), nil
}

// archiveStamp is a fixed modification time so identical inputs produce
// byte-identical archives.
var archiveStamp = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func buildArchive(files builder.FileSet, icons map[string][]byte) ([]byte, error) {
  entries := make(map[string][]byte, len(files)+len(icons))
  for _, f := range files {
    entries[f.Path] = []byte(f.Content)
  }
  for path, data := range icons {
    if _, taken := entries[path]; taken {
      return nil, fmt.Errorf("icon path %q collides with a component file", path)
    }
    entries[path] = data
  }

  paths := make([]string, 0, len(entries))
  for path := range entries {
    paths = append(paths, path)
  }
  sort.Strings(paths)

  var buf bytes.Buffer
  zw := zip.NewWriter(&buf)
  for _, path := range paths {
    header := &zip.FileHeader{
      Name:     path,
      Method:   zip.Deflate,
      Modified: archiveStamp,
    }
    w, err := zw.CreateHeader(header)
    if err != nil {
      _ = zw.Close()
      return nil, fmt.Errorf("failed to add %q to archive: %w", path, err)
    }
    if _, err := w.Write(entries[path]); err != nil {
      _ = zw.Close()
      return nil, fmt.Errorf("failed to write %q to archive: %w", path, err)
    }
  }
  if err := zw.Close(); err != nil {
    return nil, fmt.Errorf("failed to finalize archive: %w", err)
  }
  return buf.Bytes(), nil
}
