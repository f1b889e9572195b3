package services

import (
  "context"
  "fmt"
  "io"
  "os"
  "path/filepath"
  "strings"

  "github.com/autonoma/autonoma-backend/internal/logger"
  "github.com/autonoma/autonoma-backend/internal/utils"
)

// ArchiveStore persists packaged extension zips. Keys are opaque paths
// like extensions/<uuid>.zip; the store decides where the bytes live.
type ArchiveStore interface {
  Put(ctx context.Context, key string, data []byte, contentType string) error
  Open(ctx context.Context, key string) (io.ReadCloser, int64, error)
  Delete(ctx context.Context, key string) error
}

// NewArchiveStore selects the backend from ARCHIVE_STORE: local (the
// default), gcs, or s3.
func NewArchiveStore(baseLog *logger.Logger) (ArchiveStore, error) {
  log := baseLog.With("service", "ArchiveStore")
  backend := strings.ToLower(utils.GetEnv("ARCHIVE_STORE", "local", log))
  switch backend {
  case "local":
    return NewLocalArchiveStore(log)
  case "gcs":
    return NewGCSArchiveStore(log)
  case "s3":
    return NewS3ArchiveStore(log)
  default:
    return nil, fmt.Errorf("unknown ARCHIVE_STORE %q (expected local, gcs or s3)", backend)
  }
}

type localArchiveStore struct {
  dir string
  log *logger.Logger
}

func NewLocalArchiveStore(log *logger.Logger) (ArchiveStore, error) {
  dir := utils.GetEnv("ARCHIVE_DIR", "generated_projects", log)
  if err := os.MkdirAll(dir, 0o755); err != nil {
    return nil, fmt.Errorf("create archive dir %q: %w", dir, err)
  }
  log.Info("Local archive store ready", "dir", dir)
  return &localArchiveStore{dir: dir, log: log}, nil
}

func (s *localArchiveStore) resolve(key string) (string, error) {
  cleaned := filepath.Clean(key)
  if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
    return "", fmt.Errorf("invalid archive key %q", key)
  }
  return filepath.Join(s.dir, cleaned), nil
}

func (s *localArchiveStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
  path, err := s.resolve(key)
  if err != nil {
    return err
  }
  if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
    return err
  }

  tmp := path + ".tmp"
  if err := os.WriteFile(tmp, data, 0o644); err != nil {
    return err
  }
  if err := os.Rename(tmp, path); err != nil {
    _ = os.Remove(tmp)
    return err
  }
  return nil
}

func (s *localArchiveStore) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
  path, err := s.resolve(key)
  if err != nil {
    return nil, 0, err
  }
  f, err := os.Open(path)
  if err != nil {
    return nil, 0, err
  }
  info, err := f.Stat()
  if err != nil {
    _ = f.Close()
    return nil, 0, err
  }
  return f, info.Size(), nil
}

func (s *localArchiveStore) Delete(ctx context.Context, key string) error {
  path, err := s.resolve(key)
  if err != nil {
    return err
  }
  err = os.Remove(path)
  if os.IsNotExist(err) {
    return nil
  }
  return err
}
