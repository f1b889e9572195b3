package services

import (
  "bytes"
  "context"
  "fmt"
  "io"
  "os"
  "time"

  "cloud.google.com/go/storage"
  "google.golang.org/api/option"

  "github.com/autonoma/autonoma-backend/internal/logger"
)

type gcsArchiveStore struct {
  log           *logger.Logger
  storageClient *storage.Client
  bucketName    string
}

func NewGCSArchiveStore(log *logger.Logger) (ArchiveStore, error) {
  bucket := os.Getenv("GCS_BUCKET_NAME")
  if bucket == "" {
    return nil, fmt.Errorf("missing env var GCS_BUCKET_NAME")
  }
  saPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")
  if saPath == "" {
    log.Warn("GOOGLE_APPLICATION_CREDENTIALS_JSON not set, storage client will rely on ambient ADC")
  }
  ctx := context.Background()
  var stClient *storage.Client
  var err error
  if saPath != "" {
    stClient, err = storage.NewClient(ctx, option.WithCredentialsFile(saPath), option.WithScopes(storage.ScopeReadWrite))
  } else {
    stClient, err = storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
  }
  if err != nil {
    return nil, fmt.Errorf("Failed to create storage client: %w", err)
  }
  log.Info("GCS archive store ready", "bucket", bucket)
  return &gcsArchiveStore{
    log:           log,
    storageClient: stClient,
    bucketName:    bucket,
  }, nil
}

func (s *gcsArchiveStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
  ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
  defer cancel()
  w := s.storageClient.Bucket(s.bucketName).Object(key).NewWriter(ctx)
  w.ContentType = contentType
  if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
    _ = w.Close()
    return fmt.Errorf("Failed to write data to GCS: %w", err)
  }
  if err := w.Close(); err != nil {
    return fmt.Errorf("Failed to close GCS writer: %w", err)
  }
  return nil
}

func (s *gcsArchiveStore) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
  r, err := s.storageClient.Bucket(s.bucketName).Object(key).NewReader(ctx)
  if err != nil {
    return nil, 0, fmt.Errorf("Failed to open GCS object %q: %w", key, err)
  }
  return r, r.Attrs.Size, nil
}

func (s *gcsArchiveStore) Delete(ctx context.Context, key string) error {
  ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
  defer cancel()
  o := s.storageClient.Bucket(s.bucketName).Object(key)
  if err := o.Delete(ctx); err != nil {
    return fmt.Errorf("Failed to delete GCS object %q: %w", key, err)
  }
  return nil
}
