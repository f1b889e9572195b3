package services

import (
  "bytes"
  "context"
  "fmt"
  "io"
  "os"
  "strings"
  "sync"

  "github.com/minio/minio-go/v7"
  "github.com/minio/minio-go/v7/pkg/credentials"

  "github.com/autonoma/autonoma-backend/internal/logger"
  "github.com/autonoma/autonoma-backend/internal/utils"
)

type s3ArchiveStore struct {
  client     *minio.Client
  bucketName string
  region     string
  log        *logger.Logger

  initOnce sync.Once
  initErr  error
}

func NewS3ArchiveStore(log *logger.Logger) (ArchiveStore, error) {
  endpoint := strings.TrimSpace(os.Getenv("S3_ENDPOINT"))
  if endpoint == "" {
    return nil, fmt.Errorf("missing env var S3_ENDPOINT")
  }
  access := strings.TrimSpace(os.Getenv("S3_ACCESS_KEY"))
  secret := strings.TrimSpace(os.Getenv("S3_SECRET_KEY"))
  if access == "" || secret == "" {
    return nil, fmt.Errorf("missing env vars S3_ACCESS_KEY / S3_SECRET_KEY")
  }
  bucket := strings.TrimSpace(os.Getenv("S3_BUCKET"))
  if bucket == "" {
    return nil, fmt.Errorf("missing env var S3_BUCKET")
  }
  region := utils.GetEnv("S3_REGION", "us-east-1", log)
  useSSL := utils.GetEnvAsBool("S3_USE_SSL", true, log)

  client, err := minio.New(endpoint, &minio.Options{
    Creds:  credentials.NewStaticV4(access, secret, ""),
    Secure: useSSL,
    Region: region,
  })
  if err != nil {
    return nil, fmt.Errorf("init s3 client: %w", err)
  }

  log.Info("S3 archive store ready", "endpoint", endpoint, "bucket", bucket)
  return &s3ArchiveStore{
    client:     client,
    bucketName: bucket,
    region:     region,
    log:        log,
  }, nil
}

func (s *s3ArchiveStore) ensureBucket(ctx context.Context) error {
  s.initOnce.Do(func() {
    exists, err := s.client.BucketExists(ctx, s.bucketName)
    if err != nil {
      s.initErr = err
      return
    }
    if exists {
      return
    }
    s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
  })
  return s.initErr
}

func (s *s3ArchiveStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
  if err := s.ensureBucket(ctx); err != nil {
    return fmt.Errorf("ensure bucket: %w", err)
  }
  _, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
    ContentType: contentType,
  })
  return err
}

func (s *s3ArchiveStore) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
  if err := s.ensureBucket(ctx); err != nil {
    return nil, 0, fmt.Errorf("ensure bucket: %w", err)
  }
  obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
  if err != nil {
    return nil, 0, err
  }
  stat, err := obj.Stat()
  if err != nil {
    _ = obj.Close()
    return nil, 0, err
  }
  return obj, stat.Size, nil
}

func (s *s3ArchiveStore) Delete(ctx context.Context, key string) error {
  if err := s.ensureBucket(ctx); err != nil {
    return fmt.Errorf("ensure bucket: %w", err)
  }
  return s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{})
}
