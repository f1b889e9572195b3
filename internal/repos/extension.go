package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/autonoma/autonoma-backend/internal/logger"
  "github.com/autonoma/autonoma-backend/internal/types"
)

type ExtensionRepo interface {
  Create(ctx context.Context, tx *gorm.DB, extensions []*types.Extension) ([]*types.Extension, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, extensionIDs []uuid.UUID) ([]*types.Extension, error)
  ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit, offset int) ([]*types.Extension, error)
  CountByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, extensionID uuid.UUID, fields map[string]interface{}) error
  SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, extensionIDs []uuid.UUID) error
}

type extensionRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewExtensionRepo(db *gorm.DB, baseLog *logger.Logger) ExtensionRepo {
  repoLog := baseLog.With("repo", "ExtensionRepo")
  return &extensionRepo{db: db, log: repoLog}
}

func (er *extensionRepo) Create(ctx context.Context, tx *gorm.DB, extensions []*types.Extension) ([]*types.Extension, error) {
  transaction := tx
  if transaction == nil {
    transaction = er.db
  }

  if len(extensions) == 0 {
    return []*types.Extension{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&extensions).Error; err != nil {
    return nil, err
  }

  return extensions, nil
}

func (er *extensionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, extensionIDs []uuid.UUID) ([]*types.Extension, error) {
  transaction := tx
  if transaction == nil {
    transaction = er.db
  }

  if len(extensionIDs) == 0 {
    return []*types.Extension{}, nil
  }

  var extensions []*types.Extension
  if err := transaction.WithContext(ctx).Where("id IN ?", extensionIDs).Find(&extensions).Error; err != nil {
    return nil, err
  }

  return extensions, nil
}

func (er *extensionRepo) ListByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit, offset int) ([]*types.Extension, error) {
  transaction := tx
  if transaction == nil {
    transaction = er.db
  }

  query := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("created_at DESC")
  if limit > 0 {
    query = query.Limit(limit)
  }
  if offset > 0 {
    query = query.Offset(offset)
  }

  var extensions []*types.Extension
  if err := query.Find(&extensions).Error; err != nil {
    return nil, err
  }

  return extensions, nil
}

func (er *extensionRepo) CountByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = er.db
  }

  var count int64
  if err := transaction.WithContext(ctx).Model(&types.Extension{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
    return 0, err
  }

  return count, nil
}

func (er *extensionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, extensionID uuid.UUID, fields map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = er.db
  }

  if len(fields) == 0 {
    return nil
  }

  return transaction.WithContext(ctx).
    Model(&types.Extension{}).
    Where("id = ?", extensionID).
    Updates(fields).Error
}

func (er *extensionRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, extensionIDs []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = er.db
  }

  if len(extensionIDs) == 0 {
    return nil
  }

  return transaction.WithContext(ctx).
    Where("id IN ?", extensionIDs).
    Delete(&types.Extension{}).Error
}
