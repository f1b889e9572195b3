package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/autonoma/autonoma-backend/internal/logger"
  "github.com/autonoma/autonoma-backend/internal/types"
)

type ExtensionComponentRepo interface {
  Create(ctx context.Context, tx *gorm.DB, components []*types.ExtensionComponent) ([]*types.ExtensionComponent, error)
  GetByExtensionIDs(ctx context.Context, tx *gorm.DB, extensionIDs []uuid.UUID) ([]*types.ExtensionComponent, error)
  DeleteByExtensionIDs(ctx context.Context, tx *gorm.DB, extensionIDs []uuid.UUID) error
}

type extensionComponentRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewExtensionComponentRepo(db *gorm.DB, baseLog *logger.Logger) ExtensionComponentRepo {
  repoLog := baseLog.With("repo", "ExtensionComponentRepo")
  return &extensionComponentRepo{db: db, log: repoLog}
}

func (ecr *extensionComponentRepo) Create(ctx context.Context, tx *gorm.DB, components []*types.ExtensionComponent) ([]*types.ExtensionComponent, error) {
  transaction := tx
  if transaction == nil {
    transaction = ecr.db
  }

  if len(components) == 0 {
    return []*types.ExtensionComponent{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&components).Error; err != nil {
    return nil, err
  }

  return components, nil
}

func (ecr *extensionComponentRepo) GetByExtensionIDs(ctx context.Context, tx *gorm.DB, extensionIDs []uuid.UUID) ([]*types.ExtensionComponent, error) {
  transaction := tx
  if transaction == nil {
    transaction = ecr.db
  }

  if len(extensionIDs) == 0 {
    return []*types.ExtensionComponent{}, nil
  }

  var components []*types.ExtensionComponent
  if err := transaction.WithContext(ctx).
    Where("extension_id IN ?", extensionIDs).
    Order("file_path ASC").
    Find(&components).Error; err != nil {
    return nil, err
  }

  return components, nil
}

func (ecr *extensionComponentRepo) DeleteByExtensionIDs(ctx context.Context, tx *gorm.DB, extensionIDs []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = ecr.db
  }

  if len(extensionIDs) == 0 {
    return nil
  }

  return transaction.WithContext(ctx).Unscoped().Where("extension_id IN ?", extensionIDs).Delete(&types.ExtensionComponent{}).Error
}
