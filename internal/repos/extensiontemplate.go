package repos

import (
  "context"
  "gorm.io/gorm"
  "github.com/autonoma/autonoma-backend/internal/logger"
  "github.com/autonoma/autonoma-backend/internal/types"
)

type ExtensionTemplateRepo interface {
  Create(ctx context.Context, tx *gorm.DB, templates []*types.ExtensionTemplate) ([]*types.ExtensionTemplate, error)
  GetAll(ctx context.Context, tx *gorm.DB) ([]*types.ExtensionTemplate, error)
  GetBySlugs(ctx context.Context, tx *gorm.DB, slugs []string) ([]*types.ExtensionTemplate, error)
  GetByExtensionType(ctx context.Context, tx *gorm.DB, extensionType string) ([]*types.ExtensionTemplate, error)
  CountAll(ctx context.Context, tx *gorm.DB) (int64, error)
  IncrementUsage(ctx context.Context, tx *gorm.DB, slug string) error
}

type extensionTemplateRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewExtensionTemplateRepo(db *gorm.DB, baseLog *logger.Logger) ExtensionTemplateRepo {
  repoLog := baseLog.With("repo", "ExtensionTemplateRepo")
  return &extensionTemplateRepo{db: db, log: repoLog}
}

func (etr *extensionTemplateRepo) Create(ctx context.Context, tx *gorm.DB, templates []*types.ExtensionTemplate) ([]*types.ExtensionTemplate, error) {
  transaction := tx
  if transaction == nil {
    transaction = etr.db
  }

  if len(templates) == 0 {
    return []*types.ExtensionTemplate{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&templates).Error; err != nil {
    return nil, err
  }

  return templates, nil
}

func (etr *extensionTemplateRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.ExtensionTemplate, error) {
  transaction := tx
  if transaction == nil {
    transaction = etr.db
  }

  var templates []*types.ExtensionTemplate
  if err := transaction.WithContext(ctx).
    Order("is_featured DESC").
    Order("name ASC").
    Find(&templates).Error; err != nil {
    return nil, err
  }

  return templates, nil
}

func (etr *extensionTemplateRepo) GetBySlugs(ctx context.Context, tx *gorm.DB, slugs []string) ([]*types.ExtensionTemplate, error) {
  transaction := tx
  if transaction == nil {
    transaction = etr.db
  }

  if len(slugs) == 0 {
    return []*types.ExtensionTemplate{}, nil
  }

  var templates []*types.ExtensionTemplate
  if err := transaction.WithContext(ctx).Where("slug IN ?", slugs).Find(&templates).Error; err != nil {
    return nil, err
  }

  return templates, nil
}

func (etr *extensionTemplateRepo) GetByExtensionType(ctx context.Context, tx *gorm.DB, extensionType string) ([]*types.ExtensionTemplate, error) {
  transaction := tx
  if transaction == nil {
    transaction = etr.db
  }

  var templates []*types.ExtensionTemplate
  if err := transaction.WithContext(ctx).
    Where("extension_type = ?", extensionType).
    Order("name ASC").
    Find(&templates).Error; err != nil {
    return nil, err
  }

  return templates, nil
}

func (etr *extensionTemplateRepo) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = etr.db
  }

  var count int64
  if err := transaction.WithContext(ctx).Model(&types.ExtensionTemplate{}).Count(&count).Error; err != nil {
    return 0, err
  }

  return count, nil
}

func (etr *extensionTemplateRepo) IncrementUsage(ctx context.Context, tx *gorm.DB, slug string) error {
  transaction := tx
  if transaction == nil {
    transaction = etr.db
  }

  return transaction.WithContext(ctx).
    Model(&types.ExtensionTemplate{}).
    Where("slug = ?", slug).
    Update("usage_count", gorm.Expr("usage_count + 1")).Error
}
