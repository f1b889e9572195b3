package repos

import (
  "context"
  "errors"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"

  "github.com/autonoma/autonoma-backend/internal/logger"
  "github.com/autonoma/autonoma-backend/internal/types"
)

type GenerationRunRepo interface {
  Create(ctx context.Context, tx *gorm.DB, runs []*types.GenerationRun) ([]*types.GenerationRun, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.GenerationRun, error)
  GetLatestByExtensionID(ctx context.Context, tx *gorm.DB, extensionID uuid.UUID) (*types.GenerationRun, error)

  // Claims one run whose pipeline stopped heartbeating (crashed process,
  // killed pod) and marks it failed. Returns nil when nothing is stale.
  ClaimStale(ctx context.Context, tx *gorm.DB, staleAfter time.Duration, failError string) (*types.GenerationRun, error)

  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
  Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type generationRunRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewGenerationRunRepo(db *gorm.DB, baseLog *logger.Logger) GenerationRunRepo {
  repoLog := baseLog.With("repo", "GenerationRunRepo")
  return &generationRunRepo{db: db, log: repoLog}
}

func (r *generationRunRepo) Create(ctx context.Context, tx *gorm.DB, runs []*types.GenerationRun) ([]*types.GenerationRun, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(runs) == 0 {
    return []*types.GenerationRun{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&runs).Error; err != nil {
    return nil, err
  }
  return runs, nil
}

func (r *generationRunRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.GenerationRun, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.GenerationRun
  if len(ids) == 0 {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("id IN ?", ids).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *generationRunRepo) GetLatestByExtensionID(ctx context.Context, tx *gorm.DB, extensionID uuid.UUID) (*types.GenerationRun, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if extensionID == uuid.Nil {
    return nil, nil
  }

  var run types.GenerationRun
  err := transaction.WithContext(ctx).
    Where("extension_id = ?", extensionID).
    Order("created_at DESC").
    Limit(1).
    Find(&run).Error
  if err != nil {
    return nil, err
  }
  if run.ID == uuid.Nil {
    return nil, nil
  }
  return &run, nil
}

func (r *generationRunRepo) ClaimStale(
  ctx context.Context,
  tx *gorm.DB,
  staleAfter time.Duration,
  failError string,
) (*types.GenerationRun, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  now := time.Now()
  staleCutoff := now.Add(-staleAfter)

  var claimed *types.GenerationRun

  err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
    var run types.GenerationRun

    q := txx.
      Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
      Where(`
        (
          status IN ?
          AND (
            (heartbeat_at IS NOT NULL AND heartbeat_at < ?)
            OR (heartbeat_at IS NULL AND created_at < ?)
          )
        )
      `, []string{types.StatusPending, types.StatusAnalyzing, types.StatusBuilding, types.StatusPackaging}, staleCutoff, staleCutoff).
      Order("created_at ASC")

    qErr := q.First(&run).Error
    if errors.Is(qErr, gorm.ErrRecordNotFound) {
      return nil
    }
    if qErr != nil {
      return qErr
    }

    uErr := txx.Model(&types.GenerationRun{}).
      Where("id = ?", run.ID).
      Updates(map[string]interface{}{
        "status":        types.StatusFailed,
        "error":         failError,
        "last_error_at": now,
        "locked_at":     nil,
        "updated_at":    now,
      }).Error
    if uErr != nil {
      return uErr
    }

    run.Status = types.StatusFailed
    run.Error = failError
    claimed = &run
    return nil
  })

  if err != nil {
    return nil, err
  }
  return claimed, nil
}

func (r *generationRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil
  }
  if updates == nil {
    updates = map[string]interface{}{}
  }
  if _, ok := updates["updated_at"]; !ok {
    updates["updated_at"] = time.Now()
  }
  return transaction.WithContext(ctx).
    Model(&types.GenerationRun{}).
    Where("id = ?", id).
    Updates(updates).Error
}

func (r *generationRunRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil
  }
  now := time.Now()
  return transaction.WithContext(ctx).
    Model(&types.GenerationRun{}).
    Where("id = ? AND status IN ?", id, []string{types.StatusAnalyzing, types.StatusBuilding, types.StatusPackaging}).
    Updates(map[string]interface{}{
      "heartbeat_at": now,
      "updated_at":   now,
    }).Error
}
