package services

import (
  "context"
  "fmt"
  "io"
  "strings"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/autonoma/autonoma-backend/internal/apierr"
  "github.com/autonoma/autonoma-backend/internal/catalog"
  "github.com/autonoma/autonoma-backend/internal/logger"
  "github.com/autonoma/autonoma-backend/internal/repos"
  "github.com/autonoma/autonoma-backend/internal/requestdata"
  "github.com/autonoma/autonoma-backend/internal/types"
)

type ExtensionService interface {
  List(ctx context.Context, limit, offset int) ([]*types.Extension, int64, error)
  Get(ctx context.Context, extensionID uuid.UUID) (*types.Extension, error)
  LatestRun(ctx context.Context, extensionID uuid.UUID) (*types.GenerationRun, error)
  Components(ctx context.Context, extensionID uuid.UUID) ([]*types.ExtensionComponent, error)
  Preview(ctx context.Context, extensionID uuid.UUID, filePath string) (*types.ExtensionComponent, error)
  Download(ctx context.Context, extensionID uuid.UUID) (io.ReadCloser, int64, string, error)
  Delete(ctx context.Context, extensionID uuid.UUID) error
}

type extensionService struct {
  db            *gorm.DB
  log           *logger.Logger
  extensionRepo repos.ExtensionRepo
  componentRepo repos.ExtensionComponentRepo
  runRepo       repos.GenerationRunRepo
  store         ArchiveStore
}

func NewExtensionService(
  db *gorm.DB,
  baseLog *logger.Logger,
  extensionRepo repos.ExtensionRepo,
  componentRepo repos.ExtensionComponentRepo,
  runRepo repos.GenerationRunRepo,
  store ArchiveStore,
) ExtensionService {
  return &extensionService{
    db:            db,
    log:           baseLog.With("service", "ExtensionService"),
    extensionRepo: extensionRepo,
    componentRepo: componentRepo,
    runRepo:       runRepo,
    store:         store,
  }
}

func (es *extensionService) List(ctx context.Context, limit, offset int) ([]*types.Extension, int64, error) {
  userID := requestdata.UserID(ctx)
  if userID == uuid.Nil {
    return nil, 0, apierr.Unauthorized("user id not set in request data")
  }

  if limit <= 0 {
    limit = 20
  }
  if limit > 100 {
    limit = 100
  }
  if offset < 0 {
    offset = 0
  }

  extensions, err := es.extensionRepo.ListByUserID(ctx, nil, userID, limit, offset)
  if err != nil {
    return nil, 0, fmt.Errorf("Failed to list extensions: %w", err)
  }
  total, err := es.extensionRepo.CountByUserID(ctx, nil, userID)
  if err != nil {
    return nil, 0, fmt.Errorf("Failed to count extensions: %w", err)
  }
  return extensions, total, nil
}

// getOwned loads an extension and enforces ownership. A foreign or
// missing id both come back as not found so ids cannot be probed.
func (es *extensionService) getOwned(ctx context.Context, extensionID uuid.UUID) (*types.Extension, error) {
  userID := requestdata.UserID(ctx)
  if userID == uuid.Nil {
    return nil, apierr.Unauthorized("user id not set in request data")
  }

  found, err := es.extensionRepo.GetByIDs(ctx, nil, []uuid.UUID{extensionID})
  if err != nil {
    return nil, fmt.Errorf("Failed to fetch extension: %w", err)
  }
  if len(found) == 0 || found[0] == nil || found[0].UserID != userID {
    return nil, apierr.NotFound("extension not found")
  }
  return found[0], nil
}

func (es *extensionService) Get(ctx context.Context, extensionID uuid.UUID) (*types.Extension, error) {
  return es.getOwned(ctx, extensionID)
}

func (es *extensionService) LatestRun(ctx context.Context, extensionID uuid.UUID) (*types.GenerationRun, error) {
  extension, err := es.getOwned(ctx, extensionID)
  if err != nil {
    return nil, err
  }
  run, err := es.runRepo.GetLatestByExtensionID(ctx, nil, extension.ID)
  if err != nil {
    return nil, fmt.Errorf("Failed to fetch latest run: %w", err)
  }
  if run == nil {
    return nil, apierr.NotFound("no generation run found for extension")
  }
  return run, nil
}

func (es *extensionService) Components(ctx context.Context, extensionID uuid.UUID) ([]*types.ExtensionComponent, error) {
  extension, err := es.getOwned(ctx, extensionID)
  if err != nil {
    return nil, err
  }
  components, err := es.componentRepo.GetByExtensionIDs(ctx, nil, []uuid.UUID{extension.ID})
  if err != nil {
    return nil, fmt.Errorf("Failed to fetch components: %w", err)
  }
  return components, nil
}

func (es *extensionService) Preview(ctx context.Context, extensionID uuid.UUID, filePath string) (*types.ExtensionComponent, error) {
  filePath = strings.TrimSpace(filePath)
  if filePath == "" {
    return nil, apierr.InvalidInput("file path is required")
  }
  components, err := es.Components(ctx, extensionID)
  if err != nil {
    return nil, err
  }
  for _, component := range components {
    if component.FilePath == filePath {
      return component, nil
    }
  }
  return nil, apierr.NotFound("file %q not found in extension", filePath)
}

// Download streams the packaged archive. The caller owns the reader.
func (es *extensionService) Download(ctx context.Context, extensionID uuid.UUID) (io.ReadCloser, int64, string, error) {
  extension, err := es.getOwned(ctx, extensionID)
  if err != nil {
    return nil, 0, "", err
  }
  if extension.Status != types.StatusComplete || extension.ArchiveKey == "" {
    return nil, 0, "", apierr.NotReady("extension is not ready for download (status %s)", extension.Status)
  }

  reader, size, err := es.store.Open(ctx, extension.ArchiveKey)
  if err != nil {
    es.log.Error("Failed to open archive", "extension_id", extension.ID.String(), "archive_key", extension.ArchiveKey, "error", err.Error())
    return nil, 0, "", fmt.Errorf("Failed to open archive: %w", err)
  }
  return reader, size, archiveFilename(extension.Name), nil
}

func (es *extensionService) Delete(ctx context.Context, extensionID uuid.UUID) error {
  extension, err := es.getOwned(ctx, extensionID)
  if err != nil {
    return err
  }

  if extension.ArchiveKey != "" {
    if err := es.store.Delete(ctx, extension.ArchiveKey); err != nil {
      // The row delete still proceeds: an orphaned archive is
      // recoverable, a dangling row pointing at nothing is not.
      es.log.Warn("Failed to delete archive", "archive_key", extension.ArchiveKey, "error", err.Error())
    }
  }

  return es.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    if err := es.componentRepo.DeleteByExtensionIDs(ctx, tx, []uuid.UUID{extension.ID}); err != nil {
      return fmt.Errorf("Failed to delete components: %w", err)
    }
    if err := es.extensionRepo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{extension.ID}); err != nil {
      return fmt.Errorf("Failed to delete extension: %w", err)
    }
    return nil
  })
}

// archiveFilename turns a display name into a safe download filename.
func archiveFilename(name string) string {
  var b strings.Builder
  for _, r := range strings.ToLower(strings.TrimSpace(name)) {
    switch {
    case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
      b.WriteRune(r)
    case r == ' ' || r == '-' || r == '_':
      b.WriteByte('-')
    }
  }
  slug := strings.Trim(b.String(), "-")
  if slug == "" {
    slug = "extension"
  }
  return slug + ".zip"
}

// InstallInstructions returns the load-unpacked walkthrough for a
// freshly generated extension, with a final step specific to how the
// archetype surfaces in the browser.
func InstallInstructions(extensionType string) []string {
  steps := []string{
    "1. Open Chrome and navigate to chrome://extensions/",
    "2. Enable 'Developer mode' in the top right corner",
    "3. Click 'Load unpacked' and select the extension directory",
    "4. The extension should now appear in your extensions list",
    "5. Pin the extension to your toolbar for easy access",
    "6. Test the extension functionality",
  }
  switch extensionType {
  case catalog.TypePopup:
    steps = append(steps, "7. Click the extension icon in the toolbar to open the popup")
  case catalog.TypeContentScript:
    steps = append(steps, "7. Visit the target websites to see the content script in action")
  case catalog.TypeDevTools:
    steps = append(steps, "7. Open Developer Tools (F12) to access the custom panel")
  case catalog.TypeBackground:
    steps = append(steps, "7. The background service worker runs automatically once installed")
  case catalog.TypeOptions:
    steps = append(steps, "7. Right-click the extension icon and choose 'Options' to configure it")
  }
  return steps
}
