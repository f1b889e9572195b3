package services

import (
  "context"
  "encoding/json"
  "fmt"
  "net/http"
  "strings"
  "time"

  "github.com/google/uuid"
  "golang.org/x/sync/semaphore"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/autonoma/autonoma-backend/internal/apierr"
  "github.com/autonoma/autonoma-backend/internal/builder"
  "github.com/autonoma/autonoma-backend/internal/catalog"
  "github.com/autonoma/autonoma-backend/internal/logger"
  "github.com/autonoma/autonoma-backend/internal/manifest"
  "github.com/autonoma/autonoma-backend/internal/matchpattern"
  "github.com/autonoma/autonoma-backend/internal/normalization"
  "github.com/autonoma/autonoma-backend/internal/observability"
  "github.com/autonoma/autonoma-backend/internal/repos"
  "github.com/autonoma/autonoma-backend/internal/sse"
  "github.com/autonoma/autonoma-backend/internal/types"
  "github.com/autonoma/autonoma-backend/internal/utils"
)

type GenerationRequest struct {
  Prompt        string   `json:"prompt"`
  Name          string   `json:"name"`
  ExtensionType string   `json:"extension_type"`
  Permissions   []string `json:"permissions"`
  TargetSites   []string `json:"target_websites"`
  TemplateSlug  string   `json:"template_slug"`
  AnalyzeFirst  bool     `json:"analyze_first"`
}

// GenerationService drives a request through the full pipeline:
// validate, persist, optionally analyze, build, package. Builder and
// packager failures land as terminal failed records that are returned
// to the caller, not thrown; only request validation produces errors.
type GenerationService interface {
  Generate(ctx context.Context, userID uuid.UUID, req GenerationRequest) (*types.Extension, *types.GenerationRun, error)
  GetRun(ctx context.Context, userID uuid.UUID, runID uuid.UUID) (*types.GenerationRun, error)
  StartReaper(ctx context.Context)
}

type generationService struct {
  db            *gorm.DB
  log           *logger.Logger
  extensionRepo repos.ExtensionRepo
  componentRepo repos.ExtensionComponentRepo
  runRepo       repos.GenerationRunRepo
  templateRepo  repos.ExtensionTemplateRepo
  analyzer      AnalyzerService
  registry      *builder.Registry
  packager      PackagerService
  icons         IconService
  emitter       SSEEmitter

  limiter        *semaphore.Weighted
  staleAfter     time.Duration
  reaperInterval time.Duration
  heartbeatEvery time.Duration
}

func NewGenerationService(
  db *gorm.DB,
  baseLog *logger.Logger,
  extensionRepo repos.ExtensionRepo,
  componentRepo repos.ExtensionComponentRepo,
  runRepo repos.GenerationRunRepo,
  templateRepo repos.ExtensionTemplateRepo,
  analyzer AnalyzerService,
  registry *builder.Registry,
  packager PackagerService,
  icons IconService,
  emitter SSEEmitter,
) GenerationService {
  log := baseLog.With("service", "GenerationService")
  maxConcurrent := utils.GetEnvAsInt("MAX_CONCURRENT_GENERATIONS", 4, log)
  if maxConcurrent < 1 {
    maxConcurrent = 1
  }
  staleSeconds := utils.GetEnvAsInt("GENERATION_STALE_AFTER_SECONDS", 300, log)
  reaperSeconds := utils.GetEnvAsInt("GENERATION_REAPER_INTERVAL_SECONDS", 30, log)

  return &generationService{
    db:             db,
    log:            log,
    extensionRepo:  extensionRepo,
    componentRepo:  componentRepo,
    runRepo:        runRepo,
    templateRepo:   templateRepo,
    analyzer:       analyzer,
    registry:       registry,
    packager:       packager,
    icons:          icons,
    emitter:        emitter,
    limiter:        semaphore.NewWeighted(int64(maxConcurrent)),
    staleAfter:     time.Duration(staleSeconds) * time.Second,
    reaperInterval: time.Duration(reaperSeconds) * time.Second,
    heartbeatEvery: 30 * time.Second,
  }
}

type generationParams struct {
  userID        uuid.UUID
  prompt        string
  name          string
  description   string
  extensionType string
  permissions   []string
  targetSites   []string
  analyzeFirst  bool
  templateSlug  string
}

func (s *generationService) Generate(ctx context.Context, userID uuid.UUID, req GenerationRequest) (*types.Extension, *types.GenerationRun, error) {
  params, err := s.prepare(ctx, userID, req)
  if err != nil {
    return nil, nil, err
  }

  if !s.limiter.TryAcquire(1) {
    return nil, nil, apierr.New(http.StatusTooManyRequests, "capacity_exhausted", fmt.Errorf("too many concurrent generations, retry shortly"))
  }
  defer s.limiter.Release(1)

  extension, run, err := s.createRecords(ctx, params)
  if err != nil {
    return nil, nil, err
  }
  s.broadcast(params.userID, sse.SSEEventExtensionCreated, map[string]any{
    "extension_id": extension.ID.String(),
    "run_id":       run.ID.String(),
    "status":       extension.Status,
  })

  if params.templateSlug != "" {
    if err := s.templateRepo.IncrementUsage(ctx, nil, params.templateSlug); err != nil {
      s.log.Warn("Failed to bump template usage", "template_slug", params.templateSlug, "error", err.Error())
    }
  }

  stopHeartbeat := make(chan struct{})
  go s.heartbeatLoop(run.ID, stopHeartbeat)
  s.processRun(ctx, extension, run, params)
  close(stopHeartbeat)

  return s.reload(extension.ID, run.ID)
}

// prepare validates and normalizes the request. Everything rejected
// here fails fast with a 4xx before any record exists.
func (s *generationService) prepare(ctx context.Context, userID uuid.UUID, req GenerationRequest) (*generationParams, error) {
  prompt := normalization.CollapseWhitespace(req.Prompt)
  if prompt == "" {
    return nil, apierr.InvalidInput("prompt is required")
  }

  params := &generationParams{
    userID:        userID,
    prompt:        prompt,
    name:          normalization.TrimInputString(req.Name),
    extensionType: strings.TrimSpace(req.ExtensionType),
    analyzeFirst:  req.AnalyzeFirst,
    templateSlug:  strings.TrimSpace(req.TemplateSlug),
  }

  permissions := req.Permissions

  if params.templateSlug != "" {
    found, err := s.templateRepo.GetBySlugs(ctx, nil, []string{params.templateSlug})
    if err != nil {
      return nil, err
    }
    if len(found) == 0 {
      return nil, apierr.InvalidInput("unknown template %q", params.templateSlug)
    }
    template := found[0]
    if params.extensionType == "" {
      params.extensionType = template.ExtensionType
    }
    if len(permissions) == 0 {
      permissions = toStringSliceJSON(template.Permissions)
    }
  }

  if params.extensionType == "" {
    params.extensionType = catalog.TypePopup
  }
  if _, ok := catalog.ArchetypeByID(params.extensionType); !ok {
    return nil, apierr.InvalidInput("unknown extension type %q, expected one of %s", params.extensionType, strings.Join(catalog.ArchetypeIDs(), ", "))
  }

  for _, perm := range permissions {
    perm = strings.TrimSpace(perm)
    if perm == "" {
      continue
    }
    params.permissions = appendUnique(params.permissions, perm)
  }
  if unknown := catalog.UnknownPermissions(params.permissions); len(unknown) > 0 {
    return nil, apierr.InvalidInput("unknown permissions: %s", strings.Join(unknown, ", "))
  }

  targetSites, err := matchpattern.NormalizeAll(req.TargetSites)
  if err != nil {
    return nil, apierr.New(http.StatusBadRequest, apierr.CodeInvalidInput, err)
  }
  params.targetSites = targetSites

  if params.extensionType == catalog.TypeContentScript && len(params.targetSites) == 0 {
    return nil, apierr.MissingConfiguration("content_script extensions require at least one target site")
  }

  if params.name == "" {
    params.name = nameFromPrompt(prompt)
  }
  params.description = truncate(prompt, 160)

  return params, nil
}

func (s *generationService) createRecords(ctx context.Context, params *generationParams) (*types.Extension, *types.GenerationRun, error) {
  extension := &types.Extension{
    UserID:          params.userID,
    Name:            params.name,
    Description:     params.description,
    Prompt:          params.prompt,
    ExtensionType:   params.extensionType,
    Permissions:     mustJSON(params.permissions),
    HostPermissions: mustJSON(params.targetSites),
    Status:          types.StatusPending,
  }
  run := &types.GenerationRun{
    ID:     uuid.New(),
    UserID: params.userID,
    Status: types.StatusPending,
    Stage:  "accepted",
  }

  err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    if _, err := s.extensionRepo.Create(ctx, tx, []*types.Extension{extension}); err != nil {
      return err
    }
    run.ExtensionID = extension.ID
    if _, err := s.runRepo.Create(ctx, tx, []*types.GenerationRun{run}); err != nil {
      return err
    }
    return nil
  })
  if err != nil {
    return nil, nil, err
  }
  return extension, run, nil
}

// processRun drives the pipeline stages. Status writes use a detached
// context so a client disconnect cannot strand a run in a non-terminal
// state; the reaper would catch it, but there is no reason to wait.
func (s *generationService) processRun(ctx context.Context, extension *types.Extension, run *types.GenerationRun, params *generationParams) {
  dbCtx := context.Background()
  runStart := time.Now()

  fail := func(stage string, cause error) {
    s.log.Error("Generation failed",
      "extension_id", extension.ID.String(),
      "run_id", run.ID.String(),
      "stage", stage,
      "error", cause.Error(),
    )
    now := time.Now()
    if err := s.runRepo.UpdateFields(dbCtx, nil, run.ID, map[string]interface{}{
      "status":        types.StatusFailed,
      "stage":         stage,
      "error":         truncate(cause.Error(), 2000),
      "last_error_at": now,
      "locked_at":     nil,
    }); err != nil {
      s.log.Error("Failed to mark run failed", "run_id", run.ID.String(), "error", err.Error())
    }
    if err := s.extensionRepo.UpdateFields(dbCtx, nil, extension.ID, map[string]interface{}{
      "status": types.StatusFailed,
      "error":  truncate(cause.Error(), 2000),
    }); err != nil {
      s.log.Error("Failed to mark extension failed", "extension_id", extension.ID.String(), "error", err.Error())
    }
    s.broadcast(params.userID, sse.SSEEventGenerationFailed, map[string]any{
      "extension_id": extension.ID.String(),
      "run_id":       run.ID.String(),
      "stage":        stage,
      "error":        truncate(cause.Error(), 500),
    })
    observability.Current().ObserveGenerationRun(types.StatusFailed, time.Since(runStart))
  }

  progress := func(status, stage string, pct int) bool {
    if !types.CanTransition(extension.Status, status) {
      fail(stage, fmt.Errorf("illegal status transition %s -> %s", extension.Status, status))
      return false
    }
    if err := s.runRepo.UpdateFields(dbCtx, nil, run.ID, map[string]interface{}{
      "status":       status,
      "stage":        stage,
      "progress":     pct,
      "locked_at":    time.Now(),
      "heartbeat_at": time.Now(),
    }); err != nil {
      fail(stage, fmt.Errorf("failed to update run: %w", err))
      return false
    }
    if err := s.extensionRepo.UpdateFields(dbCtx, nil, extension.ID, map[string]interface{}{
      "status": status,
    }); err != nil {
      fail(stage, fmt.Errorf("failed to update extension: %w", err))
      return false
    }
    extension.Status = status
    s.broadcast(params.userID, sse.SSEEventGenerationProgress, map[string]any{
      "extension_id": extension.ID.String(),
      "run_id":       run.ID.String(),
      "status":       status,
      "stage":        stage,
      "progress":     pct,
    })
    observability.Current().IncGenerationStage(stage)
    return true
  }

  var features []string

  if params.analyzeFirst {
    if !progress(types.StatusAnalyzing, "analyze", 10) {
      return
    }
    analysis, err := s.analyzer.Analyze(ctx, &params.userID, params.prompt)
    if err != nil {
      // Analysis is advisory: a failure here never kills the run.
      s.log.Warn("Analyze-first pass failed, continuing without analysis", "run_id", run.ID.String(), "error", err.Error())
    } else {
      if err := s.runRepo.UpdateFields(dbCtx, nil, run.ID, map[string]interface{}{
        "analysis": mustJSON(analysis),
      }); err != nil {
        s.log.Warn("Failed to store analysis on run", "run_id", run.ID.String(), "error", err.Error())
      }
      features = analysis.Features
      if extra := permissionsOutside(analysis.Permissions, params.permissions); len(extra) > 0 {
        observability.ReportStructuralDrift(ctx, s.log, []observability.StructuralDriftAlertMetric{{
          Name:      "suggested_permissions_outside_approved_set",
          Status:    "warning",
          Value:     float64(len(extra)),
          Threshold: 0,
          Meta:      map[string]any{"permissions": extra},
        }}, map[string]any{
          "extension_id":   extension.ID.String(),
          "extension_type": params.extensionType,
        })
      }
      // The analysis may improve the display name, never the
      // permission set: what the user approved is what ships.
      if normalization.TrimInputString(params.name) == nameFromPrompt(params.prompt) && analysis.SuggestedName != "" {
        params.name = analysis.SuggestedName
        if err := s.extensionRepo.UpdateFields(dbCtx, nil, extension.ID, map[string]interface{}{
          "name": params.name,
        }); err != nil {
          s.log.Warn("Failed to update extension name", "extension_id", extension.ID.String(), "error", err.Error())
        }
      }
    }
  }

  if !progress(types.StatusBuilding, "build", 30) {
    return
  }

  files, err := s.registry.Build(ctx, builder.BuildInput{
    ExtensionType: params.extensionType,
    Name:          params.name,
    Description:   params.description,
    Prompt:        params.prompt,
    Version:       manifest.DefaultVersion,
    Permissions:   params.permissions,
    TargetSites:   params.targetSites,
    Features:      features,
  })
  if err != nil {
    fail("build", err)
    return
  }

  if err := builder.CheckGatedAPIs(files, params.permissions); err != nil {
    s.reportQuality(ctx, "build", extension, params, err)
    fail("build", err)
    return
  }

  manifestInput := manifest.Input{
    Name:            params.name,
    Description:     params.description,
    Version:         manifest.DefaultVersion,
    ExtensionType:   params.extensionType,
    Permissions:     params.permissions,
    HostPermissions: params.targetSites,
  }
  manifestDoc, err := manifest.Build(manifestInput)
  if err != nil {
    fail("build", err)
    return
  }
  if err := manifest.Validate(manifestDoc, manifestInput); err != nil {
    s.reportQuality(ctx, "build", extension, params, err)
    fail("build", err)
    return
  }
  manifestJSON, err := manifest.Encode(manifestDoc)
  if err != nil {
    fail("build", err)
    return
  }
  files = append(files, builder.File{
    Path:        manifest.FileName,
    Content:     string(manifestJSON),
    Type:        "json",
    Description: "Chrome extension manifest file",
  })
  if err := files.Validate(); err != nil {
    s.reportQuality(ctx, "build", extension, params, err)
    fail("build", err)
    return
  }

  iconSet, err := s.icons.GenerateSet(params.name)
  if err != nil {
    fail("build", err)
    return
  }

  if err := s.persistComponents(dbCtx, extension, files, iconSet, manifestJSON); err != nil {
    fail("build", err)
    return
  }

  if !progress(types.StatusPackaging, "package", 80) {
    return
  }

  archiveKey, archiveSize, err := s.packager.Package(ctx, extension.ID, files, iconSet)
  if err != nil {
    fail("package", err)
    return
  }

  now := time.Now()
  if err := s.extensionRepo.UpdateFields(dbCtx, nil, extension.ID, map[string]interface{}{
    "status":       types.StatusComplete,
    "error":        "",
    "archive_key":  archiveKey,
    "archive_size": archiveSize,
    "completed_at": now,
  }); err != nil {
    fail("package", fmt.Errorf("failed to finalize extension: %w", err))
    return
  }
  if err := s.runRepo.UpdateFields(dbCtx, nil, run.ID, map[string]interface{}{
    "status":    types.StatusComplete,
    "stage":     "done",
    "progress":  100,
    "error":     "",
    "locked_at": nil,
  }); err != nil {
    fail("package", fmt.Errorf("failed to finalize run: %w", err))
    return
  }

  s.log.Info("Generation complete",
    "extension_id", extension.ID.String(),
    "run_id", run.ID.String(),
    "archive_key", archiveKey,
    "archive_size", archiveSize,
  )
  s.broadcast(params.userID, sse.SSEEventGenerationCompleted, map[string]any{
    "extension_id": extension.ID.String(),
    "run_id":       run.ID.String(),
    "status":       types.StatusComplete,
    "archive_size": archiveSize,
  })
  observability.Current().ObserveGenerationRun(types.StatusComplete, time.Since(runStart))
  observability.Current().AddArchiveBytes(archiveSize)
}

func (s *generationService) reportQuality(ctx context.Context, stage string, extension *types.Extension, params *generationParams, cause error) {
  observability.ReportDataQualityErrors(ctx, s.log, stage, []string{cause.Error()}, map[string]any{
    "extension_id":   extension.ID.String(),
    "extension_type": params.extensionType,
  })
}

func (s *generationService) persistComponents(ctx context.Context, extension *types.Extension, files builder.FileSet, icons map[string][]byte, manifestJSON []byte) error {
  components := make([]*types.ExtensionComponent, 0, len(files)+len(icons))
  for _, f := range files {
    components = append(components, &types.ExtensionComponent{
      ExtensionID: extension.ID,
      FilePath:    f.Path,
      Content:     f.Content,
      FileType:    f.Type,
      Description: f.Description,
    })
  }
  for path := range icons {
    components = append(components, &types.ExtensionComponent{
      ExtensionID: extension.ID,
      FilePath:    path,
      FileType:    "png",
      Description: "Generated icon asset",
    })
  }

  return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    if err := s.componentRepo.DeleteByExtensionIDs(ctx, tx, []uuid.UUID{extension.ID}); err != nil {
      return err
    }
    if _, err := s.componentRepo.Create(ctx, tx, components); err != nil {
      return err
    }
    return s.extensionRepo.UpdateFields(ctx, tx, extension.ID, map[string]interface{}{
      "manifest": datatypes.JSON(manifestJSON),
    })
  })
}

func (s *generationService) reload(extensionID uuid.UUID, runID uuid.UUID) (*types.Extension, *types.GenerationRun, error) {
  ctx := context.Background()
  extensions, err := s.extensionRepo.GetByIDs(ctx, nil, []uuid.UUID{extensionID})
  if err != nil {
    return nil, nil, err
  }
  runs, err := s.runRepo.GetByIDs(ctx, nil, []uuid.UUID{runID})
  if err != nil {
    return nil, nil, err
  }
  if len(extensions) == 0 || len(runs) == 0 {
    return nil, nil, apierr.NotFound("generation records disappeared")
  }
  return extensions[0], runs[0], nil
}

func (s *generationService) GetRun(ctx context.Context, userID uuid.UUID, runID uuid.UUID) (*types.GenerationRun, error) {
  runs, err := s.runRepo.GetByIDs(ctx, nil, []uuid.UUID{runID})
  if err != nil {
    return nil, err
  }
  if len(runs) == 0 || runs[0].UserID != userID {
    return nil, apierr.NotFound("generation run not found")
  }
  return runs[0], nil
}

func (s *generationService) heartbeatLoop(runID uuid.UUID, stop <-chan struct{}) {
  ticker := time.NewTicker(s.heartbeatEvery)
  defer ticker.Stop()
  for {
    select {
    case <-stop:
      return
    case <-ticker.C:
      if err := s.runRepo.Heartbeat(context.Background(), nil, runID); err != nil {
        s.log.Warn("Run heartbeat failed", "run_id", runID.String(), "error", err.Error())
      }
    }
  }
}

// StartReaper sweeps runs whose pipeline stopped heartbeating (process
// crash, kill -9) into a terminal failed state.
func (s *generationService) StartReaper(ctx context.Context) {
  go func() {
    s.log.Info("Generation reaper started",
      "interval", s.reaperInterval.String(),
      "stale_after", s.staleAfter.String(),
    )
    ticker := time.NewTicker(s.reaperInterval)
    defer ticker.Stop()
    for {
      select {
      case <-ctx.Done():
        s.log.Info("Generation reaper stopped")
        return
      case <-ticker.C:
        s.sweepOnce(ctx)
      }
    }
  }()
}

func (s *generationService) sweepOnce(ctx context.Context) {
  for {
    run, err := s.runRepo.ClaimStale(ctx, nil, s.staleAfter, "generation timed out: no heartbeat")
    if err != nil {
      s.log.Error("Reaper sweep failed", "error", err.Error())
      return
    }
    if run == nil {
      return
    }
    s.log.Warn("Reaped stale generation run",
      "run_id", run.ID.String(),
      "extension_id", run.ExtensionID.String(),
    )
    if err := s.extensionRepo.UpdateFields(ctx, nil, run.ExtensionID, map[string]interface{}{
      "status": types.StatusFailed,
      "error":  run.Error,
    }); err != nil {
      s.log.Error("Failed to fail extension for reaped run", "extension_id", run.ExtensionID.String(), "error", err.Error())
    }
    s.broadcast(run.UserID, sse.SSEEventGenerationFailed, map[string]any{
      "extension_id": run.ExtensionID.String(),
      "run_id":       run.ID.String(),
      "stage":        run.Stage,
      "error":        run.Error,
    })
    observability.Current().ObserveGenerationRun("timeout", 0)
  }
}

func (s *generationService) broadcast(userID uuid.UUID, event sse.SSEEvent, data map[string]any) {
  if s.emitter == nil {
    return
  }
  s.emitter.Emit(context.Background(), sse.SSEMessage{
    Channel: sse.UserChannel(userID),
    Event:   event,
    Data:    data,
  })
}

// ---- shared helpers ----

func mustJSON(v interface{}) datatypes.JSON {
  if v == nil {
    return datatypes.JSON([]byte("null"))
  }
  raw, err := json.Marshal(v)
  if err != nil {
    return datatypes.JSON([]byte("null"))
  }
  return datatypes.JSON(raw)
}

func toStringSlice(v interface{}) []string {
  items, ok := v.([]any)
  if !ok {
    return nil
  }
  out := make([]string, 0, len(items))
  for _, item := range items {
    if s, ok := item.(string); ok {
      s = strings.TrimSpace(s)
      if s != "" {
        out = append(out, s)
      }
    }
  }
  return out
}

func toStringSliceJSON(raw datatypes.JSON) []string {
  if len(raw) == 0 {
    return nil
  }
  var out []string
  if err := json.Unmarshal(raw, &out); err != nil {
    return nil
  }
  return out
}

func appendUnique(list []string, value string) []string {
  for _, existing := range list {
    if existing == value {
      return list
    }
  }
  return append(list, value)
}

func permissionsOutside(suggested, approved []string) []string {
  var extra []string
  for _, perm := range suggested {
    found := false
    for _, ok := range approved {
      if perm == ok {
        found = true
        break
      }
    }
    if !found {
      extra = appendUnique(extra, perm)
    }
  }
  return extra
}

func truncate(s string, max int) string {
  if len(s) <= max {
    return s
  }
  if max <= 3 {
    return s[:max]
  }
  return s[:max-3] + "..."
}
