package services

import (
  "context"
  "fmt"
  "strings"
  "time"

  "github.com/google/uuid"

  "github.com/autonoma/autonoma-backend/internal/builder"
  "github.com/autonoma/autonoma-backend/internal/logger"
  "github.com/autonoma/autonoma-backend/internal/observability"
  "github.com/autonoma/autonoma-backend/internal/repos"
  "github.com/autonoma/autonoma-backend/internal/requestdata"
  "github.com/autonoma/autonoma-backend/internal/types"
)

// componentDrafter turns the provider into a builder.Drafter: one call
// per component file, seeded with the scaffold so the model refines
// working code instead of writing from nothing.
type componentDrafter struct {
  ai        OpenAIClient
  cache     DraftCache
  aiLogRepo repos.AICallLogRepo
  log       *logger.Logger
}

func NewComponentDrafter(ai OpenAIClient, cache DraftCache, aiLogRepo repos.AICallLogRepo, baseLog *logger.Logger) builder.Drafter {
  return &componentDrafter{
    ai:        ai,
    cache:     cache,
    aiLogRepo: aiLogRepo,
    log:       baseLog.With("service", "ComponentDrafter"),
  }
}

const drafterSystemPrompt = `You are a senior Chrome extension developer. You receive one file of an extension plus the product context and return the complete improved file. Requirements:
- Return ONLY the file content, no markdown fences, no commentary.
- Keep the file self-contained and valid for its type.
- Use modern JavaScript (ES6+), Manifest V3 APIs only.
- Never call a chrome.* API whose permission is not listed in the request.`

func (d *componentDrafter) DraftComponent(ctx context.Context, req builder.DraftRequest) (string, error) {
  userPrompt := d.buildPrompt(req)

  cacheKey := draftCacheKey("component", userPrompt)
  if d.cache != nil {
    if cached, ok := d.cache.Get(ctx, cacheKey); ok {
      d.log.Debug("Component draft served from cache", "file_path", req.FilePath)
      observability.Current().IncDraftCache("hit")
      return cached, nil
    }
    observability.Current().IncDraftCache("miss")
  }

  started := time.Now()
  raw, err := d.ai.GenerateText(ctx, drafterSystemPrompt, userPrompt)
  d.recordDraftCall(ctx, req, userPrompt, raw, time.Since(started), err)
  if err != nil {
    return "", err
  }

  content := stripCodeFences(raw)
  if strings.TrimSpace(content) == "" {
    return "", fmt.Errorf("provider returned empty content for %s", req.FilePath)
  }

  if d.cache != nil {
    d.cache.Set(ctx, cacheKey, content)
  }
  return content, nil
}

func (d *componentDrafter) buildPrompt(req builder.DraftRequest) string {
  var sb strings.Builder
  fmt.Fprintf(&sb, "Extension: %s\n", req.ExtensionName)
  if req.Description != "" {
    fmt.Fprintf(&sb, "Description: %s\n", req.Description)
  }
  fmt.Fprintf(&sb, "User request: %s\n", req.Prompt)
  fmt.Fprintf(&sb, "File: %s (type %s)\n", req.FilePath, req.FileType)
  if len(req.Permissions) > 0 {
    fmt.Fprintf(&sb, "Declared permissions: %s\n", strings.Join(req.Permissions, ", "))
  } else {
    sb.WriteString("Declared permissions: none\n")
  }
  if len(req.TargetSites) > 0 {
    fmt.Fprintf(&sb, "Target sites: %s\n", strings.Join(req.TargetSites, ", "))
  }
  sb.WriteString("\nCurrent file content:\n")
  sb.WriteString(req.Seed)
  sb.WriteString("\n\nRewrite this file so it implements the user request. Return only the file content.")
  return sb.String()
}

// stripCodeFences removes a single wrapping markdown fence when the
// model ignores the no-fence instruction.
func stripCodeFences(raw string) string {
  trimmed := strings.TrimSpace(raw)
  if !strings.HasPrefix(trimmed, "```") {
    return trimmed
  }
  lines := strings.Split(trimmed, "\n")
  if len(lines) < 2 {
    return trimmed
  }
  lines = lines[1:]
  for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
    lines = lines[:len(lines)-1]
  }
  return strings.TrimSpace(strings.Join(lines, "\n"))
}

func (d *componentDrafter) recordDraftCall(ctx context.Context, req builder.DraftRequest, prompt, response string, duration time.Duration, callErr error) {
  if d.aiLogRepo == nil {
    return
  }

  row := &types.AICallLog{
    CallType:   "component_draft",
    Model:      d.ai.Model(),
    Prompt:     truncate(prompt, 4000),
    Success:    callErr == nil,
    DurationMS: duration.Milliseconds(),
  }
  if rd := requestdata.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
    id := rd.UserID
    row.UserID = &id
  }
  if callErr != nil {
    row.Error = truncate(callErr.Error(), 2000)
  } else {
    row.Response = truncate(response, 4000)
  }

  if _, err := d.aiLogRepo.Create(ctx, nil, []*types.AICallLog{row}); err != nil {
    d.log.Warn("Failed to record AI call", "error", err.Error())
  }
}
