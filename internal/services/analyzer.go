package services

import (
  "context"
  "encoding/json"
  "math"
  "sort"
  "strings"
  "time"

  "github.com/google/uuid"

  "github.com/autonoma/autonoma-backend/internal/apierr"
  "github.com/autonoma/autonoma-backend/internal/catalog"
  "github.com/autonoma/autonoma-backend/internal/logger"
  "github.com/autonoma/autonoma-backend/internal/matchpattern"
  "github.com/autonoma/autonoma-backend/internal/normalization"
  "github.com/autonoma/autonoma-backend/internal/repos"
  "github.com/autonoma/autonoma-backend/internal/types"
)

type AnalysisTypeSuggestion struct {
  Type       string  `json:"type"`
  Confidence float64 `json:"confidence"`
  Reason     string  `json:"reason,omitempty"`
}

// AnalysisResult is what POST /api/analyze returns and what an
// analyze-first generation stores on its run. Degraded marks results
// produced by the keyword heuristics instead of the provider.
type AnalysisResult struct {
  RecommendedType string                   `json:"recommended_type"`
  TypeSuggestions []AnalysisTypeSuggestion `json:"suggested_types"`
  Permissions     []string                 `json:"required_permissions"`
  TargetSites     []string                 `json:"target_websites"`
  Features        []string                 `json:"features"`
  SuggestedName   string                   `json:"suggested_name"`
  Complexity      string                   `json:"complexity_score"`
  EstimatedTime   string                   `json:"estimated_development_time"`
  Degraded        bool                     `json:"degraded"`
}

type AnalyzerService interface {
  Analyze(ctx context.Context, userID *uuid.UUID, prompt string) (*AnalysisResult, error)
}

type analyzerService struct {
  ai        OpenAIClient
  cache     DraftCache
  aiLogRepo repos.AICallLogRepo
  log       *logger.Logger
}

// NewAnalyzerService builds the requirement analyzer. ai may be nil
// (no provider configured); cache may be nil (no Redis). Both are
// degraded-but-working modes, not errors.
func NewAnalyzerService(ai OpenAIClient, cache DraftCache, aiLogRepo repos.AICallLogRepo, baseLog *logger.Logger) AnalyzerService {
  return &analyzerService{
    ai:        ai,
    cache:     cache,
    aiLogRepo: aiLogRepo,
    log:       baseLog.With("service", "AnalyzerService"),
  }
}

func (s *analyzerService) Analyze(ctx context.Context, userID *uuid.UUID, prompt string) (*AnalysisResult, error) {
  prompt = normalization.CollapseWhitespace(prompt)
  if prompt == "" {
    return nil, apierr.InvalidInput("prompt is required")
  }

  cacheKey := draftCacheKey("analysis", prompt)
  if s.cache != nil {
    if cached, ok := s.cache.Get(ctx, cacheKey); ok {
      var result AnalysisResult
      if err := json.Unmarshal([]byte(cached), &result); err == nil {
        s.log.Debug("Analysis served from cache", "prompt", prompt)
        return &result, nil
      }
    }
  }

  var result *AnalysisResult
  if s.ai != nil {
    providerResult, err := s.analyzeWithProvider(ctx, userID, prompt)
    if err != nil {
      s.log.Warn("Provider analysis failed, falling back to keyword heuristics", "error", err.Error())
    } else {
      result = providerResult
    }
  }
  if result == nil {
    result = s.analyzeWithHeuristics(prompt)
  }

  if s.cache != nil {
    if raw, err := json.Marshal(result); err == nil {
      s.cache.Set(ctx, cacheKey, string(raw))
    }
  }
  return result, nil
}

func analysisSchema() map[string]any {
  archetypeIDs := catalog.ArchetypeIDs()
  enum := make([]any, 0, len(archetypeIDs))
  for _, id := range archetypeIDs {
    enum = append(enum, id)
  }
  return map[string]any{
    "type":                 "object",
    "additionalProperties": false,
    "required":             []string{"recommended_type", "alternatives", "permissions", "target_websites", "features", "suggested_name", "complexity"},
    "properties": map[string]any{
      "recommended_type": map[string]any{"type": "string", "enum": enum},
      "alternatives": map[string]any{
        "type": "array",
        "items": map[string]any{
          "type":                 "object",
          "additionalProperties": false,
          "required":             []string{"type", "confidence", "reason"},
          "properties": map[string]any{
            "type":       map[string]any{"type": "string", "enum": enum},
            "confidence": map[string]any{"type": "number"},
            "reason":     map[string]any{"type": "string"},
          },
        },
      },
      "permissions":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
      "target_websites": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
      "features":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
      "suggested_name":  map[string]any{"type": "string"},
      "complexity":      map[string]any{"type": "string", "enum": []any{"Simple", "Medium", "Complex"}},
    },
  }
}

const analyzerSystemPrompt = `You are a Chrome extension requirements analyst. Given a plain-language description, determine the best extension type, the minimal Chrome permissions, target websites, concrete features, and a short product name. Only recommend permissions the described functionality actually needs.`

func (s *analyzerService) analyzeWithProvider(ctx context.Context, userID *uuid.UUID, prompt string) (*AnalysisResult, error) {
  userPrompt := "Analyze this Chrome extension requirement and extract detailed information:\n\n" +
    "User Request: " + prompt + "\n\n" +
    "Determine:\n" +
    "1. The best extension type (popup, content_script, background, devtools, options)\n" +
    "2. Required Chrome permissions (storage, activeTab, tabs, scripting, notifications, alarms, webRequest, cookies, history, bookmarks)\n" +
    "3. Target websites or domains, if any\n" +
    "4. Core features as short phrases\n" +
    "5. A concise product name\n" +
    "6. Overall complexity (Simple, Medium, Complex)"

  started := time.Now()
  raw, err := s.ai.GenerateJSON(ctx, analyzerSystemPrompt, userPrompt, "extension_analysis", analysisSchema())
  s.recordAICall(ctx, userID, "extension_analysis", userPrompt, raw, time.Since(started), err)
  if err != nil {
    return nil, err
  }

  heuristic := s.analyzeWithHeuristics(prompt)

  result := &AnalysisResult{Degraded: false}
  result.RecommendedType, _ = raw["recommended_type"].(string)
  if _, ok := catalog.ArchetypeByID(result.RecommendedType); !ok {
    s.log.Warn("Provider recommended unknown extension type, using heuristic recommendation", "recommended_type", result.RecommendedType)
    result.RecommendedType = heuristic.RecommendedType
  }

  if alternatives, ok := raw["alternatives"].([]any); ok {
    for _, item := range alternatives {
      entry, ok := item.(map[string]any)
      if !ok {
        continue
      }
      altType, _ := entry["type"].(string)
      reason, _ := entry["reason"].(string)
      confidence, _ := entry["confidence"].(float64)
      confidence = math.Min(1, math.Max(0, confidence))
      if _, known := catalog.ArchetypeByID(altType); known && altType != result.RecommendedType {
        result.TypeSuggestions = append(result.TypeSuggestions, AnalysisTypeSuggestion{Type: altType, Confidence: confidence, Reason: reason})
      }
    }
  }

  for _, perm := range toStringSlice(raw["permissions"]) {
    if _, known := catalog.PermissionByID(perm); known {
      result.Permissions = appendUnique(result.Permissions, perm)
    }
  }
  if len(result.Permissions) == 0 {
    result.Permissions = heuristic.Permissions
  }

  for _, site := range toStringSlice(raw["target_websites"]) {
    normalized, err := matchpattern.Normalize(site)
    if err != nil {
      continue
    }
    result.TargetSites = appendUnique(result.TargetSites, normalized)
  }

  result.Features = toStringSlice(raw["features"])
  if len(result.Features) == 0 {
    result.Features = heuristic.Features
  }

  result.SuggestedName, _ = raw["suggested_name"].(string)
  result.SuggestedName = strings.TrimSpace(result.SuggestedName)
  if result.SuggestedName == "" {
    result.SuggestedName = heuristic.SuggestedName
  }

  result.Complexity, _ = raw["complexity"].(string)
  if result.Complexity != "Simple" && result.Complexity != "Medium" && result.Complexity != "Complex" {
    result.Complexity = complexityFromCounts(len(result.Features), len(result.Permissions), len(result.TargetSites))
  }
  result.EstimatedTime = estimatedTimeFor(result.Complexity)

  return result, nil
}

// analyzeWithHeuristics is the deterministic fallback: keyword scoring
// against the catalog. The same prompt always yields the same result.
func (s *analyzerService) analyzeWithHeuristics(prompt string) *AnalysisResult {
  lower := strings.ToLower(prompt)

  result := &AnalysisResult{Degraded: true}

  type rankedSuggestion struct {
    suggestion AnalysisTypeSuggestion
    score      int
  }
  var ranked []rankedSuggestion
  for _, archetype := range catalog.Archetypes() {
    score := 0
    var matched []string
    for _, keyword := range archetype.Keywords {
      if strings.Contains(lower, keyword) {
        score++
        matched = append(matched, keyword)
      }
    }
    if score == 0 {
      continue
    }
    ranked = append(ranked, rankedSuggestion{
      suggestion: AnalysisTypeSuggestion{
        Type:       archetype.ID,
        Confidence: math.Round(float64(score)/float64(len(archetype.Keywords))*100) / 100,
        Reason:     "matched: " + strings.Join(matched, ", "),
      },
      score: score,
    })
  }
  sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
  for _, entry := range ranked {
    result.TypeSuggestions = append(result.TypeSuggestions, entry.suggestion)
  }
  if len(ranked) > 0 {
    result.RecommendedType = ranked[0].suggestion.Type
  } else {
    result.RecommendedType = catalog.TypePopup
  }

  recommended, _ := catalog.ArchetypeByID(result.RecommendedType)
  for _, perm := range recommended.DefaultPermissions {
    result.Permissions = appendUnique(result.Permissions, perm)
  }

  var matchedPatterns []string
  for _, pattern := range catalog.Patterns() {
    for _, keyword := range pattern.Keywords {
      if strings.Contains(lower, keyword) {
        matchedPatterns = append(matchedPatterns, pattern.Name)
        for _, perm := range pattern.Permissions {
          result.Permissions = appendUnique(result.Permissions, perm)
        }
        break
      }
    }
  }

  for _, entry := range permissionKeywords {
    if strings.Contains(lower, entry.keyword) {
      result.Permissions = appendUnique(result.Permissions, entry.permission)
    }
  }

  result.TargetSites = extractTargetSites(prompt)
  result.Features = append([]string{prompt}, matchedPatterns...)
  result.SuggestedName = nameFromPrompt(prompt)
  result.Complexity = complexityFromCounts(len(result.Features), len(result.Permissions), len(result.TargetSites))
  result.EstimatedTime = estimatedTimeFor(result.Complexity)

  return result
}

// permissionKeywords is scanned in slice order so the permission list
// comes out the same for the same prompt every time.
var permissionKeywords = []struct {
  keyword    string
  permission string
}{
  {"notif", "notifications"},
  {"alert", "notifications"},
  {"remind", "alarms"},
  {"schedule", "alarms"},
  {"timer", "alarms"},
  {"cookie", "cookies"},
  {"history", "history"},
  {"bookmark", "bookmarks"},
  {"block", "webRequest"},
  {"network", "webRequest"},
  {"request", "webRequest"},
  {"tab", "tabs"},
  {"inject", "scripting"},
  {"save", "storage"},
  {"store", "storage"},
  {"track", "storage"},
}

func extractTargetSites(prompt string) []string {
  var sites []string
  for _, token := range strings.Fields(prompt) {
    token = strings.Trim(token, ".,;:!?()[]'\"")
    if !strings.Contains(token, ".") {
      continue
    }
    if strings.Contains(token, "@") {
      continue
    }
    // Abbreviations like "e.g" survive the trim; a one-letter final
    // label is never a real TLD.
    labels := strings.Split(token, ".")
    if len(labels[len(labels)-1]) < 2 {
      continue
    }
    normalized, err := matchpattern.Normalize(token)
    if err != nil || normalized == matchpattern.AllURLs {
      continue
    }
    sites = appendUnique(sites, normalized)
  }
  return sites
}

var nameStopwords = map[string]bool{
  "a": true, "an": true, "the": true, "that": true, "which": true,
  "chrome": true, "extension": true, "browser": true, "plugin": true,
  "for": true, "with": true, "and": true, "from": true, "into": true,
  "make": true, "create": true, "build": true, "generate": true,
  "me": true, "my": true, "i": true, "want": true, "need": true,
  "to": true, "of": true, "on": true, "in": true, "it": true,
}

// nameFromPrompt derives a short product name from the first few
// significant words of the prompt.
func nameFromPrompt(prompt string) string {
  var words []string
  for _, word := range strings.Fields(strings.ToLower(prompt)) {
    word = strings.Trim(word, ".,;:!?()[]'\"")
    if word == "" || nameStopwords[word] {
      continue
    }
    words = append(words, strings.ToUpper(word[:1])+word[1:])
    if len(words) == 4 {
      break
    }
  }
  if len(words) == 0 {
    return "Generated Extension"
  }
  return strings.Join(words, " ")
}

func complexityFromCounts(features, permissions, targetSites int) string {
  score := features + permissions + targetSites
  if score <= 3 {
    return "Simple"
  }
  if score <= 6 {
    return "Medium"
  }
  return "Complex"
}

func estimatedTimeFor(complexity string) string {
  switch complexity {
  case "Simple":
    return "5-15 minutes"
  case "Medium":
    return "15-30 minutes"
  default:
    return "30-60 minutes"
  }
}

func (s *analyzerService) recordAICall(ctx context.Context, userID *uuid.UUID, callType, prompt string, response map[string]any, duration time.Duration, callErr error) {
  if s.aiLogRepo == nil {
    return
  }

  row := &types.AICallLog{
    UserID:     userID,
    CallType:   callType,
    Model:      s.ai.Model(),
    Prompt:     truncate(prompt, 4000),
    Success:    callErr == nil,
    DurationMS: duration.Milliseconds(),
  }
  if callErr != nil {
    row.Error = truncate(callErr.Error(), 2000)
  } else if response != nil {
    if raw, err := json.Marshal(response); err == nil {
      row.Response = truncate(string(raw), 4000)
    }
  }

  if _, err := s.aiLogRepo.Create(ctx, nil, []*types.AICallLog{row}); err != nil {
    s.log.Warn("Failed to record AI call", "error", err.Error())
  }
}
