package services

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/autonoma/autonoma-backend/internal/apierr"
	"github.com/autonoma/autonoma-backend/internal/catalog"
	"github.com/autonoma/autonoma-backend/internal/logger"
	"github.com/autonoma/autonoma-backend/internal/types"
)

func mustServiceLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestAnalyzerRejectsEmptyPrompt(t *testing.T) {
	svc := NewAnalyzerService(nil, nil, nil, mustServiceLogger(t))

	for _, prompt := range []string{"", "   ", " \n\t "} {
		_, err := svc.Analyze(context.Background(), nil, prompt)
		if err == nil {
			t.Fatalf("Analyze(%q): expected error, got nil", prompt)
		}
		var apiErr *apierr.Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("Analyze(%q): error type %T, want *apierr.Error", prompt, err)
		}
		if apiErr.Code != apierr.CodeInvalidInput {
			t.Fatalf("Analyze(%q): code want=%q got=%q", prompt, apierr.CodeInvalidInput, apiErr.Code)
		}
		if apiErr.Status != 400 {
			t.Fatalf("Analyze(%q): status want=400 got=%d", prompt, apiErr.Status)
		}
	}
}

func TestAnalyzerHeuristicsDeterministic(t *testing.T) {
	svc := NewAnalyzerService(nil, nil, nil, mustServiceLogger(t))
	prompt := "Track prices on amazon.com and notify me about deals"

	first, err := svc.Analyze(context.Background(), nil, prompt)
	if err != nil {
		t.Fatalf("Analyze first: %v", err)
	}
	second, err := svc.Analyze(context.Background(), nil, prompt)
	if err != nil {
		t.Fatalf("Analyze second: %v", err)
	}
	if !first.Degraded {
		t.Fatalf("expected degraded result without a provider")
	}

	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal first: %v", err)
	}
	secondJSON, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal second: %v", err)
	}
	if string(firstJSON) != string(secondJSON) {
		t.Fatalf("same prompt produced different analyses:\nfirst:  %s\nsecond: %s", firstJSON, secondJSON)
	}
}

func TestAnalyzerHeuristicsContentScriptWithSites(t *testing.T) {
	svc := NewAnalyzerService(nil, nil, nil, mustServiceLogger(t))

	result, err := svc.Analyze(context.Background(), nil, "Highlight every price on a product listing at amazon.com")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.RecommendedType != catalog.TypeContentScript {
		t.Fatalf("recommended type: want=%q got=%q", catalog.TypeContentScript, result.RecommendedType)
	}
	if len(result.TypeSuggestions) == 0 || result.TypeSuggestions[0].Type != catalog.TypeContentScript {
		t.Fatalf("top suggestion should match the recommendation: %+v", result.TypeSuggestions)
	}
	if c := result.TypeSuggestions[0].Confidence; c <= 0 || c > 1 {
		t.Fatalf("suggestion confidence out of range: %v", c)
	}
	wantPerms := []string{"activeTab", "storage", "webRequest"}
	if !reflect.DeepEqual(result.Permissions, wantPerms) {
		t.Fatalf("permissions: want=%v got=%v", wantPerms, result.Permissions)
	}
	wantSites := []string{"*://amazon.com/*"}
	if !reflect.DeepEqual(result.TargetSites, wantSites) {
		t.Fatalf("target sites: want=%v got=%v", wantSites, result.TargetSites)
	}
	if result.Complexity == "" || result.EstimatedTime == "" {
		t.Fatalf("complexity/estimate not set: %+v", result)
	}
}

func TestAnalyzerCacheHitSkipsProvider(t *testing.T) {
	prompt := "Block distracting websites during work hours"
	cached := AnalysisResult{
		RecommendedType: catalog.TypeBackground,
		Permissions:     []string{"storage", "webRequest"},
		SuggestedName:   "Focus Guard",
		Complexity:      "Medium",
		EstimatedTime:   "15-30 minutes",
	}
	raw, err := json.Marshal(cached)
	if err != nil {
		t.Fatalf("marshal cached: %v", err)
	}

	cache := &fakeDraftCache{values: map[string]string{
		draftCacheKey("analysis", prompt): string(raw),
	}}
	ai := &fakeOpenAIClient{}
	svc := NewAnalyzerService(ai, cache, nil, mustServiceLogger(t))

	result, err := svc.Analyze(context.Background(), nil, prompt)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if ai.jsonCalls != 0 {
		t.Fatalf("provider calls on cache hit: want=0 got=%d", ai.jsonCalls)
	}
	if cache.setCalls != 0 {
		t.Fatalf("cache writes on cache hit: want=0 got=%d", cache.setCalls)
	}
	if result.RecommendedType != cached.RecommendedType || result.SuggestedName != cached.SuggestedName {
		t.Fatalf("cached result mismatch: %+v", result)
	}
}

func TestAnalyzerProviderResultSanitized(t *testing.T) {
	ai := &fakeOpenAIClient{
		jsonResult: map[string]any{
			"recommended_type": "content_script",
			"alternatives": []any{
				map[string]any{"type": "popup", "confidence": 0.6, "reason": "simpler interaction model"},
				map[string]any{"type": "jetpack", "confidence": 0.9, "reason": "not a real archetype"},
				map[string]any{"type": "content_script", "confidence": 1.4, "reason": "duplicate of recommendation"},
			},
			"permissions":    []any{"scripting", "levitation"},
			"target_websites":   []any{"GitHub.com", "not a pattern"},
			"features":       []any{"highlight pull request diffs"},
			"suggested_name": "  Diff Lens  ",
			"complexity":     "Medium",
		},
	}
	logRepo := &fakeAICallLogRepo{}
	svc := NewAnalyzerService(ai, nil, logRepo, mustServiceLogger(t))

	userID := uuid.New()
	result, err := svc.Analyze(context.Background(), &userID, "Highlight pull request diffs on github.com")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Degraded {
		t.Fatalf("provider result marked degraded")
	}
	if result.RecommendedType != catalog.TypeContentScript {
		t.Fatalf("recommended type: want=%q got=%q", catalog.TypeContentScript, result.RecommendedType)
	}
	if len(result.TypeSuggestions) != 1 || result.TypeSuggestions[0].Type != catalog.TypePopup {
		t.Fatalf("type suggestions: want only popup, got=%+v", result.TypeSuggestions)
	}
	if result.TypeSuggestions[0].Confidence != 0.6 {
		t.Fatalf("suggestion confidence: want=0.6 got=%v", result.TypeSuggestions[0].Confidence)
	}
	if !reflect.DeepEqual(result.Permissions, []string{"scripting"}) {
		t.Fatalf("permissions: want=[scripting] got=%v", result.Permissions)
	}
	if !reflect.DeepEqual(result.TargetSites, []string{"*://github.com/*"}) {
		t.Fatalf("target sites: want=[*://github.com/*] got=%v", result.TargetSites)
	}
	if result.SuggestedName != "Diff Lens" {
		t.Fatalf("suggested name: want=%q got=%q", "Diff Lens", result.SuggestedName)
	}
	if result.Complexity != "Medium" || result.EstimatedTime != "15-30 minutes" {
		t.Fatalf("complexity/estimate: got=%q/%q", result.Complexity, result.EstimatedTime)
	}

	if len(logRepo.created) != 1 {
		t.Fatalf("ai call log rows: want=1 got=%d", len(logRepo.created))
	}
	row := logRepo.created[0]
	if row.CallType != "extension_analysis" {
		t.Fatalf("call type: want=%q got=%q", "extension_analysis", row.CallType)
	}
	if !row.Success {
		t.Fatalf("ai call log marked failed: %+v", row)
	}
	if row.UserID == nil || *row.UserID != userID {
		t.Fatalf("ai call log user: want=%s got=%v", userID, row.UserID)
	}
}

func TestAnalyzerProviderFailureFallsBackToHeuristics(t *testing.T) {
	ai := &fakeOpenAIClient{jsonErr: errors.New("provider unavailable")}
	logRepo := &fakeAICallLogRepo{}
	svc := NewAnalyzerService(ai, nil, logRepo, mustServiceLogger(t))

	result, err := svc.Analyze(context.Background(), nil, "Add a popup button that counts clicks")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !result.Degraded {
		t.Fatalf("expected degraded fallback after provider failure")
	}
	if result.RecommendedType != catalog.TypePopup {
		t.Fatalf("recommended type: want=%q got=%q", catalog.TypePopup, result.RecommendedType)
	}
	if len(logRepo.created) != 1 || logRepo.created[0].Success {
		t.Fatalf("provider failure not recorded: %+v", logRepo.created)
	}
	if logRepo.created[0].Error == "" {
		t.Fatalf("ai call log missing error text")
	}
}

func TestAnalyzerUnknownProviderTypeUsesHeuristicRecommendation(t *testing.T) {
	ai := &fakeOpenAIClient{
		jsonResult: map[string]any{
			"recommended_type": "desktop_widget",
			"suggested_name":   "Click Counter",
			"complexity":       "Simple",
		},
	}
	svc := NewAnalyzerService(ai, nil, nil, mustServiceLogger(t))

	result, err := svc.Analyze(context.Background(), nil, "A popup button that counts clicks")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.RecommendedType != catalog.TypePopup {
		t.Fatalf("recommended type: want=%q got=%q", catalog.TypePopup, result.RecommendedType)
	}
	if result.Degraded {
		t.Fatalf("provider result marked degraded")
	}
}

func TestNameFromPrompt(t *testing.T) {
	cases := []struct {
		prompt string
		want   string
	}{
		{"Create a Chrome extension that tracks coding time", "Tracks Coding Time"},
		{"make me a password generator", "Password Generator"},
		{"", "Generated Extension"},
		{"the a an for with", "Generated Extension"},
		{"translate selected text into spanish instantly please", "Translate Selected Text Spanish"},
	}
	for _, tc := range cases {
		if got := nameFromPrompt(tc.prompt); got != tc.want {
			t.Fatalf("nameFromPrompt(%q): want=%q got=%q", tc.prompt, tc.want, got)
		}
	}
}

func TestExtractTargetSites(t *testing.T) {
	cases := []struct {
		prompt string
		want   []string
	}{
		{"Highlight deals on amazon.com and ebay.com.", []string{"*://amazon.com/*", "*://ebay.com/*"}},
		{"Email me at someone@example.com when done", nil},
		{"Use shortcuts, e.g. ctrl+k, everywhere", nil},
		{"Read docs at https://developer.mozilla.org/en-US/", []string{"https://developer.mozilla.org/en-US/"}},
		{"No sites mentioned here", nil},
		{"Visit amazon.com twice: amazon.com again", []string{"*://amazon.com/*"}},
	}
	for _, tc := range cases {
		got := extractTargetSites(tc.prompt)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("extractTargetSites(%q): want=%v got=%v", tc.prompt, tc.want, got)
		}
	}
}

func TestComplexityFromCounts(t *testing.T) {
	cases := []struct {
		features, permissions, sites int
		want                         string
	}{
		{1, 1, 0, "Simple"},
		{2, 1, 0, "Simple"},
		{2, 3, 1, "Medium"},
		{4, 3, 2, "Complex"},
	}
	for _, tc := range cases {
		got := complexityFromCounts(tc.features, tc.permissions, tc.sites)
		if got != tc.want {
			t.Fatalf("complexityFromCounts(%d,%d,%d): want=%q got=%q", tc.features, tc.permissions, tc.sites, tc.want, got)
		}
	}
}

type fakeOpenAIClient struct {
	jsonCalls  int
	jsonResult map[string]any
	jsonErr    error
	textCalls  int
	textResult string
	textErr    error
	lastSchema string
}

func (f *fakeOpenAIClient) GenerateJSON(_ context.Context, _ string, _ string, schemaName string, _ map[string]any) (map[string]any, error) {
	f.jsonCalls++
	f.lastSchema = schemaName
	if f.jsonErr != nil {
		return nil, f.jsonErr
	}
	return f.jsonResult, nil
}

func (f *fakeOpenAIClient) GenerateText(_ context.Context, _ string, _ string) (string, error) {
	f.textCalls++
	if f.textErr != nil {
		return "", f.textErr
	}
	return f.textResult, nil
}

func (f *fakeOpenAIClient) Model() string { return "fake-model" }

type fakeDraftCache struct {
	values   map[string]string
	setCalls int
}

func (f *fakeDraftCache) Get(_ context.Context, key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

func (f *fakeDraftCache) Set(_ context.Context, key string, value string) {
	f.setCalls++
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[key] = value
}

type fakeAICallLogRepo struct {
	created []*types.AICallLog
	err     error
}

func (f *fakeAICallLogRepo) Create(_ context.Context, _ *gorm.DB, rows []*types.AICallLog) ([]*types.AICallLog, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, rows...)
	return rows, nil
}
