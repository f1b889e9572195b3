package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/autonoma/autonoma-backend/internal/apierr"
	"github.com/autonoma/autonoma-backend/internal/builder"
	"github.com/autonoma/autonoma-backend/internal/catalog"
	"github.com/autonoma/autonoma-backend/internal/sse"
	"github.com/autonoma/autonoma-backend/internal/templates"
	"github.com/autonoma/autonoma-backend/internal/types"
)

// genHarness wires a GenerationService against in-memory fakes. The
// gorm handle is a real in-memory SQLite connection because the service
// opens transactions on it; the fakes ignore the tx they receive.
type genHarness struct {
	svc        GenerationService
	extensions *fakeExtensionRepo
	runs       *fakeGenerationRunRepo
	components *fakeComponentRepo
	templates  *fakeTemplateRepo
	analyzer   *fakeAnalyzer
	emitter    *captureEmitter
	store      *fakeArchiveStore
}

// openTestDB returns a throwaway in-memory gorm handle for services
// that need transaction support around fake repos.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return gdb
}

func newGenHarness(t *testing.T, drafter builder.Drafter, packager PackagerService) *genHarness {
	t.Helper()
	log := mustServiceLogger(t)
	gdb := openTestDB(t)

	h := &genHarness{
		extensions: &fakeExtensionRepo{},
		runs:       &fakeGenerationRunRepo{},
		components: &fakeComponentRepo{},
		templates:  &fakeTemplateRepo{},
		analyzer:   &fakeAnalyzer{},
		emitter:    &captureEmitter{},
		store:      &fakeArchiveStore{},
	}
	if packager == nil {
		packager = NewPackagerService(h.store, log)
	}
	registry := builder.NewRegistry(templates.NewStore(), drafter, log)
	h.svc = NewGenerationService(
		gdb, log,
		h.extensions, h.components, h.runs, h.templates,
		h.analyzer, registry, packager, NewIconService(log), h.emitter,
	)
	return h
}

func TestGenerateRejectsInvalidRequests(t *testing.T) {
	cases := []struct {
		name     string
		req      GenerationRequest
		wantCode string
	}{
		{
			name:     "empty prompt",
			req:      GenerationRequest{Prompt: "  \n "},
			wantCode: apierr.CodeInvalidInput,
		},
		{
			name:     "unknown extension type",
			req:      GenerationRequest{Prompt: "count clicks", ExtensionType: "widget"},
			wantCode: apierr.CodeInvalidInput,
		},
		{
			name:     "unknown permission",
			req:      GenerationRequest{Prompt: "count clicks", Permissions: []string{"levitation"}},
			wantCode: apierr.CodeInvalidInput,
		},
		{
			name:     "invalid target site",
			req:      GenerationRequest{Prompt: "count clicks", TargetSites: []string{"ftp://example.com/*"}},
			wantCode: apierr.CodeInvalidInput,
		},
		{
			name:     "content script without sites",
			req:      GenerationRequest{Prompt: "highlight words", ExtensionType: catalog.TypeContentScript},
			wantCode: apierr.CodeMissingConfiguration,
		},
		{
			name:     "unknown template",
			req:      GenerationRequest{Prompt: "count clicks", TemplateSlug: "no-such-template"},
			wantCode: apierr.CodeInvalidInput,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newGenHarness(t, nil, nil)
			_, _, err := h.svc.Generate(context.Background(), uuid.New(), tc.req)
			if err == nil {
				t.Fatalf("Generate: expected error")
			}
			var apiErr *apierr.Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("error type %T, want *apierr.Error", err)
			}
			if apiErr.Code != tc.wantCode {
				t.Fatalf("code: want=%q got=%q (%v)", tc.wantCode, apiErr.Code, err)
			}
			if n := h.extensions.count(); n != 0 {
				t.Fatalf("extensions created on rejected request: %d", n)
			}
			if len(h.emitter.events()) != 0 {
				t.Fatalf("events emitted on rejected request: %v", h.emitter.events())
			}
		})
	}
}

func TestGeneratePopupCompletesEndToEnd(t *testing.T) {
	h := newGenHarness(t, nil, nil)
	userID := uuid.New()

	ext, run, err := h.svc.Generate(context.Background(), userID, GenerationRequest{
		Prompt:      "Count how many times I click the toolbar button",
		Name:        "Click Counter",
		Permissions: []string{"storage"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ext.Status != types.StatusComplete {
		t.Fatalf("extension status: want=%q got=%q (error=%q)", types.StatusComplete, ext.Status, ext.Error)
	}
	if run.Status != types.StatusComplete || run.Stage != "done" || run.Progress != 100 {
		t.Fatalf("run not finalized: status=%q stage=%q progress=%d", run.Status, run.Stage, run.Progress)
	}
	if ext.ExtensionType != catalog.TypePopup {
		t.Fatalf("extension type: want=%q got=%q", catalog.TypePopup, ext.ExtensionType)
	}

	wantKey := "extensions/" + ext.ID.String() + ".zip"
	if ext.ArchiveKey != wantKey {
		t.Fatalf("archive key: want=%q got=%q", wantKey, ext.ArchiveKey)
	}
	if ext.ArchiveSize <= 0 {
		t.Fatalf("archive size not recorded: %d", ext.ArchiveSize)
	}
	if _, ok := h.store.objects[wantKey]; !ok {
		t.Fatalf("archive not stored under %q", wantKey)
	}
	if ext.CompletedAt == nil {
		t.Fatalf("completed_at not set")
	}
	if len(ext.Manifest) == 0 || !strings.Contains(string(ext.Manifest), "manifest_version") {
		t.Fatalf("manifest not persisted on extension: %s", ext.Manifest)
	}

	// popup.html, popup.js, popup.css, README.md, manifest.json + 4 icons.
	comps := h.components.byExtension(ext.ID)
	if len(comps) != 9 {
		t.Fatalf("component count: want=9 got=%d", len(comps))
	}
	paths := map[string]bool{}
	for _, c := range comps {
		paths[c.FilePath] = true
	}
	for _, want := range []string{"manifest.json", "popup.html", "popup.js", "popup.css", "README.md", "icons/icon16.png", "icons/icon128.png"} {
		if !paths[want] {
			t.Fatalf("component %q missing, have %v", want, paths)
		}
	}

	evts := h.emitter.events()
	if len(evts) == 0 {
		t.Fatalf("no events emitted")
	}
	if evts[0].Event != sse.SSEEventExtensionCreated {
		t.Fatalf("first event: want=%q got=%q", sse.SSEEventExtensionCreated, evts[0].Event)
	}
	last := evts[len(evts)-1]
	if last.Event != sse.SSEEventGenerationCompleted {
		t.Fatalf("last event: want=%q got=%q", sse.SSEEventGenerationCompleted, last.Event)
	}
	wantChannel := sse.UserChannel(userID)
	for _, e := range evts {
		if e.Channel != wantChannel {
			t.Fatalf("event channel: want=%q got=%q", wantChannel, e.Channel)
		}
	}
	if h.analyzer.calls != 0 {
		t.Fatalf("analyzer called without analyze_first: %d", h.analyzer.calls)
	}
}

func TestGenerateContentScriptDerivesHostPermissions(t *testing.T) {
	h := newGenHarness(t, nil, nil)

	ext, run, err := h.svc.Generate(context.Background(), uuid.New(), GenerationRequest{
		Prompt:        "block distracting sites during work hours",
		ExtensionType: catalog.TypeContentScript,
		Permissions:   []string{"storage", "activeTab"},
		TargetSites:   []string{"*.facebook.com"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ext.Status != types.StatusComplete || run.Status != types.StatusComplete {
		t.Fatalf("statuses: extension=%q run=%q (error=%q)", ext.Status, run.Status, ext.Error)
	}

	paths := map[string]bool{}
	for _, c := range h.components.byExtension(ext.ID) {
		paths[c.FilePath] = true
	}
	if !paths["content.js"] {
		t.Fatalf("content.js missing from components: %v", paths)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(ext.Manifest, &doc); err != nil {
		t.Fatalf("manifest not valid JSON: %v", err)
	}
	perms, _ := doc["permissions"].([]interface{})
	if len(perms) != 2 || perms[0] != "storage" || perms[1] != "activeTab" {
		t.Fatalf("manifest permissions: want [storage activeTab] got %v", perms)
	}
	hosts, _ := doc["host_permissions"].([]interface{})
	if len(hosts) != 1 || hosts[0] != "*://*.facebook.com/*" {
		t.Fatalf("host permissions: want [*://*.facebook.com/*] got %v", hosts)
	}
}

func TestGenerateIdenticalRequestsYieldDistinctArtifacts(t *testing.T) {
	h := newGenHarness(t, nil, nil)
	userID := uuid.New()
	req := GenerationRequest{Prompt: "count clicks on the current page", ExtensionType: catalog.TypePopup}

	first, _, err := h.svc.Generate(context.Background(), userID, req)
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	second, _, err := h.svc.Generate(context.Background(), userID, req)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("identical requests must yield distinct artifacts, both got %s", first.ID)
	}
	for _, ext := range []*types.Extension{first, second} {
		if ext.Status != types.StatusComplete {
			t.Fatalf("extension %s: status %q (error=%q)", ext.ID, ext.Status, ext.Error)
		}
		if _, ok := h.store.objects[ArchiveKey(ext.ID)]; !ok {
			t.Fatalf("archive missing for %s", ext.ID)
		}
	}
}

func TestGenerateAnalyzeFirstKeepsApprovedPermissions(t *testing.T) {
	h := newGenHarness(t, nil, nil)
	h.analyzer.result = &AnalysisResult{
		RecommendedType: catalog.TypePopup,
		Permissions:     []string{"tabs", "cookies"},
		Features:        []string{"count clicks", "show totals"},
		SuggestedName:   "Click Counter",
		Complexity:      "Simple",
		EstimatedTime:   "5-15 minutes",
	}

	ext, run, err := h.svc.Generate(context.Background(), uuid.New(), GenerationRequest{
		Prompt:       "Count clicks on the toolbar button",
		Permissions:  []string{"storage"},
		AnalyzeFirst: true,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if h.analyzer.calls != 1 {
		t.Fatalf("analyzer calls: want=1 got=%d", h.analyzer.calls)
	}
	if ext.Status != types.StatusComplete {
		t.Fatalf("extension status: want=%q got=%q (error=%q)", types.StatusComplete, ext.Status, ext.Error)
	}

	// The analysis may rename, never re-permission.
	if got := toStringSliceJSON(ext.Permissions); len(got) != 1 || got[0] != "storage" {
		t.Fatalf("permissions mutated by analysis: %v", got)
	}
	if ext.Name != "Click Counter" {
		t.Fatalf("suggested name not applied: got=%q", ext.Name)
	}
	if len(run.Analysis) == 0 {
		t.Fatalf("analysis not stored on run")
	}

	sawAnalyzing := false
	for _, e := range h.emitter.events() {
		if e.Event == sse.SSEEventGenerationProgress && e.Data["status"] == types.StatusAnalyzing {
			sawAnalyzing = true
		}
	}
	if !sawAnalyzing {
		t.Fatalf("no analyzing progress event emitted")
	}
}

func TestGenerateAnalyzerFailureDoesNotKillRun(t *testing.T) {
	h := newGenHarness(t, nil, nil)
	h.analyzer.err = errors.New("provider down")

	ext, run, err := h.svc.Generate(context.Background(), uuid.New(), GenerationRequest{
		Prompt:       "Count clicks on the toolbar button",
		AnalyzeFirst: true,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ext.Status != types.StatusComplete {
		t.Fatalf("extension status after advisory failure: want=%q got=%q", types.StatusComplete, ext.Status)
	}
	if len(run.Analysis) != 0 {
		t.Fatalf("analysis stored despite failure: %s", run.Analysis)
	}
}

func TestGenerateGatedAPIFailureIsTerminalRecord(t *testing.T) {
	drafter := staticDrafter("document.body.onclick = () => chrome.cookies.getAll({});")
	h := newGenHarness(t, drafter, nil)

	ext, run, err := h.svc.Generate(context.Background(), uuid.New(), GenerationRequest{
		Prompt:      "Count clicks on the toolbar button",
		Permissions: []string{"storage"},
	})
	if err != nil {
		t.Fatalf("Generate returned transport error for pipeline failure: %v", err)
	}
	if ext.Status != types.StatusFailed {
		t.Fatalf("extension status: want=%q got=%q", types.StatusFailed, ext.Status)
	}
	if run.Status != types.StatusFailed || run.Stage != "build" {
		t.Fatalf("run: status=%q stage=%q", run.Status, run.Stage)
	}
	if !strings.Contains(run.Error, "cookies") || !strings.Contains(run.Error, "was not declared") {
		t.Fatalf("run error: got=%q", run.Error)
	}
	if run.LastErrorAt == nil {
		t.Fatalf("last_error_at not set on failure")
	}

	evts := h.emitter.events()
	if len(evts) == 0 || evts[len(evts)-1].Event != sse.SSEEventGenerationFailed {
		t.Fatalf("expected trailing failure event, got %v", evts)
	}
	if h.store.putCalls != 0 {
		t.Fatalf("archive stored despite build failure")
	}
}

func TestGenerateDrafterFailureIsTerminalRecord(t *testing.T) {
	h := newGenHarness(t, failingDrafter{err: errors.New("provider unavailable")}, nil)

	ext, run, err := h.svc.Generate(context.Background(), uuid.New(), GenerationRequest{
		Prompt:      "Count clicks on the toolbar button",
		Permissions: []string{"storage"},
	})
	if err != nil {
		t.Fatalf("Generate returned transport error for pipeline failure: %v", err)
	}
	if ext.Status != types.StatusFailed {
		t.Fatalf("extension status: want=%q got=%q", types.StatusFailed, ext.Status)
	}
	if run.Status != types.StatusFailed || run.Stage != "build" {
		t.Fatalf("run: status=%q stage=%q", run.Status, run.Stage)
	}
	if !strings.Contains(run.Error, "provider unavailable") {
		t.Fatalf("run error: got=%q", run.Error)
	}
	if h.store.putCalls != 0 {
		t.Fatalf("archive stored despite draft failure")
	}
}

func TestGeneratePackagerFailureIsTerminalRecord(t *testing.T) {
	h := newGenHarness(t, nil, &failingPackager{err: errors.New("bucket offline")})

	ext, run, err := h.svc.Generate(context.Background(), uuid.New(), GenerationRequest{
		Prompt: "Count clicks on the toolbar button",
	})
	if err != nil {
		t.Fatalf("Generate returned transport error for pipeline failure: %v", err)
	}
	if ext.Status != types.StatusFailed {
		t.Fatalf("extension status: want=%q got=%q", types.StatusFailed, ext.Status)
	}
	if run.Stage != "package" {
		t.Fatalf("run stage: want=package got=%q", run.Stage)
	}
	if !strings.Contains(run.Error, "bucket offline") {
		t.Fatalf("run error: got=%q", run.Error)
	}
}

func TestGenerateUsesTemplateDefaults(t *testing.T) {
	h := newGenHarness(t, nil, nil)
	h.templates.bySlug = map[string]*types.ExtensionTemplate{
		"focus-timer": {
			Slug:          "focus-timer",
			ExtensionType: catalog.TypePopup,
			Permissions:   mustJSON([]string{"storage", "alarms"}),
		},
	}

	ext, _, err := h.svc.Generate(context.Background(), uuid.New(), GenerationRequest{
		Prompt:       "A pomodoro style focus timer",
		TemplateSlug: "focus-timer",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ext.Status != types.StatusComplete {
		t.Fatalf("extension status: want=%q got=%q (error=%q)", types.StatusComplete, ext.Status, ext.Error)
	}
	got := toStringSliceJSON(ext.Permissions)
	if len(got) != 2 || got[0] != "storage" || got[1] != "alarms" {
		t.Fatalf("template permissions not applied: %v", got)
	}
	if h.templates.usageBumps["focus-timer"] != 1 {
		t.Fatalf("template usage not bumped: %v", h.templates.usageBumps)
	}
}

func TestGetRunScopedToOwner(t *testing.T) {
	h := newGenHarness(t, nil, nil)
	owner := uuid.New()
	run := &types.GenerationRun{ID: uuid.New(), UserID: owner, ExtensionID: uuid.New(), Status: types.StatusComplete}
	if _, err := h.runs.Create(context.Background(), nil, []*types.GenerationRun{run}); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	got, err := h.svc.GetRun(context.Background(), owner, run.ID)
	if err != nil {
		t.Fatalf("GetRun as owner: %v", err)
	}
	if got.ID != run.ID {
		t.Fatalf("run id: want=%s got=%s", run.ID, got.ID)
	}

	// Someone else's run reads as absent, not forbidden.
	_, err = h.svc.GetRun(context.Background(), uuid.New(), run.ID)
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) || apiErr.Code != apierr.CodeNotFound {
		t.Fatalf("GetRun as stranger: want not_found, got %v", err)
	}
}

func TestReaperSweepFailsExtensionAndNotifies(t *testing.T) {
	h := newGenHarness(t, nil, nil)
	userID := uuid.New()
	extension := &types.Extension{UserID: userID, Status: types.StatusBuilding}
	if _, err := h.extensions.Create(context.Background(), nil, []*types.Extension{extension}); err != nil {
		t.Fatalf("seed extension: %v", err)
	}
	h.runs.stale = []*types.GenerationRun{{
		ID:          uuid.New(),
		UserID:      userID,
		ExtensionID: extension.ID,
		Status:      types.StatusFailed,
		Stage:       "build",
		Error:       "generation timed out: no heartbeat",
	}}

	h.svc.(*generationService).sweepOnce(context.Background())

	stored, err := h.extensions.GetByIDs(context.Background(), nil, []uuid.UUID{extension.ID})
	if err != nil || len(stored) != 1 {
		t.Fatalf("reload extension: %v", err)
	}
	if stored[0].Status != types.StatusFailed {
		t.Fatalf("extension status after sweep: want=%q got=%q", types.StatusFailed, stored[0].Status)
	}
	if !strings.Contains(stored[0].Error, "timed out") {
		t.Fatalf("extension error after sweep: got=%q", stored[0].Error)
	}

	evts := h.emitter.events()
	if len(evts) != 1 || evts[0].Event != sse.SSEEventGenerationFailed {
		t.Fatalf("sweep events: got=%v", evts)
	}
	if evts[0].Channel != sse.UserChannel(userID) {
		t.Fatalf("sweep event channel: got=%q", evts[0].Channel)
	}
}

// ---- fakes ----

type fakeAnalyzer struct {
	calls  int
	result *AnalysisResult
	err    error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ *uuid.UUID, _ string) (*AnalysisResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &AnalysisResult{RecommendedType: catalog.TypePopup, Degraded: true}, nil
}

type captureEmitter struct {
	mu   sync.Mutex
	msgs []sse.SSEMessage
}

func (c *captureEmitter) Emit(_ context.Context, msg sse.SSEMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *captureEmitter) events() []sse.SSEMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sse.SSEMessage(nil), c.msgs...)
}

type staticDrafter string

func (d staticDrafter) DraftComponent(_ context.Context, req builder.DraftRequest) (string, error) {
	if req.FileType != "js" {
		return req.Seed, nil
	}
	return string(d), nil
}

type failingDrafter struct {
	err error
}

func (d failingDrafter) DraftComponent(_ context.Context, _ builder.DraftRequest) (string, error) {
	return "", d.err
}

type failingPackager struct {
	err error
}

func (f *failingPackager) Package(_ context.Context, _ uuid.UUID, _ builder.FileSet, _ map[string][]byte) (string, int64, error) {
	return "", 0, f.err
}

type fakeExtensionRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.Extension
}

func (f *fakeExtensionRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakeExtensionRepo) Create(_ context.Context, _ *gorm.DB, extensions []*types.Extension) ([]*types.Extension, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows == nil {
		f.rows = map[uuid.UUID]*types.Extension{}
	}
	for _, e := range extensions {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		f.rows[e.ID] = e
	}
	return extensions, nil
}

func (f *fakeExtensionRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.Extension, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Extension
	for _, id := range ids {
		if e, ok := f.rows[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeExtensionRepo) ListByUserID(_ context.Context, _ *gorm.DB, userID uuid.UUID, _, _ int) ([]*types.Extension, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Extension
	for _, e := range f.rows {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeExtensionRepo) CountByUserID(_ context.Context, _ *gorm.DB, userID uuid.UUID) (int64, error) {
	rows, _ := f.ListByUserID(nil, nil, userID, 0, 0)
	return int64(len(rows)), nil
}

func (f *fakeExtensionRepo) UpdateFields(_ context.Context, _ *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range fields {
		switch key {
		case "status":
			e.Status = value.(string)
		case "error":
			e.Error = value.(string)
		case "name":
			e.Name = value.(string)
		case "archive_key":
			e.ArchiveKey = value.(string)
		case "archive_size":
			e.ArchiveSize = value.(int64)
		case "completed_at":
			if ts, ok := value.(time.Time); ok {
				e.CompletedAt = &ts
			}
		case "manifest":
			e.Manifest = value.(datatypes.JSON)
		}
	}
	return nil
}

func (f *fakeExtensionRepo) SoftDeleteByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.rows, id)
	}
	return nil
}

type fakeGenerationRunRepo struct {
	mu         sync.Mutex
	rows       map[uuid.UUID]*types.GenerationRun
	stale      []*types.GenerationRun
	heartbeats int
}

func (f *fakeGenerationRunRepo) Create(_ context.Context, _ *gorm.DB, runs []*types.GenerationRun) ([]*types.GenerationRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows == nil {
		f.rows = map[uuid.UUID]*types.GenerationRun{}
	}
	for _, r := range runs {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		f.rows[r.ID] = r
	}
	return runs, nil
}

func (f *fakeGenerationRunRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.GenerationRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.GenerationRun
	for _, id := range ids {
		if r, ok := f.rows[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeGenerationRunRepo) GetLatestByExtensionID(_ context.Context, _ *gorm.DB, extensionID uuid.UUID) (*types.GenerationRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *types.GenerationRun
	for _, r := range f.rows {
		if r.ExtensionID != extensionID {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return latest, nil
}

func (f *fakeGenerationRunRepo) ClaimStale(_ context.Context, _ *gorm.DB, _ time.Duration, _ string) (*types.GenerationRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.stale) == 0 {
		return nil, nil
	}
	run := f.stale[0]
	f.stale = f.stale[1:]
	return run, nil
}

func (f *fakeGenerationRunRepo) UpdateFields(_ context.Context, _ *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range updates {
		switch key {
		case "status":
			r.Status = value.(string)
		case "stage":
			r.Stage = value.(string)
		case "progress":
			r.Progress = value.(int)
		case "error":
			r.Error = value.(string)
		case "analysis":
			r.Analysis = value.(datatypes.JSON)
		case "last_error_at":
			if ts, ok := value.(time.Time); ok {
				r.LastErrorAt = &ts
			}
		case "locked_at":
			if ts, ok := value.(time.Time); ok {
				r.LockedAt = &ts
			} else {
				r.LockedAt = nil
			}
		case "heartbeat_at":
			if ts, ok := value.(time.Time); ok {
				r.HeartbeatAt = &ts
			}
		}
	}
	return nil
}

func (f *fakeGenerationRunRepo) Heartbeat(_ context.Context, _ *gorm.DB, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeats++
	return nil
}

type fakeComponentRepo struct {
	mu   sync.Mutex
	rows []*types.ExtensionComponent
}

func (f *fakeComponentRepo) Create(_ context.Context, _ *gorm.DB, components []*types.ExtensionComponent) ([]*types.ExtensionComponent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, components...)
	return components, nil
}

func (f *fakeComponentRepo) GetByExtensionIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.ExtensionComponent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.ExtensionComponent
	for _, c := range f.rows {
		for _, id := range ids {
			if c.ExtensionID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (f *fakeComponentRepo) DeleteByExtensionIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []*types.ExtensionComponent
	for _, c := range f.rows {
		matched := false
		for _, id := range ids {
			if c.ExtensionID == id {
				matched = true
				break
			}
		}
		if !matched {
			kept = append(kept, c)
		}
	}
	f.rows = kept
	return nil
}

func (f *fakeComponentRepo) byExtension(id uuid.UUID) []*types.ExtensionComponent {
	out, _ := f.GetByExtensionIDs(nil, nil, []uuid.UUID{id})
	return out
}

type fakeTemplateRepo struct {
	mu         sync.Mutex
	bySlug     map[string]*types.ExtensionTemplate
	usageBumps map[string]int
}

func (f *fakeTemplateRepo) Create(_ context.Context, _ *gorm.DB, templates []*types.ExtensionTemplate) ([]*types.ExtensionTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bySlug == nil {
		f.bySlug = map[string]*types.ExtensionTemplate{}
	}
	for _, tmpl := range templates {
		f.bySlug[tmpl.Slug] = tmpl
	}
	return templates, nil
}

func (f *fakeTemplateRepo) GetAll(_ context.Context, _ *gorm.DB) ([]*types.ExtensionTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.ExtensionTemplate
	for _, tmpl := range f.bySlug {
		out = append(out, tmpl)
	}
	return out, nil
}

func (f *fakeTemplateRepo) GetBySlugs(_ context.Context, _ *gorm.DB, slugs []string) ([]*types.ExtensionTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.ExtensionTemplate
	for _, slug := range slugs {
		if tmpl, ok := f.bySlug[slug]; ok {
			out = append(out, tmpl)
		}
	}
	return out, nil
}

func (f *fakeTemplateRepo) GetByExtensionType(_ context.Context, _ *gorm.DB, extensionType string) ([]*types.ExtensionTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.ExtensionTemplate
	for _, tmpl := range f.bySlug {
		if tmpl.ExtensionType == extensionType {
			out = append(out, tmpl)
		}
	}
	return out, nil
}

func (f *fakeTemplateRepo) CountAll(_ context.Context, _ *gorm.DB) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.bySlug)), nil
}

func (f *fakeTemplateRepo) IncrementUsage(_ context.Context, _ *gorm.DB, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usageBumps == nil {
		f.usageBumps = map[string]int{}
	}
	f.usageBumps[slug]++
	return nil
}
