package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/autonoma/autonoma-backend/internal/builder"
	"github.com/autonoma/autonoma-backend/internal/requestdata"
)

func sampleDraftRequest() builder.DraftRequest {
	return builder.DraftRequest{
		ExtensionName: "Click Counter",
		Description:   "Counts clicks on the current tab",
		Prompt:        "Count my clicks and show a running total",
		FilePath:      "popup.js",
		FileType:      "js",
		Seed:          "document.addEventListener('DOMContentLoaded', () => {});\n",
		Permissions:   []string{"storage"},
	}
}

func TestDrafterStripsFencesAndCaches(t *testing.T) {
	ai := &fakeOpenAIClient{textResult: "```js\nconsole.log('hi');\n```"}
	cache := &fakeDraftCache{}
	aiLog := &fakeAICallLogRepo{}
	d := NewComponentDrafter(ai, cache, aiLog, mustServiceLogger(t))

	content, err := d.DraftComponent(context.Background(), sampleDraftRequest())
	if err != nil {
		t.Fatalf("DraftComponent: %v", err)
	}
	if content != "console.log('hi');" {
		t.Fatalf("content: want=%q got=%q", "console.log('hi');", content)
	}
	if ai.textCalls != 1 {
		t.Fatalf("provider calls: want=1 got=%d", ai.textCalls)
	}
	if cache.setCalls != 1 {
		t.Fatalf("cache writes: want=1 got=%d", cache.setCalls)
	}
	if len(aiLog.created) != 1 {
		t.Fatalf("ai call rows: want=1 got=%d", len(aiLog.created))
	}
	row := aiLog.created[0]
	if row.CallType != "component_draft" || !row.Success {
		t.Fatalf("ai call row: call_type=%q success=%v", row.CallType, row.Success)
	}
	if row.Model != "fake-model" {
		t.Fatalf("ai call model: want=%q got=%q", "fake-model", row.Model)
	}
	if row.UserID != nil {
		t.Fatalf("anonymous call should carry no user, got %s", row.UserID)
	}
}

func TestDrafterSecondCallServedFromCache(t *testing.T) {
	ai := &fakeOpenAIClient{textResult: "first draft"}
	cache := &fakeDraftCache{}
	d := NewComponentDrafter(ai, cache, nil, mustServiceLogger(t))

	req := sampleDraftRequest()
	first, err := d.DraftComponent(context.Background(), req)
	if err != nil {
		t.Fatalf("first draft: %v", err)
	}
	ai.textResult = "second draft"
	second, err := d.DraftComponent(context.Background(), req)
	if err != nil {
		t.Fatalf("second draft: %v", err)
	}
	if second != first {
		t.Fatalf("identical request missed the cache: first=%q second=%q", first, second)
	}
	if ai.textCalls != 1 {
		t.Fatalf("provider calls: want=1 got=%d", ai.textCalls)
	}
}

func TestDrafterRejectsEmptyDraft(t *testing.T) {
	ai := &fakeOpenAIClient{textResult: "```\n```"}
	cache := &fakeDraftCache{}
	d := NewComponentDrafter(ai, cache, nil, mustServiceLogger(t))

	_, err := d.DraftComponent(context.Background(), sampleDraftRequest())
	if err == nil {
		t.Fatal("expected error for empty draft")
	}
	if !strings.Contains(err.Error(), "popup.js") {
		t.Fatalf("error should name the file: %v", err)
	}
	if cache.setCalls != 0 {
		t.Fatalf("empty draft must not be cached, setCalls=%d", cache.setCalls)
	}
}

func TestDrafterProviderFailureRecorded(t *testing.T) {
	ai := &fakeOpenAIClient{textErr: errors.New("rate limited")}
	aiLog := &fakeAICallLogRepo{}
	d := NewComponentDrafter(ai, nil, aiLog, mustServiceLogger(t))

	_, err := d.DraftComponent(context.Background(), sampleDraftRequest())
	if err == nil {
		t.Fatal("expected provider error")
	}
	if len(aiLog.created) != 1 {
		t.Fatalf("ai call rows: want=1 got=%d", len(aiLog.created))
	}
	row := aiLog.created[0]
	if row.Success || row.Error == "" {
		t.Fatalf("failed call should be recorded as failure: success=%v error=%q", row.Success, row.Error)
	}
}

func TestDrafterAttributesAuthenticatedUser(t *testing.T) {
	ai := &fakeOpenAIClient{textResult: "content"}
	aiLog := &fakeAICallLogRepo{}
	d := NewComponentDrafter(ai, nil, aiLog, mustServiceLogger(t))

	userID := uuid.New()
	ctx := requestdata.WithRequestData(context.Background(), &requestdata.RequestData{UserID: userID})
	if _, err := d.DraftComponent(ctx, sampleDraftRequest()); err != nil {
		t.Fatalf("DraftComponent: %v", err)
	}
	row := aiLog.created[0]
	if row.UserID == nil || *row.UserID != userID {
		t.Fatalf("ai call not attributed to user %s", userID)
	}
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "console.log(1);", "console.log(1);"},
		{"fenced with language", "```js\nlet x = 1;\n```", "let x = 1;"},
		{"fenced bare", "```\nbody { margin: 0; }\n```", "body { margin: 0; }"},
		{"missing closing fence", "```js\nlet x = 1;", "let x = 1;"},
		{"surrounding whitespace", "  \n```\nhi\n```\n  ", "hi"},
		{"single fence line", "```", "```"},
	}
	for _, tc := range cases {
		if got := stripCodeFences(tc.in); got != tc.want {
			t.Fatalf("%s: want=%q got=%q", tc.name, tc.want, got)
		}
	}
}
