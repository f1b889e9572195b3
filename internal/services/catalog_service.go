package services

import (
  "context"
  "fmt"

  "gorm.io/gorm"

  "github.com/autonoma/autonoma-backend/internal/catalog"
  "github.com/autonoma/autonoma-backend/internal/logger"
  "github.com/autonoma/autonoma-backend/internal/repos"
  "github.com/autonoma/autonoma-backend/internal/types"
)

type PublishStep struct {
  Step        int    `json:"step"`
  Title       string `json:"title"`
  Description string `json:"description"`
}

type PublishGuide struct {
  Steps     []PublishStep     `json:"steps"`
  Resources map[string]string `json:"resources"`
}

// CatalogService exposes the static generation catalog plus the
// template gallery backed by postgres.
type CatalogService interface {
  Types() []catalog.Archetype
  Permissions() []catalog.Permission
  Templates(ctx context.Context) ([]*types.ExtensionTemplate, error)
  PublishGuide() PublishGuide
}

type catalogService struct {
  db           *gorm.DB
  log          *logger.Logger
  templateRepo repos.ExtensionTemplateRepo
}

func NewCatalogService(db *gorm.DB, baseLog *logger.Logger, templateRepo repos.ExtensionTemplateRepo) CatalogService {
  return &catalogService{
    db:           db,
    log:          baseLog.With("service", "CatalogService"),
    templateRepo: templateRepo,
  }
}

func (cs *catalogService) Types() []catalog.Archetype {
  return catalog.Archetypes()
}

func (cs *catalogService) Permissions() []catalog.Permission {
  return catalog.Permissions()
}

// Templates returns the gallery, seeding the showcase rows on first
// use. Concurrent first calls race on the unique slug index; the loser
// just logs and reads back whatever won.
func (cs *catalogService) Templates(ctx context.Context) ([]*types.ExtensionTemplate, error) {
  count, err := cs.templateRepo.CountAll(ctx, nil)
  if err != nil {
    return nil, fmt.Errorf("Failed to count templates: %w", err)
  }
  if count == 0 {
    err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
      _, seedErr := cs.templateRepo.Create(ctx, tx, seedTemplates())
      return seedErr
    })
    if err != nil {
      cs.log.Warn("Failed to seed templates", "error", err.Error())
    } else {
      cs.log.Info("Seeded showcase templates", "count", len(seedTemplates()))
    }
  }
  return cs.templateRepo.GetAll(ctx, nil)
}

func (cs *catalogService) PublishGuide() PublishGuide {
  return PublishGuide{
    Steps: []PublishStep{
      {Step: 1, Title: "Prepare Your Extension", Description: "Ensure your extension is complete and tested"},
      {Step: 2, Title: "Create Developer Account", Description: "Register at the Chrome Web Store Developer Dashboard ($5 one-time fee)"},
      {Step: 3, Title: "Package Extension", Description: "Create a ZIP file of your extension directory"},
      {Step: 4, Title: "Submit for Review", Description: "Upload your extension and fill out the store listing"},
    },
    Resources: map[string]string{
      "developer_dashboard": "https://chrome.google.com/webstore/devconsole/",
      "publishing_guide":    "https://developer.chrome.com/docs/webstore/publish/",
      "program_policies":    "https://developer.chrome.com/docs/webstore/program-policies/",
    },
  }
}

func seedTemplates() []*types.ExtensionTemplate {
  return []*types.ExtensionTemplate{
    {
      Slug:          "quick-notes",
      Name:          "Quick Notes",
      Description:   "A toolbar popup for jotting down notes that persist across browsing sessions",
      ExtensionType: catalog.TypePopup,
      Complexity:    "Simple",
      EstimatedTime: "5-15 minutes",
      Permissions:   mustJSON([]string{"storage"}),
      Features:      mustJSON([]string{"Capture notes from the toolbar popup", "Notes persist in extension storage", "Delete notes with a single click"}),
      UseCases:      mustJSON([]string{"Jot down ideas while browsing", "Keep a running reading list"}),
      IsFeatured:    true,
    },
    {
      Slug:          "page-highlighter",
      Name:          "Page Highlighter",
      Description:   "Highlight text on any web page and keep the highlights when you come back",
      ExtensionType: catalog.TypeContentScript,
      Complexity:    "Medium",
      EstimatedTime: "15-30 minutes",
      Permissions:   mustJSON([]string{"storage"}),
      Features:      mustJSON([]string{"Highlight selected text on any page", "Highlights are saved per URL", "Clear all highlights from the page"}),
      UseCases:      mustJSON([]string{"Mark up articles while researching", "Flag passages to revisit later"}),
      IsFeatured:    true,
    },
    {
      Slug:          "tab-reminder",
      Name:          "Tab Reminder",
      Description:   "Snooze tabs for later and get a desktop notification when they are due",
      ExtensionType: catalog.TypeBackground,
      Complexity:    "Medium",
      EstimatedTime: "15-30 minutes",
      Permissions:   mustJSON([]string{"storage", "tabs", "alarms", "notifications"}),
      Features:      mustJSON([]string{"Snooze any tab for a chosen interval", "Desktop notification when a tab is due", "Runs entirely from the background worker"}),
      UseCases:      mustJSON([]string{"Defer reading without hoarding tabs", "Follow up on a page at the right time"}),
      IsFeatured:    true,
    },
    {
      Slug:          "request-inspector",
      Name:          "Request Inspector",
      Description:   "A custom DevTools panel summarizing the network requests a page makes",
      ExtensionType: catalog.TypeDevTools,
      Complexity:    "Advanced",
      EstimatedTime: "30-60 minutes",
      Permissions:   mustJSON([]string{"storage", "webRequest"}),
      Features:      mustJSON([]string{"Custom panel inside Developer Tools", "Live count of completed requests", "Filter requests by domain"}),
      UseCases:      mustJSON([]string{"Debug chatty third-party scripts", "Audit which hosts a page talks to"}),
      IsFeatured:    false,
    },
    {
      Slug:          "preferences-panel",
      Name:          "Preferences Panel",
      Description:   "A full-page options surface with settings synced through extension storage",
      ExtensionType: catalog.TypeOptions,
      Complexity:    "Simple",
      EstimatedTime: "5-15 minutes",
      Permissions:   mustJSON([]string{"storage"}),
      Features:      mustJSON([]string{"Full-page options UI", "Settings synced via extension storage", "Reset everything to defaults"}),
      UseCases:      mustJSON([]string{"Starting point for any configurable extension"}),
      IsFeatured:    false,
    },
  }
}
