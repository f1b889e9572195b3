package handlers

import (
  "fmt"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/autonoma/autonoma-backend/internal/requestdata"
  "github.com/autonoma/autonoma-backend/internal/services"
  "github.com/autonoma/autonoma-backend/internal/types"
)

type GenerationHandler struct {
  generationService     services.GenerationService
  analyzerService       services.AnalyzerService
}

func NewGenerationHandler(generationService services.GenerationService, analyzerService services.AnalyzerService) *GenerationHandler {
  return &GenerationHandler{
    generationService: generationService,
    analyzerService:   analyzerService,
  }
}

// Analyze runs the prompt analysis on its own, without creating any
// records. The client uses it to prefill the generate form.
func (gh *GenerationHandler) Analyze(c *gin.Context) {
  var req struct {
    Prompt      string      `json:"prompt"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  userID := requestdata.UserID(c.Request.Context())
  var userRef *uuid.UUID
  if userID != uuid.Nil {
    userRef = &userID
  }
  analysis, err := gh.analyzerService.Analyze(c.Request.Context(), userRef, req.Prompt)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, analysis)
}

func (gh *GenerationHandler) Generate(c *gin.Context) {
  var req services.GenerationRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  userID := requestdata.UserID(c.Request.Context())
  if userID == uuid.Nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
    return
  }

  extension, run, err := gh.generationService.Generate(c.Request.Context(), userID, req)
  if err != nil {
    RespondAPIError(c, err)
    return
  }

  // Failed generations come back as a terminal record too; the error
  // rides the summary instead of a non-2xx code.
  resp := gin.H{
    "id":             extension.ID,
    "name":           extension.Name,
    "description":    extension.Description,
    "extension_type": extension.ExtensionType,
    "status":         extension.Status,
    "run":            run,
  }
  if extension.Error != "" {
    resp["error"] = extension.Error
  }
  if extension.Status == types.StatusComplete {
    resp["download_url"] = fmt.Sprintf("/api/extensions/%s/download", extension.ID.String())
    resp["install_instructions"] = services.InstallInstructions(extension.ExtensionType)
  }
  c.JSON(http.StatusOK, resp)
}

func (gh *GenerationHandler) GetRun(c *gin.Context) {
  runID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
    return
  }
  userID := requestdata.UserID(c.Request.Context())
  run, err := gh.generationService.GetRun(c.Request.Context(), userID, runID)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"run": run})
}
