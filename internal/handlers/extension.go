package handlers

import (
  "fmt"
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/autonoma/autonoma-backend/internal/services"
)

type ExtensionHandler struct {
  extensionService      services.ExtensionService
}

func NewExtensionHandler(extensionService services.ExtensionService) *ExtensionHandler {
  return &ExtensionHandler{extensionService: extensionService}
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid extension id"})
    return uuid.Nil, false
  }
  return id, true
}

func (eh *ExtensionHandler) List(c *gin.Context) {
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
  offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

  extensions, total, err := eh.extensionService.List(c.Request.Context(), limit, offset)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{
    "extensions": extensions,
    "total":      total,
    "limit":      limit,
    "offset":     offset,
  })
}

func (eh *ExtensionHandler) Get(c *gin.Context) {
  id, ok := parseIDParam(c)
  if !ok {
    return
  }
  extension, err := eh.extensionService.Get(c.Request.Context(), id)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"extension": extension})
}

func (eh *ExtensionHandler) LatestRun(c *gin.Context) {
  id, ok := parseIDParam(c)
  if !ok {
    return
  }
  run, err := eh.extensionService.LatestRun(c.Request.Context(), id)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"run": run})
}

func (eh *ExtensionHandler) Components(c *gin.Context) {
  id, ok := parseIDParam(c)
  if !ok {
    return
  }
  components, err := eh.extensionService.Components(c.Request.Context(), id)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"components": components})
}

func (eh *ExtensionHandler) Preview(c *gin.Context) {
  id, ok := parseIDParam(c)
  if !ok {
    return
  }
  component, err := eh.extensionService.Preview(c.Request.Context(), id, c.Query("path"))
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{
    "file_path":   component.FilePath,
    "content":     component.Content,
    "file_type":   component.FileType,
    "description": component.Description,
  })
}

func (eh *ExtensionHandler) Download(c *gin.Context) {
  id, ok := parseIDParam(c)
  if !ok {
    return
  }
  reader, size, filename, err := eh.extensionService.Download(c.Request.Context(), id)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  defer reader.Close()

  extraHeaders := map[string]string{
    "Content-Disposition": fmt.Sprintf("attachment; filename=%q", filename),
  }
  c.DataFromReader(http.StatusOK, size, "application/zip", reader, extraHeaders)
}

func (eh *ExtensionHandler) Delete(c *gin.Context) {
  id, ok := parseIDParam(c)
  if !ok {
    return
  }
  if err := eh.extensionService.Delete(c.Request.Context(), id); err != nil {
    RespondAPIError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"message": "extension deleted"})
}

func (eh *ExtensionHandler) InstallInstructions(c *gin.Context) {
  id, ok := parseIDParam(c)
  if !ok {
    return
  }
  extension, err := eh.extensionService.Get(c.Request.Context(), id)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{
    "extension_type": extension.ExtensionType,
    "instructions":   services.InstallInstructions(extension.ExtensionType),
  })
}
