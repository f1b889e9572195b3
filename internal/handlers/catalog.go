package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/autonoma/autonoma-backend/internal/services"
)

type CatalogHandler struct {
  catalogService      services.CatalogService
}

func NewCatalogHandler(catalogService services.CatalogService) *CatalogHandler {
  return &CatalogHandler{catalogService: catalogService}
}

func (ch *CatalogHandler) Types(c *gin.Context) {
  c.JSON(http.StatusOK, gin.H{"extension_types": ch.catalogService.Types()})
}

func (ch *CatalogHandler) Permissions(c *gin.Context) {
  c.JSON(http.StatusOK, gin.H{"permissions": ch.catalogService.Permissions()})
}

func (ch *CatalogHandler) Templates(c *gin.Context) {
  templates, err := ch.catalogService.Templates(c.Request.Context())
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  c.JSON(http.StatusOK, gin.H{"templates": templates})
}

func (ch *CatalogHandler) PublishGuide(c *gin.Context) {
  RespondOK(c, ch.catalogService.PublishGuide())
}
