package server

import (
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"
  "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

  "github.com/autonoma/autonoma-backend/internal/handlers"
  "github.com/autonoma/autonoma-backend/internal/logger"
  "github.com/autonoma/autonoma-backend/internal/middleware"
)

type RouterConfig struct {
  Log               *logger.Logger
  AuthHandler       *handlers.AuthHandler
  AuthMiddleware    *middleware.AuthMiddleware
  UserHandler       *handlers.UserHandler
  SSEHandler        *handlers.SSEHandler
  GenerationHandler *handlers.GenerationHandler
  ExtensionHandler  *handlers.ExtensionHandler
  CatalogHandler    *handlers.CatalogHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  router.Use(otelgin.Middleware("autonoma-backend"))
  router.Use(middleware.AttachTraceContext())
  router.Use(middleware.RequestLogger(cfg.Log))
  router.Use(middleware.ObserveRequests())

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
      "http://localhost:5174",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

// ===============
// || Public    ||
// ===============
  router.GET("/healthcheck", handlers.HealthCheck)
  router.POST("/register", cfg.AuthHandler.Register)
  router.POST("/login", cfg.AuthHandler.Login)

// ===============
// || Protected ||
// ===============
  protected := router.Group("/")
  protected.Use(cfg.AuthMiddleware.RequireAuth())
  // Auth
  protected.POST("/refresh", cfg.AuthHandler.Refresh)
  protected.POST("/logout", cfg.AuthHandler.Logout)
  // SSE
  protected.GET("/sse/stream", cfg.SSEHandler.SSEStream)
  protected.POST("/sse/subscribe", cfg.SSEHandler.SSESubscribe)
  protected.POST("/sse/unsubscribe", cfg.SSEHandler.SSEUnsubscribe)
  // User
  protected.GET("/user", cfg.UserHandler.GetMe)

  api := protected.Group("/api")
  {
    // Generation
    api.POST("/analyze", cfg.GenerationHandler.Analyze)
    api.POST("/generate", cfg.GenerationHandler.Generate)
    api.GET("/runs/:id", cfg.GenerationHandler.GetRun)
    // Extensions
    api.GET("/extensions", cfg.ExtensionHandler.List)
    api.GET("/extensions/:id", cfg.ExtensionHandler.Get)
    api.GET("/extensions/:id/run", cfg.ExtensionHandler.LatestRun)
    api.GET("/extensions/:id/components", cfg.ExtensionHandler.Components)
    api.GET("/extensions/:id/preview", cfg.ExtensionHandler.Preview)
    api.GET("/extensions/:id/download", cfg.ExtensionHandler.Download)
    api.GET("/extensions/:id/install", cfg.ExtensionHandler.InstallInstructions)
    api.DELETE("/extensions/:id", cfg.ExtensionHandler.Delete)
    // Catalog
    api.GET("/extension-types", cfg.CatalogHandler.Types)
    api.GET("/permissions", cfg.CatalogHandler.Permissions)
    api.GET("/templates", cfg.CatalogHandler.Templates)
    api.GET("/publish-guide", cfg.CatalogHandler.PublishGuide)
  }

  return router
}
