package main

import (
  "context"
  "fmt"
  "os"
  "time"
  "github.com/joho/godotenv"

  "github.com/autonoma/autonoma-backend/internal/builder"
  "github.com/autonoma/autonoma-backend/internal/db"
  "github.com/autonoma/autonoma-backend/internal/handlers"
  "github.com/autonoma/autonoma-backend/internal/logger"
  "github.com/autonoma/autonoma-backend/internal/middleware"
  "github.com/autonoma/autonoma-backend/internal/observability"
  "github.com/autonoma/autonoma-backend/internal/repos"
  "github.com/autonoma/autonoma-backend/internal/server"
  "github.com/autonoma/autonoma-backend/internal/services"
  "github.com/autonoma/autonoma-backend/internal/sse"
  "github.com/autonoma/autonoma-backend/internal/templates"
  "github.com/autonoma/autonoma-backend/internal/utils"
)

func main() {
  _ = godotenv.Load()

  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Env
  log.Info("Loading environment variables from main...")
  jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
  accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
  refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Warn("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()

  // Observability
  rootCtx := context.Background()
  otelShutdown := observability.InitOTel(rootCtx, log, observability.OtelConfig{
    ServiceName: "autonoma-backend",
    Environment: os.Getenv("APP_ENV"),
    Version:     os.Getenv("APP_VERSION"),
  })
  defer func() {
    if otelShutdown != nil {
      _ = otelShutdown(context.Background())
    }
  }()
  metrics := observability.Init(log)
  if metrics != nil {
    metrics.StartServer(rootCtx, log, utils.GetEnv("METRICS_ADDR", ":9090", log))
    metrics.StartPostgresCollector(rootCtx, log, thePG)
    metrics.StartRedisCollector(rootCtx, log, os.Getenv("REDIS_ADDR"))
    metrics.StartRunStatusCollector(rootCtx, log, thePG)
    metrics.StartSLOEvaluator(rootCtx, log)
  }

  // Repos
  log.Info("Setting up Repos from main...")
  userRepo := repos.NewUserRepo(thePG, log)
  userTokenRepo := repos.NewUserTokenRepo(thePG, log)
  extensionRepo := repos.NewExtensionRepo(thePG, log)
  extensionComponentRepo := repos.NewExtensionComponentRepo(thePG, log)
  generationRunRepo := repos.NewGenerationRunRepo(thePG, log)
  extensionTemplateRepo := repos.NewExtensionTemplateRepo(thePG, log)
  aiCallLogRepo := repos.NewAICallLogRepo(thePG, log)

  // SSE
  log.Info("Setting up SSE hub now...")
  sseHub := sse.NewSSEHub(log)
  var sseEmitter services.SSEEmitter = &services.HubEmitter{Hub: sseHub}
  sseBus, err := services.NewRedisSSEBus(log)
  if err != nil {
    log.Warn("SSE bus unavailable, events stay process-local", "error", err)
  } else if err := sseBus.StartForwarder(rootCtx, sseHub.Broadcast); err != nil {
    log.Warn("Could not start SSE forwarder, events stay process-local", "error", err)
  } else {
    sseEmitter = &services.RedisEmitter{Bus: sseBus}
  }

  // Services
  log.Info("Setting up Services from main...")
  openaiClient, err := services.NewOpenAIClient(log)
  if err != nil {
    log.Warn("Could not init OpenAIClient, generation runs degraded without AI drafting", "error", err)
  }
  draftCache, err := services.NewDraftCache(log)
  if err != nil {
    log.Warn("Could not init DraftCache, drafts will not be cached", "error", err)
  }
  archiveStore, err := services.NewArchiveStore(log)
  if err != nil {
    log.Error("Could not init ArchiveStore", "error", err)
    os.Exit(1)
  }
  iconService := services.NewIconService(log)
  packagerService := services.NewPackagerService(archiveStore, log)

  templateStore := templates.NewStore()
  if dir := os.Getenv("TEMPLATE_DIR"); dir != "" {
    if err := templateStore.LoadDir(dir); err != nil {
      log.Warn("Could not load template overrides, using built-in scaffolds", "dir", dir, "error", err)
    }
  }

  var drafter builder.Drafter
  if openaiClient != nil {
    drafter = services.NewComponentDrafter(openaiClient, draftCache, aiCallLogRepo, log)
  }
  registry := builder.NewRegistry(templateStore, drafter, log)

  analyzerService := services.NewAnalyzerService(openaiClient, draftCache, aiCallLogRepo, log)
  authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
  userService := services.NewUserService(thePG, log, userRepo)
  generationService := services.NewGenerationService(
    thePG,
    log,
    extensionRepo,
    extensionComponentRepo,
    generationRunRepo,
    extensionTemplateRepo,
    analyzerService,
    registry,
    packagerService,
    iconService,
    sseEmitter,
  )
  generationService.StartReaper(rootCtx)
  extensionService := services.NewExtensionService(thePG, log, extensionRepo, extensionComponentRepo, generationRunRepo, archiveStore)
  catalogService := services.NewCatalogService(thePG, log, extensionTemplateRepo)

  // Handlers
  log.Info("Setting up handlers from main...")
  authHandler := handlers.NewAuthHandler(authService)
  userHandler := handlers.NewUserHandler(userService)
  sseHandler := handlers.NewSSEHandler(log, sseHub)
  generationHandler := handlers.NewGenerationHandler(generationService, analyzerService)
  extensionHandler := handlers.NewExtensionHandler(extensionService)
  catalogHandler := handlers.NewCatalogHandler(catalogService)

  // Middleware
  log.Info("Setting up middleware from main...")
  authMiddleware := middleware.NewAuthMiddleware(log, authService)

  // Router
  log.Info("Setting up router from main...")
  router := server.NewRouter(server.RouterConfig{
    Log:               log,
    AuthHandler:       authHandler,
    AuthMiddleware:    authMiddleware,
    UserHandler:       userHandler,
    SSEHandler:        sseHandler,
    GenerationHandler: generationHandler,
    ExtensionHandler:  extensionHandler,
    CatalogHandler:    catalogHandler,
  })

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Error("Server failed", "error", err)
  }
}
