package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/talentpool-api/internal/config"
	"github.com/yourusername/talentpool-api/internal/handler"
	"github.com/yourusername/talentpool-api/internal/middleware"
	"github.com/yourusername/talentpool-api/internal/model"
	"github.com/yourusername/talentpool-api/internal/repository"
	"github.com/yourusername/talentpool-api/internal/search"
	"github.com/yourusername/talentpool-api/internal/service"
)

func main() {
	// ── Logging ──────────────────────────────────────────
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// ── Config ───────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	log.Info().Str("env", cfg.Env).Str("port", cfg.Port).Msg("Starting TalentPool API")

	// Cancelled on shutdown; background loops stop with it
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// ── Database ─────────────────────────────────────────
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connected")

	// ── Repositories ─────────────────────────────────────
	userRepo := repository.NewUserRepo(pool)
	domainRepo := repository.NewDomainRepo(pool)
	inviteRepo := repository.NewInviteRepo(pool)
	candidateRepo := repository.NewCandidateRepo(pool)
	noteRepo := repository.NewNoteRepo(pool)
	activityRepo := repository.NewActivityRepo(pool)
	deviceRepo := repository.NewDeviceRepo(pool)
	pushRepo := repository.NewPushNotificationRepo(pool)
	eventRepo := repository.NewEventRepo(pool)
	credentialRepo := repository.NewCredentialRepo(pool)
	billingRepo := repository.NewBillingRepo(pool)

	// ── Search ───────────────────────────────────────────
	var (
		searcher *search.Searcher
		indexer  service.CandidateIndexer
	)
	if cfg.SearchEnabled() {
		engine, err := search.NewCloudSearchEngine(ctx, cfg.AWSRegion, cfg.CloudSearchEndpoint, cfg.CloudSearchDocEndpoint)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize CloudSearch")
		}
		searcher = search.NewSearcher(engine)
		indexer = search.NewIndexer(engine)
		log.Info().Str("endpoint", cfg.CloudSearchEndpoint).Msg("Candidate search enabled")
	} else {
		log.Warn().Msg("CLOUDSEARCH_ENDPOINT not set, candidate search disabled")
	}

	// ── Services ─────────────────────────────────────────
	activityService := service.NewActivityService(activityRepo, userRepo)
	candidateService := service.NewCandidateService(candidateRepo, noteRepo, userRepo, indexer, activityService)

	var sender service.PushSender
	if cfg.PushEnabled() {
		sender = service.NewOneSignalClient(cfg.OneSignalAppID, cfg.OneSignalRESTKey, cfg.OneSignalBaseURL)
	} else {
		log.Warn().Msg("OneSignal not configured, push sending disabled")
	}
	pushService := service.NewPushService(candidateRepo, deviceRepo, pushRepo, sender, activityService)

	eventService := service.NewEventService(eventRepo, credentialRepo, activityService,
		service.NewEventbriteClient(cfg.EventbriteBaseURL))

	billingService := service.NewBillingService(cfg, billingRepo, domainRepo, userRepo)

	// ── Scheduler ────────────────────────────────────────
	scheduler, err := service.NewScheduler(
		service.EventSyncJob(eventService, cfg.EventSyncInterval),
		service.DevicePurgeJob(pushService, cfg.DeviceTTL),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	scheduler.Start()

	// ── Handlers ─────────────────────────────────────────
	authHandler := handler.NewAuthHandler(userRepo)
	profileHandler := handler.NewProfileHandler(userRepo, domainRepo)
	inviteHandler := handler.NewInviteHandler(userRepo, inviteRepo)
	candidateHandler := handler.NewCandidateHandler(candidateService)
	importHandler := handler.NewImportHandler(candidateService)
	resumeHandler := handler.NewResumeHandler(candidateService)
	searchHandler := handler.NewSearchHandler(searcher)
	activityHandler := handler.NewActivityHandler(activityService)
	pushHandler := handler.NewPushHandler(pushService)
	eventHandler := handler.NewEventHandler(eventService)
	billingHandler := handler.NewBillingHandler(billingService)
	healthHandler := handler.NewHealthHandler(pool, map[string]bool{
		"search": cfg.SearchEnabled(),
		"push":   cfg.PushEnabled(),
	})

	// ── Middleware ────────────────────────────────────────
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.FirebaseProjectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Firebase auth")
	}
	rateLimiter := middleware.NewRateLimiter(ctx, cfg.RateLimitRPS)
	requirePro := middleware.RequirePlan(model.PlanPro, billingRepo)

	// ── Router ───────────────────────────────────────────
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Unauthenticated
	r.GET("/health", healthHandler.Health)
	r.POST("/billing/webhook", billingHandler.HandleWebhook)

	// ── Authenticated Routes ─────────────────────────────
	api := r.Group("/", authMiddleware.Authenticate(), rateLimiter.Limit(), middleware.ResolveUser(userRepo))
	{
		// Auth
		api.POST("/auth/google", authHandler.GoogleSignIn)

		// Profile
		api.GET("/profile", profileHandler.GetProfile)
		api.PUT("/profile", profileHandler.UpdateProfile)

		// Domain invites
		api.GET("/domain/invites", inviteHandler.List)
		api.POST("/domain/invites", inviteHandler.Create)
		api.DELETE("/domain/invites/:inviteId", inviteHandler.Revoke)

		// Candidates
		api.GET("/candidates", candidateHandler.List)
		api.POST("/candidates", candidateHandler.Create)
		api.POST("/candidates/batch", candidateHandler.CreateBatch)
		api.POST("/candidates/import", importHandler.ImportCSV)
		api.GET("/candidates/pipeline", candidateHandler.Pipeline)
		api.GET("/candidates/search", searchHandler.Search)
		api.GET("/candidates/search/facets", searchHandler.Facets)
		api.GET("/candidates/:id", candidateHandler.Get)
		api.PUT("/candidates/:id", candidateHandler.Update)
		api.DELETE("/candidates/:id", candidateHandler.Delete)
		api.PUT("/candidates/:id/status", candidateHandler.UpdateStatus)
		api.GET("/candidates/:id/history", candidateHandler.History)
		api.POST("/candidates/:id/resume", resumeHandler.Upload)

		// Notes
		api.GET("/candidates/:id/notes", candidateHandler.ListNotes)
		api.POST("/candidates/:id/notes", candidateHandler.AddNote)
		api.DELETE("/candidates/:id/notes/:noteId", candidateHandler.DeleteNote)

		// Devices & push
		api.GET("/candidates/:id/devices", pushHandler.ListDevices)
		api.POST("/candidates/:id/devices", pushHandler.RegisterDevice)
		api.DELETE("/candidates/:id/devices/:deviceId", pushHandler.DeleteDevice)
		api.GET("/candidates/:id/push", pushHandler.ListSent)
		api.POST("/candidates/:id/push", requirePro, pushHandler.Send)

		// Activity feed
		api.GET("/activities", activityHandler.List)
		api.GET("/activities/aggregate", activityHandler.Aggregate)
		api.GET("/activities/types", activityHandler.Types)

		// Social networks & events
		api.GET("/networks", eventHandler.Connections)
		api.POST("/networks/:network", eventHandler.Connect)
		api.GET("/events", eventHandler.List)
		api.POST("/events/sync", requirePro, eventHandler.Sync)
		api.GET("/events/:id", eventHandler.Get)
		api.DELETE("/events/:id", eventHandler.Delete)

		// Billing
		api.GET("/billing/subscription", billingHandler.GetSubscription)
		api.POST("/billing/checkout", billingHandler.CreateCheckout)
		api.POST("/billing/portal", billingHandler.CreatePortal)
	}

	// ── Server ───────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("TalentPool API server running")

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stop()

	if err := scheduler.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Scheduler shutdown failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
