// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	_ "inkd/docs" // swagger docs
	"inkd/internal/assistant"
	"inkd/internal/auth"
	"inkd/internal/bootstrap"
	"inkd/internal/cache"
	"inkd/internal/config"
	"inkd/internal/database"
	"inkd/internal/featureflags"
	"inkd/internal/middleware"
	"inkd/internal/models"
	"inkd/internal/notifications"
	"inkd/internal/observability"
	"inkd/internal/remote"
	"inkd/internal/repository"
	"inkd/internal/storage"
	"inkd/internal/store"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const janitorInterval = time.Minute

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	auth         *auth.Service
	storage      storage.Storage
	remote       *remote.Client
	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager
	workspaces   *store.Registry
	// createMu serializes building a workspace for a session or device seen for the first time.
	createMu sync.Mutex
}

// NewServer initializes the runtime (database, schema, Redis) and builds a server on top of it.
func NewServer(cfg *config.Config) (*Server, error) {
	// A nil Redis client means Redis is unreachable; every Redis user degrades to in-process.
	db, redisClient, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{SeedDemo: cfg.SeedDemo})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	notifier := notifications.NewNotifier(redisClient)
	authService := auth.NewService(repository.NewIdentityRepository(db), redisClient, notifier, cfg)
	disk := storage.NewDisk(cfg)
	client := remote.NewClient(db, cache.New(redisClient), authService, disk)

	var prefs store.Preferences = store.NewMemoryPreferences()
	if redisClient != nil {
		prefs = store.NewRedisPreferences(redisClient)
	}

	flags := featureflags.NewManager(cfg.FeatureFlags)
	simulated := assistant.NewSimulated(nil, cfg.AssistantReplyDelay, cfg.ReportDelay)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("inkd-api"),
		auth:           authService,
		storage:        disk,
		remote:         client,
		notifier:       notifier,
		hub:            notifications.NewHub(notifier),
		featureFlags:   flags,
	}
	server.workspaces = store.NewRegistry(store.Deps{
		Remote:             client,
		Prefs:              prefs,
		Responder:          simulated,
		Researcher:         simulated,
		Flags:              flags,
		FeedLimit:          cfg.FeedLimit,
		GeolocationTimeout: cfg.GeolocationTimeout,
		GeolocationMaxAge:  cfg.GeolocationMaxAge,
	}, cfg.WorkspaceIdleTTL)

	// Push activity keeps a session's workspace from being evicted.
	server.hub.OnActivity(func(sessionID string) {
		server.workspaces.Get(sessionID)
	})

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	app.Use(helmet.New(helmet.Config{
		// Uploaded images are embedded by the web client on another origin.
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so short-circuited responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Device-ID, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Public object storage
	app.Get("/storage/:bucket/*", s.ServeObject)

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "inkd Backend Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)
	api.Get("/config/map", s.GetMapConfig)

	optional := middleware.OptionalSession(s.auth)
	required := middleware.SessionRequired(s.auth, false)

	// Auth routes
	authRoutes := api.Group("/auth")
	authRoutes.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	authRoutes.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	authRoutes.Get("/remembered", optional, s.workspace(), s.GetRememberedEmail)
	authRoutes.Get("/session", optional, s.workspace(), s.GetSession)
	authRoutes.Post("/logout", required, s.workspace(), s.Logout)
	authRoutes.Post("/refresh", required, s.workspace(), s.Refresh)

	api.Get("/feature-flags", optional, s.GetFeatureFlags)

	// Feed: readable anonymously, posting needs an identity.
	feed := api.Group("/feed", optional, s.workspace())
	feed.Get("/", s.GetFeed)
	feed.Get("/highlights", s.GetHighlights)
	feed.Post("/refresh", s.RefreshFeed)
	feed.Post("/posts", middleware.RateLimit(s.redis, 10, 5*time.Minute, "create_post"), s.CreatePost)
	api.Get("/posts/:id", optional, s.workspace(), s.GetPost)

	// Profiles and portfolio
	profiles := api.Group("/profiles", optional, s.workspace())
	profiles.Get("/handle/:handle", s.GetProfileByHandle)
	profiles.Get("/:id/posts", s.GetProfilePosts)
	profiles.Get("/:id/portfolio", s.GetProfilePortfolio)
	profiles.Get("/:id", s.GetProfile)

	portfolio := api.Group("/portfolio", required, s.workspace())
	portfolio.Post("/", s.AddPortfolioItem)
	portfolio.Post("/upload", middleware.RateLimit(s.redis, 20, 10*time.Minute, "upload"), s.UploadDesign)

	// Local artist directory
	local := api.Group("/local", optional, s.workspace())
	local.Get("/", s.GetLocal)
	local.Get("/artists", s.FetchArtists)
	local.Get("/distances", s.GetDistances)
	local.Put("/search", s.SetSearchQuery)
	local.Put("/styles", s.SetStyleFilters)
	local.Post("/styles/:style", s.AddStyleFilter)
	local.Delete("/styles/:style", s.RemoveStyleFilter)
	local.Put("/selected", s.SetSelectedArtist)
	local.Put("/viewport", s.SetMapViewport)
	local.Put("/fullscreen", s.SetFullscreenMap)
	local.Post("/location", s.ReportLocation)

	// Assistant
	assistantRoutes := api.Group("/assistant", required, s.workspace())
	assistantRoutes.Get("/messages", s.GetAssistantMessages)
	assistantRoutes.Post("/messages", middleware.RateLimit(s.redis, 30, time.Minute, "assistant_message"), s.SendAssistantMessage)
	assistantRoutes.Get("/reports", s.GetAssistantReports)
	assistantRoutes.Post("/reports", middleware.RateLimit(s.redis, 5, 10*time.Minute, "market_research"), s.RequestMarketResearch)
	assistantRoutes.Get("/settings", s.GetAssistantSettings)
	assistantRoutes.Put("/settings", s.UpdateAssistantSettings)
	assistantRoutes.Get("/events", s.GetAssistantEvents)

	// Appointments
	appointments := api.Group("/appointments", required, s.workspace())
	appointments.Get("/", s.GetAppointments)
	appointments.Post("/", s.RequestAppointment)
	appointments.Put("/:id/status", s.SetAppointmentStatus)

	// Raw uploads
	uploads := api.Group("/uploads", required)
	uploads.Post("/", middleware.RateLimit(s.redis, 20, 10*time.Minute, "upload"), s.Upload)
	uploads.Delete("/", s.RemoveUploads)

	// Change-event push; browsers cannot set headers on upgrade, so the token may ride in the query.
	app.Use("/api/ws", s.websocketUpgrade())
	app.Get("/api/ws", middleware.SessionRequired(s.auth, true), s.workspace(), s.PushHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis only adds cross-replica fan-out and caching, so its absence degrades rather than fails.
	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	switch {
	case dbStatus == "unhealthy":
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	case redisStatus != "healthy":
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"workspaces": s.workspaces.Len(),
		"time":       time.Now(),
	})
}

// register stores w under its session id and forwards its changes to the
// session's push connections.
func (s *Server) register(w *store.Workspace) {
	sid := w.ID()
	w.SetListener(func(change store.Change) {
		payload, err := json.Marshal(change)
		if err != nil {
			observability.Log().Error("encode change event", slog.String("type", change.Type), slog.String("error", err.Error()))
			return
		}
		s.hub.Publish(context.Background(), sid, change.Type, payload)

		// Signed out elsewhere: drop the workspace once this event is out.
		if change.Type == "session.signed_out" {
			go s.endSession(sid)
		}
	})
	s.workspaces.Put(sid, w)
}

// endSession closes the push connections and the workspace of a session.
func (s *Server) endSession(sessionID string) {
	s.hub.Disconnect(sessionID)
	s.workspaces.Remove(sessionID)
}

// StartBackground runs the Redis subscribers and the workspace janitor until ctx ends.
func (s *Server) StartBackground(ctx context.Context) {
	if s.notifier.Enabled() {
		if err := s.hub.StartWiring(ctx); err != nil {
			observability.Log().Error("failed to start push wiring", slog.String("error", err.Error()))
		}
		if err := s.auth.StartWiring(ctx); err != nil {
			observability.Log().Error("failed to start auth wiring", slog.String("error", err.Error()))
		}
	}
	go s.workspaces.Janitor(ctx, janitorInterval)
}

// NewApp builds the Fiber app with middleware and routes.
func (s *Server) NewApp() *fiber.App {
	maxUpload := s.config.StorageMaxUploadMB
	if maxUpload <= 0 {
		maxUpload = 10
	}
	app := fiber.New(fiber.Config{
		AppName:   "inkd API",
		BodyLimit: (maxUpload + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()
	s.StartBackground(s.shutdownCtx)

	observability.Log().Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			observability.Log().Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		observability.Log().Error("error shutting down push hub", slog.String("error", err.Error()))
	}

	// Cancels pending assistant work and auth subscriptions.
	s.workspaces.Close()

	if err := database.Close(s.db); err != nil {
		observability.Log().Error("error closing sql DB", slog.String("error", err.Error()))
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			observability.Log().Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	observability.Log().Info("server shutdown complete")
	return nil
}
