// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "skillswap/docs" // swagger docs
	"skillswap/internal/bootstrap"
	"skillswap/internal/config"
	"skillswap/internal/featureflags"
	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/notifications"
	"skillswap/internal/observability"
	"skillswap/internal/repository"
	"skillswap/internal/service"
	"skillswap/internal/storage"

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

const (
	wsTicketPrefix = "ws_ticket:"
	wsTicketTTL    = 30 * time.Second
	blacklistKey   = "blacklist:"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	tokens         middleware.TokenConfig

	userRepo repository.UserRepository

	hub        *notifications.Hub
	notifier   *notifications.Notifier
	dispatcher *notifications.Dispatcher
	amqpSink   *notifications.AMQPSink
	wsLog      *observability.WSLogger

	featureFlags *featureflags.Manager
	photoStore   storage.PhotoStore

	swapService     *service.SwapService
	feedbackService *service.FeedbackService
	skillService    *service.SkillService
	userService     *service.UserService
	photoService    *service.PhotoService
}

// NewServer connects the database, Redis and the photo store, then builds the server.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SeedCatalog: true})
	if err != nil {
		return nil, err
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("photo store: %w", err)
	}

	return NewServerWithDeps(cfg, db, redisClient, store)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
// A nil redisClient delivers notifications to this replica's sockets only.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store storage.PhotoStore) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("skillswap-api"),
		shutdownCtx:    ctx,
		shutdownFn:     cancel,
		tokens: middleware.TokenConfig{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		},
		userRepo:     repository.NewUserRepository(db),
		hub:          notifications.NewHub(redisClient),
		wsLog:        observability.NewWSLogger("notifications", middleware.Logger),
		featureFlags: featureflags.NewManager(cfg.FeatureFlags),
		photoStore:   store,
	}

	var sinks []notifications.Sink
	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
		sinks = append(sinks, server.notifier)
	} else {
		sinks = append(sinks, server.hub)
	}
	if cfg.AMQPURL != "" {
		sink, err := notifications.DialAMQPSink(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			middleware.Logger.Warn("AMQP sink disabled", slog.String("error", err.Error()))
		} else {
			server.amqpSink = sink
			sinks = append(sinks, sink)
		}
	}
	server.dispatcher = notifications.NewDispatcher(cfg.NotifyQueueSize, sinks...)
	server.dispatcher.Start(ctx)

	swapRepo := repository.NewSwapRepository(db)
	skillRepo := repository.NewSkillRepository(db)
	userSkillRepo := repository.NewUserSkillRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)

	server.swapService = service.NewSwapService(swapRepo, server.userRepo, userSkillRepo, server.dispatcher)
	server.feedbackService = service.NewFeedbackService(feedbackRepo, swapRepo, server.userRepo)
	server.skillService = service.NewSkillService(skillRepo, server.featureFlags)
	server.userService = service.NewUserService(
		server.userRepo,
		skillRepo,
		userSkillRepo,
		repository.NewAvailabilityRepository(db),
		server.feedbackService,
		server.hub,
	)
	if store != nil {
		server.photoService = service.NewPhotoService(server.userRepo, store, server.featureFlags, cfg.PhotoMaxUploadMB)
	}

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so short-circuited responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Preflight requests are answered by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.Response{
				Success: false,
				Code:    "RATE_LIMITED",
				Message: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "SkillSwap Backend Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	if local, ok := s.photoStore.(*storage.LocalStore); ok {
		app.Static(local.BaseURL, local.Dir, fiber.Static{MaxAge: 3600})
	}

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Get("/me", s.AuthRequired(), s.Me)
	auth.Post("/change-password", s.AuthRequired(), s.ChangePassword)

	// WebSocket ticket issuance and the socket itself (ticket or bearer)
	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	api.Get("/ws", s.AuthRequired(), s.WebsocketHandler())

	protected := api.Group("", s.AuthRequired())
	protected.Get("/feature-flags", s.GetFeatureFlags)

	// Specific routes are registered before /:id
	users := protected.Group("/users")
	users.Get("/profile", s.GetMyProfile)
	users.Put("/profile", s.UpdateMyProfile)
	users.Post("/profile/photo", middleware.RateLimit(
		s.redis, 10, 10*time.Minute, "photo_upload"), s.UploadProfilePhoto)
	users.Delete("/profile/photo", s.DeleteProfilePhoto)
	users.Get("/search", middleware.RateLimit(
		s.redis, 30, time.Minute, "user_search"), s.SearchUsers)
	users.Post("/skills", s.AddUserSkill)
	users.Delete("/skills/:id", s.RemoveUserSkill)
	users.Post("/availability", s.AddAvailability)
	users.Delete("/availability/:id", s.RemoveAvailability)
	users.Get("/:id", s.GetUserProfile)

	skills := protected.Group("/skills")
	skills.Get("/", s.GetSkills)
	skills.Post("/", middleware.RateLimit(
		s.redis, 5, 10*time.Minute, "create_skill"), s.CreateSkill)
	skills.Get("/search", s.SearchSkills)
	skills.Get("/categories", s.GetSkillCategories)
	skills.Get("/popular", s.GetPopularSkills)
	skills.Get("/:id", s.GetSkill)

	swaps := protected.Group("/swaps")
	swaps.Post("/", middleware.RateLimit(
		s.redis, 20, time.Hour, "create_swap"), s.CreateSwapRequest)
	swaps.Get("/", s.GetSwapRequests)
	swaps.Put("/:id/status", s.UpdateSwapStatus)
	swaps.Delete("/:id/delete", s.DeleteSwapRequest)
	swaps.Delete("/:id", s.CancelSwapRequest)
	swaps.Get("/:id", s.GetSwapRequest)

	feedback := protected.Group("/feedback")
	feedback.Post("/", s.CreateFeedback)
	feedback.Get("/my", s.GetMyFeedback)
	feedback.Get("/user/:userId", s.GetUserFeedback)
	feedback.Get("/swap/:swapRequestId", s.GetSwapFeedback)
	feedback.Put("/:id", s.UpdateFeedback)
	feedback.Delete("/:id", s.DeleteFeedback)
}

// LivenessCheck reports whether the process is up.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the database and Redis are reachable.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional: without it notifications stay on this replica.
	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "SkillSwap API",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals("userID").(uint); ok {
			return c.Next()
		}
		isWSPath := strings.HasPrefix(c.Path(), "/api/ws") && c.Path() != "/api/ws/ticket"

		// 1. WebSocket ticket (short-lived, single-use)
		if ticket := c.Query("ticket"); ticket != "" {
			if userID, ok := s.redeemWSTicket(c.Context(), ticket); ok {
				return s.authenticated(c, userID)
			}
			if isWSPath {
				return s.respondError(c, models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
		}

		// 2. Bearer token
		claims, err := middleware.VerifyToken(s.tokens, middleware.BearerToken(c))
		if err != nil {
			msg := "Invalid or expired token"
			if errors.Is(err, middleware.ErrMissingToken) {
				msg = "Authorization required"
			}
			return s.respondError(c, models.NewUnauthorizedError(msg))
		}

		// Check JTI for revocation
		if claims.JTI != "" && s.redis != nil {
			revoked, err := s.redis.Exists(c.Context(), blacklistKey+claims.JTI).Result()
			if err == nil && revoked > 0 {
				return s.respondError(c, models.NewUnauthorizedError("Token has been revoked"))
			}
		}

		c.Locals("jti", claims.JTI)
		c.Locals("tokenExpiresAt", claims.ExpiresAt)
		return s.authenticated(c, claims.UserID)
	}
}

func (s *Server) authenticated(c *fiber.Ctx, userID uint) error {
	c.Locals("userID", userID)
	// Sync to UserContext for logging and downstream services
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, userID)
	c.SetUserContext(ctx)
	return c.Next()
}

// redeemWSTicket atomically consumes a ticket issued by IssueWSTicket.
func (s *Server) redeemWSTicket(ctx context.Context, ticket string) (uint, bool) {
	if s.redis == nil {
		return 0, false
	}
	raw, err := s.redis.GetDel(ctx, wsTicketPrefix+ticket).Result()
	if err != nil {
		return 0, false
	}
	userID, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || userID == 0 {
		return 0, false
	}
	return uint(userID), true
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "SkillSwap API",
		BodyLimit: s.bodyLimit(),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return s.respondErrorStatus(c, fe.Code, fiberAppError(fe))
			}
			return s.respondError(c, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// bodyLimit leaves room for multipart framing around the largest photo.
func (s *Server) bodyLimit() int {
	mb := s.config.PhotoMaxUploadMB
	if mb <= 0 {
		mb = service.DefaultPhotoMaxUploadMB
	}
	return (mb + 1) * 1024 * 1024
}

// Start starts the server
func (s *Server) Start() error {
	app := s.NewApp()
	s.app = app

	// Wire the hub to the Redis subscriber if available
	if s.notifier != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start notification wiring",
					slog.String("hub", s.hub.Name()),
					slog.String("error", err.Error()),
				)
			}
		}()
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// fiberAppError converts framework errors (unknown route, oversized body) to AppErrors.
func fiberAppError(fe *fiber.Error) *models.AppError {
	switch {
	case fe.Code == fiber.StatusNotFound:
		return models.NewNotFoundMessage("Route not found")
	case fe.Code == fiber.StatusUnauthorized:
		return models.NewUnauthorizedError(fe.Message)
	case fe.Code < fiber.StatusInternalServerError:
		return models.NewValidationError(fe.Message)
	default:
		return models.NewInternalError(fe)
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// In-flight handlers may still publish, so the HTTP drain comes first.
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop wiring goroutines and let the dispatcher drain its queue.
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.dispatcher != nil {
		select {
		case <-s.dispatcher.Done():
		case <-ctx.Done():
			middleware.Logger.Warn("notification queue not drained before shutdown deadline")
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
		}
	}

	if s.amqpSink != nil {
		if err := s.amqpSink.Close(); err != nil {
			middleware.Logger.Error("error closing AMQP sink", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
