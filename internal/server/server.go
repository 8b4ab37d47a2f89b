// Package server contains the HTTP handlers of the bulletin board.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "bboard/docs" // swagger docs
	"bboard/internal/bootstrap"
	"bboard/internal/cache"
	"bboard/internal/captcha"
	"bboard/internal/config"
	"bboard/internal/events"
	"bboard/internal/middleware"
	"bboard/internal/models"
	"bboard/internal/notifications"
	"bboard/internal/repository"
	"bboard/internal/service"
	"bboard/internal/signing"
	"bboard/internal/storage"

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

// Deps are the collaborators that differ between production and tests.
type Deps struct {
	Revoker middleware.SessionRevoker
	Store   storage.FileStore
	Mailer  notifications.Mailer
	Captcha captcha.Verifier
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	store          storage.FileStore
	sessions       *middleware.SessionManager
	limiter        *middleware.RateLimiter
	render         *Renderer

	userRepo   repository.UserRepository
	rubricRepo repository.RubricRepository

	accountService  *service.AccountService
	profileService  *service.ProfileService
	passwordService *service.PasswordService
	rubricService   *service.RubricService
	adService       *service.AdService
	commentService  *service.CommentService
}

// NewServer connects to the database and Redis and builds the production
// collaborators from cfg.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	deps, err := BuildDeps(ctx, cfg, rdb)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb, deps)
}

// BuildDeps picks the session revocation store, file store, mail backend and
// CAPTCHA verifier configured in cfg.
func BuildDeps(ctx context.Context, cfg *config.Config, rdb *redis.Client) (Deps, error) {
	var deps Deps

	if rdb != nil {
		deps.Revoker = cache.NewRedisRevocationStore(rdb)
	} else {
		middleware.Logger.Warn("redis unavailable, logout revocation is process-local")
		deps.Revoker = cache.NewMemoryRevocationStore()
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		return deps, fmt.Errorf("file storage: %w", err)
	}
	deps.Store = store

	deps.Mailer = notifications.NewMailer(cfg)

	if cfg.RecaptchaSecret == "" {
		middleware.Logger.Warn("RECAPTCHA_SECRET_KEY is empty, accepting any non-empty captcha response")
		deps.Captcha = captcha.Static{Accept: true}
	} else {
		deps.Captcha = captcha.NewRecaptchaVerifier(cfg.RecaptchaSecret, cfg.RecaptchaVerifyURL, cfg.RecaptchaThreshold)
	}
	return deps, nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, deps Deps) (*Server, error) {
	if deps.Revoker == nil || deps.Store == nil || deps.Mailer == nil || deps.Captcha == nil {
		return nil, errors.New("server: revoker, store, mailer and captcha are required")
	}

	userRepo := repository.NewUserRepository(db)
	rubricRepo := repository.NewRubricRepository(db)
	adRepo := repository.NewAdRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	signer := signing.NewSigner(cfg.SecretKey, signing.DefaultSalt)
	dispatcher, err := notifications.NewDispatcher(deps.Mailer, signer, cfg.SiteHost)
	if err != nil {
		return nil, fmt.Errorf("mail templates: %w", err)
	}
	bus := events.NewBus(dispatcher)

	// A nil *redis.Client must not reach the limiter as a non-nil interface.
	var limiterStore redis.Cmdable
	if redisClient != nil {
		limiterStore = redisClient
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("bboard"),
		store:          deps.Store,
		sessions: middleware.NewSessionManager(cfg.SecretKey, cfg.SessionCookie,
			time.Duration(cfg.SessionTTLHours)*time.Hour, cfg.IsProduction(), deps.Revoker),
		limiter:    middleware.NewRateLimiter(limiterStore, cfg.RateLimitEnabled),
		userRepo:   userRepo,
		rubricRepo: rubricRepo,

		accountService:  service.NewAccountService(userRepo, bus, signer, deps.Captcha),
		profileService:  service.NewProfileService(userRepo, deps.Store),
		passwordService: service.NewPasswordService(userRepo, dispatcher, signing.NewPasswordResetTokens(cfg.SecretKey, 0)),
		rubricService:   service.NewRubricService(rubricRepo),
		adService:       service.NewAdService(adRepo, rubricRepo, commentRepo, deps.Store, cfg.AdsPageSize, cfg.ImageMaxUploadSizeMB),
		commentService:  service.NewCommentService(commentRepo, adRepo, userRepo, bus, deps.Captcha),
	}
	s.render = NewRenderer(s.rubricService)
	return s, nil
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	maxMB := s.config.ImageMaxUploadSizeMB
	if maxMB <= 0 {
		maxMB = 10
	}
	app := fiber.New(fiber.Config{
		AppName: "Bulletin Board",
		// Room for a main image plus a handful of extra images per ad form.
		BodyLimit:    maxMB * 8 * 1024 * 1024,
		ErrorHandler: s.errorHandler,
	})
	s.app = app
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return models.RespondWithError(c, fe.Code, err)
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled handler error", "error", err)
	return models.RespondWithError(c, statusForError(err), err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	app.Use(middleware.TracingMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:8000,http://127.0.0.1:8000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return !s.config.RateLimitEnabled || c.Method() == fiber.MethodOptions
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

	// Resolve the session user for every request; anonymous on failure.
	app.Use(s.sessions.Load(s.userRepo.GetByID))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Bulletin Board Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/media/*", s.ServeMedia)

	app.Get("/", s.Index)

	accounts := app.Group("/accounts")
	accounts.Get("/register/", s.RegisterForm)
	accounts.Post("/register/", s.limiter.Limit("register", 3, 10*time.Minute), s.Register)
	accounts.Get("/register/done/", s.RegisterDone)
	accounts.Get("/register/activate/:sign/", s.Activate)
	accounts.Get("/login/", s.LoginForm)
	accounts.Post("/login/", s.limiter.Limit("login", 10, 5*time.Minute), s.Login)
	accounts.Get("/logout/", middleware.AuthRequired, s.LogoutConfirm)
	accounts.Post("/logout/", middleware.AuthRequired, s.Logout)

	reset := accounts.Group("/password_reset")
	reset.Get("/", s.PasswordResetForm)
	reset.Post("/", s.limiter.Limit("password_reset", 3, 10*time.Minute), s.PasswordReset)
	reset.Get("/done/", s.PasswordResetDone)
	reset.Get("/complete/", s.PasswordResetComplete)
	reset.Get("/:uid/:token/", s.PasswordResetConfirmForm)
	reset.Post("/:uid/:token/", s.PasswordResetConfirm)

	// Specific profile routes before the generic /:id/ detail route.
	profile := accounts.Group("/profile", middleware.AuthRequired)
	profile.Get("/", s.Profile)
	profile.Get("/change/", s.ProfileChangeForm)
	profile.Post("/change/", s.ProfileChange)
	profile.Get("/password_change/", s.PasswordChangeForm)
	profile.Post("/password_change/", s.PasswordChange)
	profile.Get("/password_change/done/", s.PasswordChangeDone)
	profile.Get("/delete/", s.DeleteUserConfirm)
	profile.Post("/delete/", s.DeleteUser)
	profile.Get("/add/", s.AdAddForm)
	profile.Post("/add/", s.limiter.Limit("ad_add", 10, time.Minute), s.AdAdd)
	profile.Get("/change/:id/", s.AdChangeForm)
	profile.Post("/change/:id/", s.AdChange)
	profile.Get("/delete/:id/", s.AdDeleteConfirm)
	profile.Post("/delete/:id/", s.AdDelete)
	profile.Get("/:id/", s.ProfileAdDetail)

	// Rubric and ad pages catch everything else, so they go last.
	app.Get("/:rubric_id/", s.ByRubric)
	app.Get("/:rubric_id/:ad_id/", s.Detail)
	app.Post("/:rubric_id/:ad_id/", s.limiter.Limit("comment", 5, time.Minute), s.AddComment)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so a
// missing client does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	// Close database connection
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	// Close Redis connection
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
