// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	_ "karmafeed/docs" // swagger docs
	"karmafeed/internal/bootstrap"
	"karmafeed/internal/config"
	"karmafeed/internal/featureflags"
	"karmafeed/internal/jobs"
	"karmafeed/internal/middleware"
	"karmafeed/internal/models"
	"karmafeed/internal/notifications"
	"karmafeed/internal/repository"
	"karmafeed/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const bodyLimit = 1 * 1024 * 1024

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	featureFlags   *featureflags.Manager

	userRepo    repository.UserRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	likeRepo    repository.LikeRepository
	karmaRepo   repository.KarmaRepository

	notifier  *notifications.Notifier
	hub       *notifications.Hub
	scheduler *jobs.Scheduler

	postService        *service.PostService
	commentService     *service.CommentService
	likeService        *service.LikeService
	leaderboardService *service.LeaderboardService
}

// NewServer connects to the store and Redis and creates a server on top of them.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ApplySchema: true})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil: rate limits then fail open and live events are
// delivered in-process only.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("server requires a database")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("karmafeed-api"),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		likeRepo:       repository.NewLikeRepository(db),
		karmaRepo:      repository.NewKarmaRepository(db),
	}

	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo)
	s.postService = service.NewPostService(s.postRepo, s.commentService)
	s.likeService = service.NewLikeService(db, s.userRepo, s.postRepo, s.commentRepo, s.likeRepo, s.karmaRepo)
	s.leaderboardService = service.NewLeaderboardService(s.karmaRepo, s.userRepo,
		cfg.LeaderboardWindow, cfg.LeaderboardLimit)

	s.notifier = notifications.NewNotifier(redisClient)
	s.hub = notifications.NewHub()
	if cfg.LeaderboardBroadcastSpec != "" && s.featureFlags.Enabled(featureflags.LeaderboardBroadcast, 0) {
		s.scheduler = jobs.NewScheduler(cfg.LeaderboardBroadcastSpec, s.leaderboardService, s.notifier)
	}

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())

	// CORS must run before anything that can short-circuit so error
	// responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-User, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test" || s.config.Env == "stress"
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

	// The logger reads the user context after the chain returns, so it sees
	// the actor attached below.
	app.Use(middleware.StructuredLogger())
	app.Use(middleware.ResolveActor(s.config.JWTSecret, s.userRepo))
	app.Use(middleware.ContextMiddleware())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/", s.APIRoot)
	api.Get("/swagger/*", swagger.HandlerDefault)
	api.Get("/features", s.GetFeatureFlags)

	// Define specific /:id/:resource routes BEFORE generic /:id route
	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/", middleware.ActorRequired, middleware.RateLimit(
		s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	posts.Get("/:id/comments", s.GetComments)
	posts.Post("/:id/comments", middleware.ActorRequired, middleware.RateLimit(
		s.redis, 30, time.Minute, "create_comment"), s.CreateComment)
	posts.Post("/:id/like", middleware.ActorRequired, s.likeLimit(), s.LikePost)
	posts.Delete("/:id/like", middleware.ActorRequired, s.likeLimit(), s.UnlikePost)
	posts.Get("/:id", s.GetPost)

	comments := api.Group("/comments")
	comments.Post("/:id/like", middleware.ActorRequired, s.likeLimit(), s.LikeComment)
	comments.Delete("/:id/like", middleware.ActorRequired, s.likeLimit(), s.UnlikeComment)

	api.Get("/leaderboard", s.GetLeaderboard)
	api.Get("/users/:id/karma", s.GetUserKarma)

	api.Get("/ws", s.WebsocketUpgrade, s.WebsocketHandler())
}

func (s *Server) likeLimit() fiber.Handler {
	return middleware.RateLimit(s.redis, 120, time.Minute, "like")
}

// APIRoot lists the top-level resources.
//
// @Summary API root
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]string
// @Router / [get]
func (s *Server) APIRoot(c *fiber.Ctx) error {
	base := c.BaseURL() + "/api/"
	return c.JSON(fiber.Map{
		"posts":       base + "posts/",
		"leaderboard": base + "leaderboard/",
	})
}

// GetFeatureFlags reports which feature flags are on for the caller.
//
// @Summary Feature flags for the caller
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /features [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(s.featureFlags.Snapshot(actorOrZero(c)))
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so only
// the database decides readiness.
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
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus == "unhealthy" {
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "karmafeed API",
		BodyLimit: bodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// StartBackground wires the hub to the notifier and starts scheduled jobs.
// The work stops when Shutdown is called.
func (s *Server) StartBackground() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	if err := s.hub.StartWiring(ctx, s.notifier); err != nil {
		log.Printf("failed to start %s wiring: %v", s.hub.Name(), err)
	}

	if s.scheduler != nil {
		if err := s.scheduler.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Start starts the server
func (s *Server) Start() error {
	if err := s.StartBackground(); err != nil {
		return err
	}
	s.app = s.App()

	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}
	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		log.Printf("error shutting down %s: %v", s.hub.Name(), err)
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
