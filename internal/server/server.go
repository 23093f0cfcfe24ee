// Package server contains the HTTP handlers and the route table of the blog.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"quill/internal/bootstrap"
	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/middleware"
	"quill/internal/repository"
	"quill/internal/service"
	"quill/internal/session"
	"quill/internal/web"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	loginPath = "/auth/login/"
	// uploads are capped by the image service; the extra slack covers the other form fields
	bodyLimitSlack = 1 << 20
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	views          *web.Engine
	pageCache      *cache.Store
	sessions       *session.Manager
	resolver       *session.Resolver
	rateLimiter    *middleware.RateLimiter
	userRepo       repository.UserRepository
	groupRepo      repository.GroupRepository
	postRepo       repository.PostRepository
	commentRepo    repository.CommentRepository
	followRepo     repository.FollowRepository
	images         *service.ImageService
	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
	userService    *service.UserService
	groupService   *service.GroupService
}

// NewServer connects to the database and Redis and wires every dependency.
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps wires the server around an existing database and an optional Redis client.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	// a nil *redis.Client must not reach the Cmdable-typed constructors
	store := cache.NewStore(nil)
	rateLimiter := middleware.NewRateLimiter(nil, false)
	if redisClient != nil {
		store = cache.NewStore(redisClient)
		rateLimiter = middleware.NewRateLimiter(redisClient, cfg.Env != "test")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("quill"),
		pageCache:      store,
		rateLimiter:    rateLimiter,
		userRepo:       repository.NewUserRepository(db),
		groupRepo:      repository.NewGroupRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		followRepo:     repository.NewFollowRepository(db),
		images:         service.NewImageService(cfg),
	}
	s.views = web.NewEngine(s.images.MediaRoot())
	if err := s.views.Load(); err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	s.sessions = session.NewManager(cfg.SessionSecret, cfg.SessionTTL(), store, cfg.IsProduction())
	s.resolver = session.NewResolver(s.sessions, s.userRepo)

	s.postService = service.NewPostService(s.postRepo, s.groupRepo, s.images, cfg.PageSize)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo, cfg.PageSize)
	s.followService = service.NewFollowService(s.followRepo, s.userRepo)
	s.userService = service.NewUserService(s.userRepo)
	s.groupService = service.NewGroupService(s.groupRepo)

	return s, nil
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "Quill",
		BodyLimit:    int(s.images.MaxUploadSize()) + bodyLimitSlack,
		ErrorHandler: s.ErrorHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures all middleware for the application
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(middleware.TracingMiddleware())

	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))

	app.Use(middleware.StructuredLogger())

	if s.config.RateLimitPerMinute > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        s.config.RateLimitPerMinute,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, please try again later.")
			},
		}))
	}

	app.Use(middleware.LoadSession(s.resolver))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Use("/static", filesystem.New(filesystem.Config{
		Root:   http.FS(web.Static()),
		MaxAge: 3600,
	}))
	app.Static("/media", s.images.MediaRoot(), fiber.Static{ByteRange: true})

	loginRequired := middleware.LoginRequired(loginPath)

	app.Get("/", s.Index)
	app.Get("/group/:slug", s.GroupPosts)
	app.Get("/follow", loginRequired, s.FollowIndex)
	app.Get("/create", loginRequired, s.CreatePostForm)
	app.Post("/create", loginRequired,
		s.rateLimiter.Limit("create_post", 10, time.Minute, middleware.FailOpen), s.CreatePost)

	profile := app.Group("/profile/:username")
	profile.Get("/follow", loginRequired, s.FollowProfile)
	profile.Get("/unfollow", loginRequired, s.UnfollowProfile)
	profile.Get("/", s.Profile)

	posts := app.Group("/posts/:id")
	posts.Post("/comment", loginRequired,
		s.rateLimiter.Limit("create_comment", 20, time.Minute, middleware.FailOpen), s.AddComment)
	posts.Get("/edit", loginRequired, s.EditPostForm)
	posts.Post("/edit", loginRequired, s.EditPost)
	posts.Get("/", s.PostDetail)

	auth := app.Group("/auth")
	auth.Get("/signup", s.SignupPage)
	auth.Post("/signup", s.rateLimiter.Limit("signup", 5, 10*time.Minute, middleware.FailOpen), s.Signup)
	auth.Get("/login", s.LoginPage)
	auth.Post("/login", s.rateLimiter.Limit("login", 10, 5*time.Minute, middleware.FailOpen), s.Login)
	auth.Get("/logout", s.Logout)
	auth.Post("/logout", s.Logout)
	auth.Get("/password_change/done", loginRequired, s.PasswordChangeDone)
	auth.Get("/password_change", loginRequired, s.PasswordChangePage)
	auth.Post("/password_change", loginRequired, s.PasswordChange)

	about := app.Group("/about")
	about.Get("/author", s.staticPage("about/author.html"))
	about.Get("/tech", s.staticPage("about/tech.html"))
}

// Listen starts serving on the configured port.
func (s *Server) Listen() error {
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.App().Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
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
