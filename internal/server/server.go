// Package server contains the HTTP handlers for the arcade JSON API.
package server

import (
	"context"
	"time"

	"arcade/internal/config"
	"arcade/internal/middleware"
	"arcade/internal/models"
	"arcade/internal/repository"
	"arcade/internal/service"
	"arcade/internal/store"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

const defaultAllowedOrigins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	store          store.Store
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	profiles       *service.ProfileService
	friends        *service.FriendService
	scores         *service.ScoreService
	leaderboard    *service.LeaderboardService
}

// NewServer wires the repositories and services over st. redisClient backs
// the per-route rate limits and may be nil.
func NewServer(cfg *config.Config, st store.Store, redisClient *redis.Client) *Server {
	profileRepo := repository.NewProfileRepository(st)
	scoreRepo := repository.NewScoreRepository(st)
	catalog := models.DefaultGameCatalog()

	return &Server{
		config:         cfg,
		store:          st,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("arcade-api"),
		profiles:       service.NewProfileService(profileRepo),
		friends:        service.NewFriendService(repository.NewFriendRepository(st), profileRepo),
		scores:         service.NewScoreService(scoreRepo, catalog),
		leaderboard: service.NewLeaderboardService(scoreRepo, profileRepo, catalog,
			cfg.LeaderboardDefaultLimit, cfg.LeaderboardMaxLimit),
	}
}

// Profiles exposes the profile service to the commands sharing this wiring.
func (s *Server) Profiles() *service.ProfileService { return s.profiles }

// NewApp returns a fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Arcade API",
		BodyLimit:    64 * 1024,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so error responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = defaultAllowedOrigins
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
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

	app.Use(middleware.StoreTimeout(s.config.StoreTimeout()))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/games", s.GetGames)
	api.Get("/games/:key/leaderboard", s.GetLeaderboard)

	authed := api.Group("", middleware.AuthRequired(s.config.JWTSecret))
	authed.Post("/session", s.CreateSession)

	protected := authed.Group("", s.ProfileRequired())

	profiles := protected.Group("/profiles")
	profiles.Get("/me", s.GetMyProfile)
	profiles.Put("/me/bio", s.UpdateMyBio)
	profiles.Post("/me/announcements-seen", s.MarkAnnouncementsSeen)
	profiles.Get("/:id", s.GetProfile)

	friends := protected.Group("/friends")
	friends.Get("/", s.GetFriends)
	// Specific /requests and /status routes before generic /:id
	friends.Get("/requests", s.GetPendingRequests)
	friends.Get("/requests/sent", s.GetSentRequests)
	friends.Delete("/requests/sent/:id", s.CancelFriendRequest)
	friends.Post("/requests/:id/accept", s.AcceptFriendRequest)
	friends.Post("/requests/:id/reject", s.RejectFriendRequest)
	friends.Post("/requests/:id", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "friend_request"), s.SendFriendRequest)
	friends.Get("/status/:id", s.GetFriendStatus)
	friends.Delete("/:id", s.RemoveFriend)

	games := protected.Group("/games")
	games.Post("/:key/scores", middleware.RateLimit(
		s.redis, 60, time.Minute, "score_submit"), s.SubmitScore)
	games.Get("/:key/best", s.GetPersonalBest)

	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/profiles", s.GetAllProfiles)
	admin.Put("/profiles/:id/role", s.UpdateProfileRole)
}

// ProfileRequired resolves the caller's external identity to a profile ID.
// Callers without a profile must open a session first.
func (s *Server) ProfileRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := s.profiles.GetProfileByExternalID(c.UserContext(), middleware.ExternalID(c))
		if models.IsNotFound(err) {
			return models.RespondWithAppError(c, &models.AppError{
				Code:    models.CodeNotFound,
				Message: "No profile for this identity; open a session first",
			})
		}
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		middleware.SetProfileID(c, p.ID)
		return c.Next()
	}
}

// AdminRequired rejects callers whose profile does not carry the admin role.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, err := s.profiles.IsAdmin(c.UserContext(), middleware.ExternalID(c))
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		if !admin {
			return models.RespondWithAppError(c, models.NewPermissionDeniedError("Admin access required"))
		}
		return c.Next()
	}
}

// LivenessCheck handles GET /health/live
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles GET /health/ready. The store must answer; the rate
// limit Redis is reported but only degrades.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	storeStatus := "healthy"
	if err := s.store.Ping(ctx); err != nil {
		storeStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if storeStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"store":     storeStatus,
			"ratelimit": redisStatus,
		},
		"driver": s.config.StoreDriver,
		"time":   time.Now(),
	})
}
