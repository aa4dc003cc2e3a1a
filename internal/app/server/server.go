package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/LinkGate/config"
	"github.com/sifan077/LinkGate/internal/app/service"
	"github.com/sifan077/LinkGate/internal/auth"
	inthttp "github.com/sifan077/LinkGate/internal/http/handler"
	"github.com/sifan077/LinkGate/internal/http/middleware"
	"go.uber.org/zap"
)

// Dependencies bundles the services and infrastructure required by the HTTP server.
type Dependencies struct {
	Logger   *zap.Logger
	Config   *config.Config
	Redis    *redis.Client
	Verifier *auth.Verifier

	Resolver   *service.Resolver
	Links      service.LinkService
	Counters   service.CounterService
	Unlockers  service.UnlockerService
	Sequences  service.SequenceService
	Cards      service.BioCardService
	Challenges *service.ChallengeService
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with the middleware chain and every route.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	deps.Config = cfg
	if deps.Verifier == nil {
		deps.Verifier = auth.NewVerifier(cfg.App.JWTSecret, cfg.App.JWTIssuer)
	}

	app := fiber.New(fiber.Config{
		AppName:               "LinkGate",
		DisableStartupMessage: true,
		BodyLimit:             cfg.HTTP.BodyLimit,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		ErrorHandler:          errorHandler(deps.Logger),
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// App exposes the Fiber application, mostly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	log := s.deps.Logger
	s.app.Use(middleware.Recovery(log))
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(log))
	s.app.Use(middleware.Metrics())
	s.app.Use(middleware.CORS())
	if s.deps.Config.RateLimit.Enabled && s.deps.Redis != nil {
		s.app.Use(middleware.RateLimit(s.deps.Redis, s.deps.Config.RateLimit, log))
	}
	s.app.Use(middleware.Session(s.deps.Verifier, log))
}

func (s *Server) registerRoutes() {
	log := s.deps.Logger
	baseURL := s.deps.Config.App.BaseURL

	inthttp.NewRedirectHandler(inthttp.RedirectDeps{
		Logger:   log,
		Resolver: s.deps.Resolver,
		Cards:    s.deps.Cards,
	}).Register(s.app)

	inthttp.NewChallengeHandler(inthttp.ChallengeDeps{
		Logger:     log,
		Challenges: s.deps.Challenges,
		Unlockers:  s.deps.Unlockers,
		Sequences:  s.deps.Sequences,
		Secret:     []byte(s.deps.Config.App.RedirectSecret),
		TokenTTL:   s.deps.Config.Challenge.TokenTTL,
	}).Register(s.app)

	api := s.app.Group("/api")
	inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:   log,
		Links:    s.deps.Links,
		Counters: s.deps.Counters,
		BaseURL:  baseURL,
	}).Register(api)
	inthttp.NewUnlockerHandler(inthttp.UnlockerDeps{
		Logger:    log,
		Unlockers: s.deps.Unlockers,
		Sequences: s.deps.Sequences,
		BaseURL:   baseURL,
	}).Register(api)
	inthttp.NewCardHandler(inthttp.CardDeps{
		Logger:  log,
		Cards:   s.deps.Cards,
		BaseURL: baseURL,
	}).Register(api)
}

// errorHandler renders errors that escaped the handlers (unknown routes, body limit)
// in the same {"error": ...} shape the API uses.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		} else {
			log.Error("unhandled error", zap.Error(err), zap.String("path", c.Path()))
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}
