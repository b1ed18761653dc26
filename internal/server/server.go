package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/facepass/facepass/internal/config"
	"github.com/facepass/facepass/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app    *fiber.App
	cfg    config.Config
	svcs   routes.Services
	logger *slog.Logger

	stopJanitor context.CancelFunc
	janitorDone chan struct{}
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
// db and cache may be nil.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	// Progress streams and the simulated processing delays outlive a
	// short write deadline.
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          2 * time.Minute,
		DisableStartupMessage: !cfg.IsDev(),
		ErrorHandler:          errorHandler(logger),
	})

	svcs, err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		app:         app,
		cfg:         cfg,
		svcs:        svcs,
		logger:      logger,
		stopJanitor: cancel,
		janitorDone: make(chan struct{}),
	}
	go func() {
		defer close(s.janitorDone)
		svcs.Flows.Run(ctx)
	}()
	return s, nil
}

// App exposes the Fiber application, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	s.logger.Info("http server listening", slog.String("addr", s.cfg.Address()), slog.String("env", s.cfg.AppEnv))
	return s.app.Listen(s.cfg.Address())
}

// Shutdown closes every flow session and gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopJanitor()
	select {
	case <-s.janitorDone:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.app.ShutdownWithContext(ctx)
}

// errorHandler renders errors as JSON and logs unexpected ones.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := http.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= http.StatusInternalServerError {
			logger.Error("request error", slog.String("path", c.Path()), slog.Any("error", err))
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error(), "status": code})
	}
}
