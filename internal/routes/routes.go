package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/facepass/facepass/internal/activity"
	"github.com/facepass/facepass/internal/auth"
	"github.com/facepass/facepass/internal/clock"
	"github.com/facepass/facepass/internal/config"
	"github.com/facepass/facepass/internal/credential"
	"github.com/facepass/facepass/internal/flow"
	"github.com/facepass/facepass/internal/kvstore"
	"github.com/facepass/facepass/internal/middleware"
	"github.com/facepass/facepass/internal/notification"
	"github.com/facepass/facepass/internal/scan"
)

const recentActivityCapacity = 100

// Deps aggregates shared dependencies required to wire routes. DB and
// Cache are optional; a nil Clock means the real clock.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	Clock  clock.Clock
}

// Services are the application services behind the routes.
type Services struct {
	Activity    activity.Recorder
	Credentials *credential.Service
	Tokens      *auth.Service
	Flows       *flow.Registry
}

// NewServices picks the storage backends and builds the services. The
// credential lives in Postgres when DB is set, else in Redis when Cache is
// set, else in the STORE_FILE document, else in memory. Activity follows
// Postgres, else a YAML file next to STORE_FILE, else memory.
func NewServices(d Deps) Services {
	c := d.Clock
	if c == nil {
		c = clock.Real()
	}

	var store kvstore.Store
	switch {
	case d.DB != nil:
		store = kvstore.NewPostgres(d.DB)
	case d.Cache != nil:
		store = kvstore.NewRedis(d.Cache, d.Cfg.RedisPrefix)
	case d.Cfg.StoreFile != "":
		store = kvstore.NewFile(d.Cfg.StoreFile)
	default:
		store = kvstore.NewMemory()
	}

	var recorder activity.Recorder
	switch {
	case d.DB != nil:
		recorder = activity.NewPostgresRecorder(d.DB)
	case d.Cache == nil && d.Cfg.StoreFile != "":
		recorder = activity.NewFile(activity.PathFor(d.Cfg.StoreFile), recentActivityCapacity)
	default:
		recorder = activity.NewMemory(recentActivityCapacity)
	}

	creds := credential.NewService(store, credential.Options{
		Clock:             c,
		RegisterDelay:     d.Cfg.RegisterDelay,
		AuthenticateDelay: d.Cfg.AuthenticateDelay,
		Matcher:           credential.NewMatcher(d.Cfg.MatchMode, d.Cfg.MatchThreshold),
		Notifier:          notification.NewLoggerNotifier(d.Logger),
		Activity:          recorder,
		Logger:            d.Logger,
	})

	flows := flow.NewRegistry(flow.Deps{
		Credentials: creds,
		Simulator:   scan.NewSimulator(c, d.Cfg.ScanDuration, d.Cfg.ScanFrameInterval),
		Clock:       c,
		SettleDelay: d.Cfg.ScanSettleDelay,
		Logger:      d.Logger,
	}, d.Cfg.FlowSessionTTL)

	return Services{
		Activity:    recorder,
		Credentials: creds,
		Tokens:      auth.NewService(d.Cfg.JWTSecret, d.Cfg.AppName, d.Cfg.AccessTokenTTL, c),
		Flows:       flows,
	}
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (Services, error) {
	if d.Logger == nil {
		return Services{}, fmt.Errorf("routes: logger is required")
	}
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	svcs := NewServices(d)

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.IsDev() {
		// Plain text access log: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d, svcs.Flows)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  d.Clock.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterFlowRoutes(api, flow.NewHandler(svcs.Flows, svcs.Tokens, d.Logger))

	limiter := middleware.AuthRateLimit(d.Cache, d.Cfg.RedisPrefix, d.Cfg.AuthRateLimit, d.Logger)
	var idempotency fiber.Handler
	if d.Cache != nil {
		idempotency = middleware.Idempotency(d.Cache, d.Cfg.RedisPrefix, d.Cfg.IdempotencyTTL, d.Logger)
	}
	RegisterCredentialRoutes(api, svcs.Credentials, limiter, idempotency)

	RegisterDashboardRoutes(api, svcs, d.Clock)

	return svcs, nil
}
