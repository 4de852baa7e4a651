package bootstrap

import (
	"strings"
	"time"

	"taskdeck/adapter/in/http"
	"taskdeck/config"
	"taskdeck/infra/middleware"
	"taskdeck/pkg/logger"
	"taskdeck/pkg/metrics"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const watchHeartbeat = 15 * time.Second

// NewAPI builds the control API of one tab session.
func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	level := logger.ParseLevel(cfg.LogLevel)
	if cfg.LogLevel == "" && cfg.IsDevelopment() {
		level = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   level,
		Service: "taskdeck",
		Console: cfg.IsDevelopment(),
	})
	log := logger.Default()

	deps, cleanup, err := NewDependencies(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize dependencies")
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(log),
		DisableStartupMessage: cfg.IsProduction(),

		// go-json: 표준 encoding/json 대비 빠른 직렬화
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit: 1 * 1024 * 1024, // 1MB
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover(log))       // 1. Panic recovery
	app.Use(middleware.RequestID())        // 2. Request ID
	app.Use(middleware.SecurityHeaders())  // 3. Security headers
	app.Use(middleware.RequestLogger(log)) // 4. Request logging
	app.Use(middleware.NoCache())          // 5. Session state is never cacheable
	app.Use(middleware.RequireJSON())      // 6. JSON bodies only

	app.Use(compress.New(compress.Config{
		// event streams must reach the client unbuffered
		Next:  func(c *fiber.Ctx) bool { return strings.HasPrefix(c.Path(), "/watch/") },
		Level: compress.LevelBestSpeed,
	}))

	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	if allowOrigins == "" {
		allowOrigins = cfg.SyncOrigin
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  allowOrigins,
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,X-Request-ID",
		ExposeHeaders: "X-Request-ID",
		MaxAge:        86400,
	}))

	// Health and metrics
	sync := http.SyncStatus{Channel: deps.Broadcaster.Channel(), Redis: deps.Redis}
	if deps.Hub != nil {
		sync.Hub = deps.Hub
	}
	http.NewHealthHandler(deps.Broadcaster.TabID(), deps.API, sync).Register(app)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// Session routes
	http.NewTodoHandler(deps.Service).Register(app)
	http.NewAreaHandler(deps.Service).Register(app)
	http.NewSessionHandler(deps.Service, deps.Toasts).Register(app)
	http.NewWatchHandler(deps.Store, watchHeartbeat, logger.Component("watch")).Register(app)

	return app, cleanup, nil
}
