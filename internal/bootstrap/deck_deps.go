package bootstrap

import (
	"context"
	"fmt"
	"time"

	"taskdeck/adapter/out/api"
	"taskdeck/adapter/out/broadcast"
	"taskdeck/adapter/out/notify"
	"taskdeck/config"
	"taskdeck/core/port/out"
	"taskdeck/core/service/cache"
	"taskdeck/core/service/completion"
	"taskdeck/core/service/mutation"
	"taskdeck/core/service/tabsync"
	"taskdeck/core/service/todo"
	"taskdeck/infra/database"
	"taskdeck/pkg/auth"
	"taskdeck/pkg/httputil"
	"taskdeck/pkg/logger"
	"taskdeck/pkg/resilience"
	"taskdeck/pkg/schedule"
	"taskdeck/pkg/snowflake"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	redisConnectTimeout = 5 * time.Second
	commitDrainTimeout  = 5 * time.Second
)

// Dependencies is one tab session and the infrastructure behind it.
type Dependencies struct {
	Config *config.Config
	Log    zerolog.Logger
	Redis  *redis.Client // nil when sync runs on the in-process hub

	// Adapters
	API         *api.Client
	Medium      out.BroadcastMedium
	Hub         *broadcast.Hub // nil unless sync runs in-process
	Toasts      *notify.Board
	Broadcaster *tabsync.Broadcaster

	// Services
	Store       *cache.Store
	Engine      *mutation.Engine
	Completions *completion.Controller
	Service     *todo.Service
}

// NewDependencies wires a tab session. The returned cleanup drops pending
// completions, waits a bounded time for commits already sent and releases
// the sync subscription.
func NewDependencies(cfg *config.Config, log zerolog.Logger) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg, Log: log}
	var cleanups []func()

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// =============================================================================
	// Broadcast medium
	// =============================================================================

	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
		client, err := database.NewRedis(ctx, database.SyncRedisConfig(cfg.RedisURL, cfg.RedisPoolSize))
		cancel()
		if err != nil {
			// 동기화 없이도 탭은 동작함
			log.Warn().Err(err).Msg("redis unavailable, cross-tab sync disabled")
		} else {
			deps.Redis = client
			deps.Medium = broadcast.NewRedisMedium(client, log)
			cleanups = append(cleanups, func() { client.Close() })
			log.Info().Msg("cross-tab sync on redis pub/sub")
		}
	} else {
		deps.Hub = broadcast.NewHub(log)
		deps.Medium = deps.Hub
		log.Info().Msg("cross-tab sync on in-process hub")
	}

	// =============================================================================
	// Todo API client
	// =============================================================================

	httpCfg := httputil.DefaultClientConfig()
	httpCfg.ResponseTimeout = cfg.APITimeout
	breaker := resilience.NewBreaker(resilience.DefaultBreakerConfig("todo-api"), logger.Component("breaker"))
	deps.API = api.NewClient(
		api.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout},
		auth.NewTokenSource(cfg.APIToken),
		httputil.NewClient(httpCfg, nil),
		breaker,
		logger.Component("api_client"),
	)

	// =============================================================================
	// Session services
	// =============================================================================

	sched := schedule.NewSystem()
	ids, err := snowflake.NewGenerator(1)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("id generator: %w", err)
	}

	cacheCfg := cache.DefaultConfig()
	cacheCfg.StaleTime = cfg.CacheStale
	deps.Store = cache.NewStore(cacheCfg, log)
	cleanups = append(cleanups, deps.Store.Close)

	deps.Toasts = notify.NewBoard(sched, notify.DefaultMaxVisible, logger.Component("toasts"))

	deps.Broadcaster = tabsync.New(
		tabsync.NewTabID(),
		deps.Medium,
		deps.Store,
		tabsync.Config{Origin: cfg.SyncOrigin, Channel: cfg.SyncChannel},
		log,
	)

	mutationCfg := mutation.DefaultConfig()
	mutationCfg.RemovalDelay = cfg.RemovalDelay
	deps.Engine = mutation.NewEngine(deps.Store, deps.API, deps.Toasts, deps.Broadcaster, ids, sched, mutationCfg, log)

	deps.Completions = completion.NewController(
		deps.Engine,
		deps.Store,
		deps.Toasts,
		sched,
		completion.Config{UndoTimeout: cfg.UndoTimeout, ToastLead: cfg.ToastLead},
		log,
	)

	deps.Service = todo.NewService(deps.API, deps.Engine, deps.Completions, log)
	deps.API.OnAuthFailure(deps.Service.HandleAuthFailure)

	if err := deps.Broadcaster.Start(context.Background()); err != nil {
		// 구독 실패 시 이 탭은 다른 탭의 변경을 받지 못함
		log.Warn().Err(err).Msg("sync listener not started")
	}
	cleanups = append(cleanups, func() {
		if n := deps.Completions.Cleanup(); n > 0 {
			log.Info().Int("dropped", n).Msg("pending completions dropped on shutdown")
		}
		// commits already sent still get their answer, but not forever
		if !deps.Completions.WaitTimeout(commitDrainTimeout) {
			log.Warn().Dur("timeout", commitDrainTimeout).Msg("completion commits still running at shutdown")
		}
		deps.Broadcaster.Close()
	})

	log.Info().
		Str("tab_id", deps.Broadcaster.TabID()).
		Str("channel", deps.Broadcaster.Channel()).
		Msg("tab session ready")

	return deps, cleanup, nil
}
