// Package app 组装配置、存储、账本、调度器与 HTTP 服务.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/studiovault/pkg/api"
	appcache "github.com/yeisme/studiovault/pkg/cache"
	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/internal/alerts"
	"github.com/yeisme/studiovault/pkg/internal/jobs"
	"github.com/yeisme/studiovault/pkg/internal/ledger"
	"github.com/yeisme/studiovault/pkg/internal/router"
	"github.com/yeisme/studiovault/pkg/internal/storage"
	"github.com/yeisme/studiovault/pkg/log"
	"github.com/yeisme/studiovault/pkg/metrics"
	"github.com/yeisme/studiovault/pkg/middleware"
	"github.com/yeisme/studiovault/pkg/queue"
	"github.com/yeisme/studiovault/pkg/scheduler"
	"github.com/yeisme/studiovault/pkg/tracing"
)

const (
	shutdownTimeout = 15 * time.Second

	// StatusCachePrefix 状态接口响应缓存在 KV 中的键前缀.
	StatusCachePrefix = "status:"
)

// Core 不含 HTTP 的运行时依赖，CLI 子命令直接复用.
type Core struct {
	Config   *configs.AppConfig
	Storage  *storage.Manager
	Ledger   *ledger.Ledger
	Notifier *queue.Notifier
}

// Bootstrap 加载配置并初始化存储与账本.
func Bootstrap(ctx context.Context, configPath string) (*Core, error) {
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	cfg := configs.GetConfig()

	mgr, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	led, notifier, err := BuildLedger(cfg, mgr)
	if err != nil {
		_ = mgr.Close()
		return nil, err
	}

	return &Core{Config: cfg, Storage: mgr, Ledger: led, Notifier: notifier}, nil
}

// Close 先排空待发布事件，再释放存储资源.
func (c *Core) Close() error {
	if c == nil {
		return nil
	}

	_ = c.Notifier.Close()

	if c.Storage == nil {
		return nil
	}

	return c.Storage.Close()
}

// StatusCache 状态接口使用的响应缓存.
func (c *Core) StatusCache() *appcache.Cache {
	return appcache.NewCache(c.Storage.GetKVClient(), appcache.WithPrefix(StatusCachePrefix))
}

// App HTTP 服务及其后台任务.
type App struct {
	*Core

	Engine    *gin.Engine
	Scheduler *scheduler.Scheduler

	consumer *alerts.Consumer
	cancel   context.CancelFunc
	logger   *zerolog.Logger
}

// NewApp 初始化全部组件并注册路由，返回的 App 需调用 Run 启动.
func NewApp(configPath string) (_ *App, err error) {
	ctx, cancel := context.WithCancel(context.Background())

	core, err := Bootstrap(ctx, configPath)
	if err != nil {
		cancel()
		return nil, err
	}

	a := &App{Core: core, cancel: cancel, logger: log.Logger()}

	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	cfg := core.Config

	if err = tracing.InitTracer(cfg.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err = metrics.InitMetrics(cfg.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	metrics.SetLedgerLimits(core.Ledger.Limits())

	if a.Scheduler, err = scheduler.NewScheduler(); err != nil {
		return nil, err
	}

	if err = jobs.RegisterCronJobs(ctx, a.Scheduler, core.Ledger, cfg.Ledger); err != nil {
		return nil, err
	}

	if cfg.Events.Enabled {
		a.consumer = alerts.RegisterAlertHandlers(alerts.NewConsumer(core.Storage.GetMQClient(), a.logger), a.logger)
		if err = a.consumer.Start(ctx); err != nil {
			return nil, err
		}
	}

	a.Engine = a.newEngine()

	return a, nil
}

func (a *App) newEngine() *gin.Engine {
	cfg := a.Config

	gin.DefaultWriter = log.NewGinWriter(a.logger, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(a.logger, zerolog.ErrorLevel)

	engine := gin.New()
	engine.MaxMultipartMemory = 8 << 20

	defaultRole := middleware.RoleViewer
	if !cfg.Auth.Enabled {
		defaultRole = middleware.RoleAdmin
	}

	engine.Use(
		gin.Recovery(),
		middleware.CORSMiddleware(cfg.Server),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.GinLoggerMiddleware(),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/media/upload"})),
		middleware.MaxBodyMiddleware(cfg.Server.MaxBodyMB<<20),
		middleware.RateLimitMiddleware(cfg.RateLimit),
		middleware.AuthMiddleware(cfg.Auth),
		middleware.RoleMiddleware(defaultRole),
		middleware.StorageMiddleware(a.Storage),
		middleware.LedgerMiddleware(a.Ledger, a.Notifier),
		middleware.SchedulerMiddleware(a.Scheduler),
	)

	opts := router.Options{
		StatusCacheTTL: cfg.Ledger.StatusCacheTTL,
		Breaker:        cfg.CircuitBreaker,
		RateLimit:      cfg.RateLimit,
	}
	if opts.StatusCacheTTL > 0 {
		opts.StatusCache = a.StatusCache()
	}

	api.RegisterGroup(engine, opts)

	if router.RegisterSwaggerRoute(engine, cfg.Server) {
		a.logger.Info().Str("path", "/swagger/index.html").Msg("swagger docs enabled")
	}

	_ = metrics.StartMetricsServer(cfg.Metrics, engine)

	return engine
}

// Run 启动调度器与 HTTP 服务，ctx 取消后优雅关闭.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Server.Addr(),
		Handler:           a.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	a.Scheduler.Start()

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Str("addr", srv.Addr).Msg("http server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(sctx)
}

// Close 停止后台任务并释放资源，可重复调用.
func (a *App) Close() error {
	var errs []error

	if a.cancel != nil {
		a.cancel()
	}

	if a.consumer != nil {
		a.consumer.Wait()
		a.consumer = nil
	}

	if a.Scheduler != nil {
		errs = append(errs, a.Scheduler.Shutdown())
		a.Scheduler = nil
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs = append(errs, tracing.ShutdownTracer(sctx), a.Core.Close())
	a.Core.Storage = nil

	return errors.Join(errs...)
}
