package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"student_records/internal/config"
	"student_records/internal/controller"
	"student_records/internal/model"
	"student_records/internal/repository"
	"student_records/internal/service"
	"student_records/pkg/configwatcher"
	"student_records/pkg/database"
	"student_records/pkg/logger"
	"student_records/pkg/monitoring"
	"student_records/pkg/security"
	"student_records/pkg/tracing"
)

// App owns the optional backends and the promotion service. The HTTP
// router is only built by Handler.
type App struct {
	Config    *config.Config
	Router    *gin.Engine
	DB        *gorm.DB
	Redis     *redis.Client
	Service   *service.PromotionService
	Holder    *service.PromotionHolder
	configDir string

	tracer          *sdktrace.TracerProvider
	stop            chan struct{}
	configCallbacks []func(*config.Config)
}

type controllers struct {
	promotion *controller.PromotionController
	ranking   *controller.RankingController
	health    *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func NewApp(cfg *config.Config, configDir string) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	monitoring.Init()

	app := &App{
		Config:    cfg,
		configDir: configDir,
		stop:      make(chan struct{}),
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.App.Name, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, err
		}
		app.tracer = tp
	}

	var store service.PromotionStore
	if cfg.Database.Enabled {
		db, err := database.InitDB(&cfg.Database)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.DB = db
		store = repository.NewPromotionRepository(db)
	}

	var cache service.RankingCache
	if cfg.Redis.Enabled {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Redis = rdb
		cache = repository.NewRankingCache(rdb, cfg.Ranking.CacheTTL)
	}

	storage, err := service.NewStorageService(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = storage.Prepare(ctx)
	cancel()
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Service = service.NewPromotionService(cfg, cache, storage, store)
	app.RegisterConfigCallback(func(next *config.Config) {
		app.Config = next
		app.Service.UpdateConfig(next)
	})
	return app, nil
}

func (a *App) initControllers() *controllers {
	return &controllers{
		promotion: controller.NewPromotionController(a.Holder, a.Service),
		ranking:   controller.NewRankingController(a.Holder, a.Service),
		health:    controller.NewHealthController(a.Holder, a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute, a.stop))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// Handler builds the router serving p.
func (a *App) Handler(p *model.Promotion) http.Handler {
	a.Holder = service.NewPromotionHolder(p)

	if a.Config.App.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	a.Router = router

	a.setupMiddlewares(router, a.Config)
	a.registerRoutes(router, a.initControllers())
	return router
}

func (a *App) startWatchers(ctx context.Context) {
	go func() {
		err := configwatcher.WatchConfig(ctx, a.configDir, func(next *config.Config) {
			logger.Log.Info("Configuration reloaded")
			for _, cb := range a.configCallbacks {
				cb(next)
			}
		})
		if err != nil {
			logger.Log.Warn("Config watcher stopped", zap.Error(err))
		}
	}()

	if !a.Config.Data.Watch || a.Config.Data.Input == "" {
		return
	}
	go func() {
		err := configwatcher.Watch(ctx, a.Config.Data.Input, configwatcher.DefaultDebounce, func(path string) {
			p, err := a.Service.LoadFromText(ctx, path)
			if err != nil {
				logger.Log.Error("Reload failed, keeping current promotion", zap.String("path", path), zap.Error(err))
				return
			}
			a.Holder.Swap(p)
			logger.Log.Info("Promotion reloaded", zap.String("path", path), zap.Int("students", p.Registry.Len()))
		})
		if err != nil {
			logger.Log.Warn("Input watcher stopped", zap.Error(err))
		}
	}()
}

// Run serves p until SIGINT or SIGTERM.
func (a *App) Run(p *model.Promotion) error {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Handler(p),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.startWatchers(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}
	logger.Log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Log.Info("Server exiting")
	return nil
}

// Close releases the backends opened by NewApp.
func (a *App) Close() {
	select {
	case <-a.stop:
	default:
		close(a.stop)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Log.Warn("Failed to close redis", zap.Error(err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	_ = logger.Log.Sync()
}
