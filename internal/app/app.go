package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"quest_resume_backend/internal/config"
	"quest_resume_backend/internal/controller"
	"quest_resume_backend/internal/repository"
	"quest_resume_backend/internal/service"
	"quest_resume_backend/internal/store"
	"quest_resume_backend/internal/util"
	"quest_resume_backend/pkg/configwatcher"
	"quest_resume_backend/pkg/database"
	"quest_resume_backend/pkg/logger"
	"quest_resume_backend/pkg/monitoring"
	"quest_resume_backend/pkg/security"
	"quest_resume_backend/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracerProvider  *sdktrace.TracerProvider
	configCallbacks []configwatcher.ConfigReloader

	// 后台协程（限流清理等）的生命周期，Close 时取消
	ctx    context.Context
	cancel context.CancelFunc
}

type services struct {
	training *service.TrainingService
	video    *service.VideoService
	auth     *service.AuthService
	storage  *service.StorageService
}

type controllers struct {
	training *controller.TrainingController
	level    *controller.LevelController
	video    *controller.VideoController
	auth     *controller.AuthController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback configwatcher.ConfigReloader) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	var (
		trainingRepo repository.TrainingRepository = repository.MemoryTrainingRepository{}
		levelRepo    repository.LevelRepository    = repository.MemoryLevelRepository{}
	)
	if db != nil {
		trainingRepo = repository.NewTrainingRepository(db)
		levelRepo = repository.NewLevelRepository(db)
	}

	s := &services{}
	s.storage = service.NewStorageService(cfg)
	s.training = service.NewTrainingService(
		store.NewProgressStore(),
		trainingRepo,
		levelRepo,
		service.NewStatsCache(rdb, cfg.Redis.StatsTTL),
	)
	s.training.Storage = s.storage
	s.video = service.NewVideoService(s.storage, &cfg.Video)
	s.auth = service.NewAuthService(cfg)
	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		training: controller.NewTrainingController(s.training),
		level:    controller.NewLevelController(s.training),
		video:    controller.NewVideoController(s.video),
		auth:     controller.NewAuthController(s.auth),
		health:   controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New 组装服务与路由，并从持久化层加载训练。db 为 nil 时使用内存驱动。
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*App, error) {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	app.services = app.initServices(cfg, db, rdb)
	if err := app.services.training.Bootstrap(ctx, cfg.Seed); err != nil {
		return nil, err
	}
	app.ctx, app.cancel = context.WithCancel(context.Background())
	controllers := app.initControllers(app.services, db)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app, nil
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	gin.SetMode(ginMode(cfg.Server.Mode))
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, cfg.ForceMigrate)
	if errors.Is(err, database.ErrMemoryDriver) {
		logger.Log.Warn("Using memory driver, data will not survive restarts")
		db = nil
	} else if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// 统计缓存可选，Redis 不可用时降级为直接计算
		logger.Log.Warn("Redis unavailable, stats cache disabled", zap.Error(err))
		rdb = nil
	}

	// 监控初始化
	monitoring.Init()

	var tp *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		tp, err = tracing.InitTracer("quest-resume", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app, err := New(context.Background(), cfg, db, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to load trainings", zap.Error(err))
	}
	app.tracerProvider = tp

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		logger.SetMode(newCfg.Server.Mode)
	})

	return app
}

func ginMode(mode string) string {
	switch mode {
	case gin.ReleaseMode, gin.TestMode:
		return mode
	}
	return gin.DebugMode
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := configwatcher.WatchConfig(ctx, a.Config.Dir, a.configCallbacks...); err != nil {
		logger.Log.Warn("Config hot reload disabled", zap.Error(err))
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close(shutdownCtx)
	logger.Log.Info("Server exiting")
}

// Close 停止后台协程并释放追踪、Redis 和数据库连接
func (a *App) Close(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
