package app

import (
	"context"
	"log"
	"mystery_hunt_backend/internal/config"
	"mystery_hunt_backend/internal/controller"
	"mystery_hunt_backend/internal/jobs"
	"mystery_hunt_backend/internal/repository"
	"mystery_hunt_backend/internal/service"
	"mystery_hunt_backend/internal/util"
	"mystery_hunt_backend/pkg/database"
	"mystery_hunt_backend/pkg/logger"
	"mystery_hunt_backend/pkg/monitoring"
	"mystery_hunt_backend/pkg/security"
	"mystery_hunt_backend/pkg/tracing"
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
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	jobs            *jobs.JobManager
	tracer          *sdktrace.TracerProvider
	limiter         *security.IPRateLimiter
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user     *repository.UserRepository
	mystery  *repository.MysteryRepository
	level    *repository.LevelRepository
	question *repository.QuestionRepository
	answer   *repository.AnswerRepository
	review   *repository.ReviewRepository
	progress *repository.ProgressRepository
}

type services struct {
	settings   *service.GameSettings
	secrets    *util.SecretStore
	auth       *service.AuthService
	storage    *service.StorageService
	image      *service.ImageService
	progress   *service.ProgressService
	unlock     *service.UnlockService
	review     *service.ReviewService
	submission *service.SubmissionService
	level      *service.LevelService
	hint       *service.HintService
	mystery    *service.MysteryService
	catalog    *service.CatalogService
}

type controllers struct {
	auth    *controller.AuthController
	game    *controller.GameController
	mystery *controller.MysteryController
	review  *controller.ReviewController
	health  *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 配置文件变更后回调
func (a *App) ApplyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		mystery:  repository.NewMysteryRepository(db),
		level:    repository.NewLevelRepository(db),
		question: repository.NewQuestionRepository(db),
		answer:   repository.NewAnswerRepository(db),
		review:   repository.NewReviewRepository(db),
		progress: repository.NewProgressRepository(db),
	}
}

// initDispatcher 有 Redis 且开启队列时走 asynq，否则 goroutine 直接发送
func (a *App) initDispatcher(cfg *config.Config, deliverer *service.MailDeliverer) service.MailDispatcher {
	if cfg.Queue.Enabled && a.Redis != nil {
		jm := jobs.NewJobManager(database.RedisAddr(&cfg.Redis), cfg.Redis.Password, cfg.Redis.DB, cfg.Queue.Concurrency)
		jm.RegisterHandlers(deliverer)
		if err := jm.Start(); err != nil {
			logger.Log.Error("Failed to start job manager, falling back to inline delivery", zap.Error(err))
		} else {
			a.jobs = jm
			return jm
		}
	}
	return &service.InlineDispatcher{Deliverer: deliverer, Timeout: 30 * time.Second}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.settings = service.NewGameSettings(cfg.Game)
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.settings.Update(newCfg.Game)
		logger.Log.Info("Game settings reloaded",
			zap.Int("defaultMaxAttempts", newCfg.Game.DefaultMaxAttempts),
			zap.Bool("scopeUnlockToMystery", newCfg.Game.ScopeUnlockToMystery))
	})

	s.secrets = util.NewSecretStore(cfg.JWT.Secret)
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		if newCfg.JWT.Secret != "" && s.secrets.Set(newCfg.JWT.Secret) {
			logger.Log.Info("JWT secret rotated, existing tokens are no longer valid")
		}
	})
	s.auth = service.NewAuthService(repos.user, s.secrets, cfg.JWT)
	s.storage = service.NewStorageService(cfg)

	image, err := service.NewImageService(s.storage, cfg.ImageCache)
	if err != nil {
		logger.Log.Fatal("Failed to initialize image cache", zap.Error(err))
	}
	s.image = image
	s.image.Refs = repository.NewImageRefRepository(db)
	s.storage.OnChanged(s.image.Invalidate)

	deliverer := &service.MailDeliverer{
		Notifier: service.NewNotifier(cfg.Mail),
		Images:   s.image,
	}
	dispatcher := a.initDispatcher(cfg, deliverer)

	s.progress = service.NewProgressService(repos.progress, repos.level)
	s.unlock = service.NewUnlockService(repos.level, repos.question, repos.answer, s.progress, s.settings)
	s.review = service.NewReviewService(repos.review, repos.answer, repos.question, repos.user, s.unlock, s.progress, s.settings, dispatcher)
	s.submission = service.NewSubmissionService(repos.question, repos.answer, repos.review, s.review, s.unlock, s.progress, s.storage, s.settings)
	s.level = service.NewLevelService(repos.level, repos.answer, repos.review, s.progress, s.settings)
	s.hint = service.NewHintService(repos.question, repos.user, dispatcher, rdb, s.settings)
	s.mystery = service.NewMysteryService(repos.mystery, repos.level, s.progress)
	s.catalog = service.NewCatalogService(db)

	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		auth:    controller.NewAuthController(s.auth),
		game:    controller.NewGameController(s.submission, s.hint, s.progress, s.level, s.image),
		mystery: controller.NewMysteryController(s.mystery),
		review:  controller.NewReviewController(s.review),
		health:  controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 600
	}
	a.limiter = security.NewIPRateLimiter(maxRequests, window)
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// importCatalog 启动时导入关卡数据
func (a *App) importCatalog(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = a.services.catalog.ImportReader(context.Background(), f)
	return err
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	// release 模式默认不迁移，需显式 -migrate
	migrate := cfg.ForceMigrate || cfg.Server.Mode != "release"
	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, migrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	// Redis 可选：不可用时关闭提示限流和任务队列
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, hint throttling and job queue disabled", zap.Error(err))
	} else {
		app.Redis = rdb
	}

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg, db, app.Redis)

	if cfg.CatalogFile != "" {
		if err := app.importCatalog(cfg.CatalogFile); err != nil {
			logger.Log.Fatal("Failed to import catalog", zap.String("file", cfg.CatalogFile), zap.Error(err))
		}
	}

	controllers := app.initControllers(app.services)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("mystery-hunt", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close()
	logger.Log.Info("Server exiting")
}

// Close 释放队列、缓存、追踪和连接
func (a *App) Close() {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.jobs != nil {
		a.jobs.Stop()
	}
	if a.services != nil && a.services.image != nil {
		a.services.image.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
