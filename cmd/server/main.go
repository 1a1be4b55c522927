package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"botdesk/internal/auth"
	"botdesk/internal/cache"
	"botdesk/internal/client/hummingbot"
	"botdesk/internal/config"
	cronrunner "botdesk/internal/cron"
	"botdesk/internal/db"
	"botdesk/internal/handler"
	"botdesk/internal/logger"
	gormrepository "botdesk/internal/repository/gorm"
	"botdesk/internal/service"

	_ "botdesk/docs"
)

func main() {
	cfgPath := os.Getenv("BD_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("BD_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	var cacheStore *cache.Store
	if cfg.Redis.Enabled {
		cacheStore = cache.New(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer cacheStore.Client.Close()
	}

	orchestrator := hummingbot.NewClient(
		&http.Client{Timeout: cfg.Hummingbot.Timeout},
		cfg.Hummingbot.BaseURL,
		cfg.Hummingbot.Username,
		cfg.Hummingbot.Password,
	)
	store := gormrepository.New(dbConn.Gorm)

	strategySvc := &service.StrategyService{Repo: store, Orchestrator: orchestrator, Logger: logger}
	launcherSvc := &service.LauncherService{
		Repo:         store,
		Orchestrator: orchestrator,
		Logger:       logger,
		ScriptFile:   cfg.Hummingbot.ScriptFile,
		Image:        cfg.Hummingbot.Image,
	}
	statusSvc := &service.StatusService{
		Repo:         store,
		Orchestrator: orchestrator,
		Cache:        cacheStore,
		Logger:       logger,
		SnapshotTTL:  cfg.Redis.StatusTTL,
	}
	accountSvc := &service.AccountService{
		Repo:         store,
		Orchestrator: orchestrator,
		Cache:        cacheStore,
		Logger:       logger,
		ConnectorTTL: cfg.Redis.ConnectorTTL,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(requestIDMiddleware())
	engine.Use(auth.Middleware(auth.JWT{
		Secret:   []byte(cfg.Auth.JWTSecret),
		TokenTTL: cfg.Auth.TokenTTL,
	}))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	strategyHandler := &handler.StrategyHandler{
		Strategies: strategySvc,
		Launcher:   launcherSvc,
		Status:     statusSvc,
		Logger:     logger,
	}
	strategyHandler.Register(engine)
	accountHandler := &handler.AccountHandler{Accounts: accountSvc, Logger: logger}
	accountHandler.Register(engine)
	feedHandler := &handler.StatusFeedHandler{
		Status:   statusSvc,
		Logger:   logger,
		Interval: cfg.StatusFeed.Interval,
	}
	feedHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		_, err := cronRunner.Add(cfg.Cron.StatusWatchdog, func(ctx context.Context) {
			statusSvc.Watchdog(ctx)
		})
		if err != nil {
			logger.Warn("cron register status watchdog failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-Id", id)
		c.Next()
	}
}
