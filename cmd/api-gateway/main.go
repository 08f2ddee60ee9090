package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/medichat-api/api/swagger"
	"github.com/noah-isme/medichat-api/internal/handler"
	"github.com/noah-isme/medichat-api/internal/middleware"
	"github.com/noah-isme/medichat-api/internal/repository"
	"github.com/noah-isme/medichat-api/internal/router"
	"github.com/noah-isme/medichat-api/internal/service"
	"github.com/noah-isme/medichat-api/pkg/cache"
	"github.com/noah-isme/medichat-api/pkg/config"
	"github.com/noah-isme/medichat-api/pkg/crypto"
	"github.com/noah-isme/medichat-api/pkg/database"
	"github.com/noah-isme/medichat-api/pkg/export"
	"github.com/noah-isme/medichat-api/pkg/logger"
)

// @title MediChat API
// @version 1.0.0
// @description Healthcare assistant backend: authentication, sessions and medicine lookup
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	rdb, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	cipher, err := crypto.NewFieldCipher(cfg.Crypto.FieldKey, cfg.Crypto.IndexKey)
	if err != nil {
		logr.Fatal("failed to init field cipher", zap.Error(err))
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db, cipher)
	refreshRepo := repository.NewRefreshTokenRepository(db)
	medicineRepo := repository.NewMedicineRepository(db)
	sessionRepo := repository.NewSessionRepository(rdb, cfg.Session.TTL)
	cacheRoot := repository.NewCacheRepository(rdb, "")
	otpStore := cacheRoot.Namespace("otp")
	medicineCache := cacheRoot.Namespace("cache").Namespace("medicine")

	tokens := service.NewTokenService(cfg.JWT, logr)
	otp := service.NewOTPService(otpStore, cipher, service.LogSender{Logger: logr, Reveal: cfg.Env != config.EnvProduction}, validate, logr, cfg.OTP)
	auth := service.NewAuthService(userRepo, refreshRepo, tokens, otp, validate, logr, cfg.JWT).WithMetrics(metrics)
	users := service.NewUserService(userRepo, validate, logr)
	cacheSvc := service.NewCacheService(medicineCache, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)
	medicines := service.NewMedicineService(medicineRepo, cacheSvc, logr)
	sessions := service.NewSessionService(sessionRepo, service.SessionConfig{
		Workers:      cfg.Session.Workers,
		QueueSize:    cfg.Session.QueueSize,
		WriteTimeout: cfg.Session.WriteTimeout,
	}, logr, metrics)
	exports := service.NewExportService(sessions, logr, export.NewCSVExporter(), export.NewPDFExporter())

	sessions.Start(ctx)
	defer sessions.Stop()

	var refresher middleware.SilentRefresher = service.NoopRefresher{}
	if cfg.JWT.SilentRefresh {
		refresher = auth
	}
	var recorder middleware.SessionRecorder
	if cfg.Session.Enabled {
		recorder = sessions
	}

	engine := router.New(router.Dependencies{
		Logger:         logr,
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Tokens:         tokens,
		Refresher:      refresher,
		Sessions:       recorder,
		Metrics:        metrics,
		Auth:           handler.NewAuthHandler(auth, otp),
		Users:          handler.NewUserHandler(users),
		Medicines:      handler.NewMedicineHandler(medicines),
		Activity:       handler.NewSessionHandler(sessions, exports),
		Health: handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
			"postgres": db.PingContext,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "silent_refresh", cfg.JWT.SilentRefresh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
