package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/club-activity-api/api/swagger"
	"github.com/noah-isme/club-activity-api/internal/handler"
	"github.com/noah-isme/club-activity-api/internal/middleware"
	"github.com/noah-isme/club-activity-api/internal/repository"
	"github.com/noah-isme/club-activity-api/internal/service"
	"github.com/noah-isme/club-activity-api/pkg/cache"
	"github.com/noah-isme/club-activity-api/pkg/config"
	"github.com/noah-isme/club-activity-api/pkg/database"
	"github.com/noah-isme/club-activity-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/club-activity-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/club-activity-api/pkg/middleware/requestid"
)

// @title Club Activity API
// @version 1.0.0
// @description Seminars, studies and participation workflow of the club
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := map[string]handler.Pinger{}

	repos, db, err := openStorage(cfg, logr)
	if err != nil {
		logr.Fatal("failed to open storage", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
		deps["database"] = handler.PingFunc(db.PingContext)
	}

	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Activity.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, activity cache disabled", zap.Error(err))
		} else {
			var universal redis.UniversalClient = client
			cacheRepo := repository.NewCacheRepository(universal, "club-activity:", logr)
			defer cacheRepo.Close() //nolint:errcheck
			deps["redis"] = cacheRepo
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Activity.CacheTTL, logr, true)
		}
	}

	validate := service.NewValidator()
	authSvc := service.NewAuthService(repos.Users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(repos.Users, repos.Participations, cacheSvc, validate, logr)
	hourSvc := service.NewHourService(repos.Users, repos.Participations, logr)
	activitySvc := service.NewActivityService(repos.Activities, repos.Participations, cacheSvc, cfg.Activity.CacheTTL, validate, logr)
	participationSvc := service.NewParticipationService(repos.Participations, repos.Activities, repos.Users, cacheSvc, metrics, validate, logr)
	exportSvc := service.NewExportService(repos.Users, hourSvc, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.RegisterRoutes(r, cfg.APIPrefix, authSvc, handler.Handlers{
		Auth:           handler.NewAuthHandler(authSvc, userSvc),
		Users:          handler.NewUserHandler(userSvc, hourSvc),
		Activities:     handler.NewActivityHandler(activitySvc),
		Participations: handler.NewParticipationHandler(participationSvc),
		Reports:        handler.NewReportHandler(exportSvc),
		Metrics:        handler.NewMetricsHandler(metrics, deps),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// openStorage returns the configured backend. db is nil for the memory driver.
func openStorage(cfg *config.Config, logr *zap.Logger) (repository.Repositories, *sqlx.DB, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		logr.Warn("using in-memory storage, data is lost on restart")
		return repository.NewMemoryStore().Repositories(), nil, nil
	case config.StoragePostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return repository.Repositories{}, nil, err
		}
		if cfg.Storage.RunMigrations {
			if err := database.RunMigrations(db.DB, logr); err != nil {
				_ = db.Close()
				return repository.Repositories{}, nil, err
			}
		}
		return repository.NewPostgresRepositories(db), db, nil
	default:
		return repository.Repositories{}, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
