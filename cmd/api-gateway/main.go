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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-course-api/api/swagger"
	"github.com/noah-isme/sma-course-api/internal/actor"
	"github.com/noah-isme/sma-course-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-course-api/internal/middleware"
	"github.com/noah-isme/sma-course-api/internal/repository"
	"github.com/noah-isme/sma-course-api/internal/scoring"
	"github.com/noah-isme/sma-course-api/internal/service"
	"github.com/noah-isme/sma-course-api/pkg/cache"
	"github.com/noah-isme/sma-course-api/pkg/config"
	"github.com/noah-isme/sma-course-api/pkg/database"
	"github.com/noah-isme/sma-course-api/pkg/export"
	"github.com/noah-isme/sma-course-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-course-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-course-api/pkg/middleware/requestid"
)

// @title Course Actor API
// @version 1.0.0
// @description Students, classes, grades and predictive analytics served by persistent entity actors.
// @BasePath /api/v1
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	checks := map[string]handler.Pinger{}

	var (
		redisClient *redis.Client
		cacheRepo   *repository.CacheRepository
	)
	if cfg.Cache.Enabled || cfg.State.Driver == config.StateDriverRedis {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		checks["redis"] = cacheRepo
	}

	store, closeStore, err := openStateStore(ctx, cfg, redisClient, checks)
	if err != nil {
		logr.Fatal("failed to open state store", zap.String("driver", cfg.State.Driver), zap.Error(err))
	}
	defer closeStore()

	rt := actor.NewRuntime(service.NewInstrumentedStateStore(store, cfg.State.Driver, metrics), actor.Config{
		IdleTimeout: cfg.Actors.IdleTimeout,
		Logger:      logr.Named("actor"),
		Observer:    metrics,
	})

	var model *scoring.Model
	if cfg.Scoring.ModelPath != "" {
		model, err = scoring.LoadModel(cfg.Scoring.ModelPath)
		if err != nil {
			logr.Fatal("failed to load scoring model", zap.String("path", cfg.Scoring.ModelPath), zap.Error(err))
		}
	}

	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)
	}

	validate := validator.New()
	scorer := scoring.NewScorer(model, metrics, logr.Named("scoring"))
	performance := service.NewPerformanceService(rt, scorer, validate, logr)
	students := service.NewStudentService(rt, cacheSvc, validate, logr)
	classes := service.NewClassService(rt, cacheSvc, validate, logr)
	enrollments := service.NewEnrollmentService(rt, cacheSvc, metrics, service.EnrollmentConfig{
		RetryAttempts: cfg.Enrollment.RetryAttempts,
		RetryDelay:    cfg.Enrollment.RetryDelay,
		RepairWorkers: cfg.Enrollment.RepairWorkers,
		RepairRetries: cfg.Enrollment.RepairRetries,
	}, logr.Named("enrollment"))
	analytics := service.NewAnalyticsService(rt, performance, cacheSvc, metrics, cfg.Scoring.RecommendationTopN, logr)
	if counter, ok := store.(service.RecordCounter); ok {
		analytics.WithRecordCounter(counter)
	}
	exports := service.NewExportService(classes, analytics, export.DefaultRegistry(), logr)

	enrollments.Start(ctx)

	if cfg.Seed.Enabled {
		seeded, err := service.NewSeedService(rt, students, classes, enrollments, logr).Seed(ctx)
		if err != nil {
			logr.Error("demo seed failed", zap.Error(err))
		} else if seeded {
			logr.Info("demo data seeded")
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.ResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Handlers{
		Students:      handler.NewStudentHandler(students, performance),
		Enrollments:   handler.NewEnrollmentHandler(enrollments),
		Classes:       handler.NewClassHandler(classes),
		Grades:        handler.NewGradeHandler(service.NewGradeService(rt, performance, validate, logr)),
		Performance:   handler.NewPerformanceHandler(performance),
		Analytics:     handler.NewAnalyticsHandler(analytics, exports),
		Users:         handler.NewUserHandler(service.NewUserService(rt, validate, logr)),
		Notifications: handler.NewNotificationHandler(service.NewNotificationService(rt, validate, logr)),
	}.Register(r.Group(cfg.APIPrefix, internalmiddleware.Deadline(cfg.Actors.CallTimeout)))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "state_driver", cfg.State.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http shutdown", zap.Error(err))
	}
	enrollments.Stop()
	if err := rt.Close(shutdownCtx); err != nil {
		logr.Error("actor runtime shutdown", zap.Error(err))
	}
}

// openStateStore selects the persistence backend named by STATE_DRIVER.
func openStateStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client, checks map[string]handler.Pinger) (actor.StateStore, func(), error) {
	noop := func() {}
	switch cfg.State.Driver {
	case "", config.StateDriverMemory:
		return repository.NewMemoryStateRepository(), noop, nil
	case config.StateDriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return sqlStore(ctx, db, checks)
	case config.StateDriverSQLite:
		db, err := database.NewSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return sqlStore(ctx, db, checks)
	case config.StateDriverRedis:
		return repository.NewRedisStateRepository(redisClient, cfg.State.RedisPrefix), noop, nil
	case config.StateDriverFile:
		store, err := repository.NewFileStateRepository(cfg.State.FileDir)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case config.StateDriverS3:
		store, err := repository.NewS3StateRepository(ctx, repository.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			Prefix:    cfg.S3.Prefix,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown state driver %q", cfg.State.Driver)
	}
}

func sqlStore(ctx context.Context, db *sqlx.DB, checks map[string]handler.Pinger) (actor.StateStore, func(), error) {
	store := repository.NewSQLStateRepository(db)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	checks["database"] = handler.PingFunc(db.PingContext)
	return store, func() { _ = db.Close() }, nil
}
