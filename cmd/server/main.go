package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/examstack/exam-engine/internal/cache"
	"github.com/examstack/exam-engine/internal/collaborators"
	"github.com/examstack/exam-engine/internal/config"
	"github.com/examstack/exam-engine/internal/dispatch"
	"github.com/examstack/exam-engine/internal/handlers"
	"github.com/examstack/exam-engine/internal/repositories/postgres"
	"github.com/examstack/exam-engine/internal/services"
	"github.com/examstack/exam-engine/internal/utils"
	"github.com/examstack/exam-engine/pkg"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger = utils.NewDevelopmentLogger()
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := pkg.Migrate(db); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	publisher, err := cfg.Events.CreateEventPublisher(utils.ToSlogLogger(logger))
	if err != nil {
		logger.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	repo := postgres.NewRepository(db)
	validator := utils.NewValidator()
	cacheService := cache.NewRedisCache(redisClient, logger)

	dispatcher := dispatch.NewDispatcher(dispatch.Options{
		Workers:    4,
		QueueSize:  256,
		JobTimeout: 30 * time.Second,
	}, logger)

	catalog := services.NewCatalogService(repo, cacheService, logger)
	admission := services.NewAdmissionService(repo, logger)
	scoring := services.NewScoringService(
		repo,
		catalog,
		dispatcher,
		publisher,
		logger,
		validator,
		collaborators.NewMistakeTracker(repo, logger),
		collaborators.NewProgressRecorder(publisher, logger),
		collaborators.NewRankingService(redisClient, publisher, logger),
	)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	handlerManager := handlers.NewHandlerManager(admission, scoring, validator, logger, cfg.JWTSecret)
	handlerManager.SetupRoutes(router)

	go func() {
		logger.Info("Starting exam engine", "port", cfg.Port, "environment", cfg.Environment)
		if err := router.Run(":" + cfg.Port); err != nil {
			logger.Error("HTTP server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down, draining background jobs")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := dispatcher.Shutdown(ctx); err != nil {
		logger.Error("Dispatcher shutdown failed", "error", err)
	}
}
