package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitcoach/programgen/internal/api"
	"fitcoach/programgen/internal/config"
	"fitcoach/programgen/internal/generation"
	"fitcoach/programgen/internal/logging"
	"fitcoach/programgen/internal/pipeline"
	"fitcoach/programgen/internal/repository/mongo"
	"fitcoach/programgen/internal/scheduler"
	"fitcoach/programgen/internal/service"
	"fitcoach/programgen/internal/storage"
	"fitcoach/programgen/internal/vectorindex"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @title Program Generation API
// @version 1.0
// @description Generates multi-week training programs and runs them day by day.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		panic("could not load config: " + err.Error())
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck
	logger.Info("starting program generation server")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		logger.Fatal("could not connect to MongoDB", zap.Error(err))
	}
	defer func() {
		logger.Info("disconnecting MongoDB")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logger.Error("failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	// --- Ensure Indexes ---
	go func() { // Run index creation in background
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		if err := mongo.EnsureIndexes(ctx, appDB); err != nil {
			logger.Error("index creation failed", zap.Error(err))
			return
		}
		logger.Info("index creation completed")
	}()

	// --- Initialize Storage ---
	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelInit()
	objects, err := storage.NewS3Storage(initCtx, cfg.S3, logger)
	if err != nil {
		logger.Fatal("failed to initialize S3 storage", zap.Error(err))
	}

	// --- Generation ---
	gen, err := generation.NewGeminiService(initCtx, cfg.Generation, logger)
	if err != nil {
		logger.Fatal("failed to initialize generation service", zap.Error(err))
	}
	embedder, err := generation.NewGeminiEmbedder(initCtx, cfg.Generation)
	if err != nil {
		logger.Fatal("failed to initialize embedder", zap.Error(err))
	}
	index, err := vectorindex.Open(cfg.VectorIndex.Path, embedder, logger)
	if err != nil {
		logger.Fatal("failed to open vector index", zap.Error(err))
	}
	defer index.Close()

	// --- Initialize Repositories ---
	programRepo := mongo.NewMongoProgramRepository(appDB)
	profileRepo := mongo.NewMongoCoachProfileRepository(appDB)
	runRepo := mongo.NewMongoGenerationRunRepository(appDB)

	// --- Initialize Services ---
	pipe := pipeline.New(pipeline.Deps{
		Generation: gen,
		Profiles:   profileRepo,
		Programs:   programRepo,
		Objects:    objects,
		Index:      index,
	}, pipeline.OptionsFromConfig(cfg.Pipeline), logger)

	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()
	runner := service.NewGenerationRunner(pipe, runRepo, cfg.Pipeline.QueueSize, logger)
	runner.Start(runCtx, cfg.Pipeline.Workers)

	programService := service.NewProgramService(programRepo, profileRepo, objects, pipeline.NewGenerator(gen, logger), logger)

	sched, err := scheduler.New(cfg.Scheduler.Spec, programService, logger)
	if err != nil {
		logger.Fatal("failed to configure scheduler", zap.Error(err))
	}
	sched.Start()

	// --- Initialize Gin Engine ---
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(logger))
	api.SetupRoutes(router, cfg.JWT.Secret, programService, runner, logger)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second, // regeneration waits on the model
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("ListenAndServe error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	sched.Stop()

	// queued runs finish unless the workflow timeout cancels them first
	runner.Stop()
	logger.Info("server exiting")
}
