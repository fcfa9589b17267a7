package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/analyze"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/api"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/cache"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/clients"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/config"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/pipeline"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/repository/postgres"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/service"
	aisignal "github.com/tech-visionarieshub/evco-dashboard-sub002/internal/signal"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/pkg/logger"
)

func main() {
	cfg := config.Load()

	if cfg.Server.Mode == "debug" {
		logger.SetLevel("debug")
		gin.SetMode(gin.DebugMode)
	} else {
		logger.SetLevel("info")
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	analysisRepo := postgres.NewAnalysisRepository(db)
	rowRepo := postgres.NewDemandRowRepository(db)
	clientRepo := postgres.NewClientRepository(db)

	analysisCache, err := cache.NewAnalysisCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Cache unavailable, continuing without it")
		analysisCache = cache.NewNoopAnalysisCache()
	}

	directory := clients.NewDirectory(clientRepo)
	if err := directory.Load(context.Background()); err != nil {
		// Normalization degrades to raw customer codes until a reload succeeds.
		logger.Log.Warn().Err(err).Msg("Client directory load failed")
	}

	orchestrator := pipeline.NewOrchestrator(
		analyze.New(analyze.Config{}),
		aisignal.NewClient(cfg.Oracle),
		analysisRepo,
		pipeline.WithNameResolver(directory),
		pipeline.WithHorizonWeeks(cfg.Oracle.HorizonWeeks),
	)

	demandService := service.NewDemandService(orchestrator, analysisRepo, rowRepo, analysisCache)

	router := api.NewRouter(&api.Services{DemandService: demandService}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
