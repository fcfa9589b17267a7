package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/analyze"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/cache"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/clients"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/config"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/domain"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/pipeline"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/repository/postgres"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/service"
	aisignal "github.com/tech-visionarieshub/evco-dashboard-sub002/internal/signal"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/pkg/logger"
)

func runProcess(c *cli.Context) error {
	cfg := config.Load()
	db := dbFrom(c)
	log := logger.Component("cli")

	file, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	var stocks []domain.StockPosition
	if path := c.String("stocks"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read stocks file: %w", err)
		}
		if err := json.Unmarshal(raw, &stocks); err != nil {
			return fmt.Errorf("parse stocks file: %w", err)
		}
	}

	analysisRepo := postgres.NewAnalysisRepository(db)
	rowRepo := postgres.NewDemandRowRepository(db)

	directory := clients.NewDirectory(postgres.NewClientRepository(db))
	if err := directory.Load(c.Context); err != nil {
		log.Warn().Err(err).Msg("client directory load failed, keeping raw codes")
	}

	orchestrator := pipeline.NewOrchestrator(
		analyze.New(analyze.Config{}),
		aisignal.NewClient(cfg.Oracle),
		analysisRepo,
		pipeline.WithNameResolver(directory),
		pipeline.WithHorizonWeeks(c.Int("horizon")),
	)

	svc := service.NewDemandService(orchestrator, analysisRepo, rowRepo, cache.NewNoopAnalysisCache())

	start := time.Now()
	run, err := svc.Process(c.Context, file, stocks, func(ev pipeline.StageEvent) {
		log.Info().
			Str("stage", string(ev.Stage)).
			Str("status", string(ev.Status)).
			Int("progress", ev.Progress).
			Msg(ev.Message)
	})
	if err != nil {
		if run != nil {
			log.Error().
				Str("run_id", run.ID).
				Str("failed_stage", string(run.FailedStage)).
				Msg("run failed")
		}
		return err
	}

	log.Info().
		Str("run_id", run.ID).
		Int("rows_seen", run.Quality.RowsSeen).
		Int("rows_kept", run.Quality.RowsKept).
		Strs("warnings", run.Warnings).
		Dur("took", time.Since(start)).
		Msg("run completed")
	return nil
}

func runForecast(c *cli.Context) error {
	db := dbFrom(c)
	log := logger.Component("cli")

	file, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	year := c.Int("year")
	if year == 0 {
		year = time.Now().Year()
	}

	rowRepo := postgres.NewDemandRowRepository(db)
	svc := service.NewDemandService(nil, nil, rowRepo, cache.NewNoopAnalysisCache())

	result, err := svc.IngestForecast(c.Context, file, year, c.String("source"), c.Int("version"))
	if err != nil {
		return err
	}

	log.Info().
		Str("format", string(result.Format)).
		Int("rows_seen", result.RowsSeen).
		Int("rows_out", result.RowsOut).
		Int("upserted", result.Upserted).
		Msg("forecast sheet ingested")
	return nil
}
