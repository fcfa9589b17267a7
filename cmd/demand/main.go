package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/repository/postgres"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/pkg/logger"
)

type ctxKey string

const dbKey ctxKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	db, err := postgres.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) *postgres.DB {
	db, _ := c.Context.Value(dbKey).(*postgres.DB)
	return db
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logger.Log.Debug().Err(err).Msg("no .env file loaded")
	}

	app := &cli.App{
		Name:  "demand",
		Usage: "Batch tooling for the demand analysis pipeline",
		Commands: []*cli.Command{
			{
				Name:  "process",
				Usage: "Run the full pipeline over a consumption CSV",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Path to the consumption CSV",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "stocks",
						Usage: "Optional path to a JSON array of stock positions",
					},
					&cli.IntFlag{
						Name:  "horizon",
						Usage: "Forecast horizon in weeks requested from the signal service",
						Value: 8,
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runProcess,
			},
			{
				Name:  "forecast",
				Usage: "Normalize a forecast sheet and upsert its rows",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Path to the forecast sheet CSV",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "year",
						Usage: "Calendar year for weekly-format sheets",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Source tag stored with each row",
						Value: "cli",
					},
					&cli.IntFlag{
						Name:  "version",
						Usage: "Version stored with each row",
						Value: 1,
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runForecast,
			},
			{
				Name:  "fetch",
				Usage: "Download consumption exports from object storage",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Object key prefix to fetch",
						Value: "exports/",
					},
					&cli.StringFlag{
						Name:  "dest",
						Usage: "Local directory for downloaded files",
						Value: "./data/uploads",
					},
				},
				Action: runFetch,
			},
			{
				Name:  "seed-clients",
				Usage: "Upsert the customer master from a code,name CSV",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Path to the clients CSV",
						Required: true,
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runSeedClients,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("command failed")
	}
}
