package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/pkg/logger"
)

// runSeedClients upserts the customer master from a two-column CSV
// (code, name). A header row is detected and skipped.
func runSeedClients(c *cli.Context) error {
	db := dbFrom(c)
	log := logger.Component("cli")

	file, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	count := 0
	err = db.WithTx(c.Context, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareContext(c.Context, `
			INSERT INTO clients (code, name, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (code)
			DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("prepare client upsert: %w", err)
		}
		defer stmt.Close()

		first := true
		for {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("read csv record: %w", err)
			}
			if len(record) < 2 {
				continue
			}

			code := strings.TrimSpace(record[0])
			name := strings.TrimSpace(record[1])
			if first {
				first = false
				if strings.EqualFold(code, "code") {
					continue
				}
			}
			if code == "" {
				continue
			}

			if _, err := stmt.ExecContext(c.Context, code, name); err != nil {
				return fmt.Errorf("upsert client %s: %w", code, err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Int("clients", count).Msg("customer master seeded")
	return nil
}
