package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"cinebook/internal/config"
	"cinebook/internal/database"
	"cinebook/internal/logger"
	"cinebook/internal/repository"
)

var (
	screenID = flag.Int64("screen", 0, "Provision seats only for this screen ID (0 = all screens)")
	rows     = flag.Int("rows", 10, "Number of rows per screen (at most 26)")
	perRow   = flag.Int("per-row", 12, "Number of seats per row")
	dryRun   = flag.Bool("dry-run", false, "Show what would be provisioned without making changes")
)

type SeatGenerator struct {
	db     *database.DB
	layout Layout
}

func main() {
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	layout := Layout{Rows: *rows, PerRow: *perRow}
	if err := layout.Validate(); err != nil {
		log.Error("Invalid layout", "error", err)
		os.Exit(2)
	}

	log.Info("Starting seat generator...", "rows", layout.Rows, "per_row", layout.PerRow, "dry_run", *dryRun)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	generator := &SeatGenerator{db: db, layout: layout}
	if err := generator.GenerateSeats(ctx); err != nil {
		logger.Fatal("Failed to generate seats", "error", err)
	}

	log.Info("Seat generation completed successfully!")
}

func (g *SeatGenerator) GenerateSeats(ctx context.Context) error {
	log := logger.Get()

	screens, err := g.screensToProvision(ctx)
	if err != nil {
		return fmt.Errorf("failed to get screens: %w", err)
	}

	if len(screens) == 0 {
		log.Info("No screens found for seat generation")
		return nil
	}

	log.Info("Found screens for seat generation", "count", len(screens))

	seats := g.layout.Seats()
	for _, id := range screens {
		if *dryRun {
			log.Info("Dry run: would provision seats", "screen_id", id, "seats", len(seats))
			continue
		}

		var inserted int64
		err := g.db.WithTx(ctx, func(tx *sql.Tx) error {
			repos := repository.NewRepositories(tx)

			var err error
			if inserted, err = repos.Seats.CreateSeatsForScreen(ctx, id, seats); err != nil {
				return err
			}
			return repos.Seats.UpdateScreenCapacity(ctx, id)
		})
		if err != nil {
			log.Error("Failed to generate seats for screen", "screen_id", id, "error", err)
			continue
		}

		log.Info("Generated seats for screen", "screen_id", id, "inserted", inserted, "skipped", int64(len(seats))-inserted)
	}

	return nil
}

func (g *SeatGenerator) screensToProvision(ctx context.Context) ([]int64, error) {
	query := `SELECT screen_id FROM screens`
	args := []any{}

	if *screenID > 0 {
		query += " WHERE screen_id = $1"
		args = append(args, *screenID)
	}
	query += " ORDER BY screen_id"

	rs, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var ids []int64
	for rs.Next() {
		var id int64
		if err := rs.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rs.Err()
}
