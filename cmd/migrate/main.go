package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dvloznov/vault/internal/config"
	bq "github.com/dvloznov/vault/internal/infra/bigquery"
	"github.com/dvloznov/vault/internal/logger"
)

func main() {
	envFile := flag.String("env", "", ".env file to load (default is ./.env when present)")
	appliedBy := flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	list := flag.Bool("list", false, "print the embedded migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		boot := logger.New(logger.Options{})
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if *list {
		migrations, err := bq.Migrations(cfg.BigQuery.Project, cfg.BigQuery.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read migrations")
		}
		printMigrations(os.Stdout, migrations)
		return
	}

	if err := cfg.Require(config.KeyBQProject, config.KeyBQDataset); err != nil {
		log.Fatal().Err(err).Msg("BigQuery is not configured")
	}

	ctx := context.Background()
	exporter, err := bq.Open(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset, logger.Component(log, "bigquery"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer exporter.Close()

	log.Info().
		Str("project", cfg.BigQuery.Project).
		Str("dataset", cfg.BigQuery.Dataset).
		Msg("Connected to BigQuery")

	res, err := exporter.Migrate(ctx, *appliedBy)
	if err != nil {
		log.Fatal().Err(err).Int("applied", len(res.Applied)).Msg("Migration failed")
	}

	if len(res.Applied) == 0 {
		log.Info().Msg("No new migrations to apply. Dataset is up to date.")
	} else {
		log.Info().Int("applied", len(res.Applied)).Int("skipped", len(res.Skipped)).Msg("Successfully applied migrations")
	}
}

func printMigrations(w io.Writer, migrations []bq.Migration) {
	for _, m := range migrations {
		checksum := m.Checksum
		if len(checksum) > 12 {
			checksum = checksum[:12]
		}
		fmt.Fprintf(w, "%04d_%s\t%s\n", m.Version, m.Name, checksum)
	}
}
