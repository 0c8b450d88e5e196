package main

import (
	"errors"
	"fmt"
	"os"

	"fhrs-tracker/batch"
	"fhrs-tracker/config"
	"fhrs-tracker/fetcher/fsa"
	"fhrs-tracker/services"
	"fhrs-tracker/storage"
	"fhrs-tracker/utils"
)

func main() {
	cmd := "process"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "process":
		runProcess()
	case "fetch":
		runFetch()
	default:
		usage()
		os.Exit(1)
	}
}

func runProcess() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== FHRS tracker starting ===")
	logger.Info("Config — roots: %v | output: %s | policy: %s | track OTHER: %v",
		cfg.DataRoots, cfg.OutputDir, cfg.ClassifierPolicy, cfg.TrackOther)

	pipeline := services.NewPipeline(cfg, logger)

	if cfg.PostgresEnabled {
		pg, err := storage.NewPostgresLedger(cfg.DSN(), logger)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			os.Exit(1)
		}
		defer pg.Close()
		pipeline.Sinks = append(pipeline.Sinks, pg)
		logger.Info("PostgreSQL mirror enabled (table: new_establishments)")
	}

	if err := pipeline.Run(); err != nil {
		if errors.Is(err, batch.ErrNoBatch) {
			logger.Error("No batch to process — run the fetch command first: %v", err)
		} else {
			logger.Error("Pipeline run failed: %v", err)
		}
		os.Exit(1)
	}

	logger.Info("Done. Artifacts written to %s", cfg.OutputDir)
}

func runFetch() {
	logger := utils.NewLogger()
	cfg := config.Load()

	fetcher := fsa.New(cfg, logger)
	if err := fetcher.FetchAll(); err != nil {
		logger.Error("Fetch failed: %v", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: fhrs-tracker <command>\n\nCommands:\n  process    Process the latest downloaded batch (default)\n  fetch      Download the current FHRS open data files\n")
}
