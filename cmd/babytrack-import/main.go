package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/claude/babytrack/internal/config"
	"github.com/claude/babytrack/internal/ingest"
	"github.com/claude/babytrack/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	filePath := flag.String("file", "", "path to a babytrack JSON export (required)")
	exportMode := flag.Bool("export", false, "write the current records to -file instead of importing")
	dryRun := flag.Bool("dry-run", false, "report counts without writing to the database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *filePath == "" {
		fmt.Fprintf(os.Stderr, "Usage: babytrack-import -config config.yaml -file export.json [-export] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	kv, closeKV, err := storage.Open(ctx, cfg.Storage, "migrations", log)
	if err != nil {
		log.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer closeKV()

	if *exportMode {
		store := storage.NewStore(kv, log)
		if err := store.Load(ctx); err != nil {
			log.Error("failed to load records", "error", err)
			os.Exit(1)
		}
		if err := writeExport(*filePath, ingest.Export(store, time.Now())); err != nil {
			log.Error("export failed", "error", err)
			os.Exit(1)
		}
		log.Info("export complete", "file", *filePath)
		return
	}

	f, err := os.Open(*filePath)
	if err != nil {
		log.Error("failed to open export", "error", err)
		os.Exit(1)
	}
	payload, err := ingest.Read(f)
	f.Close()
	if err != nil {
		log.Error("failed to read export", "error", err)
		os.Exit(1)
	}

	// A dry run applies to an in-memory store so normalization is still reported.
	target := kv
	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
		target = nil
	}
	store := storage.NewStore(target, log)

	res, err := ingest.Apply(ctx, store, payload)
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}

	printResult(log, res)
	log.Info("import complete")
}

func writeExport(path string, p ingest.Payload) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := ingest.Write(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printResult(log *slog.Logger, res *ingest.Result) {
	log.Info("import stats",
		"sleep_sessions", res.SleepSessions,
		"meals", res.Meals,
		"water", res.Water,
		"milestones", res.Milestones,
		"notes", res.Notes,
		"ids_assigned", res.IDsAssigned,
		"meal_types_normalized", res.MealTypesNormalized,
	)
	if len(res.UnknownMealTypes) > 0 {
		log.Info("unrecognized meal types kept as-is", "types", res.UnknownMealTypes)
	}
}
