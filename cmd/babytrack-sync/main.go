package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/claude/babytrack/internal/config"
	"github.com/claude/babytrack/internal/storage"
	"github.com/claude/babytrack/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	serverURL := flag.String("server", "", "remote babytrack server URL (overrides sync.remote_url)")
	pull := flag.Bool("pull", false, "replace local collections with the remote copy instead of pushing")
	force := flag.Bool("force", false, "push every collection even if unchanged since the last push")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("babytrack-sync", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	remote := cfg.Sync.RemoteURL
	if *serverURL != "" {
		remote = *serverURL
	}
	if remote == "" {
		fmt.Fprintf(os.Stderr, "Error: -server or sync.remote_url is required\n")
		os.Exit(1)
	}
	remote = strings.TrimRight(remote, "/")

	apiKey := cfg.Sync.APIKey
	if apiKey == "" {
		apiKey = cfg.Auth.APIKey
	}

	ctx := context.Background()

	kv, closeKV, err := storage.Open(ctx, cfg.Storage, "migrations", log)
	if err != nil {
		log.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer closeKV()

	store := storage.NewStore(kv, log)
	if err := store.Load(ctx); err != nil {
		log.Error("failed to load records", "error", err)
		os.Exit(1)
	}

	var state *upload.StateDB
	if !*force {
		state, err = upload.OpenStateDB(cfg.Sync.StateDir)
		if err != nil {
			log.Error("failed to open state database", "error", err)
			os.Exit(1)
		}
		defer state.Close()
	}

	syncer := upload.New(upload.NewClient(remote, apiKey), state, log)

	if *pull {
		err = syncer.Pull(ctx, store)
	} else {
		err = syncer.PushAll(ctx, store)
	}
	printStats(syncer.Stats())
	if err != nil {
		log.Error("sync failed", "remote", remote, "error", err)
		os.Exit(1)
	}
	log.Info("sync complete", "remote", remote)
}

func printStats(stats upload.Stats) {
	fmt.Println()
	fmt.Println("=== Sync Summary ===")
	fmt.Printf("  Collections pushed:   %d\n", stats.Pushed)
	fmt.Printf("  Collections skipped:  %d (unchanged)\n", stats.Skipped)
	fmt.Printf("  Collections pulled:   %d\n", stats.Pulled)
	fmt.Printf("  Failures:             %d\n", stats.Failed)
	fmt.Println()
}
