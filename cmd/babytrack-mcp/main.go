package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/claude/babytrack/internal/config"
	bmcp "github.com/claude/babytrack/internal/mcp"
	"github.com/claude/babytrack/internal/stats"
	"github.com/claude/babytrack/internal/storage"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (local mode)")
	remote := flag.String("remote", "", "babytrack server URL (remote mode, e.g. http://babytrack.tail1234.ts.net)")
	tz := flag.String("tz", "Local", "timezone for default ranges in remote mode")
	httpAddr := flag.String("http", "", "serve streamable HTTP on this address instead of stdio")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("babytrack-mcp", Version)
		return
	}

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if (*configPath == "") == (*remote == "") {
		fmt.Fprintf(os.Stderr, "Usage: babytrack-mcp (-config config.yaml | -remote <URL>) [-http :8090]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	var ds bmcp.DataSource
	var cal stats.Calendar

	if *remote != "" {
		loc, err := loadLocation(*tz)
		if err != nil {
			log.Error("invalid timezone", "tz", *tz, "error", err)
			os.Exit(1)
		}
		cal = stats.NewCalendar(loc)
		ds = bmcp.NewHTTPClient(*remote)
		log.Info("remote mode", "server", *remote)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		loc, err := cfg.Stats.Location()
		if err != nil {
			log.Error("invalid timezone", "error", err)
			os.Exit(1)
		}
		cal = stats.NewCalendar(loc)

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
		engine := stats.NewEngine(store, stats.WithCalendar(cal), stats.WithLogger(log))
		store.OnChange(func(storage.Change) { engine.InvalidateCache() })
		ds = bmcp.Local{Engine: engine, Store: store}
		log.Info("local mode", "driver", cfg.Storage.Driver)
	}

	s := bmcp.New(ds, cal, Version, log)

	if *httpAddr != "" {
		log.Info("mcp http server starting", "addr", *httpAddr)
		if err := server.NewStreamableHTTPServer(s).Start(*httpAddr); err != nil {
			log.Error("mcp http server error", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp stdio error", "error", err)
		os.Exit(1)
	}
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
