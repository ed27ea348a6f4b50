package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/babytrack/internal/config"
	"github.com/claude/babytrack/internal/server"
	"github.com/claude/babytrack/internal/stats"
	"github.com/claude/babytrack/internal/storage"
	"github.com/claude/babytrack/internal/upload"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	log.Info("babytrack starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Open storage (runs migrations for postgres)
	kv, closeKV, err := storage.Open(ctx, cfg.Storage, "migrations", log)
	if err != nil {
		log.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer closeKV()

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	store := storage.NewStore(kv, log)
	if err := store.Load(ctx); err != nil {
		log.Error("failed to load records", "error", err)
		os.Exit(1)
	}

	loc, err := cfg.Stats.Location()
	if err != nil {
		log.Error("invalid timezone", "error", err)
		os.Exit(1)
	}
	engine := stats.NewEngine(store,
		stats.WithCalendar(stats.NewCalendar(loc)),
		stats.WithLogger(log),
	)
	store.OnChange(func(storage.Change) { engine.InvalidateCache() })
	log.Info("records loaded",
		"sleep", store.Sleep.Len(),
		"meals", store.Meals.Len(),
		"water", store.Water.Len(),
		"milestones", store.Milestones.Len(),
		"timezone", loc.String(),
	)

	// Optional mirror to a remote server
	var syncer *upload.Syncer
	if cfg.Sync.Enabled {
		state, err := upload.OpenStateDB(cfg.Sync.StateDir)
		if err != nil {
			log.Error("failed to open sync state", "error", err)
			os.Exit(1)
		}
		defer state.Close()

		syncer = upload.New(upload.NewClient(cfg.Sync.RemoteURL, cfg.Sync.APIKey), state, log)
		if err := syncer.Pull(ctx, store); err != nil {
			log.Warn("initial sync pull failed", "remote", cfg.Sync.RemoteURL, "error", err)
		}
		store.OnChange(syncer.Hook())
		log.Info("sync enabled", "remote", cfg.Sync.RemoteURL)
	}

	// Create server
	srv := server.New(store, engine, cfg.Auth.APIKey, log)
	srv.SetDefaultWindow(cfg.Stats.DefaultWindow)

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	if syncer != nil {
		syncer.Wait()
		st := syncer.Stats()
		log.Info("sync stopped", "pushed", st.Pushed, "skipped", st.Skipped, "superseded", st.Superseded, "failed", st.Failed, "pulled", st.Pulled)
	}
	log.Info("server stopped")
}
