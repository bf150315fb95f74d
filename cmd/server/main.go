package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flightkoy/questboard/internal/auth"
	"github.com/flightkoy/questboard/internal/cache"
	"github.com/flightkoy/questboard/internal/config"
	"github.com/flightkoy/questboard/internal/database"
	"github.com/flightkoy/questboard/internal/handler/health"
	"github.com/flightkoy/questboard/internal/server"
	"github.com/flightkoy/questboard/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	if cfg.JWTSecret == config.DefaultJWTSecret {
		logger.Warn("JWT_SECRET is the built-in default; set it outside development")
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	opts := store.Options{Location: loc}
	checks := map[string]health.Checker{}

	// --- Store ---
	var st store.Store
	switch cfg.StoreDriver {
	case "memory":
		st = store.NewMemory(opts)
		logger.Info("using in-memory store")
	default:
		db, err := database.Open(ctx, cfg.DBPath)
		if err != nil {
			return fmt.Errorf("connecting to sqlite: %w", err)
		}
		sq, err := store.NewSQLite(ctx, db, opts)
		if err != nil {
			db.Close()
			return fmt.Errorf("initialising sqlite store: %w", err)
		}
		checks["sqlite"] = health.DB(db)
		st = sq
		logger.Info("connected to sqlite", "path", cfg.DBPath)
	}
	defer st.Close()

	// --- Redis ---
	var leaderboards cache.Leaderboards = cache.Nop{}
	if cfg.RedisURL != "" {
		rdb, err := cache.Open(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		leaderboards = cache.NewRedis(rdb, cfg.LeaderboardTTL)
		checks["redis"] = health.Redis(rdb)
		logger.Info("connected to redis")
	}

	dir := auth.NewDirectory(st, cfg.BcryptCost)
	if cfg.SeedDemo {
		if err := store.SeedDemo(ctx, logger, st, time.Now(), dir.Hash); err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, server.Deps{
		Logger:    logger,
		Store:     st,
		Directory: dir,
		Tokens:    auth.NewTokens([]byte(cfg.JWTSecret), cfg.TokenTTL),
		Cache:     leaderboards,
		Checks:    checks,
		QuestURL:  cfg.QuestURL,
		Location:  loc,
		SPADir:    cfg.SPADir,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}
