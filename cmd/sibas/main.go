package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/carlmjohnson/versioninfo"
	"github.com/urfave/cli/v2"

	"github.com/SlagHoedje/sibas/bot"
	"github.com/SlagHoedje/sibas/discord"
	"github.com/SlagHoedje/sibas/indexer"
	"github.com/SlagHoedje/sibas/server"
	"github.com/SlagHoedje/sibas/store"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting process", "error", err)
		os.Exit(-1)
	}
}

func run(args []string) error {
	app := cli.App{
		Name:    "sibas",
		Usage:   "discord statistics bot with incremental channel indexing",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:     "discord-token",
			Usage:    "discord bot token",
			Required: true,
			EnvVars:  []string{"SIBAS_DISCORD_TOKEN", "DISCORD_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "db-url",
			Usage:   "database connection string (sqlite:// or postgres://)",
			Value:   "sqlite://./data/sibas.sqlite",
			EnvVars: []string{"SIBAS_DB_URL", "DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-conns",
			Usage:   "maximum number of database connections",
			Value:   40,
			EnvVars: []string{"SIBAS_MAX_DB_CONNS"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "address and port to listen on for the status HTTP server",
			Value:   ":8080",
			EnvVars: []string{"SIBAS_BIND"},
		},
		&cli.IntFlag{
			Name:    "chunk-size",
			Usage:   "messages committed per indexing transaction",
			Value:   indexer.DefaultChunkSize,
			EnvVars: []string{"SIBAS_CHUNK_SIZE"},
		},
		&cli.DurationFlag{
			Name:    "sweep-interval",
			Usage:   "how often scheduled channels are re-indexed",
			Value:   indexer.DefaultSweepInterval,
			EnvVars: []string{"SIBAS_SWEEP_INTERVAL"},
		},
		&cli.IntFlag{
			Name:    "sweep-parallelism",
			Usage:   "number of parallel indexing passes during a sweep",
			Value:   indexer.DefaultSweepParallelism,
			EnvVars: []string{"SIBAS_SWEEP_PARALLELISM"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (debug, info, warn, error)",
			Value:   "info",
			EnvVars: []string{"SIBAS_LOG_LEVEL", "LOG_LEVEL"},
		},
	}

	app.Action = runSibas

	return app.Run(args)
}

func runSibas(cctx *cli.Context) error {
	ctx, cancel := context.WithCancel(cctx.Context)
	defer cancel()

	logger := configLogger(cctx, os.Stdout)
	slog.SetDefault(logger)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	db, err := store.SetupDatabase(cctx.String("db-url"), cctx.Int("max-db-conns"))
	if err != nil {
		return fmt.Errorf("setting up database: %w", err)
	}
	st := store.NewStore(db)

	client := discord.NewClient(cctx.String("discord-token"))

	appCtx, appCancel := context.WithTimeout(ctx, 30*time.Second)
	app, err := client.Application(appCtx)
	appCancel()
	if err != nil {
		return fmt.Errorf("resolving bot application: %w", err)
	}
	logger.Info("resolved application", "app_id", app.ID)

	ix := indexer.New(st, client, &indexer.Options{
		ChunkSize:        cctx.Int("chunk-size"),
		SweepInterval:    cctx.Duration("sweep-interval"),
		SweepParallelism: int64(cctx.Int("sweep-parallelism")),
	})
	events := indexer.NewEvents(st, ix)
	b := bot.New(client, st, ix, app.ID)

	// One callback set: the bot takes command traffic, the event listener
	// takes everything that mutates the store.
	callbacks := events.Callbacks()
	botCallbacks := b.Callbacks()
	callbacks.Ready = botCallbacks.Ready
	callbacks.InteractionCreate = botCallbacks.InteractionCreate

	gateway := discord.NewGateway(client, cctx.String("discord-token"), callbacks)
	srv := server.New(st)

	svcErr := make(chan error, 1)

	go func() {
		logger.Info("starting gateway consumer")
		if err := gateway.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			svcErr <- err
		}
	}()

	go ix.RunSweeper(ctx)

	go func() {
		if err := srv.Start(cctx.String("bind")); err != nil && !errors.Is(err, http.ErrServerClosed) {
			svcErr <- err
		}
	}()

	logger.Info("startup complete")
	select {
	case <-signals:
		logger.Info("received shutdown signal")
	case err := <-svcErr:
		if err != nil {
			logger.Error("service error", "error", err)
		}
	}

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
		return err
	}

	if sqldb, err := db.DB(); err == nil {
		sqldb.Close()
	}

	logger.Info("shutdown complete")
	return nil
}

func configLogger(cctx *cli.Context, writer *os.File) *slog.Logger {
	var level slog.Level
	switch cctx.String("log-level") {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: level,
	}))
}
