package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/studiovault/api/routes"
	"github.com/angelmondragon/studiovault/internal/app"
	"github.com/angelmondragon/studiovault/pkg/config"
	"github.com/angelmondragon/studiovault/pkg/instance"
	"github.com/angelmondragon/studiovault/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vault, err := app.New(ctx, app.Params{Config: cfg, Logger: logg})
	if err != nil {
		logg.Error(ctx, "failed to bootstrap services", err)
		os.Exit(1)
	}
	defer vault.Close(context.Background())

	// open and migrate eagerly so a broken file fails at boot
	if err := vault.DB.Ping(ctx); err != nil {
		logg.Error(ctx, "failed to open database", err)
		os.Exit(1)
	}

	addr := "127.0.0.1:" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"db_path":  cfg.DB.Path,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, vault.DB, routes.Services{
			Projects:    vault.Projects,
			Assets:      vault.Assets,
			Collections: vault.Collections,
			Archive:     vault.Archive,
			Models:      vault.Models,
			Presets:     vault.Presets,
			Stats:       vault.Stats,
			Compression: vault.Compression,
			Maintenance: vault.Maintenance,
			Display:     vault.Display,
			Gatherer:    vault.Metrics,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.Maintenance.Enabled {
		group.Go(func() error {
			logg.Info(ctx, "starting embedded maintenance scheduler")
			if err := vault.Maintenance.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}
