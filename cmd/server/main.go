package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tokenvault/internal/app"
	"tokenvault/internal/config"
)

func main() {
	configPath := flag.String("config", "./configs/config.json", "path to the JSON configuration file")
	backupPath := flag.String("backup", "", "write a copy of the database to this path and exit")
	flag.Parse()

	if err := run(*configPath, *backupPath); err != nil {
		fmt.Fprintf(os.Stderr, "tokenvault: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, backupPath string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	if backupPath != "" {
		return backup(application, backupPath)
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("application failed to start: %w", err)
	}

	<-ctx.Done()
	application.Logger.Info("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return application.Stop(shutdownCtx)
}

func backup(application *app.Application, path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	err := application.Store.Backup(ctx, path)
	if err != nil {
		err = fmt.Errorf("backup failed: %w", err)
	} else {
		application.Logger.Info("database backup written", "path", path)
	}
	if stopErr := application.Stop(ctx); stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}
