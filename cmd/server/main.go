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

	"hangout/config"
	"hangout/internal/database"
	"hangout/internal/router"
	"hangout/internal/service"
	"hangout/internal/ws"

	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logs.GetLoggerFromString(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer func() { _ = sqlDB.Close() }()
	}
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	layer, closeLayer, err := newLayer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLayer()

	var push service.Pusher
	if fcm := service.NewFCMService(ctx, cfg.Firebase.ServiceAccountPath, log); fcm != nil {
		log.Info("Push notifications enabled")
		push = fcm
	} else {
		log.Info("Push notifications disabled", "service_account_path", cfg.Firebase.ServiceAccountPath)
	}

	engine, cleanup := router.Setup(cfg, db, layer, push, log)
	defer cleanup()
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Server listening", "port", cfg.Server.Port, "db_driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

// newLayer shares groups through Redis when REDIS_URL is set, otherwise in process.
func newLayer(ctx context.Context, cfg *config.Config, log *slog.Logger) (ws.Layer, func(), error) {
	if cfg.Redis.URL == "" {
		log.Info("Using in-process broadcast layer")
		return ws.NewHub(log), func() {}, nil
	}
	rdb, err := ws.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	layer, err := ws.NewRedisLayer(ctx, rdb, cfg.Redis.ChannelPrefix, log)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	log.Info("Using Redis broadcast layer", "prefix", cfg.Redis.ChannelPrefix)
	return layer, func() {
		_ = layer.Close()
		_ = rdb.Close()
	}, nil
}
