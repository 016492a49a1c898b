package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	"github.com/joho/godotenv"

	"github.com/Ramsey-B/sage/config"
	"github.com/Ramsey-B/sage/pkg/server"
)

func main() {
	// .env is optional; deployed environments set variables directly
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		panic(err)
	}

	logger := newLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := server.InitTracing(ctx, cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		os.Exit(1)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to build server")
		os.Exit(1)
	}

	if err := srv.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start server")
		os.Exit(1)
	}
	logger.WithField("port", cfg.Port).Info("sage is running")

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := srv.Stop(stopCtx); err != nil {
		logger.WithError(err).Error("Shutdown did not complete cleanly")
	}
	if err := shutdownTracing(stopCtx); err != nil {
		logger.WithError(err).Error("Failed to flush traces")
	}
}

func newLogger() ectologger.Logger {
	enc := json.NewEncoder(os.Stdout)
	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		_ = enc.Encode(msg)
	})
}
