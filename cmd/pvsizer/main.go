package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/levenlabs/go-lflag"

	"github.com/pvsizer/pvsizer/pkg/log"
	"github.com/pvsizer/pvsizer/pkg/preset"
	"github.com/pvsizer/pvsizer/pkg/price"
	"github.com/pvsizer/pvsizer/pkg/server"
	"github.com/pvsizer/pvsizer/pkg/storage"
)

func main() {
	// init packages
	prices := price.Configured()
	presets := preset.Configured()
	s := storage.Configured()

	// init server
	srv := server.Configured(presets, prices, s)

	// parse flags
	lflag.Configure()

	// lflag automatically sets llog's level, but we need to set the slog level
	if err := log.SyncLevel(); err != nil {
		panic(err)
	}
	slog.Debug("logger configured")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// If initialization inside lflag.Do failed, we wouldn't be here (panic).
	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", slog.Any("error", err))
		}
	}()

	if err := prices.Start(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to start price providers", slog.Any("error", err))
		os.Exit(1)
	}
	defer prices.Stop()

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
