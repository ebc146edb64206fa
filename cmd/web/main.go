package main

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"classic-jersey-studio/internal/app"
	"classic-jersey-studio/internal/config"
	"classic-jersey-studio/internal/quote"
	"classic-jersey-studio/internal/session"
)

//go:embed static/*
var staticFS embed.FS

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}

	sessions := session.NewStore(session.Options{
		Catalog: components.Catalog,
		TTL:     cfg.SessionTTL,
	})
	go sessions.Run(ctx)

	s := &server{
		sessions:       sessions,
		mockups:        components.Mockups,
		tint:           components.Tint,
		quotes:         quote.New(quote.Options{Recipient: cfg.QuoteRecipient, Logger: logger}),
		engine:         cfg.MockupEngine,
		requestTimeout: cfg.RequestTimeout,
		logger:         logger,
	}

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           s.routes(staticSub),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("web started", "addr", cfg.WebAddr, "engine", cfg.MockupEngine)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
}
