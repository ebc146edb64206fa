package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"classic-jersey-studio/internal/catalog"
	"classic-jersey-studio/internal/config"
	"classic-jersey-studio/internal/gemini"
	"classic-jersey-studio/internal/httpclient"
	"classic-jersey-studio/internal/mockup"
	"classic-jersey-studio/internal/tint"
	"classic-jersey-studio/internal/wizard"
)

// Components are the pieces both front ends share.
type Components struct {
	Catalog    *catalog.Catalog
	HTTPClient *http.Client
	Templates  *httpclient.ImageFetcher
	// Mockups is nil when no Gemini key is configured.
	Mockups wizard.Generator
	Tint    *tint.Renderer
}

func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Components, error) {
	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		loaded, err := catalog.Load(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		cat = loaded
	}

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})
	templates := httpclient.NewImageFetcher(httpClient, logger)

	c := &Components{
		Catalog:    cat,
		HTTPClient: httpClient,
		Templates:  templates,
		Tint:       tint.New(tint.Options{Templates: templates, Logger: logger}),
	}

	if cfg.AIEnabled() {
		model, err := gemini.NewGenerator(ctx, cfg.GeminiBackend, gemini.Options{
			APIKey:     cfg.GeminiAPIKey,
			BaseURL:    cfg.GeminiBaseURL,
			APIVersion: cfg.GeminiAPIVersion,
			Model:      cfg.GeminiImageModel,
			HTTPClient: httpClient,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini init: %w", err)
		}
		c.Mockups = mockup.New(mockup.Options{Model: model, Templates: templates, Logger: logger})
	}

	logger.Info("components ready",
		"designs", len(cat.Designs()),
		"colors", len(cat.Colors()),
		"ai", c.Mockups != nil,
		"gemini_backend", cfg.GeminiBackend,
	)
	return c, nil
}

func NewLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.Debug {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
