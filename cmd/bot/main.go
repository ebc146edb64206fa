package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"classic-jersey-studio/internal/app"
	"classic-jersey-studio/internal/config"
	"classic-jersey-studio/internal/handlers"
	"classic-jersey-studio/internal/mediagroup"
	"classic-jersey-studio/internal/quote"
	"classic-jersey-studio/internal/session"
	"classic-jersey-studio/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.RequireTelegram(); err != nil {
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

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: components.HTTPClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	sessions := session.NewStore(session.Options{
		Catalog: components.Catalog,
		TTL:     cfg.SessionTTL,
	})
	go sessions.Run(ctx)

	var sharer quote.Sharer
	if cfg.QuoteChatID != 0 {
		sharer = telegram.NewSharer(tg, cfg.QuoteChatID)
	}

	handler := handlers.New(handlers.Options{
		Telegram: tg,
		Sessions: sessions,
		Mockups:  components.Mockups,
		Tint:     components.Tint,
		Quotes: quote.New(quote.Options{
			Recipient: cfg.QuoteRecipient,
			Sharer:    sharer,
			Logger:    logger,
		}),
		Logger: logger,
	})

	if err := tg.SetCommands(handlers.Commands); err != nil {
		logger.Warn("set commands failed", "err", err)
	}

	sem := make(chan struct{}, cfg.MaxConcurrent)
	onAlbumFlush := func(album mediagroup.Album) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		go func() {
			defer func() { <-sem }()

			reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()

			handler.HandleMediaGroup(reqCtx, album)
		}()
	}

	albums := mediagroup.New(mediagroup.Options{
		Debounce: cfg.MediaGroupDebounce,
		OnFlush:  onAlbumFlush,
	})
	defer albums.Stop()
	handler.SetMediaGroupAggregator(albums)

	logger.Info("bot started", "username", tg.Username(), "quote_chat", cfg.QuoteChatID != 0)

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			go func(update telegram.Update) {
				defer func() { <-sem }()

				reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
			}(update)
		}
	}
}
