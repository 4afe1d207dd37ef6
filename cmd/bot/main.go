package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jomessina-code/EVS14/internal/app"
	"github.com/jomessina-code/EVS14/internal/config"
	"github.com/jomessina-code/EVS14/internal/debounce"
	"github.com/jomessina-code/EVS14/internal/domain"
	"github.com/jomessina-code/EVS14/internal/handlers"
	"github.com/jomessina-code/EVS14/internal/monitoring"
	"github.com/jomessina-code/EVS14/internal/telegram"
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

	logger := app.NewLogger(cfg.LogLevel)

	flush, err := monitoring.Init(monitoring.Options{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     "evs14-bot",
		Debug:       cfg.Debug,
	})
	if err != nil {
		logger.Warn("sentry init failed", "err", err)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// handler is assigned before the first update is read, progress only
	// flows from runs it starts.
	var handler *handlers.Handler
	stack, err := app.New(ctx, app.Options{
		Config: cfg,
		Logger: logger,
		OnProgress: func(id string, p domain.Progress) {
			handler.RelayProgress(id, p)
		},
	})
	if err != nil {
		logger.Error("init failed", "err", err)
		os.Exit(1)
	}
	defer stack.Close()

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: stack.HTTPClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	handler = handlers.New(handlers.Options{
		Telegram:       tg,
		Pipeline:       stack.Pipeline,
		Adapter:        stack.Adapter,
		Sessions:       stack.Sessions,
		ExportEncoding: stack.Encoding,
		Logger:         logger,
	})

	sem := make(chan struct{}, cfg.MaxConcurrent)
	onAlbumFlush := func(key string, photos []handlers.AlbumPhoto) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		go func() {
			defer func() { <-sem }()

			reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()

			handler.HandleAlbum(reqCtx, key, photos)
		}()
	}

	handler.SetAlbumAggregator(debounce.New(debounce.Options[handlers.AlbumPhoto]{
		Delay:   cfg.MediaGroupDebounce,
		OnFlush: onAlbumFlush,
	}))

	logger.Info("bot started", "username", tg.Username(), "credentials_ready", stack.Gemini.Ready())

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
					monitoring.Report(reqCtx, "handle update", err)
				}
			}(update)
		}
	}
}
