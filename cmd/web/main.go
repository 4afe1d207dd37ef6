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

	"github.com/jomessina-code/EVS14/internal/api"
	"github.com/jomessina-code/EVS14/internal/app"
	"github.com/jomessina-code/EVS14/internal/config"
	"github.com/jomessina-code/EVS14/internal/monitoring"
)

const (
	shutdownTimeout = 15 * time.Second
	sessionIdle     = 6 * time.Hour
	pruneEvery      = 10 * time.Minute
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := app.NewLogger(cfg.LogLevel)

	flush, err := monitoring.Init(monitoring.Options{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     "evs14-web",
		Debug:       cfg.Debug,
	})
	if err != nil {
		logger.Warn("sentry init failed", "err", err)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := api.NewHub(logger)
	stack, err := app.New(ctx, app.Options{
		Config:     cfg,
		Logger:     logger,
		OnProgress: hub.Publish,
	})
	if err != nil {
		logger.Error("init failed", "err", err)
		os.Exit(1)
	}
	defer stack.Close()

	srv := api.New(api.Options{
		Pipeline:       stack.Pipeline,
		Adapter:        stack.Adapter,
		Sessions:       stack.Sessions,
		Hub:            hub,
		ExportEncoding: stack.Encoding,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})

	writeTimeout := 5 * time.Minute
	if cfg.RequestTimeout+time.Minute > writeTimeout {
		writeTimeout = cfg.RequestTimeout + time.Minute
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(pruneEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := stack.Sessions.Prune(now.Add(-sessionIdle)); n > 0 {
					logger.Info("idle sessions pruned", "count", n)
				}
			}
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown failed", "err", err)
		}
	}()

	logger.Info("web started", "addr", cfg.HTTPAddr, "credentials_ready", stack.Gemini.Ready())
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
	logger.Info("shutting down")
}
