// Package app wires the generation stack shared by the bot and the web server.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jomessina-code/EVS14/internal/adapt"
	"github.com/jomessina-code/EVS14/internal/config"
	"github.com/jomessina-code/EVS14/internal/domain"
	"github.com/jomessina-code/EVS14/internal/gemini"
	"github.com/jomessina-code/EVS14/internal/httpclient"
	"github.com/jomessina-code/EVS14/internal/imaging"
	"github.com/jomessina-code/EVS14/internal/pipeline"
	"github.com/jomessina-code/EVS14/internal/preset"
	"github.com/jomessina-code/EVS14/internal/session"
	"github.com/jomessina-code/EVS14/internal/storage"
)

const (
	presetsKey    = "presets"
	historyPrefix = "history:"
	saveTimeout   = 10 * time.Second
)

type Options struct {
	Config     config.Config
	Logger     *slog.Logger
	OnProgress func(sessionID string, p domain.Progress)
}

type App struct {
	HTTPClient *http.Client
	Gemini     *gemini.Client
	Pipeline   *pipeline.Orchestrator
	Adapter    *adapt.Manager
	Sessions   *session.Store
	Encoding   imaging.Encoding

	backend storage.Backend
}

func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	gem, err := gemini.New(ctx, gemini.Options{
		APIKey: cfg.GeminiAPIKey,
		Models: gemini.Models{
			Image:  cfg.GeminiImageModel,
			Vision: cfg.GeminiVisionModel,
			Text:   cfg.GeminiTextModel,
		},
		HTTPClient:    httpClient,
		RateInterval:  cfg.GeminiRateEvery,
		RateBurst:     cfg.GeminiRateBurst,
		StyleCacheTTL: cfg.StyleCacheTTL,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	if !gem.Ready() {
		logger.Warn("GEMINI_API_KEY is empty, generation stays locked until a key is selected")
	}

	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage init: %w", err)
	}

	presets := storage.NewCollection[domain.UniversePreset](backend, presetsKey, cfg.MaxCustomPresets, logger)
	catalog := preset.New(presets.Load(ctx), preset.Options{
		MaxCustom: cfg.MaxCustomPresets,
		Logger:    logger,
		OnChange: func(custom []domain.UniversePreset) {
			saveCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			defer cancel()
			if err := presets.Save(saveCtx, custom); err != nil {
				logger.Error("presets save failed", "err", err)
			}
		},
	})

	history := func(id string) *storage.Collection[domain.HistoryEntry] {
		return storage.NewCollection[domain.HistoryEntry](backend, historyPrefix+id, cfg.MaxHistory, logger)
	}
	sessions := session.NewStore(session.Options{
		MaxHistory: cfg.MaxHistory,
		LoadHistory: func(id string) []domain.HistoryEntry {
			loadCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			defer cancel()
			return history(id).Load(loadCtx)
		},
		SaveHistory: func(id string, entries []domain.HistoryEntry) {
			saveCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			defer cancel()
			if err := history(id).Save(saveCtx, entries); err != nil {
				logger.Error("history save failed", "session_id", id, "err", err)
			}
		},
		OnProgress: opts.OnProgress,
	})

	pipe := pipeline.New(gem, pipeline.Options{
		Catalog:     catalog,
		Credentials: pipeline.NewCredentials(gem.Ready()),
		Keys:        gem,
		Logger:      logger,
	})

	return &App{
		HTTPClient: httpClient,
		Gemini:     gem,
		Pipeline:   pipe,
		Adapter:    adapt.New(gem, adapt.Options{Parallelism: cfg.AdaptationParallelism, Logger: logger}),
		Sessions:   sessions,
		Encoding:   imaging.ParseEncoding(cfg.ExportEncoding),
		backend:    backend,
	}, nil
}

func (a *App) Close() error {
	return a.backend.Close()
}

// OpenBackend opens the configured storage backend.
func OpenBackend(ctx context.Context, cfg config.Config) (storage.Backend, error) {
	if cfg.StorageBackend == config.StorageRedis {
		rb, err := storage.NewRedisBackend(ctx, storage.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, err
		}
		return rb, nil
	}

	fb, err := storage.NewFileBackend(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return fb, nil
}

func NewLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	}))
}
