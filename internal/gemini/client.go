package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/jomessina-code/EVS14/internal/domain"
)

const (
	DefaultImageModel  = "gemini-2.5-flash-image"
	DefaultVisionModel = "gemini-2.5-pro"
	DefaultTextModel   = "gemini-2.5-flash"
)

type Models struct {
	Image  string
	Vision string
	Text   string
}

type Options struct {
	APIKey        string
	Models        Models
	HTTPClient    *http.Client
	RateInterval  time.Duration
	RateBurst     int
	StyleCacheTTL time.Duration
	Logger        *slog.Logger
}

// contentGenerator is the subset of *genai.Models the client uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	mu         sync.RWMutex
	gen        contentGenerator
	models     Models
	httpClient *http.Client
	limiter    *rate.Limiter
	styles     *cache.Cache
	inflight   singleflight.Group
	logger     *slog.Logger
}

// New builds a client. An empty API key is allowed: every call then fails
// with an AuthInvalid error until SetAPIKey succeeds.
func New(ctx context.Context, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	models := opts.Models
	if strings.TrimSpace(models.Image) == "" {
		models.Image = DefaultImageModel
	}
	if strings.TrimSpace(models.Vision) == "" {
		models.Vision = DefaultVisionModel
	}
	if strings.TrimSpace(models.Text) == "" {
		models.Text = DefaultTextModel
	}

	interval := opts.RateInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	burst := opts.RateBurst
	if burst <= 0 {
		burst = 2
	}
	ttl := opts.StyleCacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	c := &Client{
		models:     models,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Every(interval), burst),
		styles:     cache.New(ttl, 2*ttl),
		logger:     logger,
	}
	if strings.TrimSpace(opts.APIKey) != "" {
		if err := c.SetAPIKey(ctx, opts.APIKey); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func newWithGenerator(gen contentGenerator, opts Options) *Client {
	c, _ := New(context.Background(), Options{
		Models:        opts.Models,
		RateInterval:  time.Nanosecond,
		RateBurst:     1000,
		StyleCacheTTL: opts.StyleCacheTTL,
		Logger:        opts.Logger,
	})
	c.gen = gen
	return c
}

// SetAPIKey rebuilds the underlying genai client with new credentials.
func (c *Client) SetAPIKey(ctx context.Context, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return domain.NewError(domain.KindAuthInvalid, "set api key", errors.New("api key is empty"))
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	})
	if err != nil {
		return fmt.Errorf("create genai client: %w", err)
	}

	c.mu.Lock()
	c.gen = gc.Models
	c.mu.Unlock()
	c.styles.Flush()
	c.logger.Info("gemini credentials updated")
	return nil
}

func (c *Client) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen != nil
}

func (c *Client) generator() contentGenerator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// generate performs one paced request. imageConfig is dropped and the
// request resent once when the model rejects the field.
func (c *Client) generate(ctx context.Context, op, model string, parts []*genai.Part, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	gen := c.generator()
	if gen == nil {
		return nil, domain.NewError(domain.KindAuthInvalid, op, errors.New("no api key configured"))
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domain.NewError(domain.KindNetworkOrUnknown, op, err)
	}

	span := sentry.StartSpan(ctx, "gemini."+strings.ReplaceAll(op, " ", "_"))
	span.SetTag("model", model)
	defer span.Finish()

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	start := time.Now()
	resp, err := gen.GenerateContent(ctx, model, contents, config)
	if err != nil && config != nil && config.ImageConfig != nil && isUnknownFieldError(err, "imageConfig") {
		retry := *config
		retry.ImageConfig = nil
		resp, err = gen.GenerateContent(ctx, model, contents, &retry)
	}
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		c.logger.Warn("gemini request failed", "op", op, "model", model, "duration", time.Since(start), "err", err)
		return nil, classify(op, err)
	}

	span.Status = sentry.SpanStatusOK
	c.logger.Debug("gemini request done", "op", op, "model", model, "duration", time.Since(start))
	return resp, nil
}

func imagePart(img domain.Image) *genai.Part {
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = domain.DefaultMIMEType
	}
	return genai.NewPartFromBytes(img.Data, mimeType)
}

func isUnknownFieldError(err error, field string) bool {
	message := err.Error()
	return strings.Contains(message, "Unknown name") && strings.Contains(message, field)
}
