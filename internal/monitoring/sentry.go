package monitoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/jomessina-code/EVS14/internal/domain"
)

const flushTimeout = 2 * time.Second

type Options struct {
	DSN         string
	Environment string
	Release     string
	Debug       bool
}

// Init configures the global Sentry client. Without a DSN it does nothing and
// every report below becomes a no-op.
func Init(opts Options) (flush func(), err error) {
	if strings.TrimSpace(opts.DSN) == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
		Debug:            opts.Debug,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			if event.Request != nil {
				delete(event.Request.Headers, "Authorization")
				delete(event.Request.Headers, "X-Goog-Api-Key")
			}
			return event
		},
	}); err != nil {
		return func() {}, fmt.Errorf("sentry init: %w", err)
	}
	return func() { sentry.Flush(flushTimeout) }, nil
}

func hub(ctx context.Context) *sentry.Hub {
	if h := sentry.GetHubFromContext(ctx); h != nil {
		return h
	}
	return sentry.CurrentHub()
}

// Report sends unexpected failures to Sentry and leaves a breadcrumb for
// handled ones.
func Report(ctx context.Context, op string, err error) {
	if err == nil {
		return
	}
	h := hub(ctx)
	if h.Client() == nil {
		return
	}
	if !Unexpected(err) {
		h.AddBreadcrumb(&sentry.Breadcrumb{
			Category: "generation",
			Message:  op + ": " + err.Error(),
			Level:    sentry.LevelInfo,
			Data:     map[string]interface{}{"kind": string(domain.KindOf(err))},
		}, nil)
		return
	}
	h.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("op", op)
		scope.SetTag("kind", string(domain.KindOf(err)))
		h.CaptureException(err)
	})
}

// Unexpected reports whether err deserves an error event rather than a
// breadcrumb.
func Unexpected(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch domain.KindOf(err) {
	case domain.KindNetworkOrUnknown, domain.KindMalformedResponse:
		return true
	}
	return false
}

// RecordRequest records one API request as a span.
func RecordRequest(ctx context.Context, route string, status int, duration time.Duration) {
	if hub(ctx).Client() == nil {
		return
	}
	span := sentry.StartSpan(ctx, "api.request")
	defer span.Finish()

	span.Description = route
	span.SetTag("route", route)
	span.SetTag("status_code", fmt.Sprintf("%d", status))
	span.SetData("duration_ms", duration.Milliseconds())
	if status < 500 {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}
}
