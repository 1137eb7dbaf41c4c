// Package telemetry wraps sentry-go for error reporting and request tracing.
package telemetry

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/jlcilliers/cvchat/internal/domain"
)

const (
	serverName   = "cvchatd"
	flushTimeout = 5 * time.Second
)

// Config holds the Sentry settings read from the environment.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init starts the Sentry client and returns a flush function for shutdown.
// Without a DSN, telemetry is disabled and the flush function does nothing.
// A Sentry failure is logged and never stops the server.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate <= 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		ServerName:       serverName,
		Debug:            cfg.Debug,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		TracesSampler:    sampler(cfg.TracesSampleRate),
		BeforeSend:       dropCallerErrors,
	})
	if err != nil {
		log.Printf("telemetry: sentry disabled: %v", err)
		return func() {}, nil
	}

	log.Printf("telemetry: sentry enabled (environment %s, traces %.2f)", cfg.Environment, cfg.TracesSampleRate)
	return func() { sentry.Flush(flushTimeout) }, nil
}

func sampler(rate float64) sentry.TracesSampler {
	return func(ctx sentry.SamplingContext) float64 {
		if ctx.Span.Name == "GET /health" {
			return 0
		}
		var root sentry.SpanID
		if ctx.Span.ParentSpanID != root {
			if ctx.Span.Sampled.Bool() {
				return 1
			}
			return 0
		}
		return rate
	}
}

// dropCallerErrors discards events whose error the caller caused.
func dropCallerErrors(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint == nil || hint.OriginalException == nil {
		return event
	}
	if isCallerError(hint.OriginalException) {
		return nil
	}
	return event
}

func isCallerError(err error) bool {
	switch domain.CodeOf(err) {
	case domain.ErrCodeValidation, domain.ErrCodeUnauthorized, domain.ErrCodeNotFound:
		return true
	}
	return false
}

// SpanAttributes are the retrieval details recorded on a span.
type SpanAttributes struct {
	Mode      string
	Operation string
	TopK      int
	Chunks    int
}

func (a SpanAttributes) apply(span *sentry.Span) {
	if a.Mode != "" {
		span.SetTag("retrieval_mode", a.Mode)
	}
	if a.TopK > 0 {
		span.SetTag("top_k", strconv.Itoa(a.TopK))
	}
	if a.Operation != "" {
		span.SetData("operation", a.Operation)
	}
	if a.Chunks > 0 {
		span.SetData("chunks", a.Chunks)
	}
}

// Span is a nil-safe handle on a Sentry span.
type Span struct {
	inner *sentry.Span
}

// StartSpan opens a child of the span in ctx, or a new transaction named
// name when ctx carries none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}
	attrs.apply(span)
	return span.Context(), &Span{inner: span}
}

func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetData records a value learned after the span started.
func (s *Span) SetData(name string, value any) {
	if s.inner != nil {
		s.inner.SetData(name, value)
	}
}

// SetError marks the span failed and reports err. Errors caused by the
// caller only mark the span as an invalid argument.
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	if isCallerError(err) {
		s.inner.Status = sentry.SpanStatusInvalidArgument
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	s.inner.SetTag("error_code", codeOrInternal(err))
	CaptureError(s.inner.Context(), err)
}

// CaptureError reports err, tagged with its domain error code, on the hub
// bound to ctx.
func CaptureError(ctx context.Context, err error) {
	if err == nil || isCallerError(err) {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_code", codeOrInternal(err))
		var de *domain.DomainError
		if errors.As(err, &de) {
			scope.SetExtra("error_message", de.Message)
		}
		hub.CaptureException(err)
	})
}

// AddBreadcrumb records an informational step on the hub bound to ctx.
func AddBreadcrumb(ctx context.Context, category, message string) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.AddBreadcrumb(&sentry.Breadcrumb{
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}, nil)
}

func codeOrInternal(err error) string {
	if code := domain.CodeOf(err); code != "" {
		return code
	}
	return domain.ErrCodeInternalError
}
