// Package trace tags outgoing backend calls with a request ID and logs
// their outcome.
package trace

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"exptrack/internal/log"
)

// Header carries the request ID to the backend.
const Header = "X-Request-ID"

type contextKey struct{}

// NewRequestID returns a fresh random request ID.
func NewRequestID() string {
	return uuid.NewString()
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// RequestID extracts the request ID from ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// Ensure returns ctx carrying a request ID, generating one when absent.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := RequestID(ctx); id != "" {
		return ctx, id
	}
	id := NewRequestID()
	return WithRequestID(ctx, id), id
}

// Metrics is a snapshot of the transport counters.
type Metrics struct {
	TotalRequests  int64
	FailedRequests int64
	// AverageResponseTime is in microseconds.
	AverageResponseTime int64
}

// Transport is an http.RoundTripper that sets the request ID header and
// logs each exchange at a level matching its status.
type Transport struct {
	base   http.RoundTripper
	logger *log.Logger

	total       int64
	failed      int64
	totalMicros int64
}

func NewTransport(base http.RoundTripper, logger *log.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Transport{base: base, logger: logger}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	id := req.Header.Get(Header)
	if id == "" {
		ctx, id = Ensure(ctx)
		req = req.Clone(ctx)
		req.Header.Set(Header, id)
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	elapsed := time.Since(start)

	atomic.AddInt64(&t.total, 1)
	atomic.AddInt64(&t.totalMicros, elapsed.Microseconds())

	fields := log.NewFields().
		WithRequestID(id).
		WithRequest(req.Method, req.URL.Path)
	if err != nil {
		atomic.AddInt64(&t.failed, 1)
		t.logger.WarnContext(ctx, "Request failed", fields.WithError(err).ToSlice()...)
		return nil, err
	}

	level := slog.LevelDebug
	switch {
	case resp.StatusCode >= 500:
		atomic.AddInt64(&t.failed, 1)
		level = slog.LevelError
	case resp.StatusCode >= 400:
		level = slog.LevelWarn
	}
	t.logger.Log(ctx, level, "Request completed",
		fields.WithResponse(resp.StatusCode, elapsed.Milliseconds()).ToSlice()...)
	return resp, nil
}

func (t *Transport) Metrics() Metrics {
	m := Metrics{
		TotalRequests:  atomic.LoadInt64(&t.total),
		FailedRequests: atomic.LoadInt64(&t.failed),
	}
	if m.TotalRequests > 0 {
		m.AverageResponseTime = atomic.LoadInt64(&t.totalMicros) / m.TotalRequests
	}
	return m
}
