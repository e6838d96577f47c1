package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vidshare/client/internal/logging"
)

// LoggingTransport decorates outbound requests with structured logging
// metadata.
type LoggingTransport struct {
	base http.RoundTripper
}

// NewLoggingTransport wraps the provided round tripper, falling back to the
// default transport when nil.
func NewLoggingTransport(base http.RoundTripper) *LoggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &LoggingTransport{base: base}
}

// RoundTrip executes the request and emits one completion entry per call.
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	requestID := uuid.NewString()

	reqLogger := logging.FromContext(req.Context()).With(
		slog.String("request_id", requestID),
		slog.String("method", req.Method),
		slog.String("url", req.URL.Redacted()),
	)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		reqLogger.Warn("request failed", "error", err, slog.Duration("duration", time.Since(start)))
		return nil, err
	}

	reqLogger.Info("request completed",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)
	return resp, nil
}
