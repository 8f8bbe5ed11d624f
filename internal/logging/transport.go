package logging

import (
	"log/slog"
	"net/http"
	"time"
)

// Transport is an http.RoundTripper that logs every outgoing request.
type Transport struct {
	// Base performs the request. http.DefaultTransport when nil.
	Base http.RoundTripper
}

// RoundTrip sends the request and logs method, path, status and duration.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		slog.Log(req.Context(), slog.LevelError, "request",
			"method", req.Method,
			"host", req.URL.Host,
			"path", req.URL.Path,
			"duration", duration.String(),
			"error", err,
		)
		return nil, err
	}

	level := slog.LevelDebug
	if resp.StatusCode >= 500 {
		level = slog.LevelError
	} else if resp.StatusCode >= 400 {
		level = slog.LevelWarn
	}

	slog.Log(req.Context(), level, "request",
		"method", req.Method,
		"host", req.URL.Host,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", duration.String(),
	)
	return resp, nil
}
