// Package keepalive implements the self-ping worker: on free-tier hosts an
// idle process gets suspended, so a ticker periodically GETs the service's
// own public URL to keep it warm. Grounded on the teacher's
// config.StartRankingConfigWatcher ticker/context-cancellation shape and
// services/apple_music_service.go's resty.Client usage.
package keepalive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	minInterval = 60 * time.Second
	minTimeout  = 1 * time.Second
)

// Worker pings URL every Interval, bounded by Timeout per request.
type Worker struct {
	URL      string
	Interval time.Duration
	Timeout  time.Duration

	client *resty.Client
}

// New builds a Worker from millisecond durations as they arrive from the
// environment. intervalMs/timeoutMs are not yet validated; call Validate
// before Run.
func New(url string, intervalMs, timeoutMs int) *Worker {
	return &Worker{
		URL:      url,
		Interval: time.Duration(intervalMs) * time.Millisecond,
		Timeout:  time.Duration(timeoutMs) * time.Millisecond,
		client:   resty.New(),
	}
}

// Validate enforces the documented floors: URL non-empty, interval at
// least a minute, timeout at least a second.
func (w *Worker) Validate() error {
	if w.URL == "" {
		return fmt.Errorf("keepalive: KEEPALIVE_URL is required")
	}
	if w.Interval < minInterval {
		return fmt.Errorf("keepalive: interval %s below floor %s", w.Interval, minInterval)
	}
	if w.Timeout < minTimeout {
		return fmt.Errorf("keepalive: timeout %s below floor %s", w.Timeout, minTimeout)
	}
	return nil
}

// Run blocks, pinging URL every Interval until ctx is cancelled. Ping
// failures are logged and swallowed; a down self-ping target is not fatal.
func (w *Worker) Run(ctx context.Context) {
	w.client.SetTimeout(w.Timeout)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	slog.Info("keepalive: started", "url", w.URL, "interval", w.Interval, "timeout", w.Timeout)
	for {
		select {
		case <-ctx.Done():
			slog.Info("keepalive: stopped")
			return
		case <-ticker.C:
			w.ping(ctx)
		}
	}
}

func (w *Worker) ping(ctx context.Context) {
	resp, err := w.client.R().SetContext(ctx).Get(w.URL)
	if err != nil {
		slog.Warn("keepalive: ping failed", "url", w.URL, "error", err)
		return
	}
	if resp.IsError() {
		slog.Warn("keepalive: ping returned error status", "url", w.URL, "status", resp.StatusCode())
		return
	}
	slog.Debug("keepalive: ping ok", "url", w.URL, "status", resp.StatusCode())
}
