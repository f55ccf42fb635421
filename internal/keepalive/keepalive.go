// Package keepalive periodically pings a URL so that hosts which idle
// inactive instances keep this one warm.
package keepalive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
)

// Pinger schedules GET requests to a URL
type Pinger struct {
	url     string
	client  *http.Client
	cron    *cron.Cron
	timeout time.Duration
}

// New creates a Pinger that fires every interval
func New(url string, interval time.Duration, client *http.Client) (*Pinger, error) {
	if url == "" {
		return nil, errors.New("keepalive URL is required")
	}
	if interval <= 0 {
		return nil, errors.New("keepalive interval must be positive")
	}
	if client == nil {
		client = http.DefaultClient
	}

	p := &Pinger{
		url:     url,
		client:  client,
		cron:    cron.New(),
		timeout: 30 * time.Second,
	}

	spec := fmt.Sprintf("@every %s", interval)
	if _, err := p.cron.AddFunc(spec, func() { p.Ping(context.Background()) }); err != nil {
		return nil, fmt.Errorf("failed to schedule keepalive: %w", err)
	}
	return p, nil
}

// Start begins the schedule in the background
func (p *Pinger) Start() {
	slog.Info("Keepalive started", "url", p.url)
	p.cron.Start()
}

// Stop halts the schedule and waits for a running ping to finish
func (p *Pinger) Stop() {
	<-p.cron.Stop().Done()
}

// Ping sends one request. Failures are logged and reported.
func (p *Pinger) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		slog.Warn("Keepalive ping failed", "url", p.url, "err", err)
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Warn("Keepalive ping failed", "url", p.url, "err", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		slog.Warn("Keepalive ping failed", "url", p.url, "err", err)
		return err
	}

	slog.Debug("Keepalive ping sent", "url", p.url, "status", resp.StatusCode)
	return nil
}
