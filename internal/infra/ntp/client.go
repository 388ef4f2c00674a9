// Package ntp keeps local wall-clock time from an SNTP server.
package ntp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	sntp "github.com/beevik/ntp"

	"smart-switch/internal/infra"
)

type Config struct {
	Server       string
	SyncInterval time.Duration
	// Timezone is the offset from UTC in hours.
	Timezone   int
	Summertime bool
	Timeout    time.Duration
	// LocalAddress binds the query socket, empty for any.
	LocalAddress string
}

// Client serves the last synced time advanced by the monotonic clock. Until
// the first sync it falls back to the system clock.
type Client struct {
	cfg    Config
	logger *slog.Logger
	retry  infra.RetryConfig

	mu       sync.RWMutex
	synced   time.Time
	syncedAt time.Time

	now func() time.Time
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	return &Client{
		cfg:    cfg,
		logger: logger,
		retry:  infra.DefaultRetryConfig(),
		now:    time.Now,
	}
}

func (c *Client) Location() *time.Location {
	offset := c.cfg.Timezone
	if c.cfg.Summertime {
		offset++
	}
	return time.FixedZone(fmt.Sprintf("UTC%+d", offset), offset*3600)
}

// Now returns the current local time.
func (c *Client) Now() time.Time {
	c.mu.RLock()
	synced, syncedAt := c.synced, c.syncedAt
	c.mu.RUnlock()

	local := c.now()
	if !synced.IsZero() {
		local = synced.Add(local.Sub(syncedAt))
	}
	return local.In(c.Location())
}

func (c *Client) Hour() int   { return c.Now().Hour() }
func (c *Client) Minute() int { return c.Now().Minute() }
func (c *Client) Second() int { return c.Now().Second() }

// Synced reports whether at least one sync succeeded.
func (c *Client) Synced() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.synced.IsZero()
}

func (c *Client) Sync(ctx context.Context) error {
	var t time.Time
	err := infra.WithRetry(ctx, c.retry, func() error {
		var err error
		t, err = c.query(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("syncing time from %s: %w", c.cfg.Server, err)
	}

	c.mu.Lock()
	c.synced = t
	c.syncedAt = c.now()
	c.mu.Unlock()

	c.logger.Debug("time synced", "server", c.cfg.Server, "time", t.In(c.Location()))
	return nil
}

// StartPeriodicSync syncs now and then every SyncInterval until ctx is done.
func (c *Client) StartPeriodicSync(ctx context.Context) {
	go func() {
		if err := c.Sync(ctx); err != nil {
			c.logger.Warn("initial time sync failed, using system clock", "error", err)
		}

		ticker := time.NewTicker(c.cfg.SyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.Sync(ctx); err != nil {
					c.logger.Warn("periodic time sync failed", "error", err)
				}
			}
		}
	}()
}

func (c *Client) query(ctx context.Context) (time.Time, error) {
	timeout := c.cfg.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return time.Time{}, context.DeadlineExceeded
	}

	resp, err := sntp.QueryWithOptions(c.cfg.Server, sntp.QueryOptions{
		Timeout:      timeout,
		LocalAddress: c.cfg.LocalAddress,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("querying: %w", err)
	}
	if err := resp.Validate(); err != nil {
		return time.Time{}, infra.Permanent(fmt.Errorf("invalid response: %w", err))
	}
	// server time at the moment the reply arrived
	return resp.Time.Add(resp.RTT / 2).UTC(), nil
}
