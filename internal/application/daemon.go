package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type Daemon struct {
	service  *Service
	sources  []CommandSource
	interval time.Duration
	logger   *slog.Logger
}

func NewDaemon(service *Service, interval time.Duration, logger *slog.Logger, sources ...CommandSource) *Daemon {
	return &Daemon{
		service:  service,
		sources:  sources,
		interval: interval,
		logger:   logger,
	}
}

// Run loads the store, starts every command source and the scheduler, and
// blocks until ctx is done.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info("loading switches from store")
	if err := d.service.Load(); err != nil {
		return err
	}

	for _, src := range d.sources {
		d.logger.Info("starting command source", "source", src.Name())
		if err := src.Start(ctx); err != nil {
			d.stopSources()
			return fmt.Errorf("starting %s: %w", src.Name(), err)
		}
	}
	defer d.stopSources()

	if d.interval > 0 {
		d.service.StartScheduler(ctx, d.interval)
	}

	d.logger.Info("switch daemon ready", "switches", len(d.service.Switches()))

	<-ctx.Done()
	return ctx.Err()
}

func (d *Daemon) stopSources() {
	for _, src := range d.sources {
		if err := src.Stop(); err != nil {
			d.logger.Warn("stopping command source", "source", src.Name(), "error", err)
		}
	}
}
