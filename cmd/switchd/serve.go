package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"smart-switch/config"
	"smart-switch/internal/application"
	"smart-switch/internal/infra/homeassistant"
	"smart-switch/internal/infra/httpapi"
	"smart-switch/internal/infra/lineproto"
	"smart-switch/internal/infra/metrics"
	"smart-switch/internal/infra/mqtt"
	"smart-switch/internal/infra/ntp"
	"smart-switch/internal/infra/pushover"
	"smart-switch/internal/infra/rf"
)

func runServe(ctx context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache, closer, err := openCache(cfg.Store, false, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	tx, txCloser, err := newTransmitter(cfg, logger)
	if err != nil {
		return err
	}
	defer txCloser.Close()

	var clock application.Clock = application.SystemClock{}
	if cfg.NTP.Enabled {
		nc := ntp.NewClient(ntp.Config{
			Server:       cfg.NTP.Server,
			SyncInterval: cfg.NTPSyncInterval(),
			Timezone:     cfg.NTP.Timezone,
			Summertime:   *cfg.NTP.Summertime,
			LocalAddress: cfg.NTP.LocalAddress,
		}, logger)
		nc.StartPeriodicSync(ctx)
		clock = nc
	}

	var appMetrics application.Metrics = application.NopMetrics{}
	var prom *metrics.Prom
	if cfg.Metrics.Enabled {
		prom, err = metrics.NewProm(prometheus.DefaultRegisterer)
		if err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}
		appMetrics = prom
	}

	// the MQTT bridge needs the service as its command handler, so the
	// notifier set is filled in after the service exists
	notifiers := application.MultiNotifier{}
	service := application.NewService(cache, tx, &notifiers, appMetrics, clock, logger)

	sources := networkSources(cfg, service, prom, logger)
	if cfg.MQTT.Enabled {
		bridge, err := mqtt.Connect(mqtt.Options{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         cfg.MQTT.QoS,
		}, service, logger)
		if err != nil {
			return err
		}
		notifiers = append(notifiers, bridge)
		sources = append(sources, bridge)
	}
	if cfg.Pushover.Enabled {
		notifiers = append(notifiers, pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey))
	}
	if cfg.HomeAssistant.Enabled {
		ha := homeassistant.NewClient(cfg.HomeAssistant.URL, cfg.HomeAssistant.Token)
		if err := ha.Ping(ctx); err != nil {
			logger.Warn("home assistant unreachable, mirroring anyway", "error", err)
		}
		notifiers = append(notifiers, ha)
	}

	logger.Info("starting switch controller",
		"store", cfg.Store.Backend,
		"max_switches", cfg.Store.MaxSwitches,
		"rf", cfg.RF.Enabled,
		"ntp", cfg.NTP.Enabled,
		"notifiers", len(notifiers),
	)

	daemon := application.NewDaemon(service, cfg.ScheduleInterval(), logger, sources...)
	if err := daemon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("controller stopped", "error", err)
		return err
	}
	logger.Info("shutting down")
	return nil
}

// networkSources builds the TCP and HTTP command sources. An empty address
// leaves a transport out.
func networkSources(cfg *config.Config, service *application.Service, prom *metrics.Prom, logger *slog.Logger) []application.CommandSource {
	var sources []application.CommandSource
	if addr := cfg.ListenerAddr(); addr != "" {
		sources = append(sources, lineproto.NewServer(addr, service, logger))
	} else {
		logger.Info("tcp listener disabled")
	}
	if addr := cfg.HTTPAddr(); addr != "" {
		opts := httpapi.Options{
			Addr:      addr,
			AuthToken: cfg.HTTP.AuthToken,
			RateLimit: cfg.HTTP.RateLimit,
		}
		if prom != nil {
			opts.Metrics = prom.Handler()
		}
		sources = append(sources, httpapi.NewServer(opts, service, logger))
	} else {
		logger.Info("http api disabled")
	}
	return sources
}

func newTransmitter(cfg *config.Config, logger *slog.Logger) (application.Transmitter, io.Closer, error) {
	if !cfg.RF.Enabled {
		logger.Warn("rf disabled, switch commands are not transmitted")
		return application.NopTransmitter{}, nopCloser{}, nil
	}
	pin, err := rf.OpenChipPin(cfg.RF.Chip, cfg.RF.Line)
	if err != nil {
		return nil, nil, err
	}
	return rf.NewTransmitter(pin, rf.Config{
		PulseLength: cfg.PulseLength(),
		Repeat:      cfg.RF.Repeat,
		Device:      cfg.RF.Device,
		Group:       cfg.RF.Group,
	}, logger), pin, nil
}
