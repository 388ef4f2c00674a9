package rf

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Config struct {
	PulseLength time.Duration
	Repeat      int
	Device      int
	Group       bool
}

func DefaultConfig() Config {
	return Config{
		PulseLength: 270 * time.Microsecond,
		Repeat:      6,
	}
}

// Transmitter sends protocol 1 frames. The switch id is the controller code.
type Transmitter struct {
	pin    Pin
	cfg    Config
	logger *slog.Logger
	sleep  func(time.Duration)

	mu sync.Mutex
}

func NewTransmitter(pin Pin, cfg Config, logger *slog.Logger) *Transmitter {
	return &Transmitter{
		pin:    pin,
		cfg:    cfg,
		logger: logger,
		sleep:  time.Sleep,
	}
}

func (t *Transmitter) Switch(ctx context.Context, id uint8, on bool) error {
	code := Code{Controller: int(id), Group: t.cfg.Group, On: on, Device: t.cfg.Device}
	frame, err := code.Frame()
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.logger.Debug("transmitting", "id", id, "on", on, "repeat", t.cfg.Repeat)
	for i := 0; i < t.cfg.Repeat; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, p := range frame {
			if err := t.pulse(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Transmitter) pulse(p Pulse) error {
	if err := t.pin.Set(true); err != nil {
		return fmt.Errorf("pulse high: %w", err)
	}
	t.sleep(time.Duration(p.High) * t.cfg.PulseLength)
	if err := t.pin.Set(false); err != nil {
		return fmt.Errorf("pulse low: %w", err)
	}
	t.sleep(time.Duration(p.Low) * t.cfg.PulseLength)
	return nil
}
