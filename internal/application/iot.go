package application

import (
	"context"
	"time"
)

// Transmitter sends an on/off command for a switch over the air.
type Transmitter interface {
	Switch(ctx context.Context, id uint8, on bool) error
}

type NopTransmitter struct{}

func (NopTransmitter) Switch(_ context.Context, _ uint8, _ bool) error {
	return nil
}

// Clock supplies the already-resolved local time of day.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
