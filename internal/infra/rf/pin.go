package rf

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Pin is a digital output.
type Pin interface {
	Set(high bool) error
}

type NopPin struct{}

func (NopPin) Set(bool) error { return nil }

// ChipPin drives one line of a GPIO character device.
type ChipPin struct {
	line *gpiocdev.Line
}

// OpenChipPin requests offset on chip (e.g. "gpiochip0") as an output driven
// low.
func OpenChipPin(chip string, offset int) (*ChipPin, error) {
	l, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer("switchd"))
	if err != nil {
		return nil, fmt.Errorf("requesting %s line %d: %w", chip, offset, err)
	}
	return &ChipPin{line: l}, nil
}

func (p *ChipPin) Set(high bool) error {
	v := 0
	if high {
		v = 1
	}
	if err := p.line.SetValue(v); err != nil {
		return fmt.Errorf("writing gpio: %w", err)
	}
	return nil
}

// Close drives the line low and releases it.
func (p *ChipPin) Close() error {
	_ = p.line.SetValue(0)
	return p.line.Close()
}
