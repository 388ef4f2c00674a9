// Package rf drives 433 MHz remote switches.
//
// Protocol 1 frame, 32 data bits:
//
//	bits  0-25  controller code, LSB first
//	bit   26    group flag
//	bit   27    on/off flag
//	bits 28-31  device code, LSB first
//
// Every data bit becomes two wire symbols: 0 is sent as "01", 1 as "10".
// A wire 0 is one pulse high and one low, a wire 1 one high and five low.
// Each frame starts with a sync of one high and ten low.
package rf

import (
	"errors"
	"fmt"
)

const (
	controllerBits = 26
	deviceBits     = 4
	FrameBits      = controllerBits + 2 + deviceBits

	MinController = 10
	MaxController = 255
	MaxDevice     = 4
)

var ErrInvalidCode = errors.New("invalid rf code")

// Pulse is one high phase followed by one low phase, in pulse units.
type Pulse struct {
	High int
	Low  int
}

var (
	syncPulse = Pulse{High: 1, Low: 10}
	wireZero  = Pulse{High: 1, Low: 1}
	wireOne   = Pulse{High: 1, Low: 5}
)

type Code struct {
	Controller int
	Group      bool
	On         bool
	Device     int
}

func (c Code) Validate() error {
	if c.Controller < MinController || c.Controller > MaxController {
		return fmt.Errorf("%w: controller %d outside %d-%d", ErrInvalidCode, c.Controller, MinController, MaxController)
	}
	if c.Device < 0 || c.Device > MaxDevice {
		return fmt.Errorf("%w: device %d outside 0-%d", ErrInvalidCode, c.Device, MaxDevice)
	}
	return nil
}

// Bits returns the data bits in transmission order.
func (c Code) Bits() ([FrameBits]bool, error) {
	var bits [FrameBits]bool
	if err := c.Validate(); err != nil {
		return bits, err
	}
	pos := 0
	for i := 0; i < controllerBits; i++ {
		bits[pos] = c.Controller>>i&1 == 1
		pos++
	}
	bits[pos] = c.Group
	pos++
	bits[pos] = c.On
	pos++
	for i := 0; i < deviceBits; i++ {
		bits[pos] = c.Device>>i&1 == 1
		pos++
	}
	return bits, nil
}

// Frame returns the pulse train of one frame, sync first.
func (c Code) Frame() ([]Pulse, error) {
	bits, err := c.Bits()
	if err != nil {
		return nil, err
	}
	pulses := make([]Pulse, 0, 1+2*FrameBits)
	pulses = append(pulses, syncPulse)
	for _, b := range bits {
		if b {
			pulses = append(pulses, wireOne, wireZero)
		} else {
			pulses = append(pulses, wireZero, wireOne)
		}
	}
	return pulses, nil
}
