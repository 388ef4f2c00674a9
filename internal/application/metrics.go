package application

import "smart-switch/internal/domain"

const (
	SaveOne = "one"
	SaveAll = "all"
)

type Metrics interface {
	SetSwitches(n int)
	CommandHandled(action domain.Action, err error)
	StoreSaved(kind string)
	Transmitted(err error)
}

type NopMetrics struct{}

func (NopMetrics) SetSwitches(int)                     {}
func (NopMetrics) CommandHandled(domain.Action, error) {}
func (NopMetrics) StoreSaved(string)                   {}
func (NopMetrics) Transmitted(error)                   {}
