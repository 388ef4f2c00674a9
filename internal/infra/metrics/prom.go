// Package metrics exports controller activity to Prometheus.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smart-switch/internal/domain"
)

// Prom implements application.Metrics.
type Prom struct {
	switches  prometheus.Gauge
	commands  *prometheus.CounterVec
	saves     *prometheus.CounterVec
	transmits *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewProm registers the collectors on reg, reusing ones already registered.
// A nil reg means the default registry.
func NewProm(reg prometheus.Registerer) (*Prom, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	switches := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "switch_cache_switches",
		Help: "Number of switches held in the cache",
	})
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "switch_commands_total",
		Help: "Commands handled by action and result",
	}, []string{"action", "result"})
	saves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "switch_store_saves_total",
		Help: "Writes of switch records to the store by kind",
	}, []string{"kind"})
	transmits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "switch_rf_transmits_total",
		Help: "RF transmissions by result",
	}, []string{"result"})

	var err error
	if switches, err = register(reg, switches); err != nil {
		return nil, err
	}
	if commands, err = register(reg, commands); err != nil {
		return nil, err
	}
	if saves, err = register(reg, saves); err != nil {
		return nil, err
	}
	if transmits, err = register(reg, transmits); err != nil {
		return nil, err
	}

	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	return &Prom{
		switches:  switches,
		commands:  commands,
		saves:     saves,
		transmits: transmits,
		gatherer:  gatherer,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Handler serves the registry the collectors were registered on.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

func (p *Prom) SetSwitches(n int) {
	p.switches.Set(float64(n))
}

func (p *Prom) CommandHandled(action domain.Action, err error) {
	p.commands.WithLabelValues(string(action), result(err)).Inc()
}

func (p *Prom) StoreSaved(kind string) {
	p.saves.WithLabelValues(kind).Inc()
}

func (p *Prom) Transmitted(err error) {
	p.transmits.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
