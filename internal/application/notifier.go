package application

import (
	"context"
	"errors"

	"smart-switch/internal/domain"
)

type Notifier interface {
	Notify(ctx context.Context, change domain.StateChange) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _ domain.StateChange) error {
	return nil
}

// MultiNotifier fans a change out to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, change domain.StateChange) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, change); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
