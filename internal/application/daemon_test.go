package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-switch/internal/application"
	"smart-switch/internal/avl"
	"smart-switch/internal/infra/eeprom"
	"smart-switch/internal/persist"
)

type fakeSource struct {
	name     string
	startErr error
	started  bool
	stopped  bool
}

func (f *fakeSource) Start(_ context.Context) error {
	f.started = true
	return f.startErr
}

func (f *fakeSource) Stop() error {
	f.stopped = true
	return nil
}

func (f *fakeSource) Name() string { return f.name }

func newDaemonService(t *testing.T, store *eeprom.Memory) *application.Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache, err := persist.New(avl.New(10), store, logger)
	require.NoError(t, err)
	return application.NewService(cache, application.NopTransmitter{}, &application.NoopNotifier{}, application.NopMetrics{}, application.SystemClock{}, logger)
}

func TestDaemon_RunLoadsAndStopsSources(t *testing.T) {
	store := eeprom.NewMemory(51)
	store.Bytes()[0] = 1
	copy(store.Bytes()[1:], []byte{42, 255, 0, 0, 0})
	svc := newDaemonService(t, store)
	src := &fakeSource{name: "fake"}
	daemon := application.NewDaemon(svc, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)), src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- daemon.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := svc.Get(42)
		return ok
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("daemon did not stop")
	}
	assert.True(t, src.started)
	assert.True(t, src.stopped)
}

func TestDaemon_CorruptStoreIsFatal(t *testing.T) {
	store := eeprom.NewMemory(51)
	store.Bytes()[0] = 200
	src := &fakeSource{name: "fake"}
	daemon := application.NewDaemon(newDaemonService(t, store), 0, slog.New(slog.NewTextHandler(io.Discard, nil)), src)

	err := daemon.Run(context.Background())

	assert.ErrorIs(t, err, persist.ErrCorruptHeader)
	assert.False(t, src.started)
}

func TestDaemon_SourceStartFailure(t *testing.T) {
	first := &fakeSource{name: "first"}
	broken := &fakeSource{name: "broken", startErr: errors.New("address in use")}
	daemon := application.NewDaemon(newDaemonService(t, eeprom.NewMemory(51)), 0, slog.New(slog.NewTextHandler(io.Discard, nil)), first, broken)

	err := daemon.Run(context.Background())

	assert.ErrorContains(t, err, "starting broken")
	assert.True(t, first.stopped)
}
