package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"smart-switch/internal/domain"
	"smart-switch/internal/persist"
)

var (
	ErrNotFound  = errors.New("switch not found")
	ErrInvalidID = errors.New("invalid switch id")
)

// Service runs the switch operations. mu guards the cache; the tree is
// mid-rotation during mutations and must never be observed then. txMu is
// taken before mu and held from a status decision until its transmission is
// done, so the last frame on air always matches the cached status.
type Service struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	cache *persist.Cache

	tx       Transmitter
	notifier Notifier
	metrics  Metrics
	clock    Clock
	logger   *slog.Logger

	lastTick time.Time
}

func NewService(
	cache *persist.Cache,
	tx Transmitter,
	notifier Notifier,
	metrics Metrics,
	clock Clock,
	logger *slog.Logger,
) *Service {
	return &Service{
		cache:    cache,
		tx:       tx,
		notifier: notifier,
		metrics:  metrics,
		clock:    clock,
		logger:   logger,
	}
}

// Load replays the store into the tree. It must run before anything else.
func (s *Service) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cache.LoadAll(); err != nil {
		return fmt.Errorf("loading switches: %w", err)
	}
	s.metrics.SetSwitches(s.cache.Tree().Len())
	return nil
}

func (s *Service) Add(id uint8) error {
	if id == domain.TimerListEnd {
		return fmt.Errorf("%w: %d", ErrInvalidID, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tree := s.cache.Tree()
	before := tree.Len()
	if err := s.cache.Insert(id, true); err != nil {
		return fmt.Errorf("adding switch %d: %w", id, err)
	}
	if tree.Len() > before {
		s.metrics.StoreSaved(SaveOne)
		s.logger.Info("switch added", "id", id, "switches", tree.Len())
	}
	s.metrics.SetSwitches(tree.Len())
	return nil
}

func (s *Service) Remove(id uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree := s.cache.Tree()
	if !tree.Remove(id) {
		return fmt.Errorf("removing switch %d: %w", id, ErrNotFound)
	}
	s.metrics.SetSwitches(tree.Len())
	if err := s.saveAll(); err != nil {
		return err
	}
	s.logger.Info("switch removed", "id", id, "switches", tree.Len())
	return nil
}

// SetStatus updates the in-memory status and hands the command to the
// transmitter. Status changes are not persisted.
func (s *Service) SetStatus(ctx context.Context, id uint8, on bool) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	var sw domain.Switch
	found := s.cache.Tree().Update(id, func(cur *domain.Switch) {
		cur.Status = on
		sw = *cur
	})
	s.mu.Unlock()

	if !found {
		s.logger.Warn("switch not found", "id", id)
		return fmt.Errorf("setting status of %d: %w", id, ErrNotFound)
	}
	s.logger.Info("switch status set", "id", id, "on", on)

	return s.apply(ctx, domain.StateChange{Switch: sw, Source: domain.SourceCommand})
}

// SetTimer attaches timerID and its schedule to every listed switch up to the
// first TimerListEnd. Unknown ids are skipped. Returns the number updated.
func (s *Service) SetTimer(ids []uint8, timerID uint8, sched domain.Schedule) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for _, id := range ids {
		if id == domain.TimerListEnd {
			break
		}
		ok := s.cache.Tree().Update(id, func(sw *domain.Switch) {
			sw.TimerID = timerID
			sw.Schedule = sched
		})
		if !ok {
			s.logger.Debug("timer target not found", "id", id, "timer_id", timerID)
			continue
		}
		updated++
	}
	s.logger.Info("timer set", "timer_id", timerID, "switches", updated)
	return updated, s.saveAll()
}

// RemoveTimer detaches timerID from every switch and always rewrites the store.
func (s *Service) RemoveTimer(timerID uint8) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := 0
	s.cache.Tree().ForEach(func(sw *domain.Switch) {
		if sw.TimerID == timerID {
			sw.TimerID = domain.NoTimer
			cleared++
		}
	})
	s.logger.Info("timer removed", "timer_id", timerID, "switches", cleared)
	return cleared, s.saveAll()
}

func (s *Service) Get(id uint8) (domain.Switch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Tree().Find(id)
}

// Switches returns a snapshot in ascending id order.
func (s *Service) Switches() []domain.Switch {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.Switch, 0, s.cache.Tree().Len())
	for sw := range s.cache.Tree().All() {
		result = append(result, sw)
	}
	return result
}

// Listing renders every switch as a terminated record, or the empty marker.
func (s *Service) Listing() string {
	switches := s.Switches()
	if len(switches) == 0 {
		return domain.EmptyListing
	}
	var sb strings.Builder
	for _, sw := range switches {
		sb.WriteString(sw.Record())
		sb.WriteByte(domain.RecordTerminator)
	}
	return sb.String()
}

func (s *Service) WriteListing(w io.Writer) error {
	_, err := io.WriteString(w, s.Listing()+"\n")
	return err
}

// Tick switches timed devices whose on or off time equals now. Each wall-clock
// minute is evaluated once.
func (s *Service) Tick(ctx context.Context, now time.Time) {
	minute := now.Truncate(time.Minute)

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	// equality only: a clock stepped backwards must still fire
	if minute.Equal(s.lastTick) {
		s.mu.Unlock()
		return
	}
	s.lastTick = minute

	hh, mm := uint8(now.Hour()), uint8(now.Minute())
	var changes []domain.StateChange
	s.cache.Tree().ForEach(func(sw *domain.Switch) {
		if !sw.HasTimer() {
			return
		}
		onNow := sw.OnHour == hh && sw.OnMinute == mm
		offNow := sw.OffHour == hh && sw.OffMinute == mm
		switch {
		case onNow && !sw.Status:
			sw.Status = true
		case offNow && !onNow && sw.Status:
			sw.Status = false
		default:
			return
		}
		changes = append(changes, domain.StateChange{Switch: *sw, Source: domain.SourceSchedule})
	})
	s.mu.Unlock()

	for _, change := range changes {
		s.logger.Info("timer fired",
			"id", change.Switch.ID,
			"timer_id", change.Switch.TimerID,
			"on", change.Switch.Status,
		)
		if err := s.apply(ctx, change); err != nil {
			s.logger.Error("applying timer", "id", change.Switch.ID, "error", err)
		}
	}
}

// StartScheduler evaluates timers against the clock every interval.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.Tick(ctx, s.clock.Now())
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx, s.clock.Now())
			}
		}
	}()
}

func (s *Service) apply(ctx context.Context, change domain.StateChange) error {
	err := s.tx.Switch(ctx, change.Switch.ID, change.Switch.Status)
	s.metrics.Transmitted(err)
	if err != nil {
		return fmt.Errorf("transmitting to %d: %w", change.Switch.ID, err)
	}
	if err := s.notifier.Notify(ctx, change); err != nil {
		s.logger.Error("notifying state change", "id", change.Switch.ID, "error", err)
	}
	return nil
}

// saveAll expects s.mu held.
func (s *Service) saveAll() error {
	if err := s.cache.SaveAll(); err != nil {
		return fmt.Errorf("saving switches: %w", err)
	}
	s.metrics.StoreSaved(SaveAll)
	return nil
}
