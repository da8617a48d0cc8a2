// Package statussync keeps locally displayed event statuses eventually
// consistent with the backend's time-driven rule by polling it.
package statussync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"activity-hub/internal/model"
)

const DefaultInterval = time.Minute

var ErrPassInFlight = errors.New("status sync pass already running")

// Repository is the reconciliation half of the event repository.
type Repository interface {
	ListEventsNeedingStatusUpdate(ctx context.Context) ([]model.Event, error)
	ApplyStatusUpdates(ctx context.Context) (int64, error)
}

type State int32

const (
	Stopped State = iota
	Scheduled
	Paused
)

func (s State) String() string {
	switch s {
	case Scheduled:
		return "scheduled"
	case Paused:
		return "paused"
	}
	return "stopped"
}

// Scheduler runs one sync pass on activation and then every interval while
// the host is visible. Hiding stops the ticker; showing runs a pass at once
// and restarts the interval from there. All transitions and passes happen on
// a single goroutine, so passes never overlap and visibility changes are
// applied in the order they were reported.
type Scheduler struct {
	repo      Repository
	interval  time.Duration
	clock     clockwork.Clock
	onUpdated func(count int)
	onError   func(err error)
	observe   func(count int, err error)
	log       *zap.Logger

	inFlight atomic.Bool
	state    atomic.Int32

	mu      sync.Mutex
	visible bool
	cancel  context.CancelFunc
	done    chan struct{}
	vis     chan bool
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithOnStatusUpdated is called after every successful pass with the number
// of events the repository reported as stale. Subscribers refetch on it.
func WithOnStatusUpdated(fn func(count int)) Option {
	return func(s *Scheduler) { s.onUpdated = fn }
}

// WithOnSyncError is called when a pass fails. The schedule continues.
func WithOnSyncError(fn func(err error)) Option {
	return func(s *Scheduler) { s.onError = fn }
}

// WithObserver sees every pass outcome, for metrics.
func WithObserver(fn func(count int, err error)) Option {
	return func(s *Scheduler) { s.observe = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithVisible sets the visibility assumed at the next Start.
func WithVisible(v bool) Option {
	return func(s *Scheduler) { s.visible = v }
}

func New(repo Repository, opts ...Option) *Scheduler {
	s := &Scheduler{
		repo:      repo,
		interval:  DefaultInterval,
		clock:     clockwork.NewRealClock(),
		onUpdated: func(int) {},
		onError:   func(error) {},
		log:       zap.NewNop(),
		visible:   true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Start activates the scheduler. Calling it while active is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.vis = make(chan bool, 16)
	go s.run(ctx, s.visible, s.vis, s.done)
	s.log.Info("status sync started", zap.Duration("interval", s.interval), zap.Bool("visible", s.visible))
}

// Stop deactivates the scheduler and waits for the loop to exit. No pass
// starts and no callback fires once Stop returns. Safe to call repeatedly.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done, s.vis = nil, nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info("status sync stopped")
}

// SetVisible reports a host visibility change.
func (s *Scheduler) SetVisible(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = v
	if s.vis == nil {
		return
	}
	select {
	case s.vis <- v:
	case <-s.done:
	}
}

// SyncNow runs a pass outside the schedule. It fails with ErrPassInFlight
// rather than overlap a running pass.
func (s *Scheduler) SyncNow(ctx context.Context) (int, error) {
	n, err := s.sync(ctx)
	s.report(n, err)
	return n, err
}

func (s *Scheduler) run(ctx context.Context, visible bool, vis <-chan bool, done chan struct{}) {
	defer close(done)

	var (
		ticker clockwork.Ticker
		tick   <-chan time.Time
	)
	pause := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
		s.state.Store(int32(Paused))
	}
	resume := func() {
		ticker = s.clock.NewTicker(s.interval)
		tick = ticker.Chan()
		s.state.Store(int32(Scheduled))
		s.pass(ctx)
	}
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
		s.state.Store(int32(Stopped))
	}()

	if visible {
		resume()
	} else {
		pause()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case v := <-vis:
			switch {
			case v && ticker == nil:
				s.log.Debug("host visible, resuming status sync")
				resume()
			case !v && ticker != nil:
				s.log.Debug("host hidden, pausing status sync")
				pause()
			}
		case <-tick:
			s.pass(ctx)
		}
	}
}

// pass runs a scheduled pass; nothing is reported once ctx is done.
func (s *Scheduler) pass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n, err := s.sync(ctx)
	if ctx.Err() != nil {
		return
	}
	s.report(n, err)
}

func (s *Scheduler) report(n int, err error) {
	switch {
	case errors.Is(err, ErrPassInFlight):
		s.log.Debug("status sync pass skipped, another is running")
	case err != nil:
		s.log.Warn("status sync pass failed", zap.Error(err))
		s.onError(err)
	default:
		s.onUpdated(n)
	}
}

// sync asks the repository which events are stale and, if any, has it apply
// the transitions.
func (s *Scheduler) sync(ctx context.Context) (int, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return 0, ErrPassInFlight
	}
	defer s.inFlight.Store(false)

	n, err := s.reconcile(ctx)
	if s.observe != nil {
		s.observe(n, err)
	}
	return n, err
}

func (s *Scheduler) reconcile(ctx context.Context) (int, error) {
	stale, err := s.repo.ListEventsNeedingStatusUpdate(ctx)
	if err != nil {
		return 0, fmt.Errorf("list events needing status update: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}
	applied, err := s.repo.ApplyStatusUpdates(ctx)
	if err != nil {
		return 0, fmt.Errorf("apply status updates: %w", err)
	}
	s.log.Info("event statuses updated", zap.Int("stale", len(stale)), zap.Int64("transitions", applied))
	return len(stale), nil
}
