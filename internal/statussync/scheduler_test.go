package statussync_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activity-hub/internal/model"
	"activity-hub/internal/statussync"
)

type fakeRepo struct {
	mu      sync.Mutex
	stale   []model.Event
	listErr error
	lists   int
	applies int
	entered chan struct{}
	block   chan struct{}
}

func (r *fakeRepo) ListEventsNeedingStatusUpdate(ctx context.Context) ([]model.Event, error) {
	r.mu.Lock()
	block, entered := r.block, r.entered
	r.entered = nil
	r.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.stale, nil
}

func (r *fakeRepo) ApplyStatusUpdates(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applies++
	n := int64(len(r.stale))
	r.stale = nil
	return n, nil
}

func (r *fakeRepo) counts() (lists, applies int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lists, r.applies
}

func (r *fakeRepo) setStale(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stale = make([]model.Event, n)
}

func (r *fakeRepo) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listErr = err
}

func recv(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case n := <-ch:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("expected a status update")
		return 0
	}
}

func quiet(t *testing.T, ch <-chan int) {
	t.Helper()
	select {
	case n := <-ch:
		t.Fatalf("unexpected status update (%d)", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func newScheduler(repo *fakeRepo, clock clockwork.Clock, opts ...statussync.Option) (*statussync.Scheduler, chan int) {
	updates := make(chan int, 16)
	opts = append([]statussync.Option{
		statussync.WithClock(clock),
		statussync.WithInterval(time.Minute),
		statussync.WithOnStatusUpdated(func(n int) { updates <- n }),
	}, opts...)
	return statussync.New(repo, opts...), updates
}

func TestPassOnStartThenEveryInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	repo := &fakeRepo{}
	repo.setStale(2)
	s, updates := newScheduler(repo, clock)

	s.Start(context.Background())
	defer s.Stop()

	assert.Equal(t, 2, recv(t, updates))
	assert.Equal(t, statussync.Scheduled, s.State())

	clock.Advance(59 * time.Second)
	quiet(t, updates)

	clock.Advance(time.Second)
	assert.Equal(t, 0, recv(t, updates))
	quiet(t, updates)

	lists, applies := repo.counts()
	assert.Equal(t, 2, lists)
	assert.Equal(t, 1, applies, "nothing stale on the second pass")
}

func TestHiddenPausesAndShowRunsImmediately(t *testing.T) {
	clock := clockwork.NewFakeClock()
	repo := &fakeRepo{}
	s, updates := newScheduler(repo, clock)

	s.Start(context.Background())
	defer s.Stop()
	recv(t, updates)

	s.SetVisible(false)
	require.Eventually(t, func() bool { return s.State() == statussync.Paused }, time.Second, time.Millisecond)

	clock.Advance(10 * time.Minute)
	quiet(t, updates)

	s.SetVisible(true)
	recv(t, updates)
	assert.Equal(t, statussync.Scheduled, s.State())

	// the interval restarts from the show
	clock.Advance(59 * time.Second)
	quiet(t, updates)
	clock.Advance(time.Second)
	recv(t, updates)
}

func TestRepeatedVisibilityIsIgnored(t *testing.T) {
	clock := clockwork.NewFakeClock()
	repo := &fakeRepo{}
	s, updates := newScheduler(repo, clock)

	s.Start(context.Background())
	defer s.Stop()
	recv(t, updates)

	s.SetVisible(true)
	s.SetVisible(true)
	quiet(t, updates)

	lists, _ := repo.counts()
	assert.Equal(t, 1, lists)
}

func TestRapidHideShowLeavesOneTicker(t *testing.T) {
	clock := clockwork.NewFakeClock()
	repo := &fakeRepo{}
	s, updates := newScheduler(repo, clock)

	s.Start(context.Background())
	defer s.Stop()
	recv(t, updates)

	s.SetVisible(false)
	s.SetVisible(true)
	recv(t, updates)
	quiet(t, updates)

	clock.Advance(time.Minute)
	recv(t, updates)
	quiet(t, updates)
}

func TestStartHidden(t *testing.T) {
	clock := clockwork.NewFakeClock()
	repo := &fakeRepo{}
	s, updates := newScheduler(repo, clock, statussync.WithVisible(false))

	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool { return s.State() == statussync.Paused }, time.Second, time.Millisecond)
	quiet(t, updates)

	s.SetVisible(true)
	recv(t, updates)
}

func TestErrorKeepsSchedule(t *testing.T) {
	clock := clockwork.NewFakeClock()
	repo := &fakeRepo{}
	repo.setErr(errors.New("connection refused"))

	errs := make(chan error, 4)
	s, updates := newScheduler(repo, clock, statussync.WithOnSyncError(func(err error) { errs <- err }))

	s.Start(context.Background())
	defer s.Stop()

	select {
	case err := <-errs:
		assert.ErrorContains(t, err, "connection refused")
	case <-time.After(2 * time.Second):
		t.Fatal("expected a sync error")
	}
	quiet(t, updates)

	repo.setErr(nil)
	repo.setStale(1)
	clock.Advance(time.Minute)
	assert.Equal(t, 1, recv(t, updates))
}

func TestStopIsFinal(t *testing.T) {
	clock := clockwork.NewFakeClock()
	repo := &fakeRepo{}
	s, updates := newScheduler(repo, clock)

	s.Start(context.Background())
	recv(t, updates)

	s.Stop()
	s.Stop()
	assert.Equal(t, statussync.Stopped, s.State())

	clock.Advance(5 * time.Minute)
	s.SetVisible(false)
	s.SetVisible(true)
	quiet(t, updates)
}

func TestStartTwiceIsNoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	repo := &fakeRepo{}
	s, updates := newScheduler(repo, clock)

	s.Start(context.Background())
	s.Start(context.Background())
	defer s.Stop()

	recv(t, updates)
	quiet(t, updates)
}

func TestSyncNowDoesNotOverlap(t *testing.T) {
	clock := clockwork.NewFakeClock()
	entered := make(chan struct{})
	repo := &fakeRepo{entered: entered, block: make(chan struct{})}

	var observed atomic.Int32
	s, updates := newScheduler(repo, clock, statussync.WithObserver(func(int, error) { observed.Add(1) }))

	s.Start(context.Background())
	defer s.Stop()

	// the activation pass is parked inside the repository
	<-entered
	_, err := s.SyncNow(context.Background())
	require.ErrorIs(t, err, statussync.ErrPassInFlight)

	close(repo.block)
	recv(t, updates)

	n, err := s.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, recv(t, updates))
	assert.Equal(t, int32(2), observed.Load())
}
