package membership_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activity-hub/internal/membership"
	"activity-hub/internal/memstore"
	"activity-hub/internal/model"
)

func newEvent(t *testing.T, st *memstore.Store, capacity *int) *model.Event {
	t.Helper()
	e := &model.Event{
		OrganizerID:  "org",
		Title:        "Tuesday run club",
		Sport:        "running",
		LocationName: "Westerpark",
		StartAt:      time.Now().Add(24 * time.Hour),
		Capacity:     capacity,
	}
	require.NoError(t, st.CreateEvent(context.Background(), e))
	return e
}

func intp(v int) *int { return &v }

func TestJoinAndLeave(t *testing.T) {
	st := memstore.New()
	var refreshes atomic.Int32
	c := membership.New(st, membership.WithRefresh(func(context.Context) error {
		refreshes.Add(1)
		return nil
	}))
	ctx := context.Background()
	e := newEvent(t, st, intp(3))

	require.NoError(t, c.Join(ctx, e.ID, "alice"))
	got, err := st.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ParticipantsCount)

	m, err := st.Membership(ctx, e.ID, "alice")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, model.RoleParticipant, m.Role)

	assert.ErrorIs(t, c.Join(ctx, e.ID, "alice"), model.ErrAlreadyMember)

	require.NoError(t, c.Leave(ctx, e.ID, "alice"))
	got, err = st.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ParticipantsCount)

	assert.ErrorIs(t, c.Leave(ctx, e.ID, "alice"), model.ErrNotAMember)
	assert.Equal(t, int32(2), refreshes.Load(), "refresh only after successful mutations")
}

func TestJoinFullEvent(t *testing.T) {
	st := memstore.New()
	c := membership.New(st)
	ctx := context.Background()
	e := newEvent(t, st, intp(2))

	require.NoError(t, c.Join(ctx, e.ID, "alice"))
	for _, u := range []string{"bob", "carol"} {
		assert.ErrorIs(t, c.Join(ctx, e.ID, u), model.ErrCapacityExceeded)
	}
}

func TestJoinRules(t *testing.T) {
	st := memstore.New()
	c := membership.New(st)
	ctx := context.Background()

	e := newEvent(t, st, nil)
	assert.ErrorIs(t, c.Join(ctx, e.ID, "org"), model.ErrEventNotJoinable)

	require.NoError(t, st.CancelEvent(ctx, e.ID, "org"))
	assert.ErrorIs(t, c.Join(ctx, e.ID, "alice"), model.ErrEventNotJoinable)

	assert.ErrorIs(t, c.Join(ctx, "missing", "alice"), model.ErrNotFound)

	var verr *model.ValidationError
	assert.ErrorAs(t, c.Join(ctx, "", "alice"), &verr)
	assert.ErrorAs(t, c.Join(ctx, e.ID, ""), &verr)
}

func TestOrganizerCannotLeaveInAnyStatus(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	st := memstore.New(memstore.WithClock(func() time.Time { return now }))
	c := membership.New(st)
	e := newEvent(t, st, nil)

	assert.ErrorIs(t, c.Leave(ctx, e.ID, "org"), model.ErrOrganizerCannotLeave)

	now = now.Add(24*time.Hour + time.Minute)
	_, err := st.ApplyStatusUpdates(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Leave(ctx, e.ID, "org"), model.ErrOrganizerCannotLeave)

	e2 := newEvent(t, st, nil)
	require.NoError(t, st.CancelEvent(ctx, e2.ID, "org"))
	assert.ErrorIs(t, c.Leave(ctx, e2.ID, "org"), model.ErrOrganizerCannotLeave)
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	st := memstore.New()
	c := membership.New(st)
	ctx := context.Background()
	e := newEvent(t, st, intp(5))

	var (
		wg   sync.WaitGroup
		ok   atomic.Int32
		full atomic.Int32
	)
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.Join(ctx, e.ID, fmt.Sprintf("user-%d", i))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, model.ErrCapacityExceeded):
				full.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(4), ok.Load())
	assert.Equal(t, int32(16), full.Load())
	got, err := st.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.ParticipantsCount)
}

func TestConcurrentDuplicateJoinSucceedsOnce(t *testing.T) {
	st := memstore.New()
	c := membership.New(st)
	ctx := context.Background()
	e := newEvent(t, st, nil)

	var (
		wg  sync.WaitGroup
		ok  atomic.Int32
		dup atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.Join(ctx, e.ID, "alice")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, model.ErrAlreadyMember):
				dup.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(9), dup.Load())
}

func TestRefreshFailureDoesNotFailJoin(t *testing.T) {
	st := memstore.New()
	c := membership.New(st, membership.WithRefresh(func(context.Context) error {
		return errors.New("snapshot unavailable")
	}))
	e := newEvent(t, st, nil)
	assert.NoError(t, c.Join(context.Background(), e.ID, "alice"))
}

func TestObserverSeesEveryAttempt(t *testing.T) {
	st := memstore.New()
	type outcome struct {
		op  string
		err error
	}
	var seen []outcome
	c := membership.New(st, membership.WithObserver(func(op string, err error) {
		seen = append(seen, outcome{op, err})
	}))
	ctx := context.Background()
	e := newEvent(t, st, nil)

	_ = c.Join(ctx, e.ID, "alice")
	_ = c.Join(ctx, e.ID, "alice")
	_ = c.Leave(ctx, e.ID, "org")

	require.Len(t, seen, 3)
	assert.Equal(t, membership.OpJoin, seen[0].op)
	assert.NoError(t, seen[0].err)
	assert.ErrorIs(t, seen[1].err, model.ErrAlreadyMember)
	assert.Equal(t, membership.OpLeave, seen[2].op)
	assert.ErrorIs(t, seen[2].err, model.ErrOrganizerCannotLeave)
}

// racyRepo reports a stale view to the controller so the repository's own
// check is what refuses the join.
type racyRepo struct {
	*memstore.Store
}

func (r racyRepo) Membership(context.Context, string, string) (*model.Membership, error) {
	return nil, nil
}

func TestRepositoryHasFinalSay(t *testing.T) {
	st := memstore.New()
	c := membership.New(racyRepo{st})
	ctx := context.Background()
	e := newEvent(t, st, nil)

	require.NoError(t, c.Join(ctx, e.ID, "alice"))
	assert.ErrorIs(t, c.Join(ctx, e.ID, "alice"), model.ErrAlreadyMember)
}

func TestRules(t *testing.T) {
	e := &model.Event{OrganizerID: "org", Status: model.StatusUpcoming, Capacity: intp(2), ParticipantsCount: 2}

	// full wins over status for newcomers
	e.Status = model.StatusActive
	assert.ErrorIs(t, membership.CheckJoin(e, "alice", false), model.ErrCapacityExceeded)
	assert.ErrorIs(t, membership.CheckJoin(e, "alice", true), model.ErrAlreadyMember)
	assert.ErrorIs(t, membership.CheckJoin(e, "org", true), model.ErrEventNotJoinable)
	e.Status = model.StatusCancelled
	assert.ErrorIs(t, membership.CheckJoin(e, "alice", false), model.ErrCapacityExceeded)

	e.ParticipantsCount = 1
	assert.ErrorIs(t, membership.CheckJoin(e, "alice", false), model.ErrEventNotJoinable)
	e.Status = model.StatusUpcoming
	assert.NoError(t, membership.CheckJoin(e, "alice", false))

	assert.ErrorIs(t, membership.CheckLeave(e, "org", true), model.ErrOrganizerCannotLeave)
	assert.ErrorIs(t, membership.CheckLeave(e, "alice", false), model.ErrNotAMember)
	assert.NoError(t, membership.CheckLeave(e, "alice", true))
}
