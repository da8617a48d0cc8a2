package geolocation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activity-hub/internal/geolocation"
	"activity-hub/internal/model"
)

var amsterdam = model.Position{Lat: 52.3676, Lon: 4.9041}

func TestAcquireFixed(t *testing.T) {
	pos, err := geolocation.Acquire(context.Background(), geolocation.Fixed(amsterdam), time.Second)
	require.NoError(t, err)
	assert.Equal(t, amsterdam, pos)
}

func TestAcquireNone(t *testing.T) {
	_, err := geolocation.Acquire(context.Background(), geolocation.None{}, time.Second)
	assert.ErrorIs(t, err, geolocation.ErrUnavailable)

	_, err = geolocation.Acquire(context.Background(), nil, time.Second)
	assert.ErrorIs(t, err, geolocation.ErrUnavailable)
}

func TestAcquireWrapsProviderErrors(t *testing.T) {
	p := geolocation.ProviderFunc(func(context.Context) (model.Position, error) {
		return model.Position{}, errors.New("permission denied")
	})
	_, err := geolocation.Acquire(context.Background(), p, time.Second)
	assert.ErrorIs(t, err, geolocation.ErrUnavailable)
	assert.ErrorContains(t, err, "permission denied")
}

func TestAcquireRejectsOutOfRange(t *testing.T) {
	_, err := geolocation.Acquire(context.Background(), geolocation.Fixed{Lat: 91, Lon: 0}, time.Second)
	assert.ErrorIs(t, err, geolocation.ErrUnavailable)
}

func TestAcquireIsBounded(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	// ignores its context on purpose
	stuck := geolocation.ProviderFunc(func(context.Context) (model.Position, error) {
		<-release
		return amsterdam, nil
	})

	start := time.Now()
	_, err := geolocation.Acquire(context.Background(), stuck, 30*time.Millisecond)
	assert.ErrorIs(t, err, geolocation.ErrUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCachedReusesFix(t *testing.T) {
	clock := clockwork.NewFakeClock()
	calls := 0
	p := geolocation.ProviderFunc(func(context.Context) (model.Position, error) {
		calls++
		return amsterdam, nil
	})
	c := geolocation.NewCached(p, time.Minute, clock)

	for i := 0; i < 3; i++ {
		pos, err := c.CurrentPosition(context.Background())
		require.NoError(t, err)
		assert.Equal(t, amsterdam, pos)
	}
	assert.Equal(t, 1, calls)

	clock.Advance(time.Minute)
	_, err := c.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCachedDoesNotCacheFailures(t *testing.T) {
	calls := 0
	p := geolocation.ProviderFunc(func(context.Context) (model.Position, error) {
		calls++
		return model.Position{}, geolocation.ErrUnavailable
	})
	c := geolocation.NewCached(p, time.Minute, clockwork.NewFakeClock())

	_, err := c.CurrentPosition(context.Background())
	assert.ErrorIs(t, err, geolocation.ErrUnavailable)
	_, err = c.CurrentPosition(context.Background())
	assert.ErrorIs(t, err, geolocation.ErrUnavailable)
	assert.Equal(t, 2, calls)
}
