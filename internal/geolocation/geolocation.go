// Package geolocation supplies the viewer's position to discovery. Not
// knowing it is a normal outcome: callers fall back to text matching.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"activity-hub/internal/geo"
	"activity-hub/internal/model"
)

const (
	DefaultTimeout = 8 * time.Second
	// DefaultMaxAge is how long a Cached position is reused.
	DefaultMaxAge = 5 * time.Minute
)

var ErrUnavailable = errors.New("position unavailable")

type Provider interface {
	CurrentPosition(ctx context.Context) (model.Position, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (model.Position, error)

func (f ProviderFunc) CurrentPosition(ctx context.Context) (model.Position, error) {
	return f(ctx)
}

// Fixed always reports the same position, e.g. one taken from configuration.
type Fixed model.Position

func (f Fixed) CurrentPosition(context.Context) (model.Position, error) {
	return model.Position(f), nil
}

// None never knows the position.
type None struct{}

func (None) CurrentPosition(context.Context) (model.Position, error) {
	return model.Position{}, ErrUnavailable
}

// Acquire asks p for a position and gives up after timeout even if p ignores
// its context. Every failure, including the timeout, is ErrUnavailable.
func Acquire(ctx context.Context, p Provider, timeout time.Duration) (model.Position, error) {
	if p == nil {
		return model.Position{}, ErrUnavailable
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		pos model.Position
		err error
	}
	ch := make(chan result, 1)
	go func() {
		pos, err := p.CurrentPosition(ctx)
		ch <- result{pos, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			if errors.Is(r.err, ErrUnavailable) {
				return model.Position{}, r.err
			}
			return model.Position{}, fmt.Errorf("%w: %v", ErrUnavailable, r.err)
		}
		if !geo.Valid(r.pos.Lat, r.pos.Lon) {
			return model.Position{}, fmt.Errorf("%w: coordinates out of range", ErrUnavailable)
		}
		return r.pos, nil
	case <-ctx.Done():
		return model.Position{}, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
}

// Cached reuses the last successful fix for maxAge.
type Cached struct {
	p      Provider
	maxAge time.Duration
	clock  clockwork.Clock

	mu   sync.Mutex
	last model.Position
	at   time.Time
	ok   bool
}

func NewCached(p Provider, maxAge time.Duration, clock clockwork.Clock) *Cached {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cached{p: p, maxAge: maxAge, clock: clock}
}

func (c *Cached) CurrentPosition(ctx context.Context) (model.Position, error) {
	c.mu.Lock()
	if c.ok && c.clock.Since(c.at) < c.maxAge {
		pos := c.last
		c.mu.Unlock()
		return pos, nil
	}
	c.mu.Unlock()

	pos, err := c.p.CurrentPosition(ctx)
	if err != nil {
		return model.Position{}, err
	}

	c.mu.Lock()
	c.last, c.at, c.ok = pos, c.clock.Now(), true
	c.mu.Unlock()
	return pos, nil
}
