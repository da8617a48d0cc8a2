// Package membership mediates join and leave requests before they reach
// the event repository.
package membership

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"activity-hub/internal/model"
)

// Repository is the slice of the event repository the controller needs.
// Join and Leave must enforce the same rules under their own locking; the
// controller's checks only save a round trip.
type Repository interface {
	GetEvent(ctx context.Context, eventID string) (*model.Event, error)
	// Membership returns nil, nil when the user holds no membership.
	Membership(ctx context.Context, eventID, userID string) (*model.Membership, error)
	Join(ctx context.Context, eventID, userID string) error
	Leave(ctx context.Context, eventID, userID string) error
}

const (
	OpJoin  = "join"
	OpLeave = "leave"
)

type Controller struct {
	repo     Repository
	locks    *keyedLocks
	onChange func(ctx context.Context) error
	observe  func(op string, err error)
	log      *zap.Logger
}

type Option func(*Controller)

// WithRefresh registers the refresh signal fired after a successful mutation.
func WithRefresh(fn func(ctx context.Context) error) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithObserver receives the outcome of every join/leave attempt.
func WithObserver(fn func(op string, err error)) Option {
	return func(c *Controller) { c.observe = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func New(repo Repository, opts ...Option) *Controller {
	c := &Controller{
		repo:  repo,
		locks: newKeyedLocks(),
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controller) Join(ctx context.Context, eventID, userID string) error {
	err := c.mutate(ctx, OpJoin, eventID, userID, func(e *model.Event, member bool) error {
		if err := CheckJoin(e, userID, member); err != nil {
			return err
		}
		return c.repo.Join(ctx, eventID, userID)
	})
	c.done(OpJoin, eventID, userID, err)
	return err
}

func (c *Controller) Leave(ctx context.Context, eventID, userID string) error {
	err := c.mutate(ctx, OpLeave, eventID, userID, func(e *model.Event, member bool) error {
		if err := CheckLeave(e, userID, member); err != nil {
			return err
		}
		return c.repo.Leave(ctx, eventID, userID)
	})
	c.done(OpLeave, eventID, userID, err)
	return err
}

// mutate serializes requests for the same (event, user) pair, loads the
// current state and runs apply. The refresh signal fires only on success.
func (c *Controller) mutate(ctx context.Context, op, eventID, userID string, apply func(*model.Event, bool) error) error {
	if eventID == "" {
		return &model.ValidationError{Field: "event_id", Reason: "required"}
	}
	if userID == "" {
		return &model.ValidationError{Field: "user_id", Reason: "required"}
	}

	release, err := c.locks.acquire(ctx, eventID+"/"+userID)
	if err != nil {
		return err
	}
	defer release()

	e, err := c.repo.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	m, err := c.repo.Membership(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if err := apply(e, m != nil); err != nil {
		return err
	}

	if c.onChange != nil {
		// the mutation already happened; a failed refresh is only logged
		if err := c.onChange(ctx); err != nil {
			c.log.Warn("refresh after membership change failed",
				zap.String("op", op), zap.String("event_id", eventID), zap.Error(err))
		}
	}
	return nil
}

func (c *Controller) done(op, eventID, userID string, err error) {
	if c.observe != nil {
		c.observe(op, err)
	}
	switch {
	case err == nil:
		c.log.Info("membership changed", zap.String("op", op),
			zap.String("event_id", eventID), zap.String("user_id", userID))
	case model.IsConflict(err):
		c.log.Debug("membership refused", zap.String("op", op),
			zap.String("event_id", eventID), zap.String("user_id", userID), zap.Error(err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.log.Debug("membership request abandoned", zap.String("op", op), zap.Error(err))
	default:
		c.log.Warn("membership request failed", zap.String("op", op),
			zap.String("event_id", eventID), zap.Error(err))
	}
}
