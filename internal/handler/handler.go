// Package handler implements the gRPC EventService on top of an event
// repository.
package handler

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"activity-hub/internal/membership"
	"activity-hub/internal/middleware"
	"activity-hub/internal/model"
	"activity-hub/internal/wire"
)

// Repository is everything the service needs from storage. Both
// store.Store and memstore.Store satisfy it.
type Repository interface {
	membership.Repository
	CreateEvent(ctx context.Context, e *model.Event) error
	ListEvents(ctx context.Context, f model.Filter) ([]model.Event, error)
	CancelEvent(ctx context.Context, id, organizerID string) error
	DeleteEvent(ctx context.Context, id, organizerID string) error
	ListParticipants(ctx context.Context, eventID string) ([]model.Membership, error)
	Memberships(ctx context.Context, userID string) ([]model.Membership, error)
	ListEventsNeedingStatusUpdate(ctx context.Context) ([]model.Event, error)
	ApplyStatusUpdates(ctx context.Context) (int64, error)
}

type Handler struct {
	repo    Repository
	members *membership.Controller
	log     *zap.Logger
}

func New(repo Repository, members *membership.Controller, log *zap.Logger) *Handler {
	if members == nil {
		members = membership.New(repo)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{repo: repo, members: members, log: log}
}

func uid(ctx context.Context) (string, error) {
	id := middleware.UserID(ctx)
	if id == "" {
		return "", status.Error(codes.Unauthenticated, "no user")
	}
	return id, nil
}

// fail maps err for the wire and logs what the client will only see as
// "internal error".
func (h *Handler) fail(method string, err error) error {
	st := wire.Status(err)
	if st.Code() == codes.Internal {
		h.log.Error("request failed", zap.String("method", method), zap.Error(err))
	}
	return st.Err()
}
