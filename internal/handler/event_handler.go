package handler

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"activity-hub/internal/model"
	"activity-hub/internal/wire"
)

func (h *Handler) ListEvents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := wire.FilterFromStruct(req)
	if err != nil {
		return nil, h.fail("ListEvents", err)
	}
	events, err := h.repo.ListEvents(ctx, f)
	if err != nil {
		return nil, h.fail("ListEvents", err)
	}
	return encode(wire.EventList(wire.KeyEvents, events))
}

func (h *Handler) GetEvent(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := eventID(req)
	if err != nil {
		return nil, err
	}
	e, err := h.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, h.fail("GetEvent", err)
	}
	return encode(wire.EventToStruct(e))
}

// CreateEvent makes the caller the organizer. Client supplied ids, statuses
// and counters are ignored.
func (h *Handler) CreateEvent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := uid(ctx)
	if err != nil {
		return nil, err
	}
	e, err := wire.EventFromStruct(req)
	if err != nil {
		return nil, h.fail("CreateEvent", err)
	}
	e.ID = ""
	e.Status = ""
	e.OrganizerID = userID

	if err := h.repo.CreateEvent(ctx, e); err != nil {
		return nil, h.fail("CreateEvent", err)
	}
	return encode(wire.EventToStruct(e))
}

func (h *Handler) CancelEvent(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	userID, err := uid(ctx)
	if err != nil {
		return nil, err
	}
	id, err := eventID(req)
	if err != nil {
		return nil, err
	}
	if err := h.repo.CancelEvent(ctx, id, userID); err != nil {
		return nil, h.fail("CancelEvent", err)
	}
	e, err := h.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, h.fail("CancelEvent", err)
	}
	return encode(wire.EventToStruct(e))
}

func (h *Handler) DeleteEvent(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	userID, err := uid(ctx)
	if err != nil {
		return nil, err
	}
	id, err := eventID(req)
	if err != nil {
		return nil, err
	}
	if err := h.repo.DeleteEvent(ctx, id, userID); err != nil {
		return nil, h.fail("DeleteEvent", err)
	}
	return &emptypb.Empty{}, nil
}

func (h *Handler) EventsNeedingUpdate(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	events, err := h.repo.ListEventsNeedingStatusUpdate(ctx)
	if err != nil {
		return nil, h.fail("EventsNeedingUpdate", err)
	}
	return encode(wire.EventList(wire.KeyEvents, events))
}

func (h *Handler) UpdateStatuses(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int64Value, error) {
	n, err := h.repo.ApplyStatusUpdates(ctx)
	if err != nil {
		return nil, h.fail("UpdateStatuses", err)
	}
	return wrapperspb.Int64(n), nil
}

func eventID(req *wrapperspb.StringValue) (string, error) {
	id := strings.TrimSpace(req.GetValue())
	if id == "" {
		return "", wire.Error(&model.ValidationError{Field: "event_id", Reason: "required"})
	}
	return id, nil
}

func encode(s *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}
