package handler

import (
	"context"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"activity-hub/internal/wire"
)

// JoinEvent and LeaveEvent always act for the caller; the membership
// controller serializes concurrent requests for the same pair.
func (h *Handler) JoinEvent(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	userID, err := uid(ctx)
	if err != nil {
		return nil, err
	}
	id, err := eventID(req)
	if err != nil {
		return nil, err
	}
	if err := h.members.Join(ctx, id, userID); err != nil {
		return nil, h.fail("JoinEvent", err)
	}
	return &emptypb.Empty{}, nil
}

func (h *Handler) LeaveEvent(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	userID, err := uid(ctx)
	if err != nil {
		return nil, err
	}
	id, err := eventID(req)
	if err != nil {
		return nil, err
	}
	if err := h.members.Leave(ctx, id, userID); err != nil {
		return nil, h.fail("LeaveEvent", err)
	}
	return &emptypb.Empty{}, nil
}

func (h *Handler) ListParticipants(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := eventID(req)
	if err != nil {
		return nil, err
	}
	ms, err := h.repo.ListParticipants(ctx, id)
	if err != nil {
		return nil, h.fail("ListParticipants", err)
	}
	return encode(wire.MembershipList(wire.KeyParticipants, ms))
}

// GetMembership reports the caller's own membership; null when none.
func (h *Handler) GetMembership(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	userID, err := uid(ctx)
	if err != nil {
		return nil, err
	}
	id, err := eventID(req)
	if err != nil {
		return nil, err
	}
	m, err := h.repo.Membership(ctx, id, userID)
	if err != nil {
		return nil, h.fail("GetMembership", err)
	}
	return encode(wire.MembershipResult(m))
}

func (h *Handler) ListMemberships(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	userID, err := uid(ctx)
	if err != nil {
		return nil, err
	}
	ms, err := h.repo.Memberships(ctx, userID)
	if err != nil {
		return nil, h.fail("ListMemberships", err)
	}
	return encode(wire.MembershipList(wire.KeyMemberships, ms))
}
