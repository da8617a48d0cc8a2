package wire

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"activity-hub/internal/model"
)

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestEventRoundTrip(t *testing.T) {
	start := time.Date(2026, 5, 1, 18, 30, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	lat, lon, capacity := 52.37, 4.89, 10
	in := model.Event{
		ID: "e1", OrganizerID: "u1", Kind: model.KindGame, Title: "Pickup", Sport: "football",
		StartAt: start, EndAt: &end, LocationName: "Vondelpark",
		Latitude: &lat, Longitude: &lon, Capacity: &capacity,
		ParticipantsCount: 3, Status: model.StatusUpcoming, CreatedAt: start.Add(-time.Hour),
	}
	s, err := EventToStruct(&in)
	require.NoError(t, err)

	out, err := EventFromStruct(s)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.OrganizerID, out.OrganizerID)
	assert.True(t, in.StartAt.Equal(out.StartAt))
	require.NotNil(t, out.EndAt)
	assert.True(t, end.Equal(*out.EndAt))
	assert.Equal(t, 52.37, *out.Latitude)
	assert.Equal(t, 10, *out.Capacity)
	assert.Equal(t, 3, out.ParticipantsCount)
	assert.Equal(t, model.StatusUpcoming, out.Status)
	assert.True(t, out.UpdatedAt.IsZero())
}

func TestEventOptionalFieldsEncodeAsNull(t *testing.T) {
	s, err := EventToStruct(&model.Event{ID: "e1", Status: model.StatusActive})
	require.NoError(t, err)
	for _, k := range []string{"end_at", "latitude", "capacity", "start_at"} {
		_, null := s.Fields[k].GetKind().(*structpb.Value_NullValue)
		assert.True(t, null, k)
	}
	out, err := EventFromStruct(s)
	require.NoError(t, err)
	assert.Nil(t, out.EndAt)
	assert.Nil(t, out.Capacity)
	assert.False(t, out.HasCoordinates())
}

func TestEventDecodeNormalizesShapes(t *testing.T) {
	cases := []struct {
		name  string
		in    map[string]any
		count int
		org   string
	}{
		{"snake count", map[string]any{"participants_count": 4.0, "organizer_id": "u1"}, 4, "u1"},
		{"camel count", map[string]any{"participantsCount": 2.0, "organizerId": "u2"}, 2, "u2"},
		{"participants number", map[string]any{"participants": 7.0, "organizer": map[string]any{"id": 9.0}}, 7, "9"},
		{"participants list", map[string]any{"participants": []any{map[string]any{}, map[string]any{}}}, 2, ""},
		{"numeric string", map[string]any{"participants_count": "5"}, 5, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := EventFromStruct(mustStruct(t, tc.in))
			require.NoError(t, err)
			assert.Equal(t, tc.count, e.ParticipantsCount)
			assert.Equal(t, tc.org, e.OrganizerID)
		})
	}
}

func TestEventDecodeStatusAndKind(t *testing.T) {
	e, err := EventFromStruct(mustStruct(t, map[string]any{"status": "Cancelled", "kind": "TRAINING", "id": 12.0}))
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, e.Status)
	assert.Equal(t, model.KindTraining, e.Kind)
	assert.Equal(t, "12", e.ID)

	_, err = EventFromStruct(mustStruct(t, map[string]any{"status": "postponed"}))
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "status", ve.Field)

	_, err = EventFromStruct(mustStruct(t, map[string]any{"start_at": "tomorrow"}))
	assert.ErrorAs(t, err, &ve)
}

func TestMembershipDecodeUserShapes(t *testing.T) {
	for _, in := range []map[string]any{
		{"user_id": "u1"},
		{"userId": "u1"},
		{"user": map[string]any{"id": "u1"}},
		{"User": map[string]any{"ID": "u1"}},
	} {
		s := mustStruct(t, map[string]any{KeyParticipants: []any{in}})
		ms, err := MembershipsFromStruct(s, KeyParticipants)
		require.NoError(t, err, fmt.Sprint(in))
		require.Len(t, ms, 1)
		assert.Equal(t, "u1", ms[0].UserID)
		assert.Equal(t, model.RoleParticipant, ms[0].Role)
	}

	s := mustStruct(t, map[string]any{KeyParticipants: []any{map[string]any{"role": "organizer"}}})
	_, err := MembershipsFromStruct(s, KeyParticipants)
	assert.Error(t, err)
}

func TestMembershipResult(t *testing.T) {
	s, err := MembershipResult(nil)
	require.NoError(t, err)
	m, err := MembershipFromResult(s)
	require.NoError(t, err)
	assert.Nil(t, m)

	joined := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s, err = MembershipResult(&model.Membership{EventID: "e1", UserID: "u1", Role: model.RoleOrganizer, JoinedAt: joined})
	require.NoError(t, err)
	m, err = MembershipFromResult(s)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, model.RoleOrganizer, m.Role)
	assert.True(t, joined.Equal(m.JoinedAt))
}

func TestFilterRoundTrip(t *testing.T) {
	after := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	minCap := 4
	in := model.Filter{
		Sport: "tennis", Kind: model.KindEvent, OrganizerID: "u1",
		Statuses:   []model.Status{model.StatusUpcoming, model.StatusActive},
		StartAfter: &after, MinCapacity: &minCap,
		Near: &model.Position{Lat: 52, Lon: 5}, RadiusKm: 12.5,
		Ascending: true, Limit: 10, Offset: 20,
	}
	s, err := FilterToStruct(in)
	require.NoError(t, err)
	out, err := FilterFromStruct(s)
	require.NoError(t, err)
	assert.Equal(t, in.Sport, out.Sport)
	assert.Equal(t, in.Kind, out.Kind)
	assert.Equal(t, in.Statuses, out.Statuses)
	assert.True(t, after.Equal(*out.StartAfter))
	assert.Nil(t, out.StartBefore)
	assert.Equal(t, 4, *out.MinCapacity)
	assert.Equal(t, *in.Near, *out.Near)
	assert.Equal(t, 12.5, out.RadiusKm)
	assert.Equal(t, 10, out.Limit)
	assert.Equal(t, 20, out.Offset)
	assert.True(t, out.Ascending)
}

func TestFilterStatusString(t *testing.T) {
	out, err := FilterFromStruct(mustStruct(t, map[string]any{"status": "upcoming, ACTIVE,bogus"}))
	require.NoError(t, err)
	assert.Equal(t, []model.Status{model.StatusUpcoming, model.StatusActive}, out.Statuses)
	assert.Nil(t, out.Near)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{model.ErrNotFound, codes.NotFound},
		{fmt.Errorf("get: %w", model.ErrForbidden), codes.PermissionDenied},
		{model.ErrAlreadyMember, codes.AlreadyExists},
		{model.ErrCapacityExceeded, codes.ResourceExhausted},
		{model.ErrEventNotJoinable, codes.FailedPrecondition},
		{model.ErrNotAMember, codes.FailedPrecondition},
		{model.ErrOrganizerCannotLeave, codes.FailedPrecondition},
		{&model.ValidationError{Field: "title", Reason: "required"}, codes.InvalidArgument},
		{errors.New("pq: connection refused"), codes.Internal},
	}
	for _, tc := range cases {
		s := Status(tc.err)
		assert.Equal(t, tc.code, s.Code(), tc.err.Error())
	}
	assert.Equal(t, "internal error", Status(errors.New("secret dsn")).Message())
}

func TestFromStatusRestoresDomainErrors(t *testing.T) {
	for _, sentinel := range []error{
		model.ErrNotFound, model.ErrForbidden, model.ErrAlreadyMember, model.ErrCapacityExceeded,
		model.ErrEventNotJoinable, model.ErrNotAMember, model.ErrOrganizerCannotLeave,
	} {
		got := FromStatus(Error(sentinel))
		assert.ErrorIs(t, got, sentinel)
		assert.True(t, model.IsConflict(got) == model.IsConflict(sentinel))
	}

	got := FromStatus(Error(&model.ValidationError{Field: "radius_km", Reason: "must be positive"}))
	var ve *model.ValidationError
	require.ErrorAs(t, got, &ve)
	assert.Equal(t, "radius_km", ve.Field)
}

func TestFromStatusWithoutDetails(t *testing.T) {
	assert.ErrorIs(t, FromStatus(status.Error(codes.NotFound, "gone")), model.ErrNotFound)
	assert.ErrorIs(t, FromStatus(status.Error(codes.PermissionDenied, "no")), model.ErrForbidden)

	limited := FromStatus(status.Error(codes.ResourceExhausted, "too many requests"))
	assert.NotErrorIs(t, limited, model.ErrCapacityExceeded)
	assert.Equal(t, codes.ResourceExhausted, status.Code(limited))
}
