package wire

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"activity-hub/internal/model"
)

const timeLayout = time.RFC3339Nano

func EventToStruct(e *model.Event) (*structpb.Struct, error) {
	return structpb.NewStruct(eventMap(e))
}

// EventList wraps events under key.
func EventList(key string, events []model.Event) (*structpb.Struct, error) {
	list := make([]any, len(events))
	for i := range events {
		list[i] = eventMap(&events[i])
	}
	return structpb.NewStruct(map[string]any{key: list})
}

func MembershipList(key string, ms []model.Membership) (*structpb.Struct, error) {
	list := make([]any, len(ms))
	for i := range ms {
		list[i] = membershipMap(&ms[i])
	}
	return structpb.NewStruct(map[string]any{key: list})
}

// MembershipResult carries an optional membership; nil encodes as null.
func MembershipResult(m *model.Membership) (*structpb.Struct, error) {
	var v any
	if m != nil {
		v = membershipMap(m)
	}
	return structpb.NewStruct(map[string]any{KeyMembership: v})
}

func eventMap(e *model.Event) map[string]any {
	m := map[string]any{
		"id":                 e.ID,
		"organizer_id":       e.OrganizerID,
		"type":               string(e.Kind),
		"title":              e.Title,
		"description":        e.Description,
		"sport":              e.Sport,
		"start_at":           formatTime(e.StartAt),
		"end_at":             nil,
		"location_name":      e.LocationName,
		"latitude":           nil,
		"longitude":          nil,
		"capacity":           nil,
		"participants_count": e.ParticipantsCount,
		"status":             string(e.Status),
		"created_at":         formatTime(e.CreatedAt),
		"updated_at":         formatTime(e.UpdatedAt),
	}
	if e.EndAt != nil {
		m["end_at"] = formatTime(*e.EndAt)
	}
	if e.HasCoordinates() {
		m["latitude"], m["longitude"] = *e.Latitude, *e.Longitude
	}
	if e.Capacity != nil {
		m["capacity"] = *e.Capacity
	}
	return m
}

func membershipMap(m *model.Membership) map[string]any {
	return map[string]any{
		"event_id":  m.EventID,
		"user_id":   m.UserID,
		"role":      string(m.Role),
		"joined_at": formatTime(m.JoinedAt),
	}
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

// Decoding is the one place that tolerates the payload shapes different
// backends send: camelCase or snake_case keys, numeric ids, participants as a
// count or as a list, and members identified by user_id, user.id or User.ID.

func EventFromStruct(s *structpb.Struct) (*model.Event, error) {
	return eventFrom(fields(s.GetFields()))
}

// EventsFromStruct reads the list under key.
func EventsFromStruct(s *structpb.Struct, key string) ([]model.Event, error) {
	list := fields(s.GetFields()).list(key)
	out := make([]model.Event, 0, len(list))
	for i, v := range list {
		obj := v.GetStructValue()
		if obj == nil {
			return nil, fmt.Errorf("%s[%d]: not an object", key, i)
		}
		e, err := eventFrom(fields(obj.GetFields()))
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		out = append(out, *e)
	}
	return out, nil
}

func MembershipsFromStruct(s *structpb.Struct, key string) ([]model.Membership, error) {
	list := fields(s.GetFields()).list(key)
	out := make([]model.Membership, 0, len(list))
	for i, v := range list {
		obj := v.GetStructValue()
		if obj == nil {
			return nil, fmt.Errorf("%s[%d]: not an object", key, i)
		}
		m, err := membershipFrom(fields(obj.GetFields()))
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		out = append(out, *m)
	}
	return out, nil
}

// MembershipFromResult is the inverse of MembershipResult.
func MembershipFromResult(s *structpb.Struct) (*model.Membership, error) {
	obj := fields(s.GetFields()).obj(KeyMembership)
	if obj == nil {
		return nil, nil
	}
	return membershipFrom(obj)
}

func eventFrom(f fields) (*model.Event, error) {
	e := &model.Event{
		ID:           f.id("id", "ID"),
		OrganizerID:  f.id("organizer_id", "organizerId", "OrganizerID"),
		Kind:         model.Kind(strings.ToLower(f.str("type", "kind"))),
		Title:        f.str("title"),
		Description:  f.str("description"),
		Sport:        f.str("sport"),
		LocationName: f.str("location_name", "locationName"),
	}
	if e.OrganizerID == "" {
		if o := f.obj("organizer", "Organizer"); o != nil {
			e.OrganizerID = o.id("id", "ID")
		}
	}
	if raw := f.str("status"); raw != "" {
		st, ok := model.ParseStatus(raw)
		if !ok {
			return nil, &model.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", raw)}
		}
		e.Status = st
	}

	var err error
	if e.StartAt, err = f.time("start_at", "startAt"); err != nil {
		return nil, err
	}
	if end, err := f.time("end_at", "endAt"); err != nil {
		return nil, err
	} else if !end.IsZero() {
		e.EndAt = &end
	}
	if e.CreatedAt, err = f.time("created_at", "createdAt"); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = f.time("updated_at", "updatedAt"); err != nil {
		return nil, err
	}

	if lat, ok := f.num("latitude", "lat"); ok {
		e.Latitude = &lat
	}
	if lon, ok := f.num("longitude", "lon", "lng"); ok {
		e.Longitude = &lon
	}
	if c, ok := f.num("capacity"); ok {
		n := int(c)
		e.Capacity = &n
	}

	if n, ok := f.num("participants_count", "participantsCount"); ok {
		e.ParticipantsCount = int(n)
	} else if n, ok := f.num("participants"); ok {
		e.ParticipantsCount = int(n)
	} else if list, ok := f.lookup("participants", "Participants"); ok && list.GetListValue() != nil {
		e.ParticipantsCount = len(list.GetListValue().GetValues())
	}
	return e, nil
}

func membershipFrom(f fields) (*model.Membership, error) {
	m := &model.Membership{
		EventID: f.id("event_id", "eventId", "EventID"),
		UserID:  f.id("user_id", "userId", "UserID"),
		Role:    model.Role(strings.ToLower(f.str("role", "Role"))),
	}
	if m.UserID == "" {
		if u := f.obj("user", "User"); u != nil {
			m.UserID = u.id("id", "ID")
		}
	}
	if m.UserID == "" {
		return nil, &model.ValidationError{Field: "user_id", Reason: "missing"}
	}
	if m.Role == "" {
		m.Role = model.RoleParticipant
	}
	var err error
	if m.JoinedAt, err = f.time("joined_at", "joinedAt", "JoinedAt"); err != nil {
		return nil, err
	}
	return m, nil
}

type fields map[string]*structpb.Value

// lookup returns the first key present with a non-null value.
func (f fields) lookup(keys ...string) (*structpb.Value, bool) {
	for _, k := range keys {
		v, ok := f[k]
		if !ok || v == nil {
			continue
		}
		if _, null := v.GetKind().(*structpb.Value_NullValue); null {
			continue
		}
		return v, true
	}
	return nil, false
}

func (f fields) str(keys ...string) string {
	v, ok := f.lookup(keys...)
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

// id accepts string and integral ids.
func (f fields) id(keys ...string) string {
	v, ok := f.lookup(keys...)
	if !ok {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	}
	return ""
}

// num accepts numbers and numeric strings.
func (f fields) num(keys ...string) (float64, bool) {
	v, ok := f.lookup(keys...)
	if !ok {
		return 0, false
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		if math.IsNaN(k.NumberValue) {
			return 0, false
		}
		return k.NumberValue, true
	case *structpb.Value_StringValue:
		n, err := strconv.ParseFloat(strings.TrimSpace(k.StringValue), 64)
		return n, err == nil
	}
	return 0, false
}

func (f fields) time(keys ...string) (time.Time, error) {
	raw := f.str(keys...)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, &model.ValidationError{Field: keys[0], Reason: "not an RFC 3339 time"}
	}
	return t, nil
}

func (f fields) obj(keys ...string) fields {
	v, ok := f.lookup(keys...)
	if !ok || v.GetStructValue() == nil {
		return nil
	}
	return fields(v.GetStructValue().GetFields())
}

func (f fields) list(keys ...string) []*structpb.Value {
	v, ok := f.lookup(keys...)
	if !ok {
		return nil
	}
	return v.GetListValue().GetValues()
}
