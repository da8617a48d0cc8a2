package wire

import (
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"activity-hub/internal/model"
)

func FilterToStruct(f model.Filter) (*structpb.Struct, error) {
	m := map[string]any{}
	put := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	put("sport", f.Sport)
	put("type", string(f.Kind))
	put("location", f.Location)
	put("organizer_id", f.OrganizerID)
	if len(f.Statuses) > 0 {
		list := make([]any, len(f.Statuses))
		for i, s := range f.Statuses {
			list[i] = string(s)
		}
		m["statuses"] = list
	}
	if f.StartAfter != nil {
		m["start_after"] = formatTime(*f.StartAfter)
	}
	if f.StartBefore != nil {
		m["start_before"] = formatTime(*f.StartBefore)
	}
	if f.MinCapacity != nil {
		m["min_capacity"] = *f.MinCapacity
	}
	if f.MaxCapacity != nil {
		m["max_capacity"] = *f.MaxCapacity
	}
	if f.Near != nil {
		m["lat"], m["lon"] = f.Near.Lat, f.Near.Lon
		m["radius_km"] = f.RadiusKm
	}
	if f.Ascending {
		m["order"] = "asc"
	}
	if f.Limit > 0 {
		m["limit"] = f.Limit
	}
	if f.Offset > 0 {
		m["offset"] = f.Offset
	}
	return structpb.NewStruct(m)
}

// FilterFromStruct accepts statuses as a list or as one comma-separated
// "status" string. Unknown statuses are dropped by Filter.Normalize.
func FilterFromStruct(s *structpb.Struct) (model.Filter, error) {
	f := fields(s.GetFields())
	out := model.Filter{
		Sport:       f.str("sport"),
		Kind:        model.Kind(strings.ToLower(f.str("type", "kind"))),
		Location:    f.str("location"),
		OrganizerID: f.id("organizer_id", "organizerId"),
	}
	for _, v := range f.list("statuses") {
		out.Statuses = append(out.Statuses, model.Status(strings.ToLower(v.GetStringValue())))
	}
	if raw := f.str("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if st, ok := model.ParseStatus(part); ok {
				out.Statuses = append(out.Statuses, st)
			}
		}
	}

	after, err := f.time("start_after", "startAfter")
	if err != nil {
		return out, err
	}
	if !after.IsZero() {
		out.StartAfter = &after
	}
	before, err := f.time("start_before", "startBefore")
	if err != nil {
		return out, err
	}
	if !before.IsZero() {
		out.StartBefore = &before
	}

	if n, ok := f.num("min_capacity", "minCapacity"); ok {
		c := int(n)
		out.MinCapacity = &c
	}
	if n, ok := f.num("max_capacity", "maxCapacity"); ok {
		c := int(n)
		out.MaxCapacity = &c
	}

	lat, hasLat := f.num("lat", "latitude")
	lon, hasLon := f.num("lon", "lng", "longitude")
	if hasLat && hasLon {
		out.Near = &model.Position{Lat: lat, Lon: lon}
		out.RadiusKm, _ = f.num("radius_km", "radiusKm", "radius")
	}

	out.Ascending = strings.EqualFold(f.str("order"), "asc")
	if n, ok := f.num("limit"); ok {
		out.Limit = int(n)
	}
	if n, ok := f.num("offset"); ok {
		out.Offset = int(n)
	}
	return out, nil
}
