package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"activity-hub/internal/discovery"
	"activity-hub/internal/eventstatus"
	"activity-hub/internal/geo"
	"activity-hub/internal/model"
)

// roles is the part of the snapshot the renderer reads.
type roles interface {
	Role(eventID string) (model.Role, bool)
}

func render(w io.Writer, v discovery.Views, r roles) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "activity hub  %s  %s\n", v.At.Local().Format("Mon 02 Jan 15:04"), where(v.Viewer))

	section(tw, "Happening now", v.HappeningNow, func(e *model.Event) string {
		return "until " + eventstatus.EffectiveEnd(e).Local().Format("15:04")
	})
	section(tw, "Upcoming near you", v.UpcomingNearYou, func(e *model.Event) string {
		if v.Viewer.Position == nil {
			return ""
		}
		p, ok := e.Position()
		if !ok {
			return ""
		}
		return fmt.Sprintf("%.1f km", geo.DistanceKm(v.Viewer.Position.Lat, v.Viewer.Position.Lon, p.Lat, p.Lon))
	})
	section(tw, "Your schedule", v.YourSchedule, func(e *model.Event) string {
		if role, ok := r.Role(e.ID); ok && role == model.RoleOrganizer {
			return "organizer"
		}
		return string(e.Status)
	})
	return tw.Flush()
}

func where(v discovery.Viewer) string {
	if v.Position != nil {
		return fmt.Sprintf("(%.4f, %.4f) within %g km", v.Position.Lat, v.Position.Lon, v.RadiusKm)
	}
	if v.ProfileLocation != "" {
		return "near " + v.ProfileLocation
	}
	return "anywhere"
}

func section(w io.Writer, title string, events []model.Event, note func(*model.Event) string) {
	fmt.Fprintf(w, "\n%s\n", title)
	if len(events) == 0 {
		fmt.Fprintln(w, "  nothing here")
		return
	}
	for i := range events {
		e := &events[i]
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			e.StartAt.Local().Format("2006-01-02 15:04"), e.Title, e.Sport, e.LocationName, spots(e), note(e))
	}
}

func spots(e *model.Event) string {
	if e.Capacity == nil {
		return fmt.Sprintf("%d going", e.ParticipantsCount)
	}
	return fmt.Sprintf("%d/%d", e.ParticipantsCount, *e.Capacity)
}
