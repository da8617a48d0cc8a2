package membership

import (
	"fmt"

	"activity-hub/internal/model"
)

// CheckJoin applies the join rules in order: the organizer is refused, then
// an existing membership, then a full event, then any status but upcoming.
// A full event therefore always reports ErrCapacityExceeded to newcomers.
func CheckJoin(e *model.Event, userID string, member bool) error {
	if e.OrganizerID == userID {
		return fmt.Errorf("%w: you organize this event", model.ErrEventNotJoinable)
	}
	if member {
		return model.ErrAlreadyMember
	}
	// capacity before status: a full cancelled or active event still reports full
	if e.Full() {
		return model.ErrCapacityExceeded
	}
	if e.Status != model.StatusUpcoming {
		return fmt.Errorf("%w: event is %s", model.ErrEventNotJoinable, e.Status)
	}
	return nil
}

// CheckLeave refuses the organizer regardless of status, then non-members.
func CheckLeave(e *model.Event, userID string, member bool) error {
	if e.OrganizerID == userID {
		return model.ErrOrganizerCannotLeave
	}
	if !member {
		return model.ErrNotAMember
	}
	return nil
}
