// Package wire is the gRPC payload format of the event service. Messages are
// protobuf well-known types: structpb.Struct for records and lists,
// wrapperspb.StringValue for ids, emptypb.Empty for no payload.
package wire

const ServiceName = "activityhub.v1.EventService"

const (
	MethodListEvents          = "/" + ServiceName + "/ListEvents"
	MethodGetEvent            = "/" + ServiceName + "/GetEvent"
	MethodCreateEvent         = "/" + ServiceName + "/CreateEvent"
	MethodCancelEvent         = "/" + ServiceName + "/CancelEvent"
	MethodDeleteEvent         = "/" + ServiceName + "/DeleteEvent"
	MethodJoinEvent           = "/" + ServiceName + "/JoinEvent"
	MethodLeaveEvent          = "/" + ServiceName + "/LeaveEvent"
	MethodListParticipants    = "/" + ServiceName + "/ListParticipants"
	MethodGetMembership       = "/" + ServiceName + "/GetMembership"
	MethodListMemberships     = "/" + ServiceName + "/ListMemberships"
	MethodEventsNeedingUpdate = "/" + ServiceName + "/EventsNeedingUpdate"
	MethodUpdateStatuses      = "/" + ServiceName + "/UpdateStatuses"
)

// list keys inside response structs
const (
	KeyEvents       = "events"
	KeyParticipants = "participants"
	KeyMemberships  = "memberships"
	KeyMembership   = "membership"
)
