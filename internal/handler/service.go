package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"activity-hub/internal/wire"
)

// EventServiceServer is the server side of activityhub.v1.EventService.
// Request and response messages are protobuf well-known types; the layout of
// each Struct is defined by package wire.
type EventServiceServer interface {
	ListEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetEvent(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	CreateEvent(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelEvent(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	DeleteEvent(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	JoinEvent(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	LeaveEvent(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	ListParticipants(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetMembership(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListMemberships(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	EventsNeedingUpdate(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	UpdateStatuses(context.Context, *emptypb.Empty) (*wrapperspb.Int64Value, error)
}

var _ EventServiceServer = (*Handler)(nil)

func Register(s grpc.ServiceRegistrar, srv EventServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: wire.ServiceName,
	HandlerType: (*EventServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListEvents", Handler: unary(wire.MethodListEvents, EventServiceServer.ListEvents)},
		{MethodName: "GetEvent", Handler: unary(wire.MethodGetEvent, EventServiceServer.GetEvent)},
		{MethodName: "CreateEvent", Handler: unary(wire.MethodCreateEvent, EventServiceServer.CreateEvent)},
		{MethodName: "CancelEvent", Handler: unary(wire.MethodCancelEvent, EventServiceServer.CancelEvent)},
		{MethodName: "DeleteEvent", Handler: unary(wire.MethodDeleteEvent, EventServiceServer.DeleteEvent)},
		{MethodName: "JoinEvent", Handler: unary(wire.MethodJoinEvent, EventServiceServer.JoinEvent)},
		{MethodName: "LeaveEvent", Handler: unary(wire.MethodLeaveEvent, EventServiceServer.LeaveEvent)},
		{MethodName: "ListParticipants", Handler: unary(wire.MethodListParticipants, EventServiceServer.ListParticipants)},
		{MethodName: "GetMembership", Handler: unary(wire.MethodGetMembership, EventServiceServer.GetMembership)},
		{MethodName: "ListMemberships", Handler: unary(wire.MethodListMemberships, EventServiceServer.ListMemberships)},
		{MethodName: "EventsNeedingUpdate", Handler: unary(wire.MethodEventsNeedingUpdate, EventServiceServer.EventsNeedingUpdate)},
		{MethodName: "UpdateStatuses", Handler: unary(wire.MethodUpdateStatuses, EventServiceServer.UpdateStatuses)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "activityhub/v1/event_service.proto",
}

// unary adapts a typed method to grpc.MethodDesc, the same shape protoc-gen-go-grpc emits.
func unary[Req any, PReq interface {
	*Req
	proto.Message
}, Resp proto.Message](
	method string,
	call func(EventServiceServer, context.Context, PReq) (Resp, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(EventServiceServer)
		if ic == nil {
			out, err := call(s, ctx, in)
			return out, err
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		next := func(ctx context.Context, req any) (any, error) {
			out, err := call(s, ctx, req.(PReq))
			return out, err
		}
		return ic(ctx, in, info, next)
	}
}
