// Package remote is the event repository as seen from a client process: every
// call is a gRPC request to the event service, made as the user named in the
// access token.
package remote

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"activity-hub/internal/auth"
	"activity-hub/internal/model"
	"activity-hub/internal/wire"
)

type Client struct {
	conn   grpc.ClientConnInterface
	closer io.Closer
	token  string
	userID string
}

// Dial connects to addr without transport security.
func Dial(addr, token string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c, err := New(conn, token)
	if err != nil {
		conn.Close()
		return nil, err
	}
	c.closer = conn
	return c, nil
}

// New uses an existing connection, which the caller keeps ownership of.
func New(conn grpc.ClientConnInterface, token string) (*Client, error) {
	uid, err := auth.Subject(token)
	if err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}
	return &Client{conn: conn, token: token, userID: uid}, nil
}

// UserID is the user every call is made as.
func (c *Client) UserID() string { return c.userID }

func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

func (c *Client) invoke(ctx context.Context, method string, in, out proto.Message) error {
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	return wire.FromStatus(c.conn.Invoke(ctx, method, in, out))
}

// self rejects calls on behalf of another user before they hit the network.
func (c *Client) self(userID string) error {
	if userID != c.userID {
		return model.ErrForbidden
	}
	return nil
}

func (c *Client) ListEvents(ctx context.Context, f model.Filter) ([]model.Event, error) {
	req, err := wire.FilterToStruct(f)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := c.invoke(ctx, wire.MethodListEvents, req, out); err != nil {
		return nil, err
	}
	return wire.EventsFromStruct(out, wire.KeyEvents)
}

func (c *Client) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	out := &structpb.Struct{}
	if err := c.invoke(ctx, wire.MethodGetEvent, wrapperspb.String(id), out); err != nil {
		return nil, err
	}
	return wire.EventFromStruct(out)
}

// CreateEvent creates e with the caller as organizer and overwrites e with
// the stored record.
func (c *Client) CreateEvent(ctx context.Context, e *model.Event) error {
	if e.OrganizerID != "" {
		if err := c.self(e.OrganizerID); err != nil {
			return err
		}
	}
	req, err := wire.EventToStruct(e)
	if err != nil {
		return err
	}
	out := &structpb.Struct{}
	if err := c.invoke(ctx, wire.MethodCreateEvent, req, out); err != nil {
		return err
	}
	created, err := wire.EventFromStruct(out)
	if err != nil {
		return err
	}
	*e = *created
	return nil
}

func (c *Client) CancelEvent(ctx context.Context, id, organizerID string) error {
	if err := c.self(organizerID); err != nil {
		return err
	}
	return c.invoke(ctx, wire.MethodCancelEvent, wrapperspb.String(id), &structpb.Struct{})
}

func (c *Client) DeleteEvent(ctx context.Context, id, organizerID string) error {
	if err := c.self(organizerID); err != nil {
		return err
	}
	return c.invoke(ctx, wire.MethodDeleteEvent, wrapperspb.String(id), &emptypb.Empty{})
}

func (c *Client) Join(ctx context.Context, eventID, userID string) error {
	if err := c.self(userID); err != nil {
		return err
	}
	return c.invoke(ctx, wire.MethodJoinEvent, wrapperspb.String(eventID), &emptypb.Empty{})
}

func (c *Client) Leave(ctx context.Context, eventID, userID string) error {
	if err := c.self(userID); err != nil {
		return err
	}
	return c.invoke(ctx, wire.MethodLeaveEvent, wrapperspb.String(eventID), &emptypb.Empty{})
}

func (c *Client) Membership(ctx context.Context, eventID, userID string) (*model.Membership, error) {
	if err := c.self(userID); err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := c.invoke(ctx, wire.MethodGetMembership, wrapperspb.String(eventID), out); err != nil {
		return nil, err
	}
	return wire.MembershipFromResult(out)
}

func (c *Client) Memberships(ctx context.Context, userID string) ([]model.Membership, error) {
	if err := c.self(userID); err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := c.invoke(ctx, wire.MethodListMemberships, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return wire.MembershipsFromStruct(out, wire.KeyMemberships)
}

func (c *Client) ListParticipants(ctx context.Context, eventID string) ([]model.Membership, error) {
	out := &structpb.Struct{}
	if err := c.invoke(ctx, wire.MethodListParticipants, wrapperspb.String(eventID), out); err != nil {
		return nil, err
	}
	return wire.MembershipsFromStruct(out, wire.KeyParticipants)
}

func (c *Client) ListEventsNeedingStatusUpdate(ctx context.Context) ([]model.Event, error) {
	out := &structpb.Struct{}
	if err := c.invoke(ctx, wire.MethodEventsNeedingUpdate, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return wire.EventsFromStruct(out, wire.KeyEvents)
}

func (c *Client) ApplyStatusUpdates(ctx context.Context) (int64, error) {
	out := &wrapperspb.Int64Value{}
	if err := c.invoke(ctx, wire.MethodUpdateStatuses, &emptypb.Empty{}, out); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}
