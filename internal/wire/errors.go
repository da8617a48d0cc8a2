package wire

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"activity-hub/internal/model"
)

// ErrorDomain tags the ErrorInfo detail attached to every mapped status.
const ErrorDomain = "activityhub"

const (
	ReasonNotFound             = "NOT_FOUND"
	ReasonForbidden            = "FORBIDDEN"
	ReasonAlreadyMember        = "ALREADY_MEMBER"
	ReasonCapacityExceeded     = "CAPACITY_EXCEEDED"
	ReasonEventNotJoinable     = "EVENT_NOT_JOINABLE"
	ReasonNotAMember           = "NOT_A_MEMBER"
	ReasonOrganizerCannotLeave = "ORGANIZER_CANNOT_LEAVE"
	ReasonValidation           = "VALIDATION"
)

type mapping struct {
	sentinel error
	code     codes.Code
	reason   string
}

var mappings = []mapping{
	{model.ErrNotFound, codes.NotFound, ReasonNotFound},
	{model.ErrForbidden, codes.PermissionDenied, ReasonForbidden},
	{model.ErrAlreadyMember, codes.AlreadyExists, ReasonAlreadyMember},
	{model.ErrCapacityExceeded, codes.ResourceExhausted, ReasonCapacityExceeded},
	{model.ErrEventNotJoinable, codes.FailedPrecondition, ReasonEventNotJoinable},
	{model.ErrNotAMember, codes.FailedPrecondition, ReasonNotAMember},
	{model.ErrOrganizerCannotLeave, codes.FailedPrecondition, ReasonOrganizerCannotLeave},
}

// Status converts a domain error into a gRPC status. Unknown errors become
// Internal with a generic message so storage details do not leak.
func Status(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}
	if s, ok := status.FromError(err); ok {
		return s
	}

	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return withInfo(codes.InvalidArgument, ve.Error(), ReasonValidation, map[string]string{
			"field":  ve.Field,
			"reason": ve.Reason,
		})
	}
	for _, m := range mappings {
		if errors.Is(err, m.sentinel) {
			return withInfo(m.code, m.sentinel.Error(), m.reason, nil)
		}
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, err.Error())
	}
	return status.New(codes.Internal, "internal error")
}

// Error is Status(err).Err().
func Error(err error) error {
	if err == nil {
		return nil
	}
	return Status(err).Err()
}

func withInfo(code codes.Code, msg, reason string, meta map[string]string) *status.Status {
	s := status.New(code, msg)
	d, err := s.WithDetails(&errdetails.ErrorInfo{Domain: ErrorDomain, Reason: reason, Metadata: meta})
	if err != nil {
		return s
	}
	return d
}

// FromStatus restores the domain error carried by a status returned from the
// server, so callers can keep using errors.Is and errors.As.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	s, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range s.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != ErrorDomain {
			continue
		}
		if info.GetReason() == ReasonValidation {
			return &model.ValidationError{Field: info.GetMetadata()["field"], Reason: info.GetMetadata()["reason"]}
		}
		for _, m := range mappings {
			if m.reason == info.GetReason() {
				return &statusError{sentinel: m.sentinel, msg: s.Message()}
			}
		}
	}
	switch s.Code() {
	case codes.NotFound:
		return &statusError{sentinel: model.ErrNotFound, msg: s.Message()}
	case codes.PermissionDenied:
		return &statusError{sentinel: model.ErrForbidden, msg: s.Message()}
	case codes.AlreadyExists:
		return &statusError{sentinel: model.ErrAlreadyMember, msg: s.Message()}
	case codes.ResourceExhausted:
		if s.Message() == model.ErrCapacityExceeded.Error() {
			return &statusError{sentinel: model.ErrCapacityExceeded, msg: s.Message()}
		}
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	}
	return err
}

type statusError struct {
	sentinel error
	msg      string
}

func (e *statusError) Error() string {
	if e.msg == "" {
		return e.sentinel.Error()
	}
	return e.msg
}

func (e *statusError) Unwrap() error { return e.sentinel }
