package cq

import (
	"fmt"

	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
)

// Status is the terminal wire status sent with every response's last op
// batch. It mirrors grpc::Status: a code plus a human-readable message.
// Using google.golang.org/grpc/codes (rather than a hand-rolled enum) keeps
// the error taxonomy in spec.md §7 expressible in the same vocabulary a
// real grpc-go service would use, even though the bytes on the wire are
// cqserve's own framing, not grpc-go's.
type Status struct {
	Code    codes.Code
	Message string
}

// OK is the zero-value success status.
var OK = Status{Code: codes.OK}

// Err formats a Status as an error, for use with errors.Wrap et al.
func (s Status) Err() error {
	if s.Code == codes.OK {
		return nil
	}
	return errors.New(s.String())
}

func (s Status) String() string {
	return fmt.Sprintf("%s: %s", s.Code, s.Message)
}

// StatusFromError converts an application error into a terminal Status.
// A *StatusError round-trips its code and message; any other error becomes
// codes.Unknown with err.Error() as the message, matching spec.md §7's
// "service-logic failure ... forwards it as the terminal status verbatim".
func StatusFromError(err error) Status {
	if err == nil {
		return OK
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return Status{Code: codes.Unknown, Message: err.Error()}
}

// StatusError is an application error carrying an explicit wire Status.
// Handlers that want a specific terminal code (codes.InvalidArgument,
// codes.NotFound, ...) return one of these instead of a plain error.
type StatusError struct {
	Status Status
	cause  error
}

// NewStatusError builds a StatusError with the given code and message.
func NewStatusError(code codes.Code, format string, args ...any) *StatusError {
	return &StatusError{Status: Status{Code: code, Message: fmt.Sprintf(format, args...)}}
}

func (e *StatusError) Error() string { return e.Status.String() }

func (e *StatusError) Unwrap() error { return e.cause }

// errDeserialize wraps a codec failure as the INVALID_ARGUMENT terminal
// status spec.md §7's "deserialization failure" case describes.
func errDeserialize(err error) *StatusError {
	return &StatusError{
		Status: Status{Code: codes.InvalidArgument, Message: errors.Wrap(err, "deserialize request").Error()},
		cause:  err,
	}
}

// errNoResponseWritten is the INTERNAL status spec.md §4.1's StreamedUnary
// rule rewrites a successful-but-silent handler's status to.
var errNoResponseWritten = &StatusError{
	Status: Status{Code: codes.Internal, Message: "Service did not provide response message"},
}

// errUnimplemented builds the UNIMPLEMENTED status the Unknown-Method
// Responder (§4.5) sends for any unregistered method slot.
func errUnimplemented(method string) *StatusError {
	return &StatusError{Status: Status{Code: codes.Unimplemented, Message: fmt.Sprintf("method %q is not implemented", method)}}
}
