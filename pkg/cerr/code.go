package cerr

import (
	"net/http"

	"connectrpc.com/connect"
)

// Code is an error class. The values match connect (and gRPC) codes, so
// conversion is a cast.
type Code int

const (
	OK Code = iota
	Canceled
	Unknown
	InvalidArgument
	DeadlineExceeded
	NotFound
	AlreadyExists
	PermissionDenied
	ResourceExhausted
	FailedPrecondition
	Aborted
	OutOfRange
	Unimplemented
	Internal
	Unavailable
	DataLoss
	Unauthenticated
)

var codeTable = [...]struct {
	name   string
	status int
}{
	OK:                 {"ok", http.StatusOK},
	Canceled:           {"canceled", 499},
	Unknown:            {"unknown", http.StatusInternalServerError},
	InvalidArgument:    {"invalid_argument", http.StatusBadRequest},
	DeadlineExceeded:   {"deadline_exceeded", http.StatusGatewayTimeout},
	NotFound:           {"not_found", http.StatusNotFound},
	AlreadyExists:      {"already_exists", http.StatusConflict},
	PermissionDenied:   {"permission_denied", http.StatusForbidden},
	ResourceExhausted:  {"resource_exhausted", http.StatusTooManyRequests},
	FailedPrecondition: {"failed_precondition", http.StatusPreconditionFailed},
	Aborted:            {"aborted", http.StatusConflict},
	OutOfRange:         {"out_of_range", http.StatusBadRequest},
	Unimplemented:      {"unimplemented", http.StatusNotImplemented},
	Internal:           {"internal", http.StatusInternalServerError},
	Unavailable:        {"unavailable", http.StatusServiceUnavailable},
	DataLoss:           {"data_loss", http.StatusInternalServerError},
	Unauthenticated:    {"unauthenticated", http.StatusUnauthorized},
}

func (c Code) valid() bool {
	return c >= OK && int(c) < len(codeTable)
}

func (c Code) String() string {
	if !c.valid() {
		return "unknown"
	}
	return codeTable[c].name
}

func (c Code) ConnectCode() connect.Code {
	if !c.valid() {
		return connect.CodeUnknown
	}
	return connect.Code(c)
}

func (c Code) HTTPCode() int {
	if !c.valid() {
		return http.StatusInternalServerError
	}
	return codeTable[c].status
}

// NewCodeFromConnectError recovers a Code from an error returned by a
// connect client. Errors that carry no connect code map to Unknown.
func NewCodeFromConnectError(err error) Code {
	c := Code(connect.CodeOf(err))
	if c == OK || !c.valid() {
		return Unknown
	}
	return c
}
