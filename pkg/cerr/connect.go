package cerr

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/kazz187/taskboard/pkg/clog"
)

// ConnectErrorInterceptor converts handler errors into connect errors, so
// services can return *Error and callers see the matching code and details.
type ConnectErrorInterceptor struct{}

func NewConvertConnectErrorInterceptor() *ConnectErrorInterceptor {
	return &ConnectErrorInterceptor{}
}

func (ConnectErrorInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		resp, err := next(ctx, req)
		return resp, ExtractConnectError(ctx, err)
	}
}

func (ConnectErrorInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (ConnectErrorInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		return ExtractConnectError(ctx, next(ctx, conn))
	}
}

// ExtractConnectError maps err onto the wire. Errors that already are
// connect errors, e.g. from a downstream client, pass through unchanged.
func ExtractConnectError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var connectErr *connect.Error
	var cerr *Error
	if errors.As(err, &connectErr) && !errors.As(err, &cerr) {
		clog.AddError(ctx, err)
		return connectErr
	}
	return classify(ctx, err).ConnectError()
}
