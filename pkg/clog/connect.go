package clog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// ConnectInterceptor writes one access log line per RPC. Streams also get a
// line when they open, since an event subscription can stay up for hours.
type ConnectInterceptor struct{}

func NewSlogConnectInterceptor() *ConnectInterceptor {
	return &ConnectInterceptor{}
}

func (ConnectInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		ctx = startRPC(ctx, req.Spec(), req.HTTPMethod(), req.Peer())
		start := time.Now()
		resp, err := next(ctx, req)
		finishRPC(ctx, start, err)
		return resp, err
	}
}

func (ConnectInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (ConnectInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		ctx = startRPC(ctx, conn.Spec(), "", conn.Peer())
		slog.InfoContext(ctx, "Connected")
		start := time.Now()
		err := next(ctx, conn)
		finishRPC(ctx, start, err)
		return err
	}
}

func startRPC(ctx context.Context, spec connect.Spec, method string, peer connect.Peer) context.Context {
	ctx = ContextWithSlog(ctx)
	if method != "" {
		AddAttribute(ctx, "method", method)
	}
	AddAttribute(ctx, "stream_type", spec.StreamType.String())
	AddAttribute(ctx, "procedure", spec.Procedure)
	if peer.Addr != "" {
		AddAttribute(ctx, "peer", peer.Addr)
	}
	return ctx
}

func finishRPC(ctx context.Context, start time.Time, err error) {
	AddAttribute(ctx, "duration", time.Since(start))
	if err == nil {
		AddAttribute(ctx, "code", "ok")
		slog.InfoContext(ctx, "Finished")
		return
	}
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		connectErr = connect.NewError(connect.CodeUnknown, err)
	}
	AddAttribute(ctx, "code", connectErr.Code().String())
	if details := connectErr.Details(); len(details) > 0 {
		types := make([]string, 0, len(details))
		for _, d := range details {
			types = append(types, d.Type())
		}
		AddAttribute(ctx, "err_details", types)
	}
	logAt(ctx, CodeLevel(connectErr.Code()), connectErr.Message())
}
