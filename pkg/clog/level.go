package clog

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
)

// serverFaults are the codes that point at a problem on our side. Every
// other code is the caller's doing and is logged at info.
var serverFaults = map[connect.Code]bool{
	connect.CodeUnknown:           true,
	connect.CodeResourceExhausted: true,
	connect.CodeUnimplemented:     true,
	connect.CodeInternal:          true,
	connect.CodeUnavailable:       true,
	connect.CodeDataLoss:          true,
}

// CodeLevel is the level an RPC finishing with code is logged at.
func CodeLevel(code connect.Code) slog.Level {
	if serverFaults[code] {
		return slog.LevelError
	}
	return slog.LevelInfo
}

// StatusLevel is the level a REST response with status is logged at. 499
// (client closed request) is not a failure.
func StatusLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError, status < 100:
		return slog.LevelError
	case status == 499, status < http.StatusBadRequest:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

func logAt(ctx context.Context, level slog.Level, msg string) {
	slog.Default().Log(ctx, level, msg)
}
