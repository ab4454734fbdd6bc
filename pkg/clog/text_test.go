package clog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectTextHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewConnectTextHandler(&buf, WithColor(false), WithLevel(slog.LevelDebug)))

	logger.Info("Finished",
		"procedure", "/taskboard.v1.TaskService/CreateTask",
		"method", "POST",
		"code", "ok",
		"duration", "3ms",
	)

	out := buf.String()
	assert.Contains(t, out, `INFO POST /taskboard.v1.TaskService/CreateTask "[ok] Finished"`)
	assert.Contains(t, out, "    duration=3ms\n")
	assert.NotContains(t, out, "code=")
}

func TestHTTPTextHandler_Error(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHTTPTextHandler(&buf, WithColor(false)))

	logger.Warn("Not Found", "method", "GET", "path", "/api/tasks/x", "status", 404, ErrorAttributeKey, "task not found")

	out := buf.String()
	assert.Contains(t, out, `WARN GET /api/tasks/x 404 Not Found "task not found"`)
}

func TestTextHandler_Level(t *testing.T) {
	h := NewHTTPTextHandler(&bytes.Buffer{}, WithLevel(slog.LevelWarn))
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestAttributesHandler_AddsContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewAttributesHandler(NewHTTPTextHandler(&buf, WithColor(false))))

	ctx := ContextWithSlog(context.Background())
	AddAttribute(ctx, "task_id", "01J0000000000000000000000")
	logger.InfoContext(ctx, "task created")

	require.Contains(t, buf.String(), "task_id=01J0000000000000000000000")
}
