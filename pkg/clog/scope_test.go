package clog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope(t *testing.T) {
	ctx := ContextWithSlog(context.Background())
	AddAttribute(ctx, "task_id", "01A")
	AddAttribute(ctx, "procedure", "/x")
	AddAttribute(ctx, "task_id", "01B")
	AddError(ctx, errors.New("boom"))

	attrs := Attrs(ctx)
	require.Len(t, attrs, 3)
	assert.Equal(t, "task_id", attrs[0].Key)
	assert.Equal(t, "01B", attrs[0].Value.Any())
	assert.Equal(t, ErrorAttributeKey, attrs[2].Key)

	// outside a scope nothing is recorded
	bare := context.Background()
	AddAttribute(bare, "task_id", "01A")
	assert.Nil(t, Attrs(bare))
}

func TestAttributesHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewAttributesHandler(slog.NewJSONHandler(&buf, nil)))
	ctx := ContextWithSlog(context.Background())
	AddAttribute(ctx, "task_id", "01A")

	logger.InfoContext(ctx, "updated")
	assert.Contains(t, buf.String(), `"task_id":"01A"`)
}

func TestLevels(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, CodeLevel(connect.CodeNotFound))
	assert.Equal(t, slog.LevelInfo, CodeLevel(connect.CodeInvalidArgument))
	assert.Equal(t, slog.LevelError, CodeLevel(connect.CodeUnavailable))
	assert.Equal(t, slog.LevelError, CodeLevel(connect.CodeInternal))

	assert.Equal(t, slog.LevelInfo, StatusLevel(http.StatusCreated))
	assert.Equal(t, slog.LevelInfo, StatusLevel(499))
	assert.Equal(t, slog.LevelWarn, StatusLevel(http.StatusNotFound))
	assert.Equal(t, slog.LevelError, StatusLevel(http.StatusServiceUnavailable))
}

func TestSlogChiMiddleware(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(NewAttributesHandler(slog.NewJSONHandler(&buf, nil))))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := SlogChiMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddAttribute(r.Context(), "task_id", "01A")
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tasks/01A", nil))

	out := buf.String()
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"path":"/api/tasks/01A"`)
	assert.Contains(t, out, `"status":404`)
	assert.Contains(t, out, `"task_id":"01A"`)
}
