package clog

import (
	"context"
	"log/slog"
	"sync"
)

const (
	ErrorAttributeKey = "error.message"
	StackAttributeKey = "error.stack"
)

// scope collects attributes over the lifetime of one request. Handlers deep
// in the call tree add to it, and the access log line written by the
// middleware carries everything that was collected.
type scope struct {
	mu    sync.Mutex
	keys  map[string]int
	attrs []slog.Attr
}

type scopeKey struct{}

// ContextWithSlog starts a fresh attribute scope.
func ContextWithSlog(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKey{}, &scope{keys: make(map[string]int)})
}

func scopeFrom(ctx context.Context) *scope {
	s, _ := ctx.Value(scopeKey{}).(*scope)
	return s
}

// AddAttribute sets key on the request scope, replacing an earlier value.
// It is a no-op outside a scope.
func AddAttribute(ctx context.Context, key string, value any) {
	s := scopeFrom(ctx)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.keys[key]; ok {
		s.attrs[i] = slog.Any(key, value)
		return
	}
	s.keys[key] = len(s.attrs)
	s.attrs = append(s.attrs, slog.Any(key, value))
}

func AddError(ctx context.Context, err error) {
	AddAttribute(ctx, ErrorAttributeKey, err)
}

func AddStack(ctx context.Context, stack string) {
	AddAttribute(ctx, StackAttributeKey, stack)
}

// Attrs returns the attributes collected so far, in insertion order.
func Attrs(ctx context.Context) []slog.Attr {
	s := scopeFrom(ctx)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]slog.Attr(nil), s.attrs...)
}

// AttributesHandler adds the request scope of the record's context to every
// record it handles.
type AttributesHandler struct {
	slog.Handler
}

func NewAttributesHandler(h slog.Handler) *AttributesHandler {
	return &AttributesHandler{Handler: h}
}

func (h *AttributesHandler) Handle(ctx context.Context, record slog.Record) error {
	if attrs := Attrs(ctx); len(attrs) > 0 {
		record.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, record)
}

func (h *AttributesHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AttributesHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *AttributesHandler) WithGroup(name string) slog.Handler {
	return &AttributesHandler{Handler: h.Handler.WithGroup(name)}
}
