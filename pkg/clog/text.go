package clog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"
)

type TextHandlerConfig struct {
	Color bool
	Level *slog.Level
}

type TextHandlerOption func(*TextHandlerConfig)

func WithColor(c bool) TextHandlerOption {
	return func(cfg *TextHandlerConfig) {
		cfg.Color = c
	}
}

func WithLevel(level slog.Level) TextHandlerOption {
	return func(cfg *TextHandlerConfig) {
		cfg.Level = &level
	}
}

// TextHandler is a human oriented slog.Handler for local development. The
// configured lead columns are printed on the record line, every other
// attribute follows on its own indented line in key order.
type TextHandler struct {
	cfg          TextHandlerConfig
	columns      []string
	quoteMessage bool
	attrs        []slog.Attr
	groups       []string

	mu *sync.Mutex
	w  io.Writer
}

// NewConnectTextHandler prints RPC records as
// "time LEVEL method stream_type procedure "[code] message"".
func NewConnectTextHandler(w io.Writer, opts ...TextHandlerOption) *TextHandler {
	return newTextHandler(w, []string{"method", "stream_type", "procedure"}, true, opts)
}

// NewHTTPTextHandler prints REST records as "time LEVEL proto method path status message".
func NewHTTPTextHandler(w io.Writer, opts ...TextHandlerOption) *TextHandler {
	return newTextHandler(w, []string{"proto", "method", "path", "status"}, false, opts)
}

func newTextHandler(w io.Writer, columns []string, quote bool, opts []TextHandlerOption) *TextHandler {
	cfg := TextHandlerConfig{
		Color: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &TextHandler{
		cfg:          cfg,
		columns:      columns,
		quoteMessage: quote,
		mu:           &sync.Mutex{},
		w:            w,
	}
}

func (h *TextHandler) clone() *TextHandler {
	nh := *h
	nh.groups = append([]string(nil), h.groups...)
	nh.attrs = append([]slog.Attr(nil), h.attrs...)
	return &nh
}

func (h *TextHandler) Enabled(_ context.Context, l slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.cfg.Level != nil {
		minLevel = h.cfg.Level.Level()
	}
	return l >= minLevel
}

func (h *TextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := h.clone()
	nh.groups = append(nh.groups, name)
	return nh
}

func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := h.clone()
	nh.attrs = append(nh.attrs, attrs...)
	return nh
}

func (h *TextHandler) Handle(_ context.Context, record slog.Record) error {
	buf := bytes.NewBuffer(make([]byte, 0, 1024))
	paint := func(attr color.Attribute, format string, args ...any) error {
		c := color.New(attr)
		if h.cfg.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		_, err := c.Fprintf(buf, format, args...)
		return err
	}

	if err := paint(color.Reset, "%s ", record.Time.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("can't write time: %w", err)
	}
	if err := paint(levelColor(record.Level), "%s ", record.Level); err != nil {
		return fmt.Errorf("can't write level: %w", err)
	}

	kv := map[string]slog.Value{}
	for _, attr := range h.attrs {
		kv[attr.Key] = attr.Value
	}
	record.Attrs(func(attr slog.Attr) bool {
		kv[attr.Key] = attr.Value
		return true
	})
	for _, key := range h.columns {
		if v, ok := kv[key]; ok {
			delete(kv, key)
			if err := paint(color.Reset, "%s ", v); err != nil {
				return fmt.Errorf("can't write %s: %w", key, err)
			}
		}
	}

	msg := record.Message
	if v, ok := kv["code"]; ok && h.quoteMessage {
		delete(kv, "code")
		msg = fmt.Sprintf("[%s] %s", v, msg)
	}
	if h.quoteMessage {
		msg = `"` + msg + `"`
	}
	if err := paint(color.FgGreen, "%s", msg); err != nil {
		return fmt.Errorf("can't write message: %w", err)
	}
	if e, ok := kv[ErrorAttributeKey]; ok {
		delete(kv, ErrorAttributeKey)
		if err := paint(color.FgRed, " %q", e.String()); err != nil {
			return fmt.Errorf("can't write err: %w", err)
		}
	}
	buf.WriteByte('\n')

	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := paint(color.Reset, "    %s=%s\n", k, kv[k]); err != nil {
			return fmt.Errorf("can't write %s: %w", k, err)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func levelColor(l slog.Level) color.Attribute {
	switch {
	case l >= slog.LevelError:
		return color.FgRed
	case l >= slog.LevelWarn:
		return color.FgYellow
	case l >= slog.LevelInfo:
		return color.FgBlue
	default:
		return color.FgCyan
	}
}
