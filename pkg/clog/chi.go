package clog

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// SlogChiMiddleware writes one access log line per REST request. The level
// follows the response status.
func SlogChiMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := ContextWithSlog(r.Context())
			AddAttribute(ctx, "proto", r.Proto)
			AddAttribute(ctx, "method", r.Method)
			AddAttribute(ctx, "path", r.URL.Path)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			AddAttribute(ctx, "status", status)
			AddAttribute(ctx, "bytes_written", ww.BytesWritten())
			AddAttribute(ctx, "duration", time.Since(start))
			logAt(ctx, StatusLevel(status), http.StatusText(status))
		})
	}
}
