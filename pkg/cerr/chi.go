package cerr

import (
	"context"
	"net/http"
)

// reply is what a REST handler leaves behind for the middleware to write.
type reply struct {
	status int
	body   any
	err    error
}

type replyKey struct{}

func setReply(ctx context.Context, fn func(*reply)) {
	if r, ok := ctx.Value(replyKey{}).(*reply); ok {
		fn(r)
	}
}

func SetJSONResponse(ctx context.Context, body any) {
	SetJSONResponseWithStatus(ctx, http.StatusOK, body)
}

// SetJSONResponseWithStatus is SetJSONResponse with a non-200 success
// status, e.g. 201 for a created resource.
func SetJSONResponseWithStatus(ctx context.Context, status int, body any) {
	setReply(ctx, func(r *reply) {
		r.status = status
		r.body = body
	})
}

func SetJSONError(ctx context.Context, err error) {
	setReply(ctx, func(r *reply) { r.err = err })
}

func SetNewJSONError(ctx context.Context, code Code, msg string, err error) {
	SetJSONError(ctx, NewError(code, msg, err))
}

// NewConvertConnectErrorChiMiddleware collects the handler's response or
// error from the request context and writes it as JSON once the handler
// returns. Handlers must not write to the ResponseWriter themselves.
func NewConvertConnectErrorChiMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			rep := &reply{}
			ctx := context.WithValue(r.Context(), replyKey{}, rep)
			next.ServeHTTP(rw, r.WithContext(ctx))
			switch {
			case rep.err != nil:
				writeJSONError(ctx, rw, classify(ctx, rep.err))
			case rep.body == nil:
				rw.WriteHeader(http.StatusNoContent)
			default:
				writeJSON(ctx, rw, rep.status, rep.body)
			}
		})
	}
}
