package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/matthewbaird/ioncon/internal/app"
	"github.com/matthewbaird/ioncon/internal/session"
)

// Recovery turns a panic in a handler into a 500 response.
func Recovery(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic serving request",
						zap.Any("panic", rec),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Stack("stack"))
					writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Logging logs one line per request.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

type controllerKey struct{}

// Sessions resolves the session named by the X-Session-ID header (or the
// session query parameter, which browsers use for the stream) and puts its
// controller into the request context. Unknown or expired ids get a new
// session; the id in effect is echoed in the response header.
func Sessions(sessions *session.Manager[*app.Controller]) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(session.Header)
			if id == "" {
				id = r.URL.Query().Get("session")
			}
			s, _ := sessions.Resolve(id)
			w.Header().Set(session.Header, s.ID)
			ctx := context.WithValue(r.Context(), controllerKey{}, s.Value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func controllerFrom(ctx context.Context) *app.Controller {
	c, _ := ctx.Value(controllerKey{}).(*app.Controller)
	return c
}
