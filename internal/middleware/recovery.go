package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// PanicHandler writes the error response for a recovered panic
type PanicHandler func(w http.ResponseWriter, r *http.Request, recovered any)

// Recovery creates panic recovery middleware. The request id set by Logging,
// when present, is attached to the log entry.
func Recovery(logger *slog.Logger, handler PanicHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}

				logger.Error("panic recovered",
					slog.Any("error", recovered),
					slog.String("stack", string(debug.Stack())),
					slog.String("request_id", w.Header().Get(RequestIDHeader)),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)

				handler(w, r, recovered)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
