package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/chessmatch/internal/api/apierr"
	"github.com/mcoot/chessmatch/internal/middleware"
)

// Recovery creates panic recovery middleware for the API. Panics become
// INTERNAL_ERROR responses unless the connection was already upgraded.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger.With(slog.String("component", "api")), apiPanicHandler)
}

func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	if rw, ok := w.(*middleware.ResponseWriter); ok && rw.Status() == http.StatusSwitchingProtocols {
		return
	}
	apierr.WriteError(w, apierr.NewInternalError())
}
