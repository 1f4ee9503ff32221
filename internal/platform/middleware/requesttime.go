package middleware

import (
	"net/http"
	"time"

	"fakturo/pkg/requestcontext"
)

// RequestTime pins one timestamp per request so every operation inside it
// observes the same "now" in audit events and domain timestamps.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
