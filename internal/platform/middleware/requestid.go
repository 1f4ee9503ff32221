package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"fakturo/pkg/requestcontext"
)

// HeaderRequestID is the correlation header honored and echoed by RequestID.
const HeaderRequestID = "X-Request-ID"

// RequestID propagates an incoming correlation ID, or mints one, into the
// request context and the response headers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(HeaderRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
