package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const RequestIDHeader = "X-Request-ID"

// EchoRequestID copies the ID assigned by chi's RequestID middleware onto the
// response so the browser can quote it when reporting an error.
func EchoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimiddleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

// GetRequestID returns the request ID of r, or "" outside chi's RequestID.
func GetRequestID(r *http.Request) string {
	return chimiddleware.GetReqID(r.Context())
}
