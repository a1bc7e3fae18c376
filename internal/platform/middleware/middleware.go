// Package middleware provides the HTTP middleware that feeds request-scoped
// values to the attendance pipeline.
package middleware

import (
	"net/http"
	"time"

	"github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/requestcontext"
)

// StudentIDHeader carries the authenticated student ID. The session layer in
// front of this service authenticates the student and forwards the ID.
const StudentIDHeader = "X-Student-ID"

// StudentIdentity lifts the forwarded student ID into the request context.
// Endpoints that require an identity reject requests where none arrived.
func StudentIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if studentID := r.Header.Get(StudentIDHeader); studentID != "" {
			r = r.WithContext(requestcontext.WithStudentID(r.Context(), studentID))
		}
		next.ServeHTTP(w, r)
	})
}

// RequestTime captures one timestamp at the start of the request so every
// validation rule in a single scan evaluates against the same instant.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
