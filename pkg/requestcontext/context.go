// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services read them without
// importing net/http.
package requestcontext

import (
	"context"
	"time"
)

type (
	studentIDKey   struct{}
	requestTimeKey struct{}
)

// StudentID retrieves the authenticated student ID from the context. Empty
// when no identity was attached.
func StudentID(ctx context.Context) string {
	if id, ok := ctx.Value(studentIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithStudentID injects a student ID into the context.
func WithStudentID(ctx context.Context, studentID string) context.Context {
	return context.WithValue(ctx, studentIDKey{}, studentID)
}

// Time retrieves the request-scoped timestamp. ok is false when no middleware
// captured one; callers fall back to their own clock.
func Time(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(requestTimeKey{}).(time.Time)
	return t, ok
}

// WithTime injects a timestamp into a context. Useful in tests that pin the
// pipeline to a fixed instant without running the HTTP middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
