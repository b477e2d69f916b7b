package session

import "context"

// ctxKey is the key type for storing a Session in context.
type ctxKey struct{}

// FromContext extracts the Session from ctx. Returns nil when absent;
// every Session method is nil-safe, so the result can be used directly.
func FromContext(ctx context.Context) *Session {
	if ctx == nil {
		return nil
	}
	if s, ok := ctx.Value(ctxKey{}).(*Session); ok {
		return s
	}
	return nil
}

// WithSession attaches a Session to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}
