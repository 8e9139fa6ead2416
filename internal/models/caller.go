package models

import "context"

// Caller is the authenticated identity behind a request. It is only ever
// compared against Session.UserID.
type Caller struct {
	UserID string
}

type callerKey struct{}

// ContextWithCaller attaches the authenticated caller to ctx.
func ContextWithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext returns the caller placed by ContextWithCaller.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey{}).(Caller)
	return caller, ok
}
