package auth

import (
	"context"
)

var requestAuthCtxKey = &contextKey{"request_auth"}

type contextKey struct {
	name string
}

// WithRequestAuth attaches the per-request authentication state to ctx
func WithRequestAuth(ctx context.Context, state *RequestAuth) context.Context {
	return context.WithValue(ctx, requestAuthCtxKey, state)
}

// RequestAuthFromContext returns the state attached by WithRequestAuth
func RequestAuthFromContext(ctx context.Context) (*RequestAuth, bool) {
	if ctx == nil {
		return nil, false
	}
	state, ok := ctx.Value(requestAuthCtxKey).(*RequestAuth)
	return state, ok && state != nil
}

// FromContext finds the authenticated user in the context
func FromContext(ctx context.Context) (*User, bool) {
	state, ok := RequestAuthFromContext(ctx)
	if !ok || !state.Authorized() || state.Identity == nil {
		return nil, false
	}
	return state.Identity, true
}

// GetClaims returns the verified claims of an authenticated request
func GetClaims(ctx context.Context) (Claims, bool) {
	state, ok := RequestAuthFromContext(ctx)
	if !ok || !state.Authorized() {
		return nil, false
	}
	return state.Claims, true
}
