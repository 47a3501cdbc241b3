// Package session carries the authenticated identity through request
// context. Token verification itself is delegated to the managed auth layer
// in front of the service; by the time a request reaches a handler the
// subject has already been established.
package session

import "context"

// ctxKey is an unexported type used as the context key for Identity.
type ctxKey struct{}

// Identity is the resolved external-auth identity for one request.
type Identity struct {
	AuthID string
}

// WithIdentity returns a new context with the given Identity attached.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext retrieves the Identity from the context.
// Returns the zero value and false if no identity is set.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// AuthIDFromContext is a convenience function that returns the auth id from
// the context, or "" if no identity is set.
func AuthIDFromContext(ctx context.Context) string {
	id, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return id.AuthID
}
