// Package identity carries the resolved authenticated caller through the
// application. Authentication bootstrap (token verification) happens at the
// HTTP edge; everything below it receives an Identity value explicitly
// rather than reading ambient globals.
package identity

import "context"

type Identity struct {
	ID      string
	Email   string
	IsAdmin bool
}

type ctxKey struct{}

// WithIdentity stashes the resolved identity on a context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext retrieves the identity placed by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.ID != ""
}
