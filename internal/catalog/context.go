package catalog

import "context"

type bearerKey struct{}

// WithBearer returns a copy of ctx whose backend calls forward tok as
// the Authorization bearer.
func WithBearer(ctx context.Context, tok string) context.Context {
	return context.WithValue(ctx, bearerKey{}, tok)
}

// BearerFromContext returns the token set by WithBearer, or "".
func BearerFromContext(ctx context.Context) string {
	s, _ := ctx.Value(bearerKey{}).(string)
	return s
}
