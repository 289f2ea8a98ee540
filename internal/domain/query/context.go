package query

import "context"

type ctxKey struct{}

// WithContext attaches a compiled query to the request context so the
// listing rendered in the same request applies it.
func WithContext(ctx context.Context, q Compiled) context.Context {
	return context.WithValue(ctx, ctxKey{}, q)
}

// FromContext returns the query attached by WithContext.
func FromContext(ctx context.Context) (Compiled, bool) {
	q, ok := ctx.Value(ctxKey{}).(Compiled)
	return q, ok
}
