package auth

import "context"

type authorityContextKey struct{}

// ContextWithAuthority stores the request authority in ctx.
func ContextWithAuthority(ctx context.Context, a *Authority) context.Context {
	return context.WithValue(ctx, authorityContextKey{}, a)
}

// AuthorityFromContext returns the request authority, or nil.
func AuthorityFromContext(ctx context.Context) *Authority {
	a, _ := ctx.Value(authorityContextKey{}).(*Authority)
	return a
}
