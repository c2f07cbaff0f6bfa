package auth

import "context"

type ctxKey int

const principalKey ctxKey = iota

// ContextWithPrincipal returns a child context carrying the authenticated principal.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal attached by the bearer guard.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok && p.User.ID != ""
}

// ActorFromContext returns the id and username of the acting user.
func ActorFromContext(ctx context.Context) (id, username string, ok bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return "", "", false
	}
	return p.User.ID, p.User.Username, true
}
