package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"gatehouse.io/internal/auth"
)

const (
	authHeader = "Authorization"

	msgNoToken           = "No token provided"
	msgInvalidAuthFormat = "Invalid authorization format"
	msgInvalidToken      = "Invalid or expired token"
	msgForbidden         = "Insufficient privileges"
)

var (
	errNoToken           = errors.New(msgNoToken)
	errInvalidAuthFormat = errors.New(msgInvalidAuthFormat)
)

// withAuth resolves the bearer token into a principal and attaches it to the
// request context.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="gatehouse"`)
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		principal, err := a.auth.AuthenticateToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="gatehouse", error="invalid_token"`)
			}
			fail(w, r, err)
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requirePrivileges rejects callers missing any of the required codes.
func (a *API) requirePrivileges(required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, msgNoToken)
				return
			}
			if err := principal.Require(required...); err != nil {
				fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errNoToken
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errInvalidAuthFormat
	}
	return parts[1], nil
}
