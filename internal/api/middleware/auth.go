package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/pamarcar/stays/internal/api/problem"
	"github.com/pamarcar/stays/internal/auth"
	"github.com/pamarcar/stays/internal/metrics"
)

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal stores an authenticated principal in the request context.
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the authenticated principal from the
// request context. The second return is false for anonymous requests.
func PrincipalFromContext(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*auth.Principal)
	return p, ok && p != nil
}

// BearerAuth resolves the Authorization header into a principal. A missing
// header, a bad signature, or a token that does not parse all degrade the
// request to anonymous; downstream role checks decide whether anonymous is
// enough. An expired token is the one failure reported to the caller, so
// clients can distinguish "log in again" from "no credentials".
func BearerAuth(codec *auth.TokenCodec, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				metrics.TokenVerificationsTotal.WithLabelValues("missing").Inc()
				next.ServeHTTP(w, r)
				return
			}

			principal, err := codec.Verify(tokenString)
			switch {
			case err == nil:
				metrics.TokenVerificationsTotal.WithLabelValues("valid").Inc()
				next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
			case errors.Is(err, auth.ErrExpired):
				metrics.TokenVerificationsTotal.WithLabelValues("expired").Inc()
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeTokenExpired, "Token Expired", err, env)
			case errors.Is(err, auth.ErrBadSignature):
				metrics.TokenVerificationsTotal.WithLabelValues("bad_signature").Inc()
				next.ServeHTTP(w, r)
			default:
				metrics.TokenVerificationsTotal.WithLabelValues("malformed").Inc()
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RequireRole rejects requests whose principal does not hold the required
// role, directly or through the role hierarchy. Anonymous requests get 401,
// authenticated but insufficient ones 403.
func RequireRole(hierarchy *auth.Hierarchy, role string, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication Required", nil, env)
				return
			}
			if !hierarchy.Authorizes(principal.Roles, role) {
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Insufficient Role", nil, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SelfCheck reports whether the principal may access the resource identified
// by the request, bypassing the role requirement.
type SelfCheck func(r *http.Request, principal *auth.Principal) bool

// RequireRoleOrSelf admits a principal that either holds the required role
// or passes the self check, letting users read their own records without
// the elevated role.
func RequireRoleOrSelf(hierarchy *auth.Hierarchy, role string, isSelf SelfCheck, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Authentication Required", nil, env)
				return
			}
			if !hierarchy.Authorizes(principal.Roles, role) && !isSelf(r, principal) {
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Insufficient Role", nil, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
