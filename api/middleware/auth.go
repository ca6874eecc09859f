package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/footfall-dashboard/api/responses"
	pkgAuth "github.com/angelmondragon/footfall-dashboard/pkg/auth"
	"github.com/angelmondragon/footfall-dashboard/pkg/auth/session"
	"github.com/angelmondragon/footfall-dashboard/pkg/config"
	pkgerrors "github.com/angelmondragon/footfall-dashboard/pkg/errors"
	"github.com/angelmondragon/footfall-dashboard/pkg/logger"
)

// Auth validates a bearer token, checks its Redis session and seeds the request context.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if verifier != nil {
				ok, err := verifier.HasSession(r.Context(), claims.SessionID())
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			ctx := context.WithValue(r.Context(), ctxSessionID, claims.SessionID())
			ctx = context.WithValue(ctx, ctxOperator, claims.Email)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, claims.SessionID())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) >= 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = raw[7:]
	}
	return strings.TrimSpace(raw)
}
