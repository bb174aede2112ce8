package auth

import (
	"context"
	"fmt"
	"net/http"

	"ms-theatre/internal/logger"
	"ms-theatre/internal/models"
	"ms-theatre/internal/utils"
)

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the caller attached by Authenticate, or nil for
// anonymous requests.
func IdentityFrom(ctx context.Context) *models.Identity {
	id, _ := ctx.Value(identityKey).(*models.Identity)
	return id
}

// UserID is a shortcut for handlers that only need the subject.
func UserID(ctx context.Context) string {
	if id := IdentityFrom(ctx); id != nil {
		return id.UserID
	}
	return ""
}

// Authenticate attaches the caller's identity when a bearer token is
// present. Requests without a token pass through anonymously; a token that
// fails verification is rejected.
func Authenticate(verifier TokenVerifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.WriteError(w, fmt.Errorf("%w: %v", models.ErrUnauthenticated, err))
				return
			}
			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				log.LogSecurity("INVALID_TOKEN", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFrom(r.Context()) == nil {
			utils.WriteError(w, models.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFrom(r.Context())
		if id == nil {
			utils.WriteError(w, models.ErrUnauthenticated)
			return
		}
		if !id.IsStaff {
			utils.WriteError(w, models.ErrPermissionDenied)
			return
		}
		next.ServeHTTP(w, r)
	})
}
