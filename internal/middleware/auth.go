package middleware

import (
	"net/http"
	"strings"

	"github.com/jdelorme/fieldsync/internal/auth"
	"github.com/jdelorme/fieldsync/internal/handler"
	"github.com/jdelorme/fieldsync/internal/store"
)

// RequireToken validates the bearer token on each request and populates
// AuthContext with the resolved account. The Authorization header may carry
// either "Bearer <token>" or the raw token. The token is not rotated on use.
func RequireToken(accounts *store.AccountStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				handler.RespondError(w, http.StatusUnauthorized, "Missing token")
				return
			}

			account, err := accounts.GetByToken(token)
			if err != nil || account == nil {
				handler.RespondError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ac := auth.AuthContext{
				AccountID: account.ID,
				Email:     account.Email,
				Name:      account.Name,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}
