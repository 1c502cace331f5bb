package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ayush/taskboard/backend/internal/apperr"
	"github.com/ayush/taskboard/backend/internal/auth"
	"github.com/ayush/taskboard/backend/internal/models"
	"github.com/ayush/taskboard/backend/internal/web"
)

// UserResolver resolves a verified token subject to a full user record.
type UserResolver interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// RequireAuth validates the bearer token on the request, resolves the user it
// identifies and injects the identity into the request context. The middleware
// is side-effect-free apart from the store read.
func RequireAuth(tokens *auth.TokenService, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				web.Error(w, apperr.New(apperr.CodeAuthTokenMissing, "authorization header is required"))
				return
			}

			tokenString := strings.TrimPrefix(header, "Bearer ")
			if tokenString == header || tokenString == "" {
				web.Error(w, apperr.New(apperr.CodeAuthTokenMissing, "authorization header must use the Bearer scheme"))
				return
			}

			userID, err := tokens.Verify(tokenString)
			if err != nil {
				web.Error(w, err)
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, apperr.ErrNotFound) {
					web.Error(w, apperr.New(apperr.CodeUserNotFound, "user no longer exists"))
					return
				}
				web.Error(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}
