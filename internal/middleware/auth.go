package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/keisuke70/tasklazy/internal/database"
	"github.com/keisuke70/tasklazy/internal/logger"
	"github.com/keisuke70/tasklazy/internal/models"
	"github.com/keisuke70/tasklazy/internal/request"
	"github.com/keisuke70/tasklazy/internal/services/oidc"
)

// Auth verifies the bearer token and puts the matching user on the request
// context, creating the user on first sight.
func Auth(verifier oidc.TokenVerifier, users database.UserRepositoryInterface, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				respondError(w, r, http.StatusUnauthorized, "Unauthorized", "Missing or malformed Authorization header")
				return
			}

			ctx := r.Context()
			claims, err := verifier.Verify(ctx, strings.TrimSpace(token))
			if err != nil {
				log.Info("token_verification_failed",
					zap.String("request_id", request.RequestID(ctx)),
					zap.String("error", logger.SanitizeError(err)),
				)
				respondError(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
				return
			}

			user, err := users.GetByProviderID(ctx, claims.Sub)
			if errors.Is(err, database.ErrUserNotFound) {
				user = newUserFromClaims(claims)
				err = users.Create(ctx, user)
			}
			if err != nil {
				log.Error("user_lookup_failed",
					zap.String("request_id", request.RequestID(ctx)),
					zap.Error(err),
				)
				respondError(w, r, http.StatusInternalServerError, "Internal Server Error", "Failed to load user")
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

func newUserFromClaims(claims *models.JWTClaims) *models.User {
	user := &models.User{
		Email:      claims.Email,
		ProviderID: claims.Sub,
		TimeZone:   "UTC",
	}
	if claims.Name != "" {
		name := claims.Name
		user.Name = &name
	}
	return user
}
