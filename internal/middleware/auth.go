package middleware

import (
	"net/http"

	"warimas-orderflow/internal/auth"
	"warimas-orderflow/internal/logger"
	"warimas-orderflow/internal/utils"

	"go.uber.org/zap"
)

// InternalAuthHeader carries the shared secret of trusted internal callers.
const InternalAuthHeader = "X-Service-Auth"

// AuthMiddleware resolves the caller from the access token. It is passive for
// anonymous requests and rejects a token that is present but invalid.
func AuthMiddleware(secret []byte, internalKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if internalKey != "" && r.Header.Get(InternalAuthHeader) == internalKey {
				ctx = utils.WithInternalRequest(ctx)
			}

			tokenStr := auth.AccessToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			claims, err := auth.ParseToken(secret, tokenStr)
			if err != nil {
				logger.FromCtx(ctx).Debug("rejecting access token", zap.Error(err))
				utils.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx = utils.SetUserContext(ctx, claims.UserID, claims.Role, tokenStr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects anonymous requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
			utils.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
