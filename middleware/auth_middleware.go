package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"nicetalk/models"
	"nicetalk/utils"
)

// BoundBackend 回報目前綁定的後端
type BoundBackend func() models.Backend

// JWTMiddleware 驗證 access token 並將聲明放入 context。
// token 可放在 Authorization: Bearer 標頭，或 WebSocket 使用的 token 查詢參數。
// 為其他後端簽發的 token 一律拒絕。
func JWTMiddleware(issuer *utils.TokenIssuer, bound BoundBackend, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			claims, err := issuer.Parse(tokenString)
			if err != nil {
				log.Debug().Err(err).Msg("Invalid JWT token")
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			if backend := bound(); claims.Backend != backend {
				log.Debug().Str("token", string(claims.Backend)).Str("bound", string(backend)).Msg("Token issued for another backend")
				http.Error(w, "Token issued for another backend", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(utils.WithClaims(r.Context(), claims)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		token := r.URL.Query().Get("token")
		return token, token != ""
	}

	// Authorization: Bearer <token>
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
