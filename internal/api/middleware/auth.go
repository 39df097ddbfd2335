// Package middleware holds HTTP middleware shared by the operator endpoints.
package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/newthinker/cryptodash/internal/api/response"
	"github.com/newthinker/cryptodash/internal/core"
	"go.uber.org/zap"
)

// APIKeyHeader carries the operator key.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth returns middleware guarding the operator endpoints (session
// listing, chart images, metrics). The key is read from the X-API-Key header
// or, for image tags, the api_key query parameter. If apiKey is empty,
// authentication is disabled.
func APIKeyAuth(apiKey string, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(APIKeyHeader)
			if provided == "" {
				provided = r.URL.Query().Get("api_key")
			}
			if provided == "" {
				response.Error(w, http.StatusUnauthorized,
					core.WrapError(core.ErrConfigMissing, errors.New("api key required")))
				return
			}

			// Constant-time comparison to prevent timing attacks
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				logger.Warn("rejected api key", zap.String("path", r.URL.Path))
				response.Error(w, http.StatusUnauthorized,
					core.WrapError(core.ErrConfigInvalid, errors.New("api key mismatch")))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
