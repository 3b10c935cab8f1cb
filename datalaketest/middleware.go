package datalaketest

import (
	"log/slog"
	"net/http"

	"github.com/sagarc03/datalake"
)

// AuthMiddleware rejects requests whose Auth header does not verify.
// A nil verifier disables authentication.
func AuthMiddleware(verifier *datalake.TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	if verifier == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accessKey, err := verifier.Verify(r.Header.Get(datalake.AuthHeader))
			if err != nil {
				logger.Debug("rejected request", "method", r.Method, "path", r.URL.Path, "err", err)
				WriteError(w, http.StatusForbidden, "unauthorized", err.Error())
				return
			}
			logger.Debug("authenticated request", "method", r.Method, "path", r.URL.Path, "access_key", accessKey)
			next.ServeHTTP(w, r)
		})
	}
}
