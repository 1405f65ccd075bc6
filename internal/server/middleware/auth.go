package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/oracles/internal/domain"
)

// Auth guards the council trigger and audit routes. The key is accepted as a
// Bearer token or an X-API-Key header; an empty apiKey disables the check.
// Authenticated requests carry an "api:<fingerprint>" trigger so council runs
// they start are attributed in the audit log without storing the key.
func Auth(apiKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r.WithContext(domain.WithTrigger(r.Context(), "api")))
				return
			}

			token := extractToken(r)
			if token == "" {
				rejectRequest(w, r, logger, "missing authentication token")
				return
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				rejectRequest(w, r, logger, "invalid authentication token")
				return
			}

			ctx := domain.WithTrigger(r.Context(), "api:"+keyFingerprint(token))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// keyFingerprint is the first 8 hex digits of the key's SHA-256.
func keyFingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:4])
}

// extractToken reads Authorization: Bearer, then X-API-Key.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func rejectRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger, msg string) {
	logger.WarnContext(r.Context(), "auth: request rejected",
		slog.String("route", r.Pattern),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("reason", msg),
	)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
