package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/leetease/catalog-engine/internal/config"
)

const maxUserIDLength = 128

// AuthMiddleware trusts the user id set by the upstream session provider
type AuthMiddleware struct {
	header string
	admins map[string]bool
}

// NewAuthMiddleware creates new auth middleware
func NewAuthMiddleware(cfg config.AuthConfig) *AuthMiddleware {
	header := cfg.UserHeader
	if header == "" {
		header = "X-User-ID"
	}

	admins := make(map[string]bool, len(cfg.AdminUsers))
	for _, id := range cfg.AdminUsers {
		admins[id] = true
	}

	return &AuthMiddleware{header: header, admins: admins}
}

// Authenticate requires the user id header on every request
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(m.header))
		if userID == "" {
			respondError(w, http.StatusUnauthorized, "unauthenticated", "missing "+m.header+" header")
			return
		}
		if len(userID) > maxUserIDLength {
			respondError(w, http.StatusUnauthorized, "unauthenticated", "invalid user id")
			return
		}

		ctx := ContextWithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects users not listed as admins
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := UserIDFromContext(r.Context())
		if !m.admins[userID] {
			slog.Warn("admin access denied", "user_id", userID, "path", r.URL.Path)
			respondError(w, http.StatusForbidden, "forbidden", "admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
