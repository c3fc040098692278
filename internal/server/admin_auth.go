package server

import (
	"context"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// adminSecretHeader carries the shared admin secret on review and settings
// mutations. The secret is stored bcrypt-hashed; comparison is constant-time.
const adminSecretHeader = "X-Admin-Secret"

// verifyAdminSecret reports whether candidate matches the stored admin
// secret. False when the settings singleton does not exist yet.
func verifyAdminSecret(ctx context.Context, store Store, candidate string) bool {
	hash, err := store.AdminSecretHash(ctx)
	if err != nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}

func adminAuthMiddleware(store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := r.Header.Get(adminSecretHeader)
			if secret == "" || !verifyAdminSecret(r.Context(), store, secret) {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
