package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
)

// JWKSHandler exposes the JSON Web Key Set for public key discovery. Only
// mounted when the key manager signs with an asymmetric algorithm.
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=300")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(keys.PublicJWKS())
	}
}
