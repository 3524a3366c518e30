package http

import (
	"net/http"

	"github.com/corpdir/adbridge/pkg/httpx"
	"github.com/corpdir/adbridge/pkg/jwtx"
)

// JWKSHandler exposes the signing key set for token verification by
// other services.
func JWKSHandler(signer *jwtx.Signer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, jwtx.JWKS{
			Keys: []jwtx.JWK{signer.PublicJWK()},
		})
	}
}
