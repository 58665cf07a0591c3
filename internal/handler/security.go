package handler

import (
	"net/http"

	"github.com/xenking/commerce-discounts/internal/domain/auth"
)

// SecurityHandler authenticates API requests via the api_key header. Keys are
// looked up by their peppered digest and checked for the required scope.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Require wraps handlers that need an API key granting the scope. A missing
// or unknown key yields 401; a known key lacking the scope yields 403. The
// stored digest is re-compared in constant time after lookup.
func (s *SecurityHandler) Require(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get("api_key")
			if presented == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			hash := auth.HashKey(s.pepper, presented)
			key, err := s.apikeys.FindByHash(r.Context(), hash)
			if err != nil || !key.Matches(hash) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !key.HasScope(scope) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
