package auth

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Require returns middleware that authenticates every request with a and,
// when role is non-empty, requires the identity to hold it. The identity is
// stored in the request context.
func Require(a Authenticator, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := a.Authenticate(r.Context(), r.Header)
			if err != nil {
				deny(w, http.StatusInternalServerError, errors.New("auth: internal error"))
				return
			}
			if !res.Authenticated {
				w.Header().Set("WWW-Authenticate", `Bearer realm="flatten"`)
				deny(w, http.StatusUnauthorized, res.Error)
				return
			}
			if res.Identity.IsExpired() {
				deny(w, http.StatusUnauthorized, ErrTokenExpired)
				return
			}
			if role != "" && !res.Identity.HasRole(role) {
				deny(w, http.StatusForbidden, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), res.Identity)))
		})
	}
}

func deny(w http.ResponseWriter, code int, err error) {
	if err == nil {
		err = errors.New(http.StatusText(code))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
