package session

import (
	"net/http"

	"github.com/verdantlab/floralog/internal/httputil"
)

// AuthIDHeader is the header the upstream auth layer sets once it has
// verified the caller's token.
const AuthIDHeader = "X-Auth-Id"

// Middleware resolves the request identity from AuthIDHeader and attaches it
// to the context. Requests without the header pass through unauthenticated;
// use RequireAuth to reject them.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authID := r.Header.Get(AuthIDHeader); authID != "" {
			r = r.WithContext(WithIdentity(r.Context(), Identity{AuthID: authID}))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests that carry no identity with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
