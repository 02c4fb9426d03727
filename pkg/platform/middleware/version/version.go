// Package version stamps responses with the running API version.
package version

import (
	"net/http"
)

// Header is the response header carrying the API version.
const Header = "X-API-Version"

// Middleware sets Header on every response. An empty version is a no-op.
func Middleware(version string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if version == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(Header, version)
			next.ServeHTTP(w, r)
		})
	}
}
