// Package requesttime pins one "now" per HTTP request so audit entries and
// persisted timestamps produced by the same request agree.
package requesttime

import (
	"net/http"
	"time"

	"github.com/Kakrote/udyam-registration-app/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
