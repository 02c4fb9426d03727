package version

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("sets header", func(t *testing.T) {
		rr := httptest.NewRecorder()
		Middleware("1.4.0")(ok).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "1.4.0", rr.Header().Get(Header))
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("empty version leaves header unset", func(t *testing.T) {
		rr := httptest.NewRecorder()
		Middleware("")(ok).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Empty(t, rr.Header().Get(Header))
	})
}
