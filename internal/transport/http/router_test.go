package httptransport

import (
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kakrote/udyam-registration-app/pkg/platform/httputil"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/middleware/version"
	"github.com/Kakrote/udyam-registration-app/pkg/requestcontext"
	"github.com/Kakrote/udyam-registration-app/pkg/testutil"
)

type echoModule struct{}

func (echoModule) Register(r chi.Router) {
	r.Get("/api/echo", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"requestId": requestcontext.RequestID(ctx),
			"userAgent": requestcontext.UserAgent(ctx),
			"timeSet":   !requestcontext.Now(ctx).IsZero(),
		})
	})
}

func newTestRouter() http.Handler {
	return NewRouter(Config{Version: "1.2.3", Logger: slog.New(slog.DiscardHandler)}, echoModule{})
}

func TestHealth(t *testing.T) {
	rr := testutil.DoRequest(newTestRouter(), testutil.NewRequest(t, http.MethodGet, "/api/health"))

	testutil.AssertStatusOK(t, rr)
	body := testutil.UnmarshalResponse[HealthResponse](t, rr)
	assert.Equal(t, "OK", body.Status)
	assert.Equal(t, "Udyam Registration API is running", body.Message)
	assert.Equal(t, "1.2.3", body.Version)
	assert.Equal(t, "1.2.3", rr.Header().Get(version.Header))
	assert.False(t, body.Timestamp.IsZero())
	assert.Contains(t, body.Endpoints, "POST /api/submit")
	assert.Contains(t, body.Endpoints, "GET /api/pincode/{code}")
}

func TestModulesShareRequestContext(t *testing.T) {
	req := testutil.NewRequest(t, http.MethodGet, "/api/echo")
	req.Header.Set("User-Agent", "router-test")
	rr := testutil.DoRequest(newTestRouter(), req)

	testutil.AssertStatusOK(t, rr)
	body := testutil.UnmarshalResponse[map[string]any](t, rr)
	assert.NotEmpty(t, (*body)["requestId"])
	assert.Equal(t, "router-test", (*body)["userAgent"])
	assert.Equal(t, true, (*body)["timeSet"])
}

func TestMetricsEndpoint(t *testing.T) {
	rr := testutil.DoRequest(newTestRouter(), testutil.NewRequest(t, http.MethodGet, "/metrics"))

	testutil.AssertStatusOK(t, rr)
	assert.Contains(t, string(testutil.ReadBody(t, rr)), "go_goroutines")
}

func TestUnknownRoute(t *testing.T) {
	rr := testutil.DoRequest(newTestRouter(), testutil.NewRequest(t, http.MethodGet, "/api/nope"))

	testutil.AssertStatus(t, rr, http.StatusNotFound)
	body := testutil.UnmarshalResponse[map[string]any](t, rr)
	require.Equal(t, false, (*body)["success"])
	assert.Equal(t, "Route GET /api/nope not found", (*body)["message"])
}
