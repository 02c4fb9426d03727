package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kakrote/udyam-registration-app/internal/location/models"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/circuit"
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return b
}

func registry(t *testing.T, status int, body []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestClient_ResolveSuccess(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write(fixture(t, "110001_success.json"))
	}))
	defer srv.Close()

	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	c := New(srv.URL+"/", WithClock(func() time.Time { return fixed }))

	rec, err := c.Resolve(context.Background(), models.MustPostalCode("110001"))
	require.NoError(t, err)
	assert.Equal(t, "/pincode/110001", gotPath)
	assert.Equal(t, "New Delhi", rec.City, "city is the first post office name")
	assert.Equal(t, "Central Delhi", rec.District)
	assert.Equal(t, "Delhi", rec.State)
	assert.Equal(t, models.SourceUpstream, rec.Source)
	assert.Equal(t, fixed, rec.ResolvedAt)
}

func TestClient_ResolveFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     []byte
		category ErrorCategory
		outcome  models.Outcome
	}{
		{"registry says no records", http.StatusOK, nil, ErrorNotFound, models.OutcomeNotFound},
		{"success with no post offices", http.StatusOK, []byte(`[{"Status":"Success","PostOffice":[]}]`), ErrorNotFound, models.OutcomeNotFound},
		{"empty array", http.StatusOK, []byte(`[]`), ErrorBadData, models.OutcomeUnavailable},
		{"malformed json", http.StatusOK, []byte(`{not json`), ErrorBadData, models.OutcomeUnavailable},
		{"missing state", http.StatusOK, []byte(`[{"Status":"Success","PostOffice":[{"Name":"X","District":"Y"}]}]`), ErrorBadData, models.OutcomeUnavailable},
		{"server error", http.StatusBadGateway, []byte(`oops`), ErrorUnavailable, models.OutcomeUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			if body == nil {
				body = fixture(t, "not_found.json")
			}
			srv, _ := registry(t, tt.status, body)
			c := New(srv.URL)

			rec, err := c.Resolve(context.Background(), models.MustPostalCode("999999"))
			require.Error(t, err)
			assert.Nil(t, rec)

			var le *LookupError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tt.category, le.Category)
			assert.Equal(t, tt.outcome, le.Outcome())
			assert.Equal(t, "999999", le.PostalCode)
		})
	}
}

func TestClient_CityFallsBackToBlockThenDistrict(t *testing.T) {
	srv, _ := registry(t, http.StatusOK, []byte(`[{"Status":"Success","PostOffice":[{"Name":" ","Block":"","District":"Pune","State":"Maharashtra"}]}]`))
	rec, err := New(srv.URL).Resolve(context.Background(), models.MustPostalCode("411001"))
	require.NoError(t, err)
	assert.Equal(t, "Pune", rec.City)
}

func TestClient_TimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(srv.URL, WithTimeout(50*time.Millisecond))
	start := time.Now()
	_, err := c.Resolve(context.Background(), models.MustPostalCode("110001"))

	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, ErrorTimeout, GetCategory(err))
}

func TestClient_CallerCancellationIsNotAFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	breaker := circuit.New("test", circuit.WithFailureThreshold(1))
	c := New(srv.URL, WithBreaker(breaker))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Resolve(ctx, models.MustPostalCode("110001"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, breaker.IsOpen())
}

func TestClient_BreakerShortCircuitsAfterFailures(t *testing.T) {
	srv, calls := registry(t, http.StatusServiceUnavailable, []byte(`down`))
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	breaker := circuit.New("test",
		circuit.WithFailureThreshold(2),
		circuit.WithSuccessThreshold(1),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	c := New(srv.URL, WithBreaker(breaker))
	code := models.MustPostalCode("110001")

	for range 2 {
		_, err := c.Resolve(context.Background(), code)
		require.Error(t, err)
	}
	require.True(t, breaker.IsOpen())

	_, err := c.Resolve(context.Background(), code)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, ErrorUnavailable, GetCategory(err))
	assert.Equal(t, int32(2), calls.Load(), "open circuit must not call the registry")
}

func TestClient_RecoveringRegistryGetsOneTrialCall(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write(fixture(t, "110001_success.json"))
	}))
	defer srv.Close()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	breaker := circuit.New("test",
		circuit.WithFailureThreshold(1),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	breaker.RecordFailure()
	now = now.Add(time.Minute)
	c := New(srv.URL, WithBreaker(breaker))
	code := models.MustPostalCode("110001")

	trialDone := make(chan error, 1)
	go func() {
		_, err := c.Resolve(context.Background(), code)
		trialDone <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	for range 5 {
		_, err := c.Resolve(context.Background(), code)
		assert.ErrorIs(t, err, ErrCircuitOpen)
	}
	close(release)
	require.NoError(t, <-trialDone)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	srv, _ := registry(t, http.StatusOK, fixture(t, "not_found.json"))
	breaker := circuit.New("test", circuit.WithFailureThreshold(1))
	c := New(srv.URL, WithBreaker(breaker))

	for range 3 {
		_, err := c.Resolve(context.Background(), models.MustPostalCode("999999"))
		require.Error(t, err)
	}
	assert.False(t, breaker.IsOpen())
}

func TestClient_TransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Resolve(context.Background(), models.MustPostalCode("110001"))
	require.Error(t, err)
	assert.Equal(t, ErrorUnavailable, GetCategory(err))
}
