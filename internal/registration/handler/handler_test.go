package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	locmodels "github.com/Kakrote/udyam-registration-app/internal/location/models"
	"github.com/Kakrote/udyam-registration-app/internal/registration/models"
	"github.com/Kakrote/udyam-registration-app/internal/registration/service"
	"github.com/Kakrote/udyam-registration-app/internal/registration/store"
	"github.com/Kakrote/udyam-registration-app/pkg/domain"
	"github.com/Kakrote/udyam-registration-app/pkg/testutil"
)

// resolverFunc adapts a function to service.LocationResolver.
type resolverFunc func(ctx context.Context, raw string) (locmodels.Resolution, error)

func (f resolverFunc) Resolve(ctx context.Context, raw string) (locmodels.Resolution, error) {
	return f(ctx, raw)
}

func notFound(_ context.Context, raw string) (locmodels.Resolution, error) {
	pc, err := locmodels.ParsePostalCode(raw)
	if err != nil {
		return locmodels.Resolution{}, err
	}
	return locmodels.Resolution{PostalCode: pc, Outcome: locmodels.OutcomeNotFound}, nil
}

type failingRegistrations struct{}

func (failingRegistrations) Create(context.Context, *models.Registration) error {
	return errors.New("database is down")
}

func (failingRegistrations) FindByID(context.Context, domain.RegistrationID) (*models.Registration, error) {
	return nil, errors.New("database is down")
}

func router(regs service.RegistrationStore) http.Handler {
	svc := service.New(store.NewInMemoryDraftStore(), regs, resolverFunc(notFound))
	r := chi.NewRouter()
	New(svc, slog.New(slog.DiscardHandler)).Register(r)
	return r
}

func validForm() map[string]string {
	return map[string]string{
		"aadhaarNumber":   "123456789012",
		"applicantName":   "Asha Rao",
		"mobileNumber":    "9876543210",
		"emailAddress":    "asha@example.com",
		"businessName":    "Rao Textiles",
		"businessType":    "llp",
		"businessAddress": "12 Market Road, Connaught Place",
		"pincode":         "110001",
		"state":           "Delhi",
		"district":        "Central Delhi",
	}
}

func TestSubmit(t *testing.T) {
	t.Run("valid payload creates a registration", func(t *testing.T) {
		regs := store.NewInMemoryRegistrationStore()
		rr := testutil.DoRequest(router(regs), testutil.NewJSONRequest(t, http.MethodPost, "/api/submit", validForm()))

		testutil.AssertStatus(t, rr, http.StatusCreated)
		body := testutil.UnmarshalResponse[SubmitResponse](t, rr)
		assert.True(t, body.Success)
		assert.NotEmpty(t, body.Data.ID)
		assert.True(t, body.Data.IsCompleted)
		assert.Equal(t, 2, body.Data.SubmissionStep)
		assert.Equal(t, "Form submitted successfully", body.Message)

		id, err := domain.ParseRegistrationID(body.Data.ID)
		require.NoError(t, err)
		_, err = regs.FindByID(context.Background(), id)
		require.NoError(t, err)
	})

	t.Run("short aadhaar is a field error", func(t *testing.T) {
		form := validForm()
		form["aadhaarNumber"] = "123"
		rr := testutil.DoRequest(router(store.NewInMemoryRegistrationStore()),
			testutil.NewJSONRequest(t, http.MethodPost, "/api/submit", form))

		body := testutil.AssertFieldErrors(t, rr, "aadhaarNumber")
		assert.Equal(t, "Invalid request data", body.Message)
		require.Len(t, body.Details, 1)
		assert.Equal(t, models.CodeInvalidLength, body.Details[0].Code)
	})

	t.Run("errors from both stages are aggregated", func(t *testing.T) {
		form := validForm()
		form["mobileNumber"] = "12345"
		form["businessAddress"] = "short"
		form["state"] = ""
		rr := testutil.DoRequest(router(store.NewInMemoryRegistrationStore()),
			testutil.NewJSONRequest(t, http.MethodPost, "/api/submit", form))

		testutil.AssertFieldErrors(t, rr, "mobileNumber", "businessAddress", "state")
	})

	t.Run("malformed json", func(t *testing.T) {
		rr := testutil.DoRequest(router(store.NewInMemoryRegistrationStore()),
			testutil.NewRequestWithBody(t, http.MethodPost, "/api/submit", "{"))

		testutil.AssertFieldErrors(t, rr, "body")
	})

	t.Run("persistence failure is a 500", func(t *testing.T) {
		rr := testutil.DoRequest(router(failingRegistrations{}),
			testutil.NewJSONRequest(t, http.MethodPost, "/api/submit", validForm()))

		testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, "internal_error")
	})
}

func TestDraftFlow(t *testing.T) {
	h := router(store.NewInMemoryRegistrationStore())
	form := validForm()

	rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodPost, "/api/registrations"))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	draft := testutil.UnmarshalResponse[DraftResponse](t, rr)
	require.NotEmpty(t, draft.Data.ID)
	assert.Equal(t, models.StageIdentityPending, draft.Data.Stage)
	base := "/api/registrations/" + draft.Data.ID

	testutil.Given(t, "an enterprise submitted before the identity", func(t *testing.T) {
		rr := testutil.DoRequest(h, testutil.NewJSONRequest(t, http.MethodPost, base+"/enterprise", form))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "invalid_state")
	})

	testutil.When(t, "the identity is submitted", func(t *testing.T) {
		identity := map[string]string{
			"aadhaarNumber": form["aadhaarNumber"],
			"applicantName": form["applicantName"],
			"mobileNumber":  form["mobileNumber"],
			"emailAddress":  form["emailAddress"],
		}
		rr := testutil.DoRequest(h, testutil.NewJSONRequest(t, http.MethodPost, base+"/identity", identity))
		testutil.AssertStatusOK(t, rr)
		body := testutil.UnmarshalResponse[DraftResponse](t, rr)
		assert.Equal(t, models.StageIdentityValidated, body.Data.Stage)
		require.NotNil(t, body.Data.Identity)
		assert.Equal(t, "XXXXXXXX9012", body.Data.Identity.AadhaarNumber)
	})

	testutil.Then(t, "the enterprise completes the registration", func(t *testing.T) {
		rr := testutil.DoRequest(h, testutil.NewJSONRequest(t, http.MethodPost, base+"/enterprise", form))
		testutil.AssertStatus(t, rr, http.StatusCreated)
		body := testutil.UnmarshalResponse[DraftResponse](t, rr)
		assert.Equal(t, models.StageCompleted, body.Data.Stage)
		assert.NotEmpty(t, body.Data.RegistrationID)

		rr = testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, base))
		testutil.AssertStatusOK(t, rr)
		got := testutil.UnmarshalResponse[DraftResponse](t, rr)
		assert.Equal(t, body.Data.RegistrationID, got.Data.RegistrationID)

		rr = testutil.DoRequest(h, testutil.NewRequest(t, http.MethodPost, base+"/back"))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "invalid_state")
	})
}

func TestDraftLookupErrors(t *testing.T) {
	h := router(store.NewInMemoryRegistrationStore())

	rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/api/registrations/"+domain.NewDraftID().String()))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")

	rr = testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/api/registrations/not-a-uuid"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
}

func TestDraftIdentityRejected(t *testing.T) {
	h := router(store.NewInMemoryRegistrationStore())
	rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodPost, "/api/registrations"))
	draft := testutil.UnmarshalResponse[DraftResponse](t, rr)

	rr = testutil.DoRequest(h, testutil.NewJSONRequest(t, http.MethodPost,
		"/api/registrations/"+draft.Data.ID+"/identity",
		map[string]string{"aadhaarNumber": "123"}))

	testutil.AssertFieldErrors(t, rr, "aadhaarNumber", "applicantName", "mobileNumber", "emailAddress")
}
