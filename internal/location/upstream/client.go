// Package upstream resolves postal codes against the public postal registry
// (api.postalpincode.in). One attempt per call, bounded by a timeout and
// short-circuited by a breaker while the registry is known to be down. It
// never touches the location cache.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kakrote/udyam-registration-app/internal/location/metrics"
	"github.com/Kakrote/udyam-registration-app/internal/location/models"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/circuit"
)

const (
	DefaultBaseURL = "https://api.postalpincode.in"
	DefaultTimeout = 5 * time.Second

	statusSuccess   = "Success"
	maxResponseSize = 1 << 20
)

// Client calls GET {baseURL}/pincode/{code}.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	breaker    *circuit.Breaker
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithTimeout bounds each call, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		cl.breaker = b
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(cl *Client) {
		cl.now = now
	}
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     slog.Default(),
		tracer:     otel.Tracer("udyam/location/upstream"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = circuit.New("postal-registry",
			circuit.WithFailureThreshold(5),
			circuit.WithSuccessThreshold(1),
			circuit.WithCooldown(30*time.Second),
		)
	}
	return c
}

// Resolve returns the location for code or a *LookupError. If ctx is
// cancelled by the caller, ctx.Err() is returned unwrapped and the breaker is
// left untouched.
func (c *Client) Resolve(ctx context.Context, code models.PostalCode) (*models.LocationRecord, error) {
	ctx, span := c.tracer.Start(ctx, "upstream.Resolve",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("pincode", code.String())),
	)
	defer span.End()

	if !c.breaker.Allow() {
		c.metrics.RecordUpstreamCall("circuit_open", 0)
		err := newLookupError(ErrorUnavailable, code, "registry circuit open", ErrCircuitOpen)
		span.SetStatus(codes.Error, string(ErrorUnavailable))
		return nil, err
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rec, err := c.fetch(callCtx, code)
	elapsed := time.Since(start).Seconds()

	if err != nil && ctx.Err() != nil {
		// Caller went away; not the registry's fault.
		c.breaker.Abandon()
		return nil, ctx.Err()
	}
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = newLookupError(ErrorTimeout, code, fmt.Sprintf("no response within %s", c.timeout), err)
	}

	if err != nil {
		category := GetCategory(err)
		c.metrics.RecordUpstreamCall(string(category), elapsed)
		span.SetAttributes(attribute.String("upstream.category", string(category)))
		if category == ErrorNotFound {
			c.recordSuccess()
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, string(category))
		c.recordFailure(ctx, err)
		return nil, err
	}

	c.metrics.RecordUpstreamCall("found", elapsed)
	c.recordSuccess()
	return rec, nil
}

func (c *Client) recordSuccess() {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.metrics.SetBreakerOpen(false)
		c.logger.Info("postal registry circuit closed", "breaker", c.breaker.Name())
	}
}

func (c *Client) recordFailure(ctx context.Context, err error) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.metrics.SetBreakerOpen(true)
		c.logger.WarnContext(ctx, "postal registry circuit opened", "breaker", c.breaker.Name(), "error", err)
	}
}

type postOffice struct {
	Name     string `json:"Name"`
	Block    string `json:"Block"`
	District string `json:"District"`
	State    string `json:"State"`
}

type pincodeResponse struct {
	Message    string       `json:"Message"`
	Status     string       `json:"Status"`
	PostOffice []postOffice `json:"PostOffice"`
}

func (c *Client) fetch(ctx context.Context, code models.PostalCode) (*models.LocationRecord, error) {
	url := c.baseURL + "/pincode/" + code.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, newLookupError(ErrorUnavailable, code, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newLookupError(ErrorUnavailable, code, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, newLookupError(ErrorUnavailable, code, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var body []pincodeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return nil, newLookupError(ErrorBadData, code, "decode response", err)
	}
	return toRecord(code, body, c.now())
}

func toRecord(code models.PostalCode, body []pincodeResponse, now time.Time) (*models.LocationRecord, error) {
	if len(body) == 0 {
		return nil, newLookupError(ErrorBadData, code, "empty response", nil)
	}
	first := body[0]
	if first.Status != statusSuccess || len(first.PostOffice) == 0 {
		msg := first.Message
		if msg == "" {
			msg = "no records found"
		}
		return nil, newLookupError(ErrorNotFound, code, msg, nil)
	}

	office := first.PostOffice[0]
	district := strings.TrimSpace(office.District)
	state := strings.TrimSpace(office.State)
	if district == "" || state == "" {
		return nil, newLookupError(ErrorBadData, code, "post office missing district or state", nil)
	}
	city := firstNonEmpty(office.Name, office.Block, office.District)

	return &models.LocationRecord{
		PostalCode: code,
		City:       city,
		District:   district,
		State:      state,
		Source:     models.SourceUpstream,
		ResolvedAt: now,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
