package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupcart/internal/events"
	"github.com/mmynk/groupcart/internal/metrics"
	"github.com/mmynk/groupcart/internal/models"
	"github.com/mmynk/groupcart/internal/payments"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeProcessor struct {
	got     []events.PaymentSucceededPayload
	ids     []string
	outcome payments.Outcome
	err     error
}

func (f *fakeProcessor) Process(_ context.Context, eventID string, p events.PaymentSucceededPayload) (payments.Outcome, error) {
	f.ids = append(f.ids, eventID)
	f.got = append(f.got, p)
	return f.outcome, f.err
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReadiness(t *testing.T) {
	ok := NewRouter(Options{Store: fakePinger{}})
	assert.Equal(t, http.StatusOK, do(t, ok, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, ok, http.MethodGet, "/readyz", "", nil).Code)

	down := NewRouter(Options{Store: fakePinger{err: errors.New("database is closed")}})
	assert.Equal(t, http.StatusOK, do(t, down, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, down, http.MethodGet, "/readyz", "", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.Operations.WithLabelValues("Approve", "ok").Inc()

	rec := do(t, NewRouter(Options{Metrics: m}), http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `groupcart_operations_total{operation="Approve",outcome="ok"} 1`)

	assert.Equal(t, http.StatusNotFound, do(t, NewRouter(Options{}), http.MethodGet, "/metrics", "", nil).Code)
}

func TestServicesAreMounted(t *testing.T) {
	svc := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Path))
	})
	router := NewRouter(Options{Services: map[string]http.Handler{"/groupcart.v1.GroupService/": svc}})

	rec := do(t, router, http.MethodPost, "/groupcart.v1.GroupService/GetGroup", "{}", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/groupcart.v1.GroupService/GetGroup", rec.Body.String(), "the full procedure path reaches the service")

	rec = do(t, router, http.MethodOptions, "/groupcart.v1.GroupService/GetGroup", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPaymentWebhook(t *testing.T) {
	const body = `{"event_id":"evt-1","group_id":"g1","user_id":"u1","amount":"16.50","reference":"ch_1"}`
	secret := map[string]string{WebhookSecretHeader: "s3cret"}

	t.Run("records", func(t *testing.T) {
		proc := &fakeProcessor{outcome: payments.OutcomeRecorded}
		router := NewRouter(Options{Webhook: NewWebhookHandler(proc, "s3cret")})

		rec := do(t, router, http.MethodPost, "/webhooks/payment", body, secret)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp WebhookResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, payments.OutcomeRecorded, resp.Outcome)
		require.Len(t, proc.got, 1)
		assert.Equal(t, "evt-1", proc.ids[0])
		assert.Equal(t, events.PaymentSucceededPayload{GroupID: "g1", UserID: "u1", Amount: "16.50", Reference: "ch_1"}, proc.got[0])
	})

	tests := []struct {
		name   string
		secret string
		header map[string]string
		body   string
		err    error
		want   int
	}{
		{name: "wrong secret", secret: "s3cret", header: map[string]string{WebhookSecretHeader: "nope"}, body: body, want: http.StatusUnauthorized},
		{name: "webhook disabled", secret: "", header: map[string]string{WebhookSecretHeader: ""}, body: body, want: http.StatusUnauthorized},
		{name: "bad json", secret: "s3cret", header: secret, body: "{", want: http.StatusBadRequest},
		{name: "missing event id", secret: "s3cret", header: secret, body: `{"group_id":"g1"}`, want: http.StatusBadRequest},
		{name: "not a member", secret: "s3cret", header: secret, body: body, err: models.NewError("ledger.RecordPayment", "g1", models.ErrParticipantNotApproved), want: http.StatusConflict},
		{name: "unknown group", secret: "s3cret", header: secret, body: body, err: models.NewError("store", "g1", models.ErrGroupNotFound), want: http.StatusNotFound},
		{name: "store down", secret: "s3cret", header: secret, body: body, err: models.DependencyError("store", errors.New("down")), want: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &fakeProcessor{err: tt.err}
			router := NewRouter(Options{Webhook: NewWebhookHandler(proc, tt.secret)})
			rec := do(t, router, http.MethodPost, "/webhooks/payment", tt.body, tt.header)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}
