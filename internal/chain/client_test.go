package chain

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shadowScope/internal/endpoint"
	"shadowScope/internal/model"
)

type recordedRequest struct {
	method, path string
	status       int
}

type observerFunc func(method, path string, statusCode int, d time.Duration)

func (f observerFunc) ObserveRequest(method, path string, statusCode int, d time.Duration) {
	f(method, path, statusCode, d)
}

func newTestClient(t *testing.T, router chi.Router, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return NewClient(endpoint.Endpoints{HTTPBase: srv.URL, StreamBase: "ws" + srv.URL[len("http"):]}, opts...)
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func TestInfoKeepsNumbers(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/shadow/info", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		writeJSON(w, `{"stats":{"height":18446744073709551615,"current_tps":12.5}}`)
	})
	var seen []recordedRequest
	c := newTestClient(t, r, WithObserver(observerFunc(func(method, path string, status int, _ time.Duration) {
		seen = append(seen, recordedRequest{method, path, status})
	})))

	info, err := c.Info(context.Background())
	require.NoError(t, err)
	stats := info["stats"].(map[string]any)
	assert.Equal(t, json.Number("18446744073709551615"), stats["height"])
	assert.Equal(t, []recordedRequest{{http.MethodGet, "/shadow/info", http.StatusOK}}, seen)
}

func TestNonSuccessStatusIsTransportError(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/shadow/info", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})
	c := newTestClient(t, r)

	_, err := c.Info(context.Background())
	var te *model.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
}

func TestUndecodableBodyIsTransportError(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/shadow/info", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"stats":`)
	})
	c := newTestClient(t, r)

	_, err := c.Info(context.Background())
	var te *model.TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.StatusCode)
}

func TestUnreachableNodeIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewClient(endpoint.Endpoints{HTTPBase: base})
	_, err := c.Health(context.Background())
	var te *model.TransportError
	require.ErrorAs(t, err, &te)
}

func TestBridgeDeposit(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantID    string
		wantError string
	}{
		{name: "accepted", reply: `{"success":true,"bridge_id":"b-1","error":null}`, wantID: "b-1"},
		{name: "rejected with reason", reply: `{"success":false,"bridge_id":null,"error":"Insufficient balance"}`, wantError: "Insufficient balance"},
		{name: "rejected without reason", reply: `{"success":false,"bridge_id":null,"error":null}`, wantError: "failed to create bridge deposit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Post("/bridge/deposit", func(w http.ResponseWriter, r *http.Request) {
				var req model.DepositRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "alice", req.Depositor)
				assert.Equal(t, uint64(1_000_000_000), req.Amount)
				assert.Equal(t, "standard", req.PrivacyLevel)
				writeJSON(w, tt.reply)
			})
			c := newTestClient(t, r)

			id, err := c.BridgeDeposit(context.Background(), model.DepositRequest{
				Depositor:    "alice",
				Amount:       1_000_000_000,
				PrivacyLevel: "standard",
			})
			if tt.wantError != "" {
				var ae *model.ApplicationError
				require.ErrorAs(t, err, &ae)
				assert.Equal(t, tt.wantError, ae.Reason)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestBridgeStatusEscapesID(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/bridge/status/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a b", chi.URLParam(r, "id"))
		writeJSON(w, `{"bridge_id":"a b","depositor":"alice","amount":5,"deposit_slot":1,"deposit_time":0,
			"status":{"Mixing":{"current_hop":3,"total_hops":10}},
			"privacy_config":{"hops":10,"decoy_multiplier":10,"delay_hours":1,"split_count":1},
			"mixing_hops_completed":3,"total_hops":10,"anonymity_set_size":40,"privacy_score":70}`)
	})
	c := newTestClient(t, r)

	dep, err := c.BridgeStatus(context.Background(), "a b")
	require.NoError(t, err)
	assert.Equal(t, "Mixing (Hop 3/10)", dep.Status.Label())

	_, err = c.BridgeStatus(context.Background(), " ")
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestBridgeWithdraw(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Post("/bridge/withdraw", func(w http.ResponseWriter, r *http.Request) {
		var req model.WithdrawRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if calls.Add(1) == 1 {
			writeJSON(w, `{"success":true,"message":"Withdrawal to `+req.WithdrawalAddress+` initiated","error":null}`)
			return
		}
		writeJSON(w, `{"success":false,"message":null,"error":"Deposit not ready"}`)
	})
	c := newTestClient(t, r)

	msg, err := c.BridgeWithdraw(context.Background(), "b-1", "zs1dest")
	require.NoError(t, err)
	assert.Equal(t, "Withdrawal to zs1dest initiated", msg)

	_, err = c.BridgeWithdraw(context.Background(), "b-1", "zs1dest")
	var ae *model.ApplicationError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Deposit not ready", ae.Reason)
}

func TestFaucetFailureIsApplicationError(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/faucet/{addr}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"success":false,"error":"rate limited"}`)
	})
	c := newTestClient(t, r)

	_, err := c.Faucet(context.Background(), "zs1abc")
	var ae *model.ApplicationError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "rate limited", ae.Reason)
}

func TestWaitHealthy(t *testing.T) {
	var calls atomic.Int32
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, `{"status":"ok","version":"0.1.0","features":["bridge"]}`)
	})
	c := newTestClient(t, r)

	health, err := c.WaitHealthy(context.Background(), HealthPolicy{Attempts: 5, BaseDelay: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitHealthyGivesUp(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := newTestClient(t, r)

	_, err := c.WaitHealthy(context.Background(), HealthPolicy{Attempts: 2, BaseDelay: time.Millisecond})
	var te *model.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
}
