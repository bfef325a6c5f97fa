package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/options-desk/internal/broker"
	"github.com/amirphl/options-desk/internal/notifier"
	"github.com/amirphl/options-desk/internal/state"
	"github.com/amirphl/options-desk/internal/trading"
)

func newTestServer(t *testing.T) (*Server, *broker.MockBroker) {
	t.Helper()
	mock := broker.NewMockBroker("paper-sim")
	brokers := map[state.Mode]broker.Broker{
		state.Paper: mock,
		state.Live:  broker.NewMockBroker("live-sim"),
	}
	svc := trading.New(brokers, state.NewModeHolder(state.Paper), notifier.Noop{}, time.Millisecond)
	return NewServer(svc), mock
}

func doJSON(t *testing.T, server *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func TestPlaceOrderSuccess(t *testing.T) {
	server, _ := newTestServer(t)
	w, body := doJSON(t, server, http.MethodPost, "/api/options/orders",
		`{"symbol":"XYZ240101C00100000","side":"buy","quantity":1,"price":1.44,"orderType":"limit"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "buy_to_open", body["smart_side"])
	assert.Equal(t, "buy", body["original_side"])
	assert.Nil(t, body["position_info"])

	orderBody, ok := body["order"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, orderBody["id"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestPlaceOrderValidation(t *testing.T) {
	server, _ := newTestServer(t)

	t.Run("malformed json", func(t *testing.T) {
		w, _ := doJSON(t, server, http.MethodPost, "/api/options/orders", `{`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing symbol", func(t *testing.T) {
		w, body := doJSON(t, server, http.MethodPost, "/api/options/orders",
			`{"side":"buy","quantity":1,"price":1,"orderType":"limit"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, false, body["success"])
		assert.Contains(t, body["error"], "symbol")
	})

	t.Run("zero quantity", func(t *testing.T) {
		w, _ := doJSON(t, server, http.MethodPost, "/api/options/orders",
			`{"symbol":"XYZ","side":"buy","quantity":0,"price":1,"orderType":"limit"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPlaceOrderRejectionPropagatesBrokerStatus(t *testing.T) {
	server, mock := newTestServer(t)
	mock.QueueRejection(&broker.APIError{
		StatusCode: 403,
		Message:    "Account not authorized for options.",
		Raw:        map[string]any{"errors": map[string]any{"error": "not authorized"}},
	})

	w, body := doJSON(t, server, http.MethodPost, "/api/options/orders",
		`{"symbol":"XYZ","side":"buy","quantity":1,"price":1,"orderType":"limit"}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
	assert.NotEmpty(t, body["suggestions"])
	assert.NotNil(t, body["details"])
	assert.NotNil(t, body["debug_info"])
}

func TestTradingModeEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	w, body := doJSON(t, server, http.MethodGet, "/api/trading-mode", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "paper", body["mode"])

	w, body = doJSON(t, server, http.MethodPut, "/api/trading-mode", `{"mode":"live"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "live", body["mode"])

	w, _ = doJSON(t, server, http.MethodPut, "/api/trading-mode", `{"mode":"margin"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuotesPassThrough(t *testing.T) {
	server, _ := newTestServer(t)

	w, body := doJSON(t, server, http.MethodGet, "/api/quotes?symbols=AAA,BBB", "")
	assert.Equal(t, http.StatusOK, w.Code)
	quotes, ok := body["quotes"].([]any)
	require.True(t, ok)
	assert.Len(t, quotes, 2)

	w, _ = doJSON(t, server, http.MethodGet, "/api/quotes", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)
	w, body := doJSON(t, server, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}
