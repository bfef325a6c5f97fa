package broker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/options-desk/internal/order"
)

func newTestBroker(t *testing.T, handler http.HandlerFunc) *TradierBroker {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewTradierBroker(server.URL, "test-token", "ACC123", "tradier-test", 5*time.Second)
}

func TestCreateOrderWireFormat(t *testing.T) {
	var form map[string][]string
	b := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		assert.Equal(t, "/v1/accounts/ACC123/orders", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"order":{"id":228175,"status":"ok"}}`))
	})

	record, err := b.CreateOrder(context.Background(), OrderParams{
		Symbol:   "xyz240101c00100000",
		Side:     order.Buy,
		Quantity: 1,
		Type:     order.Limit,
		Price:    decimalFromString(t, "1.44"),
		Duration: "day",
	})
	require.NoError(t, err)

	assert.Equal(t, "228175", record.ID)
	assert.Equal(t, "ok", record.Status)
	assert.Equal(t, "XYZ240101C00100000", record.Symbol)

	assert.Equal(t, "option", form["class"][0])
	assert.Equal(t, "XYZ240101C00100000", form["symbol"][0], "symbol is upper-cased on the wire")
	assert.Equal(t, "buy", form["side"][0])
	assert.Equal(t, "1", form["quantity"][0])
	assert.Equal(t, "limit", form["type"][0])
	assert.Equal(t, "day", form["duration"][0])
	assert.Equal(t, "1.44", form["price"][0], "limit price goes out with two decimals")
	assert.NotContains(t, form, "order_class")
}

func TestCreateOrderMarketOmitsPrice(t *testing.T) {
	var form map[string][]string
	b := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		_, _ = w.Write([]byte(`{"order":{"id":1,"status":"ok"}}`))
	})

	_, err := b.CreateOrder(context.Background(), OrderParams{
		Symbol:   "XYZ",
		Side:     order.Sell,
		Quantity: 2,
		Type:     order.Market,
		Duration: "day",
	})
	require.NoError(t, err)
	assert.NotContains(t, form, "price")
}

func TestCreateOrderRejection(t *testing.T) {
	b := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":{"error":["Potential wash trade detected.","Use multileg orders."]}}`))
	})

	_, err := b.CreateOrder(context.Background(), OrderParams{Symbol: "XYZ", Side: order.Buy, Quantity: 1, Type: order.Market, Duration: "day"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "rejections must be structured, not generic errors")
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "Potential wash trade detected")
	assert.NotNil(t, apiErr.Raw)
}

func TestGetPositionVariants(t *testing.T) {
	t.Run("null positions means flat", func(t *testing.T) {
		b := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"positions":"null"}`))
		})
		_, found, err := b.GetPosition(context.Background(), "XYZ")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("single position object", func(t *testing.T) {
		b := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"positions":{"position":{"symbol":"XYZ240101C00100000","quantity":1}}}`))
		})
		pos, found, err := b.GetPosition(context.Background(), "xyz240101c00100000")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "1", pos.Quantity.String())
		assert.Equal(t, "long", pos.Side)
	})

	t.Run("position list with short", func(t *testing.T) {
		b := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"positions":{"position":[{"symbol":"AAA","quantity":2},{"symbol":"BBB","quantity":-3}]}}`))
		})
		pos, found, err := b.GetPosition(context.Background(), "BBB")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "-3", pos.Quantity.String())
		assert.Equal(t, "short", pos.Side)
	})

	t.Run("symbol not held means flat", func(t *testing.T) {
		b := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"positions":{"position":{"symbol":"AAA","quantity":2}}}`))
		})
		_, found, err := b.GetPosition(context.Background(), "ZZZ")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestGetQuotesSingleAndMany(t *testing.T) {
	t.Run("single quote object", func(t *testing.T) {
		b := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "XYZ", r.URL.Query().Get("symbols"))
			_, _ = w.Write([]byte(`{"quotes":{"quote":{"symbol":"XYZ","last":101.5,"bid":101.4,"ask":101.6}}}`))
		})
		quotes, err := b.GetQuotes(context.Background(), []string{"xyz"})
		require.NoError(t, err)
		require.Len(t, quotes, 1)
		assert.Equal(t, "101.5", quotes[0].Last.String())
	})

	t.Run("quote list", func(t *testing.T) {
		b := newTestBroker(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"quotes":{"quote":[{"symbol":"AAA"},{"symbol":"BBB"}]}}`))
		})
		quotes, err := b.GetQuotes(context.Background(), []string{"AAA", "BBB"})
		require.NoError(t, err)
		assert.Len(t, quotes, 2)
	})
}

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want string
	}{
		{"errors string", map[string]any{"errors": map[string]any{"error": "boom"}}, "boom"},
		{"errors list", map[string]any{"errors": map[string]any{"error": []any{"a", "b"}}}, "a; b"},
		{"message key", map[string]any{"message": "boom"}, "boom"},
		{"reject_reason key", map[string]any{"reject_reason": "boom"}, "boom"},
		{"error key", map[string]any{"error": "boom"}, "boom"},
		{"nothing", map[string]any{"status": "rejected"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractMessage(tt.raw))
		})
	}
}
