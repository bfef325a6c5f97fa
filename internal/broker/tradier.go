package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/amirphl/options-desk/internal/order"
	"github.com/amirphl/options-desk/internal/utils"
)

// TradierBroker talks to a Tradier-compatible brokerage REST API. A separate
// instance is built per trading mode since paper and live accounts live on
// different base URLs.
type TradierBroker struct {
	client    *resty.Client
	accountID string
	name      string
}

// NewTradierBroker builds a client against the given base URL. The timeout
// bounds every remote call; no operation blocks indefinitely.
func NewTradierBroker(baseURL, token, accountID, name string, timeout time.Duration) *TradierBroker {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(token).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	return &TradierBroker{
		client:    client,
		accountID: accountID,
		name:      name,
	}
}

func (t *TradierBroker) Name() string {
	return t.name
}

// retryRead wraps read-only queries with retry logic for transient errors.
// Order submission never goes through here: the placement retry controller
// owns every live submission attempt.
func retryRead(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		utils.GetLogger().Warnf("Broker | read attempt %d/%d failed: %v", i, attempts, err)
		if i < attempts {
			time.Sleep(delay)
		}
	}
	return err
}

// GetPosition returns the caller's net position in one contract. Absence of a
// position is a valid outcome (found=false, nil error), distinct from a
// transport or auth failure which propagates as an error.
func (t *TradierBroker) GetPosition(ctx context.Context, symbol string) (order.Position, bool, error) {
	positions, err := t.GetPositions(ctx)
	if err != nil {
		return order.Position{}, false, err
	}
	upper := strings.ToUpper(symbol)
	for _, p := range positions {
		if strings.ToUpper(p.Symbol) == upper {
			return p, true, nil
		}
	}
	return order.Position{}, false, nil
}

func (t *TradierBroker) GetPositions(ctx context.Context) ([]order.Position, error) {
	var body []byte
	err := retryRead(3, 500*time.Millisecond, func() error {
		resp, err := t.client.R().
			SetContext(ctx).
			Get(fmt.Sprintf("/v1/accounts/%s/positions", t.accountID))
		if err != nil {
			return fmt.Errorf("fetching positions: %w", err)
		}
		if resp.IsError() {
			return t.apiError(resp)
		}
		body = resp.Body()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return parsePositions(body)
}

// parsePositions handles the brokerage's loose envelope: "positions" may be
// the string "null", an object with a single position, or an object with a
// list of them.
func parsePositions(body []byte) ([]order.Position, error) {
	var envelope struct {
		Positions json.RawMessage `json:"positions"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding positions envelope: %w", err)
	}
	if len(envelope.Positions) == 0 || string(envelope.Positions) == `"null"` || string(envelope.Positions) == "null" {
		return nil, nil
	}

	var inner struct {
		Position json.RawMessage `json:"position"`
	}
	if err := json.Unmarshal(envelope.Positions, &inner); err != nil {
		return nil, fmt.Errorf("decoding positions: %w", err)
	}
	if len(inner.Position) == 0 {
		return nil, nil
	}

	type wirePosition struct {
		Symbol   string          `json:"symbol"`
		Quantity decimal.Decimal `json:"quantity"`
	}

	var list []wirePosition
	if err := json.Unmarshal(inner.Position, &list); err != nil {
		var single wirePosition
		if err := json.Unmarshal(inner.Position, &single); err != nil {
			return nil, fmt.Errorf("decoding position entries: %w", err)
		}
		list = []wirePosition{single}
	}

	positions := make([]order.Position, 0, len(list))
	for _, p := range list {
		positions = append(positions, order.Position{
			Symbol:   p.Symbol,
			Quantity: p.Quantity,
			Side:     order.SideLabel(p.Quantity),
		})
	}
	return positions, nil
}

// CreateOrder submits one order, exactly once. Rejections come back as
// *APIError carrying the remote status and message so the caller can decide
// whether the rejection is worth a retry.
func (t *TradierBroker) CreateOrder(ctx context.Context, params OrderParams) (order.Record, error) {
	form := map[string]string{
		"class":    "option",
		"symbol":   strings.ToUpper(params.Symbol),
		"side":     string(params.Side),
		"quantity": strconv.FormatInt(params.Quantity, 10),
		"type":     string(params.Type),
		"duration": params.Duration,
	}
	if params.Type == order.Limit {
		form["price"] = params.Price.StringFixed(2)
	}
	if params.OrderClass != "" {
		form["order_class"] = params.OrderClass
	}
	if params.Tag != "" {
		form["tag"] = params.Tag
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetFormData(form).
		Post(fmt.Sprintf("/v1/accounts/%s/orders", t.accountID))
	if err != nil {
		return order.Record{}, fmt.Errorf("submitting order: %w", err)
	}
	if resp.IsError() {
		return order.Record{}, t.apiError(resp)
	}

	var envelope struct {
		Order struct {
			ID     json.Number `json:"id"`
			Status string      `json:"status"`
		} `json:"order"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return order.Record{}, fmt.Errorf("decoding order response: %w", err)
	}

	return order.Record{
		ID:         envelope.Order.ID.String(),
		Symbol:     strings.ToUpper(params.Symbol),
		Side:       string(params.Side),
		Qty:        params.Quantity,
		Type:       string(params.Type),
		Status:     envelope.Order.Status,
		LimitPrice: params.Price,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func (t *TradierBroker) CancelOrder(ctx context.Context, orderID string) error {
	resp, err := t.client.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/v1/accounts/%s/orders/%s", t.accountID, orderID))
	if err != nil {
		return fmt.Errorf("cancelling order %s: %w", orderID, err)
	}
	if resp.IsError() {
		return t.apiError(resp)
	}
	return nil
}

func (t *TradierBroker) GetOrderStatus(ctx context.Context, orderID string) (order.Record, error) {
	var record order.Record
	err := retryRead(3, 500*time.Millisecond, func() error {
		resp, err := t.client.R().
			SetContext(ctx).
			Get(fmt.Sprintf("/v1/accounts/%s/orders/%s", t.accountID, orderID))
		if err != nil {
			return fmt.Errorf("fetching order %s: %w", orderID, err)
		}
		if resp.IsError() {
			return t.apiError(resp)
		}

		var envelope struct {
			Order struct {
				ID          json.Number     `json:"id"`
				Symbol      string          `json:"symbol"`
				Side        string          `json:"side"`
				Quantity    decimal.Decimal `json:"quantity"`
				Type        string          `json:"type"`
				Status      string          `json:"status"`
				Price       decimal.Decimal `json:"price"`
				ExecQty     decimal.Decimal `json:"exec_quantity"`
				CreatedDate time.Time       `json:"create_date"`
			} `json:"order"`
		}
		if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
			return fmt.Errorf("decoding order %s: %w", orderID, err)
		}

		record = order.Record{
			ID:         envelope.Order.ID.String(),
			Symbol:     envelope.Order.Symbol,
			Side:       envelope.Order.Side,
			Qty:        envelope.Order.Quantity.IntPart(),
			Type:       envelope.Order.Type,
			Status:     envelope.Order.Status,
			LimitPrice: envelope.Order.Price,
			FilledQty:  envelope.Order.ExecQty.IntPart(),
			CreatedAt:  envelope.Order.CreatedDate,
		}
		return nil
	})
	return record, err
}

func (t *TradierBroker) GetQuotes(ctx context.Context, symbols []string) ([]Quote, error) {
	var quotes []Quote
	err := retryRead(3, 500*time.Millisecond, func() error {
		resp, err := t.client.R().
			SetContext(ctx).
			SetQueryParam("symbols", strings.ToUpper(strings.Join(symbols, ","))).
			Get("/v1/markets/quotes")
		if err != nil {
			return fmt.Errorf("fetching quotes: %w", err)
		}
		if resp.IsError() {
			return t.apiError(resp)
		}

		var envelope struct {
			Quotes struct {
				Quote json.RawMessage `json:"quote"`
			} `json:"quotes"`
		}
		if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
			return fmt.Errorf("decoding quotes: %w", err)
		}
		quotes, err = decodeOneOrMany[Quote](envelope.Quotes.Quote)
		if err != nil {
			return fmt.Errorf("decoding quote entries: %w", err)
		}
		return nil
	})
	return quotes, err
}

func (t *TradierBroker) GetOptionChain(ctx context.Context, underlying, expiration string) ([]OptionQuote, error) {
	var chain []OptionQuote
	err := retryRead(3, 500*time.Millisecond, func() error {
		resp, err := t.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbol":     strings.ToUpper(underlying),
				"expiration": expiration,
			}).
			Get("/v1/markets/options/chains")
		if err != nil {
			return fmt.Errorf("fetching option chain: %w", err)
		}
		if resp.IsError() {
			return t.apiError(resp)
		}

		var envelope struct {
			Options struct {
				Option json.RawMessage `json:"option"`
			} `json:"options"`
		}
		if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
			return fmt.Errorf("decoding option chain: %w", err)
		}
		chain, err = decodeOneOrMany[OptionQuote](envelope.Options.Option)
		if err != nil {
			return fmt.Errorf("decoding option entries: %w", err)
		}
		return nil
	})
	return chain, err
}

func (t *TradierBroker) GetExpirations(ctx context.Context, underlying string) ([]string, error) {
	var dates []string
	err := retryRead(3, 500*time.Millisecond, func() error {
		resp, err := t.client.R().
			SetContext(ctx).
			SetQueryParam("symbol", strings.ToUpper(underlying)).
			Get("/v1/markets/options/expirations")
		if err != nil {
			return fmt.Errorf("fetching expirations: %w", err)
		}
		if resp.IsError() {
			return t.apiError(resp)
		}

		var envelope struct {
			Expirations struct {
				Date []string `json:"date"`
			} `json:"expirations"`
		}
		if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
			return fmt.Errorf("decoding expirations: %w", err)
		}
		dates = envelope.Expirations.Date
		return nil
	})
	return dates, err
}

func (t *TradierBroker) GetBalances(ctx context.Context) (Balances, error) {
	var balances Balances
	err := retryRead(3, 500*time.Millisecond, func() error {
		resp, err := t.client.R().
			SetContext(ctx).
			Get(fmt.Sprintf("/v1/accounts/%s/balances", t.accountID))
		if err != nil {
			return fmt.Errorf("fetching balances: %w", err)
		}
		if resp.IsError() {
			return t.apiError(resp)
		}

		var envelope struct {
			Balances struct {
				AccountNumber string          `json:"account_number"`
				TotalEquity   decimal.Decimal `json:"total_equity"`
				TotalCash     decimal.Decimal `json:"total_cash"`
				Margin        struct {
					OptionBP decimal.Decimal `json:"option_buying_power"`
					StockBP  decimal.Decimal `json:"stock_buying_power"`
				} `json:"margin"`
			} `json:"balances"`
		}
		if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
			return fmt.Errorf("decoding balances: %w", err)
		}
		balances = Balances{
			AccountNumber: envelope.Balances.AccountNumber,
			TotalEquity:   envelope.Balances.TotalEquity,
			TotalCash:     envelope.Balances.TotalCash,
			OptionBP:      envelope.Balances.Margin.OptionBP,
			StockBP:       envelope.Balances.Margin.StockBP,
		}
		return nil
	})
	return balances, err
}

// decodeOneOrMany handles envelopes where a single element is serialized as
// an object instead of a one-element list.
func decodeOneOrMany[T any](raw json.RawMessage) ([]T, error) {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == `"null"` {
		return nil, nil
	}
	var many []T
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}
	var one T
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []T{one}, nil
}

// apiError shapes a non-2xx response into a structured *APIError. The message
// is pulled from the handful of places the brokerage puts it, and the raw
// payload rides along for debuggability.
func (t *TradierBroker) apiError(resp *resty.Response) error {
	raw := map[string]any{}
	_ = json.Unmarshal(resp.Body(), &raw)

	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		Message:    strings.TrimSpace(string(resp.Body())),
		Raw:        raw,
	}
	if msg := extractMessage(raw); msg != "" {
		apiErr.Message = msg
	}
	if code, ok := raw["code"].(string); ok {
		apiErr.Code = code
	}
	if apiErr.Message == "" {
		apiErr.Message = resp.Status()
	}
	return apiErr
}

// extractMessage digs the human-readable rejection out of the error envelope:
// {"errors":{"error": "..."}}, {"errors":{"error": ["...", ...]}},
// {"message": "..."}, {"reject_reason": "..."}, or {"error": "..."}.
func extractMessage(raw map[string]any) string {
	if errs, ok := raw["errors"].(map[string]any); ok {
		switch v := errs["error"].(type) {
		case string:
			return v
		case []any:
			parts := make([]string, 0, len(v))
			for _, e := range v {
				if s, ok := e.(string); ok {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, "; ")
		}
	}
	for _, key := range []string{"message", "reject_reason", "error"} {
		if s, ok := raw[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// IsNotFound reports whether err is a remote 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
