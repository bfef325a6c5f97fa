package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amirphl/options-desk/internal/order"
)

// MockBroker provides scripted responses for tests and for running the desk
// without brokerage credentials. Order submissions succeed unless rejections
// have been queued; every submitted body is recorded for inspection.
type MockBroker struct {
	mu           sync.Mutex
	name         string
	positions    map[string]order.Position
	positionsErr error
	rejections   []error
	Submitted    []OrderParams
	orderCounter int64
}

func NewMockBroker(name string) *MockBroker {
	return &MockBroker{
		name:         name,
		positions:    make(map[string]order.Position),
		orderCounter: 1000,
	}
}

func (m *MockBroker) Name() string {
	return m.name
}

// SetPosition scripts the position returned for a symbol.
func (m *MockBroker) SetPosition(p order.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[p.Symbol] = p
}

// FailPositions makes every position read fail with err, simulating a
// degraded brokerage read path.
func (m *MockBroker) FailPositions(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positionsErr = err
}

// QueueRejection scripts the next CreateOrder call to fail with err.
// Rejections are consumed in order; once drained, submissions succeed.
func (m *MockBroker) QueueRejection(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections = append(m.rejections, err)
}

func (m *MockBroker) GetPosition(ctx context.Context, symbol string) (order.Position, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.positionsErr != nil {
		return order.Position{}, false, m.positionsErr
	}
	p, ok := m.positions[symbol]
	return p, ok, nil
}

func (m *MockBroker) GetPositions(ctx context.Context) ([]order.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.positionsErr != nil {
		return nil, m.positionsErr
	}
	out := make([]order.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out, nil
}

func (m *MockBroker) CreateOrder(ctx context.Context, params OrderParams) (order.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Submitted = append(m.Submitted, params)

	if len(m.rejections) > 0 {
		err := m.rejections[0]
		m.rejections = m.rejections[1:]
		return order.Record{}, err
	}

	m.orderCounter++
	return order.Record{
		ID:         fmt.Sprintf("mock_%d", m.orderCounter),
		Symbol:     params.Symbol,
		Side:       string(params.Side),
		Qty:        params.Quantity,
		Type:       string(params.Type),
		Status:     "ok",
		LimitPrice: params.Price,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func (m *MockBroker) CancelOrder(ctx context.Context, orderID string) error {
	return nil
}

func (m *MockBroker) GetOrderStatus(ctx context.Context, orderID string) (order.Record, error) {
	return order.Record{ID: orderID, Status: "open"}, nil
}

func (m *MockBroker) GetQuotes(ctx context.Context, symbols []string) ([]Quote, error) {
	quotes := make([]Quote, 0, len(symbols))
	for _, s := range symbols {
		quotes = append(quotes, Quote{Symbol: s})
	}
	return quotes, nil
}

func (m *MockBroker) GetOptionChain(ctx context.Context, underlying, expiration string) ([]OptionQuote, error) {
	return nil, nil
}

func (m *MockBroker) GetExpirations(ctx context.Context, underlying string) ([]string, error) {
	return nil, nil
}

func (m *MockBroker) GetBalances(ctx context.Context) (Balances, error) {
	return Balances{AccountNumber: m.name}, nil
}
