package bot

import (
	"context"
	"sync"
	"time"

	"hedgefarm/internal/config"
	"hedgefarm/internal/exchange"
)

// mockClient - биржевой клиент для тестов: фиксированная цена,
// настраиваемые ошибки, запись всех размещённых ордеров
type mockClient struct {
	label string

	mu     sync.Mutex
	orders []exchange.OrderRequest

	price        float64
	priceErr     error
	leverageErr  error
	positions    []exchange.Position
	positionsErr error

	// placeFn при ненулевом значении перехватывает PlaceOrder;
	// call - порядковый номер вызова начиная с 1
	placeFn func(req exchange.OrderRequest, call int) (*exchange.Order, error)
}

func newMockClient(label string, price float64) *mockClient {
	return &mockClient{label: label, price: price}
}

func (m *mockClient) Label() string { return m.label }

func (m *mockClient) PlaceOrder(_ context.Context, req exchange.OrderRequest) (*exchange.Order, error) {
	m.mu.Lock()
	m.orders = append(m.orders, req)
	call := len(m.orders)
	m.mu.Unlock()

	if m.placeFn != nil {
		return m.placeFn(req, call)
	}

	return &exchange.Order{
		OrderID:     "1",
		Symbol:      req.Symbol,
		AvgPrice:    m.price,
		OrigQty:     req.Quantity,
		ExecutedQty: req.Quantity,
	}, nil
}

func (m *mockClient) GetSymbolPrice(_ context.Context, _ string) (float64, error) {
	if m.priceErr != nil {
		return 0, m.priceErr
	}
	return m.price, nil
}

func (m *mockClient) SetLeverage(_ context.Context, _ string, _ int) error {
	return m.leverageErr
}

func (m *mockClient) GetPositions(_ context.Context) ([]exchange.Position, error) {
	if m.positionsErr != nil {
		return nil, m.positionsErr
	}
	return m.positions, nil
}

// Orders возвращает копию записанных ордеров
func (m *mockClient) Orders() []exchange.OrderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]exchange.OrderRequest, len(m.orders))
	copy(out, m.orders)
	return out
}

// marginError - типичный ответ Binance при нехватке маржи
func marginError(account string) error {
	return &exchange.ExchangeError{
		Account: account,
		Code:    -2019,
		Message: "Margin is insufficient.",
	}
}

// testTradingConfig - торговые параметры по умолчанию для тестов
func testTradingConfig() config.TradingConfig {
	return config.TradingConfig{
		Leverage:          10,
		PositionSizeRange: config.Range{Min: 400, Max: 600},
		HoldMinutesRange:  config.IntRange{Min: 30, Max: 90},
		InterLegDelayMs:   config.IntRange{Min: 500, Max: 3000},
		Instruments:       []string{"BTCUSDT"},

		OpenAttempts:       3,
		QuarantineCooldown: 10 * time.Minute,
		QuarantinePoll:     30 * time.Second,
		InterCycleDelay:    15 * time.Second,
		ErrorBackoff:       30 * time.Second,

		DustThreshold: 0.001,
	}
}

// instantSleep - sleep-хук без реального ожидания
func instantSleep(ctx context.Context, _ time.Duration) bool {
	return ctx.Err() == nil
}

// sleepRecorder записывает запрошенные задержки, не ожидая их
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) bool {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err() == nil
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.delays))
	copy(out, s.delays)
	return out
}
