package bot

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"hedgefarm/internal/exchange"
)

func TestFlattenAll(t *testing.T) {
	client := newMockClient("acc-1", 30000)
	client.positions = []exchange.Position{
		{Symbol: "BTCUSDT", PositionSide: "LONG", PositionAmt: 0.01},
		{Symbol: "ETHUSDT", PositionSide: "SHORT", PositionAmt: -0.0001}, // пыль
	}

	result := FlattenAll(context.Background(), []exchange.Client{client}, 0.001, zap.NewNop())

	if result.ClosedCount != 1 {
		t.Fatalf("closed count = %d, want 1 (dust skipped)", result.ClosedCount)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("errors = %v, want none", result.Errors)
	}

	orders := client.Orders()
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(orders))
	}

	// Лонг 0.01 BTCUSDT закрывается reduce-only SELL того же объёма
	o := orders[0]
	if o.Symbol != "BTCUSDT" {
		t.Errorf("symbol = %s, want BTCUSDT", o.Symbol)
	}
	if o.Side != exchange.SideSell || o.PositionSide != exchange.PositionSideLong {
		t.Errorf("order = %s/%s, want SELL/LONG", o.Side, o.PositionSide)
	}
	if !o.ReduceOnly {
		t.Error("flatten order must be reduce-only")
	}
	if o.Quantity != 0.01 {
		t.Errorf("quantity = %v, want 0.01", o.Quantity)
	}
}

func TestFlattenAllShortPosition(t *testing.T) {
	client := newMockClient("acc-1", 2000)
	client.positions = []exchange.Position{
		{Symbol: "ETHUSDT", PositionSide: "SHORT", PositionAmt: -1.5},
	}

	result := FlattenAll(context.Background(), []exchange.Client{client}, 0.001, zap.NewNop())

	if result.ClosedCount != 1 {
		t.Fatalf("closed count = %d, want 1", result.ClosedCount)
	}

	o := client.Orders()[0]
	if o.Side != exchange.SideBuy || o.PositionSide != exchange.PositionSideShort {
		t.Errorf("order = %s/%s, want BUY/SHORT", o.Side, o.PositionSide)
	}
	if o.Quantity != 1.5 {
		t.Errorf("quantity = %v, want 1.5 (absolute value)", o.Quantity)
	}
}

func TestFlattenAllAggregatesErrors(t *testing.T) {
	broken := newMockClient("acc-broken", 30000)
	broken.positionsErr = errors.New("api unavailable")

	failing := newMockClient("acc-failing", 30000)
	failing.positions = []exchange.Position{
		{Symbol: "BTCUSDT", PositionSide: "LONG", PositionAmt: 0.5},
	}
	failing.placeFn = func(_ exchange.OrderRequest, _ int) (*exchange.Order, error) {
		return nil, errors.New("order rejected")
	}

	healthy := newMockClient("acc-healthy", 30000)
	healthy.positions = []exchange.Position{
		{Symbol: "BTCUSDT", PositionSide: "LONG", PositionAmt: 0.25},
	}

	result := FlattenAll(context.Background(),
		[]exchange.Client{broken, failing, healthy}, 0.001, zap.NewNop())

	// Ошибки одних аккаунтов не мешают закрытию на других
	if result.ClosedCount != 1 {
		t.Errorf("closed count = %d, want 1", result.ClosedCount)
	}
	if len(result.Errors) != 2 {
		t.Errorf("errors = %d, want 2: %v", len(result.Errors), result.Errors)
	}
}

func TestFlattenAllNoPositions(t *testing.T) {
	client := newMockClient("acc-1", 30000)

	result := FlattenAll(context.Background(), []exchange.Client{client}, 0.001, zap.NewNop())

	if result.ClosedCount != 0 || len(result.Errors) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
	if len(client.Orders()) != 0 {
		t.Error("no orders expected for flat account")
	}
}
