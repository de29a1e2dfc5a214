package bot

import (
	"math"
	"testing"
	"time"

	"hedgefarm/internal/models"
)

func closedPair(qty, longOpen, longClose, shortOpen, shortClose float64) *models.PositionPair {
	return &models.PositionPair{
		PairID:     1,
		Symbol:     "BTCUSDT",
		Quantity:   qty,
		Status:     models.PositionClosed,
		LongOpen:   &models.OrderConfirmation{AvgPrice: longOpen},
		LongClose:  &models.OrderConfirmation{AvgPrice: longClose},
		ShortOpen:  &models.OrderConfirmation{AvgPrice: shortOpen},
		ShortClose: &models.OrderConfirmation{AvgPrice: shortClose},
	}
}

func TestPairPnl(t *testing.T) {
	tests := []struct {
		name string
		pos  *models.PositionPair
		want float64
	}{
		// Симметричные ноги по одной цене взаимно гасятся
		{"symmetric fills cancel out", closedPair(2, 100, 110, 100, 110), 0},
		// Лонг: (105-100)*2 = 10, шорт: (101-99)*2 = 4
		{"asymmetric fills", closedPair(2, 100, 105, 101, 99), 14},
		// Лонг: (90-100)*1 = -10, шорт: (100-90)*1 = 10
		{"price drop", closedPair(1, 100, 90, 100, 90), 0},
		{
			"missing close price gives zero leg",
			&models.PositionPair{
				Quantity:  2,
				LongOpen:  &models.OrderConfirmation{AvgPrice: 100},
				LongClose: &models.OrderConfirmation{}, // биржа не вернула цену
				ShortOpen: &models.OrderConfirmation{AvgPrice: 100},
				// ShortClose отсутствует
			},
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PairPnl(tt.pos); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("PairPnl() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPairPnlUsesPriceFallback(t *testing.T) {
	// AvgPrice приоритетнее, но при его отсутствии берётся Price
	pos := &models.PositionPair{
		Quantity:   1,
		LongOpen:   &models.OrderConfirmation{Price: 100},
		LongClose:  &models.OrderConfirmation{Price: 110},
		ShortOpen:  &models.OrderConfirmation{AvgPrice: 100, Price: 999},
		ShortClose: &models.OrderConfirmation{AvgPrice: 100},
	}
	if got := PairPnl(pos); math.Abs(got-10) > 1e-9 {
		t.Errorf("PairPnl() = %v, want 10", got)
	}
}

func TestLedgerSettleCycle(t *testing.T) {
	l := NewLedger(7)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	p1 := closedPair(2, 100, 105, 101, 99) // +14
	p2 := closedPair(1, 100, 110, 100, 110)
	l.Add(p1)
	l.Add(p2)

	entry := l.SettleCycle(1, []*models.PositionPair{p1, p2}, now)

	if math.Abs(entry.Pnl-14) > 1e-9 {
		t.Errorf("cycle pnl = %v, want 14", entry.Pnl)
	}
	if entry.PositionCount != 2 {
		t.Errorf("position count = %d, want 2", entry.PositionCount)
	}
	if entry.Cycle != 1 {
		t.Errorf("cycle = %d, want 1", entry.Cycle)
	}

	// Второй цикл накапливается поверх первого
	p3 := closedPair(1, 200, 195, 200, 206) // -5 + -6 = -11
	l.SettleCycle(2, []*models.PositionPair{p3}, now.Add(time.Hour))

	if math.Abs(l.Total()-3) > 1e-9 {
		t.Errorf("total = %v, want 3", l.Total())
	}

	rec := l.Record()
	if rec.GroupID != 7 {
		t.Errorf("record group id = %d, want 7", rec.GroupID)
	}
	if len(rec.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(rec.Entries))
	}

	// Record отдаёт копию: мутация копии не трогает ledger
	rec.Entries[0].Pnl = 999
	if l.Record().Entries[0].Pnl == 999 {
		t.Error("Record() must return a copy of entries")
	}
}

func TestLedgerOpenAt(t *testing.T) {
	l := NewLedger(1)

	open := &models.PositionPair{PairID: 1, Symbol: "BTCUSDT", Status: models.PositionOpen}
	closed := &models.PositionPair{PairID: 2, Symbol: "BTCUSDT", Status: models.PositionClosed}
	other := &models.PositionPair{PairID: 3, Symbol: "ETHUSDT", Status: models.PositionOpen}
	l.Add(open)
	l.Add(closed)
	l.Add(other)

	got := l.OpenAt("BTCUSDT")
	if len(got) != 1 || got[0].PairID != 1 {
		t.Errorf("OpenAt(BTCUSDT) = %v, want only pair 1", got)
	}

	if l.OpenCount() != 2 {
		t.Errorf("OpenCount() = %d, want 2", l.OpenCount())
	}
}
