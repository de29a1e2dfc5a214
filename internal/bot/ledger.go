package bot

import (
	"sync"
	"time"

	"hedgefarm/internal/models"
)

// Ledger хранит позиции и PNL одной группы.
//
// Пишет только runner группы; оркестратор и API читают через копии,
// поэтому доступ под мьютексом.
type Ledger struct {
	mu        sync.Mutex
	groupID   int
	positions []*models.PositionPair
	record    models.GroupPnLRecord
}

// NewLedger создаёт пустой ledger группы
func NewLedger(groupID int) *Ledger {
	return &Ledger{
		groupID: groupID,
		record:  models.GroupPnLRecord{GroupID: groupID},
	}
}

// Add регистрирует открытую позицию
func (l *Ledger) Add(pos *models.PositionPair) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.positions = append(l.positions, pos)
}

// OpenAt возвращает открытые позиции по инструменту
func (l *Ledger) OpenAt(symbol string) []*models.PositionPair {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*models.PositionPair
	for _, p := range l.positions {
		if p.Status == models.PositionOpen && p.Symbol == symbol {
			out = append(out, p)
		}
	}
	return out
}

// OpenCount возвращает количество открытых позиций
func (l *Ledger) OpenCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, p := range l.positions {
		if p.Status == models.PositionOpen {
			n++
		}
	}
	return n
}

// PairPnl считает PNL закрытой симметричной позиции.
//
// Лонг: (цена закрытия - цена открытия) * объём.
// Шорт: (цена открытия - цена закрытия) * объём.
// Цены берутся из подтверждений ордеров; нога без цены исполнения
// даёт нулевой вклад.
func PairPnl(pos *models.PositionPair) float64 {
	var pnl float64

	if openPrice := pos.LongOpen.FillPrice(); openPrice > 0 {
		if closePrice := pos.LongClose.FillPrice(); closePrice > 0 {
			pnl += (closePrice - openPrice) * pos.Quantity
		}
	}

	if openPrice := pos.ShortOpen.FillPrice(); openPrice > 0 {
		if closePrice := pos.ShortClose.FillPrice(); closePrice > 0 {
			pnl += (openPrice - closePrice) * pos.Quantity
		}
	}

	return pnl
}

// SettleCycle фиксирует результат цикла по закрытым в нём позициям
// и возвращает запись для события pnlUpdated
func (l *Ledger) SettleCycle(cycle int, closed []*models.PositionPair, now time.Time) models.PnLEntry {
	var pnl float64
	for _, p := range closed {
		pnl += PairPnl(p)
	}

	entry := models.PnLEntry{
		Cycle:         cycle,
		Timestamp:     now,
		Pnl:           pnl,
		PositionCount: len(closed),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.record.Total += pnl
	l.record.Entries = append(l.record.Entries, entry)

	return entry
}

// Total возвращает накопленный PNL группы
func (l *Ledger) Total() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.record.Total
}

// Record возвращает копию записи PNL (безопасно для конкурентных читателей)
func (l *Ledger) Record() models.GroupPnLRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := models.GroupPnLRecord{
		GroupID: l.record.GroupID,
		Total:   l.record.Total,
		Entries: make([]models.PnLEntry, len(l.record.Entries)),
	}
	copy(rec.Entries, l.record.Entries)
	return rec
}
