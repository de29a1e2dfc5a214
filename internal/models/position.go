package models

import "time"

// PositionPair представляет открытую симметричную позицию одной хедж-пары:
// равный объём в лонг и шорт на двух аккаунтах.
type PositionPair struct {
	PairID     int       `json:"pair_id"`
	Symbol     string    `json:"symbol"`
	Quantity   float64   `json:"quantity"` // одинаков для открытия и закрытия
	OpenPrice  float64   `json:"open_price"`
	Status     string    `json:"status"`
	OpenedAt   time.Time `json:"opened_at"`
	ClosedAt   time.Time `json:"closed_at,omitempty"`

	// Подтверждения ордеров обеих ног
	LongOpen   *OrderConfirmation `json:"long_open,omitempty"`
	ShortOpen  *OrderConfirmation `json:"short_open,omitempty"`
	LongClose  *OrderConfirmation `json:"long_close,omitempty"`
	ShortClose *OrderConfirmation `json:"short_close,omitempty"`
}

// OrderConfirmation - подтверждение размещённого ордера от биржи.
// Ценовые поля берём как есть, без взвешивания по филлам.
type OrderConfirmation struct {
	OrderID     string  `json:"order_id"`
	Price       float64 `json:"price,omitempty"`
	AvgPrice    float64 `json:"avg_price,omitempty"`
	OrigQty     float64 `json:"orig_qty,omitempty"`
	ExecutedQty float64 `json:"executed_qty,omitempty"`
}

// Статусы позиционной пары
const (
	PositionOpen            = "OPEN"
	PositionClosed          = "CLOSED"
	PositionEmergencyClosed = "EMERGENCY_CLOSED" // аварийный unwind при критической ошибке
)

// FillPrice возвращает цену исполнения из подтверждения: avgPrice приоритетнее.
// Если биржа не вернула цену, возвращается 0.
func (c *OrderConfirmation) FillPrice() float64 {
	if c == nil {
		return 0
	}
	if c.AvgPrice > 0 {
		return c.AvgPrice
	}
	return c.Price
}
