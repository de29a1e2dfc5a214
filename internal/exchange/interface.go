// Package exchange предоставляет клиент фьючерсной биржи для одного аккаунта.
package exchange

import (
	"context"
	"strconv"
)

// Client определяет контракт биржевого клиента, который потребляет торговое ядро.
// Каждый экземпляр привязан к одному аккаунту; таймауты отдельных запросов -
// ответственность клиента, ядро ими не управляет.
type Client interface {
	// Label возвращает метку аккаунта (для логов и событий)
	Label() string

	// PlaceOrder размещает ордер и возвращает подтверждение
	PlaceOrder(ctx context.Context, req OrderRequest) (*Order, error)

	// GetSymbolPrice получает текущую цену инструмента
	GetSymbolPrice(ctx context.Context, symbol string) (float64, error)

	// SetLeverage выставляет плечо для инструмента (best-effort)
	SetLeverage(ctx context.Context, symbol string, leverage int) error

	// GetPositions возвращает открытые позиции аккаунта
	GetPositions(ctx context.Context) ([]Position, error)
}

// OrderRequest - параметры размещаемого ордера
type OrderRequest struct {
	Symbol       string
	Side         string // BUY или SELL
	Type         string // MARKET
	PositionSide string // LONG или SHORT (hedge mode)
	Quantity     float64
	ReduceOnly   bool // только уменьшение позиции (для закрытия и flatten)
}

// Order - подтверждение размещённого ордера.
// Ценовые поля приходят как есть; биржа может не заполнить часть из них.
type Order struct {
	OrderID     string  `json:"order_id"`
	Symbol      string  `json:"symbol"`
	Price       float64 `json:"price,omitempty"`
	AvgPrice    float64 `json:"avg_price,omitempty"`
	OrigQty     float64 `json:"orig_qty,omitempty"`
	ExecutedQty float64 `json:"executed_qty,omitempty"`
}

// Position - открытая позиция аккаунта.
// PositionAmt со знаком: положительный лонг, отрицательный шорт.
type Position struct {
	Symbol       string  `json:"symbol"`
	PositionSide string  `json:"position_side"`
	PositionAmt  float64 `json:"position_amt"`
}

// Стороны ордера
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Направления позиции (hedge mode)
const (
	PositionSideLong  = "LONG"
	PositionSideShort = "SHORT"
)

// Типы ордеров
const (
	OrderTypeMarket = "MARKET"
)

// ExchangeError представляет ошибку от биржи
type ExchangeError struct {
	Account  string
	Code     int
	Message  string
	Original error
}

func (e *ExchangeError) Error() string {
	return e.Account + ": " + strconv.Itoa(e.Code) + " " + e.Message
}

// Unwrap возвращает оригинальную ошибку для поддержки errors.Is() и errors.As()
func (e *ExchangeError) Unwrap() error {
	return e.Original
}
