package bot

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"hedgefarm/internal/exchange"
)

// FlattenResult - итог ручного закрытия всех позиций
type FlattenResult struct {
	ClosedCount int      `json:"closed_count"`
	Errors      []string `json:"errors,omitempty"`
}

// FlattenAll закрывает все открытые позиции на всех переданных аккаунтах
// reduce-only ордерами. Работает напрямую с биржей, минуя торговый цикл:
// это аварийная кнопка, она должна работать и когда торговля остановлена.
//
// Позиции меньше dustThreshold пропускаются - биржа отклонит ордер
// ниже минимального шага объёма.
func FlattenAll(ctx context.Context, clients []exchange.Client, dustThreshold float64, log *zap.Logger) *FlattenResult {
	result := &FlattenResult{}

	for _, client := range clients {
		positions, err := client.GetPositions(ctx)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: get positions: %v", client.Label(), err))
			continue
		}

		for _, pos := range positions {
			qty := math.Abs(pos.PositionAmt)
			if qty < dustThreshold {
				continue
			}

			req := exchange.OrderRequest{
				Symbol:     pos.Symbol,
				Type:       exchange.OrderTypeMarket,
				Quantity:   qty,
				ReduceOnly: true,
			}

			// Закрытие - ордер противоположной стороны того же объёма
			if pos.PositionAmt > 0 {
				req.Side = exchange.SideSell
				req.PositionSide = exchange.PositionSideLong
			} else {
				req.Side = exchange.SideBuy
				req.PositionSide = exchange.PositionSideShort
			}
			if pos.PositionSide != "" {
				req.PositionSide = pos.PositionSide
			}

			if _, err := client.PlaceOrder(ctx, req); err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("%s: close %s %s: %v", client.Label(), pos.Symbol, req.PositionSide, err))
				continue
			}

			result.ClosedCount++
			log.Info("позиция закрыта вручную",
				zap.String("account", client.Label()),
				zap.String("symbol", pos.Symbol),
				zap.Float64("quantity", qty))
		}
	}

	return result
}
