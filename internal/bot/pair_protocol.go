package bot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hedgefarm/internal/config"
	"hedgefarm/internal/exchange"
	"hedgefarm/internal/models"
)

// Outcome - итог попытки открытия пары
type Outcome int

const (
	// OutcomeOpened - обе ноги открыты, позиция создана
	OutcomeOpened Outcome = iota
	// OutcomeInsufficientMargin - нехватка маржи, без retry, пара пропускается
	OutcomeInsufficientMargin
	// OutcomeCritical - все попытки исчерпаны, группа уходит в карантин
	OutcomeCritical
)

// OpenResult - результат протокола открытия пары
type OpenResult struct {
	Position *models.PositionPair
	Outcome  Outcome
	Err      error
}

// PairProtocol выполняет открытие и закрытие симметричной позиции пары.
//
// Протокол открытия: до OpenAttempts попыток, каждая попытка размещает
// обе ноги заново. Нехватка маржи обрывает попытки сразу - это ожидаемый
// отказ, а не сбой. Прочие ошибки ретраятся с линейным backoff.
type PairProtocol struct {
	cfg     config.TradingConfig
	sampler *Sampler
	log     *zap.Logger

	// sleep инъектируется в тестах, по умолчанию sleepCtx
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewPairProtocol создаёт протокол с боевыми задержками
func NewPairProtocol(cfg config.TradingConfig, sampler *Sampler, log *zap.Logger) *PairProtocol {
	return &PairProtocol{
		cfg:     cfg,
		sampler: sampler,
		log:     log,
		sleep:   sleepCtx,
	}
}

// sleepCtx спит d или до отмены контекста; false = контекст отменён
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Open открывает симметричную позицию пары: лонг на первом аккаунте,
// джиттер, шорт на втором. Размер позиции общий для всех пар цикла.
func (p *PairProtocol) Open(ctx context.Context, pair models.HedgePair, long, short exchange.Client, symbol string, positionSize float64) OpenResult {
	var lastErr error

	for attempt := 1; attempt <= p.cfg.OpenAttempts; attempt++ {
		if ctx.Err() != nil {
			return OpenResult{Outcome: OutcomeCritical, Err: ctx.Err()}
		}

		pos, err := p.tryOpen(ctx, pair, long, short, symbol, positionSize)
		if err == nil {
			return OpenResult{Position: pos, Outcome: OutcomeOpened}
		}

		if Classify(err) == ClassInsufficientMargin {
			p.log.Warn("недостаточно маржи для открытия пары",
				zap.Int("pair_id", pair.PairID),
				zap.String("symbol", symbol),
				zap.Error(err))
			RecordMarginRejection()
			return OpenResult{Outcome: OutcomeInsufficientMargin, Err: err}
		}

		lastErr = err
		p.log.Warn("попытка открытия пары не удалась",
			zap.Int("pair_id", pair.PairID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		// Линейный backoff: номер попытки * 1000 мс
		if attempt < p.cfg.OpenAttempts {
			if !p.sleep(ctx, time.Duration(attempt)*time.Second) {
				return OpenResult{Outcome: OutcomeCritical, Err: ctx.Err()}
			}
		}
	}

	return OpenResult{
		Outcome: OutcomeCritical,
		Err:     fmt.Errorf("pair %d: %d open attempts exhausted: %w", pair.PairID, p.cfg.OpenAttempts, lastErr),
	}
}

// tryOpen - одна попытка: плечо, цена, объём, лонг, джиттер, шорт
func (p *PairProtocol) tryOpen(ctx context.Context, pair models.HedgePair, long, short exchange.Client, symbol string, positionSize float64) (*models.PositionPair, error) {
	// Выставление плеча идемпотентно; ошибка не фатальна, биржа
	// отклонит ордер сама, если плечо не применилось
	if err := long.SetLeverage(ctx, symbol, p.cfg.Leverage); err != nil {
		p.log.Warn("не удалось выставить плечо (лонг)",
			zap.String("account", long.Label()), zap.Error(err))
	}
	if err := short.SetLeverage(ctx, symbol, p.cfg.Leverage); err != nil {
		p.log.Warn("не удалось выставить плечо (шорт)",
			zap.String("account", short.Label()), zap.Error(err))
	}

	price, err := long.GetSymbolPrice(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("get price: %w", err)
	}

	quantity := CalculateQuantity(positionSize, p.cfg.Leverage, price, symbol)
	if quantity <= 0 {
		return nil, fmt.Errorf("calculated quantity is zero for %s at price %v", symbol, price)
	}

	started := time.Now()
	longOrder, err := long.PlaceOrder(ctx, exchange.OrderRequest{
		Symbol:       symbol,
		Side:         exchange.SideBuy,
		Type:         exchange.OrderTypeMarket,
		PositionSide: exchange.PositionSideLong,
		Quantity:     quantity,
	})
	RecordOrderDuration("open_long", time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("open long leg: %w", err)
	}

	// Джиттер между ногами, чтобы ордера пары не ложились на биржу
	// одновременно
	jitter := time.Duration(p.sampler.JitterMs(p.cfg.InterLegDelayMs)) * time.Millisecond
	if !p.sleep(ctx, jitter) {
		return nil, ctx.Err()
	}

	started = time.Now()
	shortOrder, err := short.PlaceOrder(ctx, exchange.OrderRequest{
		Symbol:       symbol,
		Side:         exchange.SideSell,
		Type:         exchange.OrderTypeMarket,
		PositionSide: exchange.PositionSideShort,
		Quantity:     quantity,
	})
	RecordOrderDuration("open_short", time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("open short leg: %w", err)
	}

	return &models.PositionPair{
		PairID:    pair.PairID,
		Symbol:    symbol,
		Quantity:  quantity,
		OpenPrice: price,
		Status:    models.PositionOpen,
		OpenedAt:  time.Now(),
		LongOpen:  confirmation(longOrder),
		ShortOpen: confirmation(shortOrder),
	}, nil
}

// Close закрывает обе ноги позиции reduce-only ордерами того же объёма.
// Статус меняется только если обе ноги закрылись; иначе позиция остаётся
// открытой и возвращается ошибка.
func (p *PairProtocol) Close(ctx context.Context, pos *models.PositionPair, long, short exchange.Client, emergency bool) error {
	var firstErr error

	if pos.LongClose == nil {
		started := time.Now()
		order, err := long.PlaceOrder(ctx, exchange.OrderRequest{
			Symbol:       pos.Symbol,
			Side:         exchange.SideSell,
			Type:         exchange.OrderTypeMarket,
			PositionSide: exchange.PositionSideLong,
			Quantity:     pos.Quantity,
			ReduceOnly:   true,
		})
		RecordOrderDuration("close_long", time.Since(started))
		if err != nil {
			firstErr = fmt.Errorf("close long leg: %w", err)
			p.log.Error("не удалось закрыть лонг",
				zap.Int("pair_id", pos.PairID),
				zap.String("account", long.Label()),
				zap.Error(err))
		} else {
			pos.LongClose = confirmation(order)
		}
	}

	if pos.ShortClose == nil {
		started := time.Now()
		order, err := short.PlaceOrder(ctx, exchange.OrderRequest{
			Symbol:       pos.Symbol,
			Side:         exchange.SideBuy,
			Type:         exchange.OrderTypeMarket,
			PositionSide: exchange.PositionSideShort,
			Quantity:     pos.Quantity,
			ReduceOnly:   true,
		})
		RecordOrderDuration("close_short", time.Since(started))
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("close short leg: %w", err)
			}
			p.log.Error("не удалось закрыть шорт",
				zap.Int("pair_id", pos.PairID),
				zap.String("account", short.Label()),
				zap.Error(err))
		} else {
			pos.ShortClose = confirmation(order)
		}
	}

	if firstErr != nil {
		return firstErr
	}

	pos.ClosedAt = time.Now()
	if emergency {
		pos.Status = models.PositionEmergencyClosed
		RecordPositionClosed(pos.Symbol, "emergency")
	} else {
		pos.Status = models.PositionClosed
		RecordPositionClosed(pos.Symbol, "normal")
	}

	return nil
}

func confirmation(o *exchange.Order) *models.OrderConfirmation {
	if o == nil {
		return nil
	}
	return &models.OrderConfirmation{
		OrderID:     o.OrderID,
		Price:       o.Price,
		AvgPrice:    o.AvgPrice,
		OrigQty:     o.OrigQty,
		ExecutedQty: o.ExecutedQty,
	}
}
