package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"hedgefarm/internal/config"
	"hedgefarm/internal/exchange"
	"hedgefarm/internal/models"
	"hedgefarm/pkg/retry"
)

// GroupUnit - группа вместе с биржевыми клиентами её аккаунтов.
// Собирается directory при старте торговли.
type GroupUnit struct {
	Group   *models.Group
	Clients map[int]exchange.Client // по ID аккаунта
}

// Runner выполняет торговый цикл одной группы в собственной горутине.
//
// Runner единолично владеет состоянием группы и её ledger'ом.
// Взаимодействие с внешним миром: канал событий (наружу) и
// callbacks watchdog'а (внутрь, только чтение снимков).
type Runner struct {
	group   *models.Group
	clients map[int]exchange.Client
	proto   *PairProtocol
	ledger  *Ledger
	cfg     config.TradingConfig
	sampler *Sampler
	log     *zap.Logger
	events  chan<- models.Event

	mu sync.RWMutex // защищает поля group для снимков

	// Хуки времени, инъектируются в тестах
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool

	// Callbacks watchdog'а от оркестратора
	tradableGroups func() int
	stopAll        func()
}

// NewRunner создаёт runner группы
func NewRunner(unit GroupUnit, cfg config.TradingConfig, events chan<- models.Event, log *zap.Logger) *Runner {
	sampler := NewSampler(0)
	r := &Runner{
		group:   unit.Group,
		clients: unit.Clients,
		ledger:  NewLedger(unit.Group.ID),
		cfg:     cfg,
		sampler: sampler,
		log:     log.With(zap.String("group", unit.Group.Label)),
		events:  events,
		now:     time.Now,
		sleep:   sleepCtx,
	}
	r.proto = NewPairProtocol(cfg, sampler, r.log)
	return r
}

// Run - главный цикл runner'а. Блокирует до отмены контекста
// или перехода группы в Terminated.
func (r *Runner) Run(ctx context.Context) {
	r.emit(models.EventTradingStarted, models.SeverityInfo, "группа начала торговлю", map[string]interface{}{
		"pairs": len(r.group.Pairs),
	})

	for {
		if ctx.Err() != nil {
			r.terminate()
			return
		}

		// Watchdog: если способных торговать групп не осталось, весь
		// прогон останавливается. Карантин считается способным торговать:
		// после cooldown группа вернётся в строй
		if r.tradableGroups != nil && r.tradableGroups() == 0 {
			r.log.Warn("способных торговать групп не осталось, остановка торговли")
			if r.stopAll != nil {
				r.stopAll()
			}
			r.terminate()
			return
		}

		switch r.State() {
		case models.GroupActive:
			r.runCycle(ctx)

		case models.GroupQuarantined:
			if !r.now().Before(r.quarantinedUntil()) {
				if r.setState(models.GroupActive, "", time.Time{}) {
					r.emit(models.EventGroupReactivated, models.SeverityInfo,
						"карантин истёк, группа снова активна", nil)
				}
			} else if !r.sleep(ctx, r.cfg.QuarantinePoll) {
				r.terminate()
				return
			}

		case models.GroupSuspended:
			// Автоматического выхода из Suspended нет, только ручной
			// рестарт торговли. Ждём и даём watchdog'у шанс сработать.
			if !r.sleep(ctx, r.cfg.QuarantinePoll) {
				r.terminate()
				return
			}

		case models.GroupTerminated:
			return
		}
	}
}

// runCycle - одна итерация: открыть все пары, держать, закрыть, посчитать PNL
func (r *Runner) runCycle(ctx context.Context) {
	symbol := r.sampler.Instrument(r.cfg.Instruments)
	// Один сэмпл размера на всю группу: пары цикла открываются равным объёмом
	positionSize := r.sampler.PositionSize(r.cfg.PositionSizeRange)

	r.log.Info("начало цикла",
		zap.Int("cycle", r.cycle()+1),
		zap.String("symbol", symbol),
		zap.Float64("position_size", positionSize))

	var openedNow []*models.PositionPair
	marginCount := 0
	var criticalErr error

	for _, pair := range r.group.Pairs {
		if ctx.Err() != nil {
			return
		}

		res := r.proto.Open(ctx, pair, r.clients[pair.Long.ID], r.clients[pair.Short.ID], symbol, positionSize)
		switch res.Outcome {
		case OutcomeOpened:
			r.ledger.Add(res.Position)
			openedNow = append(openedNow, res.Position)
			RecordPositionOpened(symbol)
			r.emit(models.EventPositionOpened, models.SeverityInfo, "", map[string]interface{}{
				"pair_id":  pair.PairID,
				"symbol":   symbol,
				"quantity": res.Position.Quantity,
				"price":    res.Position.OpenPrice,
			})

		case OutcomeInsufficientMargin:
			marginCount++
			r.emit(models.EventGroupError, models.SeverityWarn,
				"пара пропущена: недостаточно маржи", map[string]interface{}{
					"pair_id": pair.PairID,
					"symbol":  symbol,
				})

		case OutcomeCritical:
			criticalErr = res.Err
		}

		if criticalErr != nil {
			break
		}
	}

	// Все пары упёрлись в маржу: группа не может торговать, дальнейшие
	// циклы бессмысленны до ручного вмешательства
	if marginCount == len(r.group.Pairs) {
		r.setState(models.GroupSuspended, models.ReasonAllPairsInsufficientMargin, time.Time{})
		r.emit(models.EventGroupDeactivated, models.SeverityWarn,
			"группа приостановлена: ни одна пара не смогла открыться", map[string]interface{}{
				"reason": models.ReasonAllPairsInsufficientMargin,
			})
		r.log.Warn("группа приостановлена", zap.String("reason", models.ReasonAllPairsInsufficientMargin))
		return
	}

	// Критическая ошибка: аварийно разворачиваем открытое в этом цикле
	// и уходим в карантин
	if criticalErr != nil {
		// Отмена контекста - штатная остановка, а не авария группы.
		// Цикл Run завершит группу на следующей проверке контекста
		if errors.Is(criticalErr, context.Canceled) || errors.Is(criticalErr, context.DeadlineExceeded) {
			return
		}
		r.unwind(ctx, openedNow)
		until := r.now().Add(r.cfg.QuarantineCooldown)
		r.setState(models.GroupQuarantined, "", until)
		RecordQuarantine(r.group.Label)
		r.emit(models.EventCriticalGroupError, models.SeverityError, criticalErr.Error(), map[string]interface{}{
			"retry_after": until,
		})
		r.log.Error("группа в карантине после критической ошибки",
			zap.Time("until", until),
			zap.Error(criticalErr))
		return
	}

	closeErrors := 0

	if len(openedNow) > 0 {
		holdMinutes := r.sampler.HoldMinutes(r.cfg.HoldMinutesRange)
		r.log.Info("позиции открыты, удержание",
			zap.Int("opened", len(openedNow)),
			zap.Int("hold_minutes", holdMinutes))

		if !r.sleep(ctx, time.Duration(holdMinutes)*time.Minute) {
			return
		}

		// Закрываем все ещё открытые позиции группы по этому инструменту,
		// включая возможные хвосты прошлых циклов
		var closedNow []*models.PositionPair
		for _, pos := range r.ledger.OpenAt(symbol) {
			pair, ok := r.pairByID(pos.PairID)
			if !ok {
				continue
			}

			err := r.proto.Close(ctx, pos, r.clients[pair.Long.ID], r.clients[pair.Short.ID], false)
			if err != nil {
				closeErrors++
				r.emit(models.EventCloseError, models.SeverityError, err.Error(), map[string]interface{}{
					"pair_id": pos.PairID,
					"symbol":  pos.Symbol,
				})
				continue
			}

			closedNow = append(closedNow, pos)
			r.emit(models.EventPositionClosed, models.SeverityInfo, "", map[string]interface{}{
				"pair_id": pos.PairID,
				"symbol":  pos.Symbol,
				"pnl":     PairPnl(pos),
			})
		}

		cycle := r.incrementCycle()
		entry := r.ledger.SettleCycle(cycle, closedNow, r.now())
		RecordGroupPnl(r.group.Label, r.ledger.Total())
		RecordCycleCompleted(r.group.Label)

		r.emit(models.EventPnlUpdated, models.SeverityInfo, "", map[string]interface{}{
			"cycle":     entry.Cycle,
			"pnl":       entry.Pnl,
			"total":     r.ledger.Total(),
			"positions": entry.PositionCount,
		})
		r.emit(models.EventCycleCompleted, models.SeverityInfo, "", map[string]interface{}{
			"cycle":  entry.Cycle,
			"symbol": symbol,
		})

		r.log.Info("цикл завершён",
			zap.Int("cycle", entry.Cycle),
			zap.Float64("pnl", entry.Pnl),
			zap.Float64("total", r.ledger.Total()))
	}

	// Ошибки закрытия не меняют состояние группы, но цикл берёт
	// увеличенную паузу перед продолжением
	delay := r.cfg.InterCycleDelay
	if closeErrors > 0 {
		delay = r.cfg.ErrorBackoff
	}
	r.sleep(ctx, delay)
}

// unwind аварийно закрывает позиции, открытые в текущем цикле.
// Ошибка одной позиции не блокирует попытки по остальным.
func (r *Runner) unwind(ctx context.Context, opened []*models.PositionPair) {
	for _, pos := range opened {
		if pos.Status != models.PositionOpen {
			continue
		}
		pair, ok := r.pairByID(pos.PairID)
		if !ok {
			continue
		}

		long, short := r.clients[pair.Long.ID], r.clients[pair.Short.ID]
		err := retry.Do(ctx, func() error {
			return r.proto.Close(ctx, pos, long, short, true)
		}, retry.AggressiveConfig())
		if err != nil {
			r.emit(models.EventCloseError, models.SeverityError, err.Error(), map[string]interface{}{
				"pair_id":   pos.PairID,
				"symbol":    pos.Symbol,
				"emergency": true,
			})
			r.log.Error("аварийное закрытие не удалось",
				zap.Int("pair_id", pos.PairID),
				zap.Error(err))
		}
	}
}

// terminate переводит группу в терминальное состояние
func (r *Runner) terminate() {
	if !r.setState(models.GroupTerminated, "", time.Time{}) {
		return
	}

	// Позиции, оставшиеся открытыми, сами не закроются: оператору
	// нужен flatten
	var meta map[string]interface{}
	if open := r.ledger.OpenCount(); open > 0 {
		meta = map[string]interface{}{"open_positions": open}
		r.log.Warn("группа остановлена с открытыми позициями, требуется ручной flatten",
			zap.Int("open_positions", open))
	}
	r.emit(models.EventTradingStopped, models.SeverityInfo, "группа остановлена", meta)
}

// setState выполняет переход состояния с валидацией state machine
func (r *Runner) setState(to, reason string, until time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.group.State == to {
		return false
	}
	if !CanTransition(r.group.State, to) {
		r.log.Warn("недопустимый переход состояния",
			zap.String("from", r.group.State),
			zap.String("to", to))
		return false
	}

	r.group.State = to
	r.group.Reason = reason
	r.group.QuarantinedUntil = until
	return true
}

// State возвращает текущее состояние группы
func (r *Runner) State() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.group.State
}

func (r *Runner) quarantinedUntil() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.group.QuarantinedUntil
}

func (r *Runner) cycle() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.group.Cycle
}

func (r *Runner) incrementCycle() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.group.Cycle++
	r.group.LastTrade = r.now()
	return r.group.Cycle
}

// Snapshot возвращает read-only копию состояния группы
func (r *Runner) Snapshot() models.GroupSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return models.GroupSnapshot{
		ID:               r.group.ID,
		Label:            r.group.Label,
		State:            r.group.State,
		Reason:           r.group.Reason,
		QuarantinedUntil: r.group.QuarantinedUntil,
		Cycle:            r.group.Cycle,
		PairCount:        len(r.group.Pairs),
		OpenPositions:    r.ledger.OpenCount(),
		TotalPnl:         r.ledger.Total(),
		LastTrade:        r.group.LastTrade,
	}
}

// PnLRecord возвращает копию накопленного PNL группы
func (r *Runner) PnLRecord() models.GroupPnLRecord {
	return r.ledger.Record()
}

func (r *Runner) pairByID(id int) (models.HedgePair, bool) {
	for _, p := range r.group.Pairs {
		if p.PairID == id {
			return p, true
		}
	}
	return models.HedgePair{}, false
}

// emit отправляет событие наблюдателям без блокировки.
// Переполненный канал означает отставшего потребителя; торговый цикл
// важнее истории событий, поэтому событие отбрасывается.
func (r *Runner) emit(eventType, severity, message string, meta map[string]interface{}) {
	ev := models.Event{
		Timestamp: r.now(),
		Type:      eventType,
		Severity:  severity,
		GroupID:   r.group.ID,
		Message:   message,
		Meta:      meta,
	}

	select {
	case r.events <- ev:
	default:
		RecordEventDropped()
		r.log.Warn("канал событий переполнен, событие отброшено",
			zap.String("type", eventType))
	}
}
