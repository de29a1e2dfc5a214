package bot

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"hedgefarm/internal/config"
	"hedgefarm/internal/models"
)

// Размер буфера канала событий. Потребители (WebSocket hub, персистенция
// PNL) читают быстро, буфер сглаживает всплески при закрытии циклов.
const eventBufferSize = 256

// Orchestrator управляет прогоном: по горутине на группу, общий канал
// событий, watchdog и остановка.
type Orchestrator struct {
	cfg config.TradingConfig
	log *zap.Logger

	mu      sync.Mutex
	runners []*Runner
	cancel  context.CancelFunc
	running bool

	wg     sync.WaitGroup
	events chan models.Event
}

// NewOrchestrator создаёт оркестратор
func NewOrchestrator(cfg config.TradingConfig, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		log:    log,
		events: make(chan models.Event, eventBufferSize),
	}
}

// Events возвращает канал событий торгового ядра.
// Канал живёт всё время жизни оркестратора и переживает рестарты прогона.
func (o *Orchestrator) Events() <-chan models.Event {
	return o.events
}

// Start запускает прогон: runner на каждую группу.
// Возвращает ошибку, если прогон уже идёт или групп нет.
func (o *Orchestrator) Start(units []GroupUnit) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return fmt.Errorf("trading is already running")
	}
	if len(units) == 0 {
		return fmt.Errorf("no tradable groups")
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.runners = make([]*Runner, 0, len(units))

	for _, unit := range units {
		r := NewRunner(unit, o.cfg, o.events, o.log)
		r.tradableGroups = o.TradableGroupCount
		r.stopAll = cancel
		o.runners = append(o.runners, r)
	}

	for _, r := range o.runners {
		o.wg.Add(1)
		go func(r *Runner) {
			defer o.wg.Done()
			r.Run(ctx)
		}(r)
	}

	o.running = true
	o.log.Info("торговля запущена", zap.Int("groups", len(units)))
	return nil
}

// Stop останавливает прогон и дожидается завершения всех runner'ов
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	cancel := o.cancel
	o.mu.Unlock()

	cancel()
	o.wg.Wait()

	o.mu.Lock()
	o.running = false
	o.mu.Unlock()

	o.log.Info("торговля остановлена")
}

// IsRunning возвращает true, пока прогон идёт
func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// ActiveGroupCount считает группы в состоянии Active
func (o *Orchestrator) ActiveGroupCount() int {
	o.mu.Lock()
	runners := o.runners
	o.mu.Unlock()

	n := 0
	for _, r := range runners {
		if r.State() == models.GroupActive {
			n++
		}
	}
	return n
}

// TradableGroupCount считает группы, способные торговать: Active плюс
// Quarantined (после cooldown группа вернётся в Active). Используется
// watchdog'ом runner'ов; Suspended и Terminated уже не торгуют.
func (o *Orchestrator) TradableGroupCount() int {
	o.mu.Lock()
	runners := o.runners
	o.mu.Unlock()

	n := 0
	for _, r := range runners {
		switch r.State() {
		case models.GroupActive, models.GroupQuarantined:
			n++
		}
	}
	return n
}

// Snapshots возвращает снимки всех групп прогона
func (o *Orchestrator) Snapshots() []models.GroupSnapshot {
	o.mu.Lock()
	runners := o.runners
	o.mu.Unlock()

	snapshots := make([]models.GroupSnapshot, 0, len(runners))
	for _, r := range runners {
		snapshots = append(snapshots, r.Snapshot())
	}

	UpdateGroupStates(snapshots)
	return snapshots
}

// PnLRecords возвращает копии PNL всех групп
func (o *Orchestrator) PnLRecords() []models.GroupPnLRecord {
	o.mu.Lock()
	runners := o.runners
	o.mu.Unlock()

	records := make([]models.GroupPnLRecord, 0, len(runners))
	for _, r := range runners {
		records = append(records, r.PnLRecord())
	}
	return records
}

// GroupPnL возвращает PNL конкретной группы
func (o *Orchestrator) GroupPnL(groupID int) (models.GroupPnLRecord, bool) {
	o.mu.Lock()
	runners := o.runners
	o.mu.Unlock()

	for _, r := range runners {
		rec := r.PnLRecord()
		if rec.GroupID == groupID {
			return rec, true
		}
	}
	return models.GroupPnLRecord{}, false
}
