package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hedgefarm/internal/models"
)

// PnLStore - персистентное хранилище сводок PNL (repository)
type PnLStore interface {
	Upsert(ctx context.Context, s *models.PnLSummary) error
	List(ctx context.Context) ([]*models.PnLSummary, error)
}

// SnapshotSource отдаёт текущие снимки групп (orchestrator)
type SnapshotSource interface {
	Snapshots() []models.GroupSnapshot
}

const upsertTimeout = 5 * time.Second

// PnLService выгружает сводку PNL группы в БД при каждом событии
// pnlUpdated. История циклов остаётся в памяти, в БД уезжает только
// накопленный итог.
type PnLService struct {
	store     PnLStore
	snapshots SnapshotSource
	log       *zap.Logger
}

// NewPnLService создает сервис персистенции PNL
func NewPnLService(store PnLStore, snapshots SnapshotSource, log *zap.Logger) *PnLService {
	return &PnLService{
		store:     store,
		snapshots: snapshots,
		log:       log,
	}
}

// OnEvent реализует EventSink: реагирует только на pnlUpdated
func (s *PnLService) OnEvent(ev models.Event) {
	if ev.Type != models.EventPnlUpdated {
		return
	}

	snap, ok := s.snapshotFor(ev.GroupID)
	if !ok {
		s.log.Warn("событие pnlUpdated от неизвестной группы", zap.Int("group_id", ev.GroupID))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), upsertTimeout)
	defer cancel()

	summary := &models.PnLSummary{
		GroupID:    snap.ID,
		GroupLabel: snap.Label,
		Total:      snap.TotalPnl,
		Cycles:     snap.Cycle,
	}
	if err := s.store.Upsert(ctx, summary); err != nil {
		// Потеря одной выгрузки не критична: следующий цикл перезапишет итог
		s.log.Error("не удалось выгрузить сводку PNL",
			zap.Int("group_id", snap.ID),
			zap.Error(err))
	}
}

// Summaries возвращает сохранённые сводки всех групп
func (s *PnLService) Summaries(ctx context.Context) ([]*models.PnLSummary, error) {
	return s.store.List(ctx)
}

func (s *PnLService) snapshotFor(groupID int) (models.GroupSnapshot, bool) {
	for _, snap := range s.snapshots.Snapshots() {
		if snap.ID == groupID {
			return snap, true
		}
	}
	return models.GroupSnapshot{}, false
}
