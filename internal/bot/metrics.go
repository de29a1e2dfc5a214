package bot

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"hedgefarm/internal/models"
)

// Метрики торгового ядра. Регистрируются через promauto в default registry,
// отдаются наружу через /metrics.
var (
	cyclesCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hedgefarm",
		Subsystem: "trading",
		Name:      "cycles_completed_total",
		Help:      "Завершённые торговые циклы по группам",
	}, []string{"group"})

	positionsOpenedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hedgefarm",
		Subsystem: "trading",
		Name:      "positions_opened_total",
		Help:      "Открытые позиционные пары по инструментам",
	}, []string{"symbol"})

	positionsClosedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hedgefarm",
		Subsystem: "trading",
		Name:      "positions_closed_total",
		Help:      "Закрытые позиционные пары по инструментам и режиму закрытия",
	}, []string{"symbol", "mode"})

	pnlByGroup = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "hedgefarm",
		Subsystem: "trading",
		Name:      "pnl_group_usdt",
		Help:      "Накопленный PNL группы в USDT",
	}, []string{"group"})

	groupsByState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "hedgefarm",
		Subsystem: "trading",
		Name:      "groups_by_state",
		Help:      "Количество групп в каждом состоянии",
	}, []string{"state"})

	quarantinesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hedgefarm",
		Subsystem: "trading",
		Name:      "quarantines_total",
		Help:      "Уходы групп в карантин",
	}, []string{"group"})

	marginRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hedgefarm",
		Subsystem: "trading",
		Name:      "margin_rejections_total",
		Help:      "Отказы открытия пары по недостатку маржи",
	})

	emergencyClosesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hedgefarm",
		Subsystem: "trading",
		Name:      "emergency_closes_total",
		Help:      "Аварийные закрытия позиционных пар (unwind)",
	})

	eventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hedgefarm",
		Subsystem: "trading",
		Name:      "events_dropped_total",
		Help:      "События, отброшенные из-за переполнения канала наблюдателей",
	})

	orderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hedgefarm",
		Subsystem: "trading",
		Name:      "order_duration_seconds",
		Help:      "Длительность размещения ордера",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"side"})
)

// RecordCycleCompleted фиксирует завершённый цикл группы
func RecordCycleCompleted(groupLabel string) {
	cyclesCompletedTotal.WithLabelValues(groupLabel).Inc()
}

// RecordPositionOpened фиксирует открытие позиционной пары
func RecordPositionOpened(symbol string) {
	positionsOpenedTotal.WithLabelValues(symbol).Inc()
}

// RecordPositionClosed фиксирует закрытие позиционной пары.
// mode: "normal" или "emergency".
func RecordPositionClosed(symbol, mode string) {
	positionsClosedTotal.WithLabelValues(symbol, mode).Inc()
	if mode == "emergency" {
		emergencyClosesTotal.Inc()
	}
}

// RecordGroupPnl обновляет накопленный PNL группы
func RecordGroupPnl(groupLabel string, total float64) {
	pnlByGroup.WithLabelValues(groupLabel).Set(total)
}

// RecordQuarantine фиксирует уход группы в карантин
func RecordQuarantine(groupLabel string) {
	quarantinesTotal.WithLabelValues(groupLabel).Inc()
}

// RecordMarginRejection фиксирует отказ по недостатку маржи
func RecordMarginRejection() {
	marginRejectionsTotal.Inc()
}

// RecordEventDropped фиксирует отброшенное событие
func RecordEventDropped() {
	eventsDroppedTotal.Inc()
}

// RecordOrderDuration фиксирует длительность размещения ордера
func RecordOrderDuration(side string, d time.Duration) {
	orderDuration.WithLabelValues(side).Observe(d.Seconds())
}

// UpdateGroupStates пересчитывает gauge состояний по снимкам групп
func UpdateGroupStates(snapshots []models.GroupSnapshot) {
	counts := map[string]int{
		models.GroupActive:      0,
		models.GroupSuspended:   0,
		models.GroupQuarantined: 0,
		models.GroupTerminated:  0,
	}
	for _, s := range snapshots {
		counts[s.State]++
	}
	for state, n := range counts {
		groupsByState.WithLabelValues(state).Set(float64(n))
	}
}
