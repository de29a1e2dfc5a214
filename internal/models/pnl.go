package models

import "time"

// GroupPnLRecord - накопленный PNL группы с историей по циклам.
//
// История держится в памяти до сброса; итоговая сводка периодически
// выгружается во внешнее хранилище (repository).
type GroupPnLRecord struct {
	GroupID int        `json:"group_id"`
	Total   float64    `json:"total"`
	Entries []PnLEntry `json:"entries"` // упорядочены по циклам
}

// PnLEntry - результат одного завершённого цикла.
type PnLEntry struct {
	Cycle         int       `json:"cycle"`
	Timestamp     time.Time `json:"timestamp"`
	Pnl           float64   `json:"pnl"`
	PositionCount int       `json:"position_count"` // сколько пар закрыто в цикле
}

// PnLSummary - сводка PNL группы, выгружаемая в БД.
// Переживает рестарты процесса в отличие от истории в памяти.
type PnLSummary struct {
	GroupID    int       `json:"group_id" db:"group_id"`
	GroupLabel string    `json:"group_label" db:"group_label"`
	Total      float64   `json:"total" db:"total"`
	Cycles     int       `json:"cycles" db:"cycles"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
