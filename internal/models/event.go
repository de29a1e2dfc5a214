package models

import "time"

// Event - событие торгового ядра для наблюдателей (WebSocket, персистенция PNL).
//
// Runner'ы не пишут в общие структуры напрямую: каждое значимое событие
// отправляется в типизированный канал, который читает оркестратор.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Type      string                 `json:"type"`
	Severity  string                 `json:"severity"`
	GroupID   int                    `json:"group_id"`
	Message   string                 `json:"message,omitempty"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

// Типы событий
const (
	EventTradingStarted     = "tradingStarted"
	EventPositionOpened     = "positionOpened"
	EventPositionClosed     = "positionClosed"
	EventCycleCompleted     = "cycleCompleted"
	EventPnlUpdated         = "pnlUpdated"
	EventGroupDeactivated   = "groupDeactivated"
	EventGroupReactivated   = "groupReactivated"
	EventCriticalGroupError = "criticalGroupError"
	EventGroupError         = "groupError"
	EventCloseError         = "closeError"
	EventTradingStopped     = "tradingStopped"
)

// Уровни важности
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)
