package models

import "time"

// Group представляет группу аккаунтов, торгующую одним циклом.
//
// Группа создаётся при старте торговли и живёт до остановки процесса.
// Разбиение на хедж-пары фиксируется один раз при создании и не меняется.
type Group struct {
	ID         int          `json:"id"`
	Label      string       `json:"label"`
	Accounts   []*Account   `json:"-"`     // упорядоченный список, чётной длины
	Pairs      []HedgePair  `json:"pairs"` // неизменяемое разбиение 1-2, 3-4, ...
	State      string       `json:"state"`
	Reason     string       `json:"reason,omitempty"`          // причина Suspended
	QuarantinedUntil time.Time `json:"quarantined_until,omitempty"` // конец карантина
	Cycle      int          `json:"cycle"`      // счётчик завершённых циклов
	LastTrade  time.Time    `json:"last_trade"` // время последней сделки
}

// HedgePair - фиксированная пара аккаунтов: один держит лонг, второй шорт.
// Состав пары неизменен в течение жизни группы.
type HedgePair struct {
	PairID  int      `json:"pair_id"`
	Long    *Account `json:"-"` // аккаунт длинной ноги
	Short   *Account `json:"-"` // аккаунт короткой ноги
}

// Состояния группы (state machine)
const (
	GroupActive      = "ACTIVE"      // торговый цикл выполняется
	GroupSuspended   = "SUSPENDED"   // все пары упёрлись в недостаток маржи
	GroupQuarantined = "QUARANTINED" // критическая ошибка, таймаут до повтора
	GroupTerminated  = "TERMINATED"  // остановлена (stop или watchdog)
)

// Причины деактивации группы
const (
	ReasonAllPairsInsufficientMargin = "all_pairs_insufficient_margin"
)

// GroupSnapshot - read-only копия состояния группы для оркестратора и API.
//
// Runner владеет своим состоянием единолично; наружу отдаются только копии,
// чтобы не было конкурентного доступа к общим картам.
type GroupSnapshot struct {
	ID               int       `json:"id"`
	Label            string    `json:"label"`
	State            string    `json:"state"`
	Reason           string    `json:"reason,omitempty"`
	QuarantinedUntil time.Time `json:"quarantined_until,omitempty"`
	Cycle            int       `json:"cycle"`
	PairCount        int       `json:"pair_count"`
	OpenPositions    int       `json:"open_positions"`
	TotalPnl         float64   `json:"total_pnl"`
	LastTrade        time.Time `json:"last_trade"`
}
