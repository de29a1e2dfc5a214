package bot

import "hedgefarm/internal/models"

// ValidTransitions определяет допустимые переходы между состояниями группы
var ValidTransitions = map[string][]string{
	models.GroupActive:      {models.GroupSuspended, models.GroupQuarantined, models.GroupTerminated},
	models.GroupSuspended:   {models.GroupTerminated}, // автоматического выхода из Suspended нет
	models.GroupQuarantined: {models.GroupActive, models.GroupTerminated},
	models.GroupTerminated:  {}, // терминальное состояние
}

// CanTransition проверяет допустимость перехода
func CanTransition(from, to string) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// StateInfo возвращает описание состояния для UI
func StateInfo(s string) string {
	switch s {
	case models.GroupActive:
		return "Группа торгует"
	case models.GroupSuspended:
		return "Все пары упёрлись в недостаток маржи"
	case models.GroupQuarantined:
		return "Карантин после критической ошибки"
	case models.GroupTerminated:
		return "Группа остановлена"
	default:
		return "Неизвестное состояние"
	}
}

// IsRunnable возвращает true, если группа может выполнять торговый цикл
func IsRunnable(s string) bool {
	return s == models.GroupActive
}

// IsTerminal возвращает true для состояний без выхода
func IsTerminal(s string) bool {
	return s == models.GroupTerminated
}
