package bot

import "strings"

// ErrorClass - классификация биржевой ошибки
type ErrorClass int

const (
	// ClassOther - все прочие ошибки, подлежат retry внутри протокола пары
	ClassOther ErrorClass = iota

	// ClassInsufficientMargin - нехватка маржи, ожидаемая и обрабатывается
	// без retry на уровне пары
	ClassInsufficientMargin
)

// Фразы и коды нехватки маржи в тексте ошибки.
// Binance futures возвращает code -2019 "Margin is insufficient."
var marginPhrases = []string{
	"margin is insufficient",
	"insufficient margin",
	"-2019",
}

// Classify определяет класс ошибки по её тексту (без учёта регистра).
// Чистая функция: только текст, никаких сетевых запросов.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassOther
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range marginPhrases {
		if strings.Contains(msg, phrase) {
			return ClassInsufficientMargin
		}
	}

	return ClassOther
}
