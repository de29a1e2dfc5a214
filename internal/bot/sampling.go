package bot

import (
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"hedgefarm/internal/config"
)

// Sampler - источник случайности торгового цикла.
// Каждый runner получает свой экземпляр, чтобы группы не делили состояние.
type Sampler struct {
	rnd *rand.Rand
	mu  sync.Mutex
}

// NewSampler создаёт sampler с заданным seed (0 = от текущего времени)
func NewSampler(seed int64) *Sampler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Sampler{rnd: rand.New(rand.NewSource(seed))}
}

// PositionSize возвращает размер позиции: равномерно из [Min, Max],
// округлённый до 2 знаков. Один сэмпл на группу на цикл.
func (s *Sampler) PositionSize(r config.Range) float64 {
	s.mu.Lock()
	v := r.Min + s.rnd.Float64()*(r.Max-r.Min)
	s.mu.Unlock()
	return roundTo(v, 2)
}

// HoldMinutes возвращает целое число минут удержания из [Min, Max]
func (s *Sampler) HoldMinutes(r config.IntRange) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return r.Min + s.rnd.Intn(r.Max-r.Min+1)
}

// JitterMs возвращает целую задержку между ногами в миллисекундах.
// Джиттер разносит по времени коррелированные ордера двух аккаунтов.
func (s *Sampler) JitterMs(r config.IntRange) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return r.Min + s.rnd.Intn(r.Max-r.Min+1)
}

// Instrument выбирает инструмент равномерно из поддерживаемого набора
func (s *Sampler) Instrument(instruments []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return instruments[s.rnd.Intn(len(instruments))]
}

// QuantityPrecision возвращает точность объёма по классу инструмента
func QuantityPrecision(symbol string) int {
	switch {
	case strings.HasPrefix(symbol, "BTC"):
		return 3
	case strings.HasPrefix(symbol, "ETH"):
		return 2
	case strings.HasPrefix(symbol, "BNB"):
		return 1
	default:
		return 3
	}
}

// CalculateQuantity вычисляет объём ордера в монетах:
// quantity = positionSize * leverage / price, округлённый до точности инструмента.
func CalculateQuantity(positionSize float64, leverage int, price float64, symbol string) float64 {
	raw := positionSize * float64(leverage) / price
	return roundTo(raw, QuantityPrecision(symbol))
}

// roundTo округляет к ближайшему значению с указанным числом знаков
func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
