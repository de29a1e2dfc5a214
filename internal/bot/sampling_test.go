package bot

import (
	"math"
	"testing"

	"hedgefarm/internal/config"
)

func TestSamplerPositionSize(t *testing.T) {
	s := NewSampler(1)
	r := config.Range{Min: 400, Max: 600}

	// Размер позиции: равномерно из диапазона, не больше 2 знаков
	for i := 0; i < 1000; i++ {
		v := s.PositionSize(r)
		if v < r.Min || v > r.Max {
			t.Fatalf("sample %v outside [%v, %v]", v, r.Min, r.Max)
		}
		if math.Abs(v*100-math.Round(v*100)) > 1e-9 {
			t.Fatalf("sample %v has more than 2 decimal places", v)
		}
	}
}

func TestSamplerHoldMinutes(t *testing.T) {
	s := NewSampler(2)
	r := config.IntRange{Min: 30, Max: 90}

	seenMin, seenMax := false, false
	for i := 0; i < 5000; i++ {
		v := s.HoldMinutes(r)
		if v < r.Min || v > r.Max {
			t.Fatalf("hold minutes %d outside [%d, %d]", v, r.Min, r.Max)
		}
		if v == r.Min {
			seenMin = true
		}
		if v == r.Max {
			seenMax = true
		}
	}
	// Границы диапазона включительны
	if !seenMin || !seenMax {
		t.Errorf("range bounds not reached: min=%v max=%v", seenMin, seenMax)
	}
}

func TestSamplerJitterMs(t *testing.T) {
	s := NewSampler(3)
	r := config.IntRange{Min: 500, Max: 3000}

	for i := 0; i < 1000; i++ {
		v := s.JitterMs(r)
		if v < r.Min || v > r.Max {
			t.Fatalf("jitter %d outside [%d, %d]", v, r.Min, r.Max)
		}
	}
}

func TestSamplerInstrument(t *testing.T) {
	s := NewSampler(4)
	instruments := []string{"BTCUSDT", "ETHUSDT", "BNBUSDT"}

	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		seen[s.Instrument(instruments)] = true
	}
	for _, sym := range instruments {
		if !seen[sym] {
			t.Errorf("instrument %s never sampled", sym)
		}
	}
}

func TestQuantityPrecision(t *testing.T) {
	tests := []struct {
		symbol string
		want   int
	}{
		{"BTCUSDT", 3},
		{"ETHUSDT", 2},
		{"BNBUSDT", 1},
		{"SOLUSDT", 3}, // неизвестный класс падает в default
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			if got := QuantityPrecision(tt.symbol); got != tt.want {
				t.Errorf("QuantityPrecision(%s) = %d, want %d", tt.symbol, got, tt.want)
			}
		})
	}
}

func TestCalculateQuantity(t *testing.T) {
	tests := []struct {
		name         string
		positionSize float64
		leverage     int
		price        float64
		symbol       string
		want         float64
	}{
		// 400 * 10 / 30000 = 0.13333... -> 0.133
		{"btc rounding", 400, 10, 30000, "BTCUSDT", 0.133},
		{"eth exact", 500, 10, 2000, "ETHUSDT", 2.5},
		{"bnb one decimal", 450, 10, 300, "BNBUSDT", 15.0},
		{"btc small size", 600, 10, 60000, "BTCUSDT", 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateQuantity(tt.positionSize, tt.leverage, tt.price, tt.symbol)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CalculateQuantity() = %v, want %v", got, tt.want)
			}
		})
	}
}
