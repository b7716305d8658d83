package calculate

import (
	"math"
	"testing"
	"time"

	"github.com/Alias1177/Strategist/models"
)

func generateTestCandles(n int, generator func(int) models.Candle) []models.Candle {
	candles := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = generator(i)
	}
	return candles
}

func steadyRise(i int) models.Candle {
	return models.Candle{
		Close:     100 + float64(i),
		High:      101 + float64(i),
		Low:       99 + float64(i),
		Volume:    1000,
		Timestamp: time.Now().Add(time.Duration(i) * time.Minute),
	}
}

func steadyFall(i int) models.Candle {
	return models.Candle{
		Close:     200 - float64(i),
		High:      201 - float64(i),
		Low:       199 - float64(i),
		Volume:    1000,
		Timestamp: time.Now().Add(time.Duration(i) * time.Minute),
	}
}

func TestATR(t *testing.T) {
	tests := []struct {
		name    string
		candles []models.Candle
		period  int
		want    float64
	}{
		{
			name:    "empty series",
			candles: nil,
			period:  14,
			want:    0,
		},
		{
			name:    "single candle",
			candles: generateTestCandles(1, steadyRise),
			period:  14,
			want:    0,
		},
		{
			name: "constant two-point range",
			candles: generateTestCandles(20, func(i int) models.Candle {
				return models.Candle{High: 102, Low: 100, Close: 101}
			}),
			period: 14,
			want:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ATR(tt.candles, tt.period)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ATR() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestATRGapSeries(t *testing.T) {
	// Each candle gaps 3 above the previous close, so true range is
	// driven by |high - prev close| = 4, not high-low = 2.
	candles := generateTestCandles(20, func(i int) models.Candle {
		base := 100 + float64(i)*3
		return models.Candle{High: base + 2, Low: base, Close: base + 1}
	})

	got := ATR(candles, 14)
	if math.Abs(got-4) > 1e-9 {
		t.Errorf("ATR() = %v, want 4 (gap-dominated true range)", got)
	}
}

func TestDirectionalIndex(t *testing.T) {
	t.Run("insufficient data returns zeroes", func(t *testing.T) {
		adx, plus, minus := DirectionalIndex(generateTestCandles(10, steadyRise), 20)
		if adx != 0 || plus != 0 || minus != 0 {
			t.Errorf("DirectionalIndex() = %v,%v,%v, want zeroes", adx, plus, minus)
		}
	})

	t.Run("steady rise is plus-dominant", func(t *testing.T) {
		adx, plus, minus := DirectionalIndex(generateTestCandles(60, steadyRise), 20)
		if plus <= minus {
			t.Errorf("+DI %v should dominate -DI %v on a rising series", plus, minus)
		}
		if adx < 30 {
			t.Errorf("ADX = %v, want strong trend reading above 30", adx)
		}
	})

	t.Run("steady fall is minus-dominant", func(t *testing.T) {
		adx, plus, minus := DirectionalIndex(generateTestCandles(60, steadyFall), 20)
		if minus <= plus {
			t.Errorf("-DI %v should dominate +DI %v on a falling series", minus, plus)
		}
		if adx < 30 {
			t.Errorf("ADX = %v, want strong trend reading above 30", adx)
		}
	})

	t.Run("flat series has weak index", func(t *testing.T) {
		candles := generateTestCandles(60, func(i int) models.Candle {
			return models.Candle{High: 101, Low: 99, Close: 100}
		})
		adx, _, _ := DirectionalIndex(candles, 20)
		if adx > 10 {
			t.Errorf("ADX = %v on flat series, want near zero", adx)
		}
	})
}

func TestEMAFromPrices(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		period int
		want   float64
	}{
		{"empty input", nil, 5, 0},
		{"shorter than period returns last", []float64{1, 2, 3}, 5, 3},
		{"constant prices", []float64{5, 5, 5, 5, 5, 5}, 3, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EMAFromPrices(tt.prices, tt.period)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("EMAFromPrices() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLinearRegression(t *testing.T) {
	t.Run("perfect line", func(t *testing.T) {
		candles := generateTestCandles(30, func(i int) models.Candle {
			return models.Candle{Close: 10 + 2*float64(i)}
		})
		slope, r2 := LinearRegression(candles)
		if math.Abs(slope-2) > 1e-9 {
			t.Errorf("slope = %v, want 2", slope)
		}
		if math.Abs(r2-1) > 1e-9 {
			t.Errorf("r2 = %v, want 1", r2)
		}
	})

	t.Run("flat closes", func(t *testing.T) {
		candles := generateTestCandles(30, func(i int) models.Candle {
			return models.Candle{Close: 42}
		})
		slope, r2 := LinearRegression(candles)
		if slope != 0 || r2 != 0 {
			t.Errorf("flat series slope/r2 = %v/%v, want 0/0", slope, r2)
		}
	})

	t.Run("too short", func(t *testing.T) {
		slope, r2 := LinearRegression(generateTestCandles(1, steadyRise))
		if slope != 0 || r2 != 0 {
			t.Errorf("short series slope/r2 = %v/%v, want 0/0", slope, r2)
		}
	})
}

func TestTimeCorrelation(t *testing.T) {
	rising := generateTestCandles(50, steadyRise)
	if got := TimeCorrelation(rising, 30); math.Abs(got-1) > 1e-9 {
		t.Errorf("TimeCorrelation(rising) = %v, want 1", got)
	}

	falling := generateTestCandles(50, steadyFall)
	if got := TimeCorrelation(falling, 30); math.Abs(got+1) > 1e-9 {
		t.Errorf("TimeCorrelation(falling) = %v, want -1", got)
	}

	flat := generateTestCandles(50, func(i int) models.Candle {
		return models.Candle{Close: 100}
	})
	if got := TimeCorrelation(flat, 30); got != 0 {
		t.Errorf("TimeCorrelation(flat) = %v, want 0", got)
	}
}

func TestPriceExcursion(t *testing.T) {
	candles := generateTestCandles(20, func(i int) models.Candle {
		return models.Candle{Close: 100 + float64(i)}
	})
	// Window 20: first close 100, last 119
	got := PriceExcursion(candles, 20)
	if math.Abs(got-0.19) > 1e-9 {
		t.Errorf("PriceExcursion() = %v, want 0.19", got)
	}

	if got := PriceExcursion(nil, 20); got != 0 {
		t.Errorf("PriceExcursion(nil) = %v, want 0", got)
	}
}

func TestStdDev(t *testing.T) {
	if got := StdDev([]float64{2, 2, 2, 2}); got != 0 {
		t.Errorf("StdDev(constant) = %v, want 0", got)
	}
	// Population stddev of {1,3} is 1
	if got := StdDev([]float64{1, 3}); math.Abs(got-1) > 1e-9 {
		t.Errorf("StdDev({1,3}) = %v, want 1", got)
	}
	if got := StdDev([]float64{5}); got != 0 {
		t.Errorf("StdDev(single) = %v, want 0", got)
	}
}

func TestLogReturns(t *testing.T) {
	candles := []models.Candle{
		{Close: 100}, {Close: 110}, {Close: 99},
	}
	returns := LogReturns(candles)
	if len(returns) != 2 {
		t.Fatalf("LogReturns len = %d, want 2", len(returns))
	}
	if math.Abs(returns[0]-math.Log(1.1)) > 1e-9 {
		t.Errorf("returns[0] = %v, want ln(1.1)", returns[0])
	}
	if math.Abs(returns[1]-math.Log(0.9)) > 1e-9 {
		t.Errorf("returns[1] = %v, want ln(0.9)", returns[1])
	}
}

func TestSwingPoints(t *testing.T) {
	// Flat series with one spike high at index 10 and one dip low at 20.
	candles := generateTestCandles(30, func(i int) models.Candle {
		c := models.Candle{High: 101, Low: 99, Close: 100}
		if i == 10 {
			c.High = 105
		}
		if i == 20 {
			c.Low = 95
		}
		return c
	})

	highs := SwingHighs(candles, 30)
	if len(highs) != 1 || highs[0] != 105 {
		t.Errorf("SwingHighs = %v, want [105]", highs)
	}

	lows := SwingLows(candles, 30)
	if len(lows) != 1 || lows[0] != 95 {
		t.Errorf("SwingLows = %v, want [95]", lows)
	}

	if got := SwingHighs(candles[:4], 10); got != nil {
		t.Errorf("SwingHighs(short) = %v, want nil", got)
	}
}
