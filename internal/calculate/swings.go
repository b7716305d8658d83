package calculate

import (
	"github.com/Alias1177/Strategist/models"
)

// SwingHighs returns the prices of confirmed local maxima over the
// trailing window bars. A swing high needs its high to exceed the highs
// of the two bars on each side, so the last two bars can never confirm.
func SwingHighs(candles []models.Candle, window int) []float64 {
	return swingPoints(candles, window, true)
}

// SwingLows returns the prices of confirmed local minima over the
// trailing window bars, mirrored from SwingHighs.
func SwingLows(candles []models.Candle, window int) []float64 {
	return swingPoints(candles, window, false)
}

// Envelope returns the lowest low and highest high over the trailing
// window bars. Zero values when the series is empty.
func Envelope(candles []models.Candle, window int) (low, high float64) {
	if len(candles) == 0 {
		return 0, 0
	}
	if window <= 0 || window > len(candles) {
		window = len(candles)
	}
	recent := candles[len(candles)-window:]

	low, high = recent[0].Low, recent[0].High
	for _, c := range recent[1:] {
		if c.Low < low {
			low = c.Low
		}
		if c.High > high {
			high = c.High
		}
	}
	return low, high
}

func swingPoints(candles []models.Candle, window int, highs bool) []float64 {
	if len(candles) < window {
		window = len(candles)
	}
	recent := candles[len(candles)-window:]
	if len(recent) < 5 {
		return nil
	}

	var points []float64
	for i := 2; i < len(recent)-2; i++ {
		if highs {
			if recent[i].High > recent[i-1].High &&
				recent[i].High > recent[i-2].High &&
				recent[i].High > recent[i+1].High &&
				recent[i].High > recent[i+2].High {
				points = append(points, recent[i].High)
			}
		} else {
			if recent[i].Low < recent[i-1].Low &&
				recent[i].Low < recent[i-2].Low &&
				recent[i].Low < recent[i+1].Low &&
				recent[i].Low < recent[i+2].Low {
				points = append(points, recent[i].Low)
			}
		}
	}
	return points
}
