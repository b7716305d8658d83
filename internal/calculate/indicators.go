package calculate

import (
	"math"

	"github.com/Alias1177/Strategist/models"
)

// ATR returns the average true range over the trailing period.
// Needs period+1 candles; shorter input degrades to whatever ranges exist.
func ATR(candles []models.Candle, period int) float64 {
	if len(candles) < 2 || period <= 0 {
		return 0
	}

	var trueRanges []float64

	for i := 1; i < len(candles); i++ {
		// True range is the greatest of:
		// high - low, |high - prev close|, |low - prev close|
		highLow := candles[i].High - candles[i].Low
		highPrevClose := math.Abs(candles[i].High - candles[i-1].Close)
		lowPrevClose := math.Abs(candles[i].Low - candles[i-1].Close)

		tr := math.Max(highLow, math.Max(highPrevClose, lowPrevClose))
		trueRanges = append(trueRanges, tr)
	}

	periodToUse := period
	if len(trueRanges) < period {
		periodToUse = len(trueRanges)
	}

	var sum float64
	for i := len(trueRanges) - periodToUse; i < len(trueRanges); i++ {
		sum += trueRanges[i]
	}

	return sum / float64(periodToUse)
}

// DirectionalIndex computes a smoothed directional index plus the +DI/-DI
// components using Wilder smoothing with factor 1/period. Needs 2*period
// candles; returns zeroes below that.
func DirectionalIndex(candles []models.Candle, period int) (adx, plusDI, minusDI float64) {
	if period <= 0 || len(candles) < period*2 {
		return 0, 0, 0
	}

	var plusDM, minusDM, trueRange []float64

	for i := 1; i < len(candles); i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low

		pDM := 0.0
		if upMove > downMove && upMove > 0 {
			pDM = upMove
		}
		plusDM = append(plusDM, pDM)

		mDM := 0.0
		if downMove > upMove && downMove > 0 {
			mDM = downMove
		}
		minusDM = append(minusDM, mDM)

		tr1 := candles[i].High - candles[i].Low
		tr2 := math.Abs(candles[i].High - candles[i-1].Close)
		tr3 := math.Abs(candles[i].Low - candles[i-1].Close)
		trueRange = append(trueRange, math.Max(tr1, math.Max(tr2, tr3)))
	}

	var smoothedPlusDM, smoothedMinusDM, smoothedTR float64
	for i := 0; i < period; i++ {
		smoothedPlusDM += plusDM[i]
		smoothedMinusDM += minusDM[i]
		smoothedTR += trueRange[i]
	}
	if smoothedTR == 0 {
		return 0, 0, 0
	}

	plusDI = (smoothedPlusDM / smoothedTR) * 100
	minusDI = (smoothedMinusDM / smoothedTR) * 100

	dx := 0.0
	if plusDI+minusDI > 0 {
		dx = math.Abs(plusDI-minusDI) / (plusDI + minusDI) * 100
	}
	adx = dx

	for i := period; i < len(trueRange); i++ {
		// Wilder smoothing: drop 1/period of the running sum, add the new value
		smoothedPlusDM = smoothedPlusDM - (smoothedPlusDM / float64(period)) + plusDM[i]
		smoothedMinusDM = smoothedMinusDM - (smoothedMinusDM / float64(period)) + minusDM[i]
		smoothedTR = smoothedTR - (smoothedTR / float64(period)) + trueRange[i]

		if smoothedTR == 0 {
			continue
		}
		newPlusDI := (smoothedPlusDM / smoothedTR) * 100
		newMinusDI := (smoothedMinusDM / smoothedTR) * 100

		newDX := 0.0
		if newPlusDI+newMinusDI > 0 {
			newDX = math.Abs(newPlusDI-newMinusDI) / (newPlusDI + newMinusDI) * 100
		}

		adx = ((float64(period-1) * adx) + newDX) / float64(period)

		plusDI = newPlusDI
		minusDI = newMinusDI
	}

	return adx, plusDI, minusDI
}

// EMA returns the exponential moving average of the closing prices.
func EMA(candles []models.Candle, period int) float64 {
	if len(candles) == 0 {
		return 0
	}
	prices := make([]float64, len(candles))
	for i, c := range candles {
		prices[i] = c.Close
	}
	return EMAFromPrices(prices, period)
}

// EMAFromPrices seeds with an SMA over the first period values and then
// applies the standard 2/(period+1) weighting.
func EMAFromPrices(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period || period <= 0 {
		return prices[len(prices)-1]
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	ema := sum / float64(period)

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
	}

	return ema
}

// Average calculates a simple average.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, value := range values {
		sum += value
	}

	return sum / float64(len(values))
}
