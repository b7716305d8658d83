package calculate

import (
	"math"

	"github.com/Alias1177/Strategist/models"
)

// LogReturns converts a candle series into log returns of closing prices.
// Candles with non-positive closes are skipped to keep the log defined.
func LogReturns(candles []models.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		cur := candles[i].Close
		if prev <= 0 || cur <= 0 {
			continue
		}
		returns = append(returns, math.Log(cur/prev))
	}
	return returns
}

// StdDev returns the population standard deviation of the values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := Average(values)
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}

	return math.Sqrt(sumSq / float64(len(values)))
}

// LinearRegression fits closes against a 0..n-1 index and returns the
// slope and the coefficient of determination R².
func LinearRegression(candles []models.Candle) (slope, rSquared float64) {
	n := len(candles)
	if n < 2 {
		return 0, 0
	}

	var sumX, sumY, sumXY, sumXX, sumYY float64
	for i, c := range candles {
		x := float64(i)
		y := c.Close
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
		sumYY += y * y
	}

	fn := float64(n)
	denomX := fn*sumXX - sumX*sumX
	if denomX == 0 {
		return 0, 0
	}
	slope = (fn*sumXY - sumX*sumY) / denomX

	denomY := fn*sumYY - sumY*sumY
	if denomY <= 0 {
		// Flat closes: zero variance means the fit explains nothing
		return slope, 0
	}

	num := fn*sumXY - sumX*sumY
	r := num / math.Sqrt(denomX*denomY)
	return slope, r * r
}

// TimeCorrelation returns the Pearson correlation between closing prices
// and a monotonic time index over the trailing window bars. Output is in
// [-1, 1]; 0 when the window is too short or prices are flat.
func TimeCorrelation(candles []models.Candle, window int) float64 {
	if window < 2 {
		return 0
	}
	if len(candles) < window {
		window = len(candles)
	}
	if window < 2 {
		return 0
	}

	recent := candles[len(candles)-window:]

	var sumX, sumY, sumXY, sumXX, sumYY float64
	for i, c := range recent {
		x := float64(i)
		y := c.Close
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
		sumYY += y * y
	}

	fn := float64(window)
	denom := math.Sqrt(fn*sumXX-sumX*sumX) * math.Sqrt(fn*sumYY-sumY*sumY)
	if denom == 0 {
		return 0
	}

	return (fn*sumXY - sumX*sumY) / denom
}

// PriceExcursion returns |last close - first close| / first close over the
// trailing window bars. 0 on degenerate input.
func PriceExcursion(candles []models.Candle, window int) float64 {
	if len(candles) == 0 {
		return 0
	}
	if len(candles) < window {
		window = len(candles)
	}
	recent := candles[len(candles)-window:]

	first := recent[0].Close
	last := recent[len(recent)-1].Close
	if first == 0 {
		return 0
	}

	return math.Abs(last-first) / first
}

// MeanRange returns the mean high-low span over the trailing window bars,
// used as a raw volatility penalty.
func MeanRange(candles []models.Candle, window int) float64 {
	if len(candles) == 0 {
		return 0
	}
	if len(candles) < window {
		window = len(candles)
	}
	recent := candles[len(candles)-window:]

	var sum float64
	for _, c := range recent {
		sum += c.Range()
	}
	return sum / float64(len(recent))
}
