package models

import "time"

// TimeframeDuration converts a timeframe label into its bar duration.
// Unknown labels fall back to one hour.
func TimeframeDuration(timeframe string) time.Duration {
	switch timeframe {
	case "1min":
		return time.Minute
	case "5min":
		return 5 * time.Minute
	case "15min":
		return 15 * time.Minute
	case "30min":
		return 30 * time.Minute
	case "45min":
		return 45 * time.Minute
	case "1h":
		return time.Hour
	case "2h":
		return 2 * time.Hour
	case "4h":
		return 4 * time.Hour
	case "8h":
		return 8 * time.Hour
	case "1day":
		return 24 * time.Hour
	case "1week":
		return 7 * 24 * time.Hour
	case "1month":
		return 30 * 24 * time.Hour
	}
	return time.Hour
}

// CandlesForDays returns how many candles cover the given number of days
// on the given timeframe, with a small buffer for provider gaps.
func CandlesForDays(timeframe string, days int) int {
	candlesPerDay := 0

	switch timeframe {
	case "1min":
		candlesPerDay = 24 * 60
	case "5min":
		candlesPerDay = 24 * 12
	case "15min":
		candlesPerDay = 24 * 4
	case "30min":
		candlesPerDay = 24 * 2
	case "45min":
		candlesPerDay = 24 * 60 / 45
	case "1h":
		candlesPerDay = 24
	case "2h":
		candlesPerDay = 12
	case "4h":
		candlesPerDay = 6
	case "8h":
		candlesPerDay = 3
	case "1day":
		candlesPerDay = 1
	case "1week":
		candlesPerDay = 1
		days = days / 7
		if days < 1 {
			days = 1
		}
	case "1month":
		candlesPerDay = 1
		days = days / 30
		if days < 1 {
			days = 1
		}
	}

	return int(float64(candlesPerDay) * float64(days) * 1.1)
}
