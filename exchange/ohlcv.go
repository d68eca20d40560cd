package exchange

import (
	"fmt"
	"strconv"
	"time"
)

// ParseTimeframe converts a unified timeframe string ("1m", "4h", "1d",
// "1w", "1M") into a duration. Months are approximated as 30 days, the
// convention venues use for candle bucketing.
func ParseTimeframe(tf string) (time.Duration, error) {
	if len(tf) < 2 {
		return 0, fmt.Errorf("invalid timeframe %q", tf)
	}
	amount, err := strconv.Atoi(tf[:len(tf)-1])
	if err != nil || amount <= 0 {
		return 0, fmt.Errorf("invalid timeframe %q", tf)
	}
	var unit time.Duration
	switch tf[len(tf)-1] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	case 'M':
		unit = 30 * 24 * time.Hour
	case 'y':
		unit = 365 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("invalid timeframe %q", tf)
	}
	return time.Duration(amount) * unit, nil
}

// CandleWindow is the [Start, End] request range in epoch milliseconds.
type CandleWindow struct {
	Start int64
	End   int64
}

// WindowFor computes the candle request range from optional since/limit:
// only limit supplied -> start = now - (limit-1)*interval, end = now;
// only since supplied -> end = now;
// both supplied       -> end = since + limit*interval.
// since <= 0 means unset; limit <= 0 means unset.
func WindowFor(now time.Time, interval time.Duration, since int64, limit int) CandleWindow {
	nowMs := now.UnixMilli()
	intervalMs := interval.Milliseconds()
	if since <= 0 {
		if limit <= 0 {
			limit = 100
		}
		return CandleWindow{Start: nowMs - int64(limit-1)*intervalMs, End: nowMs}
	}
	if limit <= 0 {
		return CandleWindow{Start: since, End: nowMs}
	}
	return CandleWindow{Start: since, End: since + int64(limit)*intervalMs}
}

// FilterSinceLimit applies client-side since/limit trimming for venues
// without native filtering. Items must be in ascending time order.
func FilterSinceLimit[T any](items []T, timestamp func(T) int64, since int64, limit int) []T {
	out := items
	if since > 0 {
		start := 0
		for start < len(out) && timestamp(out[start]) < since {
			start++
		}
		out = out[start:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
