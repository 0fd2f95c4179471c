package gameclient

import (
	"context"
	"math"
	"time"
)

// calculateBackoff doubles base for every retry already made, capped at max.
func calculateBackoff(base, max time.Duration, retry int) time.Duration {
	if retry <= 0 || base <= 0 {
		return 0
	}
	delay := float64(base) * math.Pow(2, float64(retry-1))
	if max > 0 && delay > float64(max) {
		return max
	}
	return time.Duration(delay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
