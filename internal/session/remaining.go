package session

import (
	"fmt"
	"math"
	"time"
)

const (
	unitHours    = "시간"
	unitMinutes  = "분"
	labelExpired = "만료됨"
)

// FormatTimeRemaining renders the time left until expiresAt (epoch ms),
// e.g. "23시간 45분", "12분" or "만료됨".
func FormatTimeRemaining(expiresAt int64, now time.Time) string {
	remaining := expiresAt - now.UnixMilli()
	if remaining <= 0 {
		return labelExpired
	}

	hours := remaining / time.Hour.Milliseconds()
	minutes := (remaining % time.Hour.Milliseconds()) / time.Minute.Milliseconds()

	if hours > 0 {
		return fmt.Sprintf("%d%s %d%s", hours, unitHours, minutes, unitMinutes)
	}
	return fmt.Sprintf("%d%s", minutes, unitMinutes)
}

// Remaining is a coarse countdown value for compact labels
type Remaining struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

// RemainingTime returns whole hours left, or minutes rounded up when under an hour.
// It returns nil when there is no expiry.
func RemainingTime(expiresAt *int64, now time.Time) *Remaining {
	if expiresAt == nil || *expiresAt == 0 {
		return nil
	}

	remaining := *expiresAt - now.UnixMilli()
	if remaining <= 0 {
		return &Remaining{Value: 0, Unit: unitHours}
	}

	hours := remaining / time.Hour.Milliseconds()
	if hours > 0 {
		return &Remaining{Value: int(hours), Unit: unitHours}
	}

	minutes := math.Ceil(float64(remaining%time.Hour.Milliseconds()) / float64(time.Minute.Milliseconds()))
	return &Remaining{Value: int(minutes), Unit: unitMinutes}
}
