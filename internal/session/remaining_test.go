package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTimeRemaining(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	at := func(d time.Duration) int64 { return now.Add(d).UnixMilli() }

	assert.Equal(t, "만료됨", FormatTimeRemaining(at(0), now))
	assert.Equal(t, "만료됨", FormatTimeRemaining(at(-time.Minute), now))
	assert.Equal(t, "0분", FormatTimeRemaining(at(30*time.Second), now))
	assert.Equal(t, "45분", FormatTimeRemaining(at(45*time.Minute+10*time.Second), now))
	assert.Equal(t, "23시간 45분", FormatTimeRemaining(at(23*time.Hour+45*time.Minute), now))
	assert.Equal(t, "24시간 0분", FormatTimeRemaining(at(24*time.Hour), now))
}

func TestRemainingTime(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	at := func(d time.Duration) *int64 {
		v := now.Add(d).UnixMilli()
		return &v
	}

	assert.Nil(t, RemainingTime(nil, now))
	assert.Equal(t, &Remaining{Value: 0, Unit: "시간"}, RemainingTime(at(-time.Second), now))
	assert.Equal(t, &Remaining{Value: 1, Unit: "분"}, RemainingTime(at(30*time.Second), now))
	assert.Equal(t, &Remaining{Value: 46, Unit: "분"}, RemainingTime(at(45*time.Minute+10*time.Second), now))
	assert.Equal(t, &Remaining{Value: 23, Unit: "시간"}, RemainingTime(at(23*time.Hour+59*time.Minute), now))
}
