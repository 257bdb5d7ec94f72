package models

import (
	"testing"
	"time"
)

func TestNextRetryDelayFollowsSchedule(t *testing.T) {
	cases := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, 1 * time.Minute},
		{1, 5 * time.Minute},
		{2, 10 * time.Minute},
		{3, 30 * time.Minute},
		{4, 60 * time.Minute},
	}
	for _, c := range cases {
		if got := NextRetryDelay(c.retryCount); got != c.want {
			t.Errorf("NextRetryDelay(%d) = %v, want %v", c.retryCount, got, c.want)
		}
	}
}

func TestNextRetryDelayRepeatsFinalStepPastSchedule(t *testing.T) {
	for _, retryCount := range []int{5, 6, 100} {
		if got := NextRetryDelay(retryCount); got != time.Hour {
			t.Errorf("NextRetryDelay(%d) = %v, want 1h", retryCount, got)
		}
	}
}
