package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func mustScheduler(t *testing.T, clock Clock) *Scheduler {
	t.Helper()
	s, err := NewWithClock("America/New_York", clock)
	require.NoError(t, err)
	return s
}

func nyTime(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return time.Date(2025, 6, 10, hour, minute, 0, 0, loc)
}

func TestNewRejectsBadTimezone(t *testing.T) {
	_, err := New("Not/AZone")
	require.Error(t, err)
}

func TestNewDefaultsTimezone(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestInWindow(t *testing.T) {
	tests := []struct {
		name   string
		now    time.Time
		hour   int
		minute int
		want   bool
	}{
		{"exactly on time", nyTime(t, 9, 0), 9, 0, true},
		{"four minutes late", nyTime(t, 9, 4), 9, 0, true},
		{"five minutes early", nyTime(t, 8, 55), 9, 0, true},
		{"six minutes late", nyTime(t, 9, 6), 9, 0, false},
		{"wrong hour", nyTime(t, 10, 0), 9, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustScheduler(t, fixedClock(tt.now))
			assert.Equal(t, tt.want, s.InWindow(tt.hour, tt.minute))
		})
	}
}

func TestShouldRunDailyOncePerDay(t *testing.T) {
	now := nyTime(t, 9, 2)
	s := mustScheduler(t, fixedClock(now))

	assert.True(t, s.ShouldRunDaily("standup", 9, 0), "first check inside the window fires")
	assert.False(t, s.ShouldRunDaily("standup", 9, 0), "second check the same day must not")

	// Next day, same window: fires again.
	next := now.Add(24 * time.Hour)
	s2, err := NewWithClock("America/New_York", fixedClock(next))
	require.NoError(t, err)
	s2.lastRun["standup"] = now.Format("2006-01-02")
	assert.True(t, s2.ShouldRunDaily("standup", 9, 0))
}

func TestShouldRunDailyOutsideWindow(t *testing.T) {
	s := mustScheduler(t, fixedClock(nyTime(t, 14, 0)))
	assert.False(t, s.ShouldRunDaily("standup", 9, 0))
}

func TestShouldRunEvery(t *testing.T) {
	now := nyTime(t, 12, 0)
	current := now
	s := mustScheduler(t, func() time.Time { return current })

	assert.True(t, s.ShouldRunEvery("health", 10*time.Minute))
	assert.False(t, s.ShouldRunEvery("health", 10*time.Minute))

	current = now.Add(11 * time.Minute)
	assert.True(t, s.ShouldRunEvery("health", 10*time.Minute))
}

func TestMarkRunAndRanToday(t *testing.T) {
	s := mustScheduler(t, fixedClock(nyTime(t, 12, 0)))

	assert.False(t, s.RanToday("cost_alert"))
	s.MarkRun("cost_alert")
	assert.True(t, s.RanToday("cost_alert"))
}

func TestDayStringUsesConfiguredTimezone(t *testing.T) {
	// 03:00 UTC on June 11 is still June 10 in New York.
	utc := time.Date(2025, 6, 11, 3, 0, 0, 0, time.UTC)
	s := mustScheduler(t, fixedClock(utc))
	assert.Equal(t, "2025-06-10", s.DayString())
}

func TestStartOfDay(t *testing.T) {
	s := mustScheduler(t, fixedClock(nyTime(t, 15, 30)))
	start := s.StartOfDay()
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 0, start.Minute())
	assert.Equal(t, 10, start.Day())
}
