// Package scheduler provides the wall-clock window checks and per-day
// re-entry guards used by the dispatcher's time-triggered jobs.
package scheduler

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTimezone is used when no timezone is configured.
const DefaultTimezone = "America/New_York"

// windowSlack is the tolerance around a job's scheduled minute.
const windowSlack = 5 * time.Minute

// Clock abstracts time.Now for testing.
type Clock func() time.Time

// Scheduler evaluates wall-clock windows in a configured timezone and
// guards jobs against re-entry within the same logical day.
type Scheduler struct {
	loc   *time.Location
	clock Clock

	mu      sync.Mutex
	lastRun map[string]string // job name → day string
}

// New creates a scheduler for the named timezone.
func New(timezone string) (*Scheduler, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return &Scheduler{
		loc:     loc,
		clock:   time.Now,
		lastRun: make(map[string]string),
	}, nil
}

// NewWithClock creates a scheduler with an injected clock (tests).
func NewWithClock(timezone string, clock Clock) (*Scheduler, error) {
	s, err := New(timezone)
	if err != nil {
		return nil, err
	}
	s.clock = clock
	return s, nil
}

// Now returns the current time in the configured timezone.
func (s *Scheduler) Now() time.Time {
	return s.clock().In(s.loc)
}

// DayString returns the logical-day key (YYYY-MM-DD) for the current time.
func (s *Scheduler) DayString() string {
	return s.Now().Format("2006-01-02")
}

// StartOfDay returns midnight of the current logical day.
func (s *Scheduler) StartOfDay() time.Time {
	now := s.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

// InWindow reports whether the current time falls within ±5 minutes of
// hour:minute in the configured timezone.
func (s *Scheduler) InWindow(hour, minute int) bool {
	now := s.Now()
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, s.loc)
	diff := now.Sub(target)
	if diff < 0 {
		diff = -diff
	}
	return diff <= windowSlack
}

// ShouldRunDaily reports whether the named daily job is due: inside its
// window and not yet run this logical day. A true return marks the job as
// run — callers must actually run it.
func (s *Scheduler) ShouldRunDaily(job string, hour, minute int) bool {
	if !s.InWindow(hour, minute) {
		return false
	}

	day := s.DayString()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun[job] == day {
		return false
	}
	s.lastRun[job] = day
	return true
}

// ShouldRunEvery reports whether the named interval job is due: at least
// the interval has elapsed since its last run. A true return marks the job
// as run.
func (s *Scheduler) ShouldRunEvery(job string, interval time.Duration) bool {
	now := s.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	last := s.lastRun[job]
	if last != "" {
		t, err := time.Parse(time.RFC3339, last)
		if err == nil && now.Sub(t) < interval {
			return false
		}
	}
	s.lastRun[job] = now.Format(time.RFC3339)
	return true
}

// MarkRun records a run without a window check, for jobs triggered by
// external conditions (e.g. the daily cost alert).
func (s *Scheduler) MarkRun(job string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun[job] = s.DayString()
}

// RanToday reports whether the job already ran this logical day.
func (s *Scheduler) RanToday(job string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun[job] == s.DayString()
}
