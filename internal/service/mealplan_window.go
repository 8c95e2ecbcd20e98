package service

import (
	"time"

	"cantine/internal/model"
)

const (
	// lockLeadDays is how long before its start a window stops accepting edits.
	lockLeadDays   = 5
	windowScanMons = 4
	secondHalfDay  = 15
)

// Window is a half-month planning period. Dates are UTC midnight.
type Window struct {
	Start  time.Time
	End    time.Time
	Locked bool
}

// LockDate is the first day on which the window no longer accepts edits.
func (w Window) LockDate() time.Time { return LockDate(w.Start) }

// Days lists every day of the window.
func (w Window) Days() []time.Time { return DaysIn(w.Start, w.End) }

// HalfMonthWindows returns the [1,14] and [15,last] windows of a month.
func HalfMonthWindows(year int, month time.Month) [2]Window {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	mid := time.Date(year, month, secondHalfDay, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return [2]Window{
		{Start: first, End: mid.AddDate(0, 0, -1)},
		{Start: mid, End: last},
	}
}

// LockDate returns start minus the lock lead time.
func LockDate(start time.Time) time.Time {
	return start.AddDate(0, 0, -lockLeadDays)
}

// ComputeWindow returns the window open for editing at now: the window
// containing now (locked once its lock date passed), else the first window
// whose lock date is still ahead.
func ComputeWindow(now time.Time) Window {
	today := model.DateOnly(now)
	base := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < windowScanMons; i++ {
		m := base.AddDate(0, i, 0)
		for _, w := range HalfMonthWindows(m.Year(), m.Month()) {
			lock := LockDate(w.Start)
			if !today.Before(w.Start) && !today.After(w.End) {
				w.Locked = !today.Before(lock)
				return w
			}
			if today.Before(lock) {
				return w
			}
		}
	}

	next := base.AddDate(0, 1, 0)
	return HalfMonthWindows(next.Year(), next.Month())[0]
}

// IsCanonicalWindow reports whether [start, end] is exactly one of the two
// half-month windows of start's month.
func IsCanonicalWindow(start, end time.Time) bool {
	for _, w := range HalfMonthWindows(start.Year(), start.Month()) {
		if w.Start.Equal(start) && w.End.Equal(end) {
			return true
		}
	}
	return false
}

// DaysIn lists the days from start to end inclusive.
func DaysIn(start, end time.Time) []time.Time {
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
