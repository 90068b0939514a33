package models

import "time"

// BirthdayWindowDays is the length of the upcoming-birthdays window,
// counting today.
const BirthdayWindowDays = 7

// BirthdayWindow is the inclusive range [start, start+6 days] compared by
// month and day only. In a non-leap year whose window contains Feb 28,
// people born on Feb 29 are included too.
type BirthdayWindow struct {
	start time.Time
	end   time.Time
}

// NewBirthdayWindow starts a window at the calendar date of today.
func NewBirthdayWindow(today time.Time) BirthdayWindow {
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return BirthdayWindow{start: start, end: start.AddDate(0, 0, BirthdayWindowDays-1)}
}

func (w BirthdayWindow) Start() time.Time { return w.start }
func (w BirthdayWindow) End() time.Time   { return w.end }

// SameMonth reports whether the window does not cross a month boundary.
func (w BirthdayWindow) SameMonth() bool {
	return w.start.Month() == w.end.Month()
}

// LeapDayFallback reports whether Feb 29 birthdays are celebrated inside
// this window because its Feb 28 falls in a non-leap year.
func (w BirthdayWindow) LeapDayFallback() bool {
	for d := w.start; !d.After(w.end); d = d.AddDate(0, 0, 1) {
		if d.Month() == time.February && d.Day() == 28 && !isLeap(d.Year()) {
			return true
		}
	}
	return false
}

// Offset returns how many days after the window start the birthday falls,
// and false when it is outside the window.
func (w BirthdayWindow) Offset(birthday time.Time) (int, bool) {
	leapDay := birthday.Month() == time.February && birthday.Day() == 29
	for i, d := 0, w.start; !d.After(w.end); i, d = i+1, d.AddDate(0, 0, 1) {
		if d.Month() == birthday.Month() && d.Day() == birthday.Day() {
			return i, true
		}
		if leapDay && d.Month() == time.February && d.Day() == 28 && !isLeap(d.Year()) {
			return i, true
		}
	}
	return 0, false
}

// Contains reports whether birthday falls inside the window.
func (w BirthdayWindow) Contains(birthday time.Time) bool {
	_, ok := w.Offset(birthday)
	return ok
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
