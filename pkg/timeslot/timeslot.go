// Package timeslot provides clock-time and weekday recurrence primitives for
// room booking: interval overlap tests, HH:MM parsing, and weekly date
// expansion. All functions are pure.
package timeslot

import (
	"fmt"
	"time"
)

// Clock is a time of day expressed as minutes since midnight.
type Clock int

const minutesPerDay = 24 * 60

// ParseClock parses a strict 24-hour "HH:MM" value.
func ParseClock(raw string) (Clock, error) {
	if len(raw) != 5 || raw[2] != ':' {
		return 0, fmt.Errorf("invalid clock time %q: expected HH:MM", raw)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, fmt.Errorf("invalid clock time %q: expected HH:MM", raw)
		}
	}
	h := int(raw[0]-'0')*10 + int(raw[1]-'0')
	m := int(raw[3]-'0')*10 + int(raw[4]-'0')
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("invalid clock time %q: out of range", raw)
	}
	return Clock(h*60 + m), nil
}

// MustClock parses a clock value and panics on failure. Intended for tests
// and compile-time constants.
func MustClock(raw string) Clock {
	c, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// String renders the clock back to HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Valid reports whether the clock falls within a single day.
func (c Clock) Valid() bool {
	return c >= 0 && c < minutesPerDay
}

// Aligned reports whether the clock falls on a multiple of the given
// granularity in minutes. A non-positive granularity disables the check;
// scheduled sessions use that mode while ad-hoc loans are held to the
// configured increment.
func (c Clock) Aligned(granularityMin int) bool {
	if granularityMin <= 0 {
		return true
	}
	return int(c)%granularityMin == 0
}

// ValidInterval reports whether [start, end) is a well-formed same-day
// interval: start strictly before end, both within a single day.
func ValidInterval(start, end Clock) bool {
	return start.Valid() && end.Valid() && start < end
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not conflict: a session
// ending at 10:00 is compatible with one starting at 10:00.
func Overlaps(aStart, aEnd, bStart, bEnd Clock) bool {
	return aStart < bEnd && bStart < aEnd
}

// WeekdayDatesInRange returns exactly count dates falling on weekday,
// beginning at or after start, strictly increasing and spaced seven days
// apart. Dates are normalised to midnight UTC.
func WeekdayDatesInRange(start time.Time, weekday time.Weekday, count int) []time.Time {
	if count <= 0 {
		return nil
	}
	first := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	first = first.AddDate(0, 0, offset)

	dates := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		dates = append(dates, first.AddDate(0, 0, 7*i))
	}
	return dates
}

// ParseDate parses a calendar date in ISO "2006-01-02" form, normalised to
// midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return d.UTC(), nil
}

// FormatDate renders a date in ISO "2006-01-02" form.
func FormatDate(d time.Time) string {
	return d.Format("2006-01-02")
}

// SameDate reports whether two timestamps fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
