package timeslot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("08:30")
	require.NoError(t, err)
	assert.Equal(t, Clock(8*60+30), c)
	assert.Equal(t, "08:30", c.String())

	for _, raw := range []string{"8:30", "08:60", "24:00", "0830", "", "ab:cd", "08:305"} {
		_, err := ParseClock(raw)
		assert.Error(t, err, "expected %q to be rejected", raw)
	}
}

func TestOverlapsSymmetry(t *testing.T) {
	cases := []struct {
		aStart, aEnd, bStart, bEnd string
		want                       bool
	}{
		{"08:00", "10:00", "09:00", "11:00", true},
		{"08:00", "10:00", "10:00", "12:00", false},
		{"08:00", "10:00", "08:00", "10:00", true},
		{"08:00", "09:00", "09:30", "10:00", false},
		{"08:00", "12:00", "09:00", "10:00", true},
	}
	for _, tc := range cases {
		a1, a2 := MustClock(tc.aStart), MustClock(tc.aEnd)
		b1, b2 := MustClock(tc.bStart), MustClock(tc.bEnd)
		assert.Equal(t, tc.want, Overlaps(a1, a2, b1, b2), "%s-%s vs %s-%s", tc.aStart, tc.aEnd, tc.bStart, tc.bEnd)
		assert.Equal(t, Overlaps(a1, a2, b1, b2), Overlaps(b1, b2, a1, a2), "overlap must be symmetric")
	}
}

func TestNoFalseConflictOnTouch(t *testing.T) {
	assert.False(t, Overlaps(MustClock("08:00"), MustClock("10:00"), MustClock("10:00"), MustClock("12:00")))
}

func TestValidInterval(t *testing.T) {
	assert.True(t, ValidInterval(MustClock("08:00"), MustClock("10:00")))
	assert.False(t, ValidInterval(MustClock("10:00"), MustClock("10:00")))
	assert.False(t, ValidInterval(MustClock("10:00"), MustClock("08:00")))
	assert.False(t, ValidInterval(Clock(-10), MustClock("08:00")))
}

func TestAligned(t *testing.T) {
	assert.True(t, MustClock("13:00").Aligned(30))
	assert.True(t, MustClock("13:30").Aligned(30))
	assert.False(t, MustClock("13:15").Aligned(30))
	// zero granularity means free-form times are acceptable
	assert.True(t, MustClock("13:17").Aligned(0))
}

func TestWeekdayDatesInRange(t *testing.T) {
	// 2025-09-01 is a Monday.
	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	dates := WeekdayDatesInRange(start, time.Monday, 4)
	require.Len(t, dates, 4)
	expected := []string{"2025-09-01", "2025-09-08", "2025-09-15", "2025-09-22"}
	for i, d := range dates {
		assert.Equal(t, time.Monday, d.Weekday())
		assert.Equal(t, expected[i], FormatDate(d))
	}
}

func TestWeekdayDatesInRangeStartsAfterGivenDate(t *testing.T) {
	// Starting on a Wednesday and asking for Mondays must begin the
	// following Monday.
	start := time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC)
	dates := WeekdayDatesInRange(start, time.Monday, 2)
	require.Len(t, dates, 2)
	assert.Equal(t, "2025-09-08", FormatDate(dates[0]))
	assert.Equal(t, "2025-09-15", FormatDate(dates[1]))
}

func TestWeekdayDatesInRangeCountInvariant(t *testing.T) {
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	for count := 1; count <= 20; count++ {
		dates := WeekdayDatesInRange(start, time.Friday, count)
		require.Len(t, dates, count)
		for i := 1; i < len(dates); i++ {
			assert.Equal(t, 7*24*time.Hour, dates[i].Sub(dates[i-1]))
		}
	}
	assert.Nil(t, WeekdayDatesInRange(start, time.Friday, 0))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-09-01")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d.Weekday())

	_, err = ParseDate("2025-02-30")
	assert.Error(t, err)
	_, err = ParseDate("01-09-2025")
	assert.Error(t, err)
}
