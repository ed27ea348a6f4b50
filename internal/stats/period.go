// Package stats buckets time-stamped baby-care records into calendar periods
// and computes per-period aggregates and chart series. Aggregation functions
// are pure; the Engine adds a generation-keyed result cache on top.
package stats

import (
	"fmt"
	"strings"
	"time"
)

// Granularity is the bucketing unit.
type Granularity int

const (
	Day Granularity = iota
	Week
	Month
	Year
)

// String returns the lowercase name used in URLs and tool parameters.
func (g Granularity) String() string {
	switch g {
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// Valid reports whether g is one of the four supported units.
func (g Granularity) Valid() bool {
	return g >= Day && g <= Year
}

// ParseGranularity maps user input ("day", "daily", "weekly", ...) to a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "daily", "1 day":
		return Day, nil
	case "week", "weekly", "1 week":
		return Week, nil
	case "month", "monthly", "1 month":
		return Month, nil
	case "year", "yearly", "1 year":
		return Year, nil
	}
	return 0, fmt.Errorf("unknown granularity %q (want day, week, month or year)", s)
}

func mustValid(g Granularity) {
	if !g.Valid() {
		panic(fmt.Sprintf("stats: invalid granularity %d", int(g)))
	}
}

// Calendar performs interval arithmetic in a fixed location with an
// injectable clock. The zero value uses time.Local and time.Now.
type Calendar struct {
	Location *time.Location
	Now      func() time.Time
}

// NewCalendar returns a Calendar for loc using the system clock.
func NewCalendar(loc *time.Location) Calendar {
	return Calendar{Location: loc, Now: time.Now}
}

func (c Calendar) loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func (c Calendar) now() time.Time {
	if c.Now == nil {
		return time.Now().In(c.loc())
	}
	return c.Now().In(c.loc())
}

// Today returns the current instant in the calendar's location.
func (c Calendar) Today() time.Time {
	return c.now()
}

func (c Calendar) midnight(t time.Time) time.Time {
	t = t.In(c.loc())
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc())
}

// periodStart returns the start of the period containing anchor.
func (c Calendar) periodStart(g Granularity, anchor time.Time) time.Time {
	day := c.midnight(anchor)
	switch g {
	case Day:
		return day
	case Week:
		// Monday is the first day; Sunday (0) rolls back six days.
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case Month:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, c.loc())
	default:
		return time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, c.loc())
	}
}

func advance(g Granularity, start time.Time, n int) time.Time {
	switch g {
	case Day:
		return start.AddDate(0, 0, n)
	case Week:
		return start.AddDate(0, 0, 7*n)
	case Month:
		return start.AddDate(0, n, 0)
	default:
		return start.AddDate(n, 0, 0)
	}
}

// Range returns the half-open interval [start, end) containing anchor.
// If calendar arithmetic cannot produce an increasing interval the result
// degrades to the zero-length interval [anchor, anchor).
func (c Calendar) Range(g Granularity, anchor time.Time) (start, end time.Time) {
	mustValid(g)
	start = c.periodStart(g, anchor)
	end = advance(g, start, 1)
	if !end.After(start) {
		a := anchor.In(c.loc())
		return a, a
	}
	return start, end
}

// Shift moves anchor by delta whole periods. Month and year shifts operate
// on the period start, so Jan 31 + 1 month is a February anchor.
func (c Calendar) Shift(g Granularity, anchor time.Time, delta int) time.Time {
	mustValid(g)
	switch g {
	case Day, Week:
		return advance(g, anchor.In(c.loc()), delta)
	default:
		return advance(g, c.periodStart(g, anchor), delta)
	}
}

// Label returns a display label unique to the interval containing anchor.
func (c Calendar) Label(g Granularity, anchor time.Time) string {
	start, end := c.Range(g, anchor)
	switch g {
	case Day:
		return start.Format("Jan 2, 2006")
	case Week:
		last := end.AddDate(0, 0, -1)
		return start.Format("Jan 2") + " – " + last.Format("Jan 2, 2006")
	case Month:
		return start.Format("Jan 2006")
	default:
		return start.Format("2006")
	}
}

// DaysCount returns the number of calendar days in the interval containing
// anchor. Counted on dates rather than elapsed hours so DST transitions do
// not shorten a day.
func (c Calendar) DaysCount(g Granularity, anchor time.Time) int {
	start, end := c.Range(g, anchor)
	return calendarDays(start, end)
}

// IsCurrent reports whether anchor falls in the same period as now.
func (c Calendar) IsCurrent(g Granularity, anchor time.Time) bool {
	a, _ := c.Range(g, anchor)
	b, _ := c.Range(g, c.now())
	return a.Equal(b)
}

// calendarDays counts the calendar days spanned by [start, end). A
// trailing partial day counts as a whole one, so midnight-to-midnight and
// noon-to-noon ranges both come out in whole days. Dates are compared on
// the wall clock, ignoring the elapsed length of individual days.
func calendarDays(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	end = end.In(start.Location())
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	s := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	e := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	days := int(e.Sub(s).Hours() / 24)
	if clock(end) > clock(start) {
		days++
	}
	return days
}

// clock returns the wall-clock offset of t from its midnight.
func clock(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}
