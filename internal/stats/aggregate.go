package stats

import (
	"fmt"
	"sort"
	"time"
)

// Event is the read-only shape shared by sleep, meal and water records.
type Event struct {
	ID         string
	OccurredAt time.Time
	EndedAt    *time.Time
	Quantity   float64
	Category   string
}

// Duration is EndedAt - OccurredAt, or zero for instantaneous or
// unfinished events.
func (e Event) Duration() time.Duration {
	if e.EndedAt == nil || e.EndedAt.Before(e.OccurredAt) {
		return 0
	}
	return e.EndedAt.Sub(e.OccurredAt)
}

// AttributionRule picks the instant used to assign an event to a bucket.
// Returning false excludes the event from every bucket.
type AttributionRule func(Event) (time.Time, bool)

// AttributeByEnd attributes an event to its end time. An overnight sleep
// counts entirely toward the day the child woke up; sessions still in
// progress are excluded.
func AttributeByEnd(e Event) (time.Time, bool) {
	if e.EndedAt == nil || e.EndedAt.IsZero() {
		return time.Time{}, false
	}
	return *e.EndedAt, true
}

// AttributeByStart attributes an event to its single timestamp.
func AttributeByStart(e Event) (time.Time, bool) {
	if e.OccurredAt.IsZero() {
		return time.Time{}, false
	}
	return e.OccurredAt, true
}

// PeriodSummary aggregates one calendar bucket.
type PeriodSummary struct {
	Label           string        `json:"label"`
	Start           time.Time     `json:"start"`
	End             time.Time     `json:"end"`
	TotalDuration   time.Duration `json:"total_duration_ns"`
	AverageDuration time.Duration `json:"average_duration_ns"`
	Count           int           `json:"count"`
	TotalQuantity   float64       `json:"total_quantity"`
	DaysCount       int           `json:"days_count"`
	Current         bool          `json:"current"`
}

// RangeSummary aggregates an arbitrary explicit interval.
type RangeSummary struct {
	Start                time.Time     `json:"start"`
	End                  time.Time     `json:"end"`
	TotalDuration        time.Duration `json:"total_duration_ns"`
	AverageDuration      time.Duration `json:"average_duration_ns"`
	Count                int           `json:"count"`
	TotalQuantity        float64       `json:"total_quantity"`
	DaysCount            int           `json:"days_count"`
	DailyAverageDuration time.Duration `json:"daily_average_duration_ns"`
	DailyAverageQuantity float64       `json:"daily_average_quantity"`
}

// CategoryCount is one row of a category distribution.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type totals struct {
	duration time.Duration
	quantity float64
	count    int
}

func (t totals) average() time.Duration {
	if t.count == 0 {
		return 0
	}
	return t.duration / time.Duration(t.count)
}

func reduce(events []Event, start, end time.Time, rule AttributionRule) totals {
	var t totals
	for _, e := range events {
		at, ok := rule(e)
		if !ok || at.Before(start) || !at.Before(end) {
			continue
		}
		t.count++
		t.duration += e.Duration()
		t.quantity += e.Quantity
	}
	return t
}

// Aggregate reduces events into window consecutive periods of granularity g
// ending with the period containing anchor. Summaries are oldest first.
// window must be positive.
func Aggregate(cal Calendar, events []Event, g Granularity, window int, anchor time.Time, rule AttributionRule) []PeriodSummary {
	mustValid(g)
	if window <= 0 {
		panic(fmt.Sprintf("stats: window must be positive, got %d", window))
	}
	if rule == nil {
		rule = AttributeByStart
	}

	out := make([]PeriodSummary, window)
	for i := 0; i < window; i++ {
		a := cal.Shift(g, anchor, -i)
		start, end := cal.Range(g, a)
		t := reduce(events, start, end, rule)
		// Built newest-first by stepping back; stored oldest-first.
		out[window-1-i] = PeriodSummary{
			Label:           cal.Label(g, a),
			Start:           start,
			End:             end,
			TotalDuration:   t.duration,
			AverageDuration: t.average(),
			Count:           t.count,
			TotalQuantity:   t.quantity,
			DaysCount:       calendarDays(start, end),
			Current:         cal.IsCurrent(g, a),
		}
	}
	return out
}

// SummaryForRange aggregates events attributed to [start, end).
func SummaryForRange(events []Event, start, end time.Time, rule AttributionRule) RangeSummary {
	if rule == nil {
		rule = AttributeByStart
	}
	t := reduce(events, start, end, rule)
	s := RangeSummary{
		Start:           start,
		End:             end,
		TotalDuration:   t.duration,
		AverageDuration: t.average(),
		Count:           t.count,
		TotalQuantity:   t.quantity,
		DaysCount:       calendarDays(start, end),
	}
	if s.DaysCount > 0 {
		s.DailyAverageDuration = s.TotalDuration / time.Duration(s.DaysCount)
		s.DailyAverageQuantity = s.TotalQuantity / float64(s.DaysCount)
	}
	return s
}

// Distribution counts events per category in [start, end). Uncategorised
// events and categories with no events are omitted; rows are ordered by
// count, then name.
func Distribution(events []Event, start, end time.Time, rule AttributionRule) []CategoryCount {
	if rule == nil {
		rule = AttributeByStart
	}
	counts := make(map[string]int)
	for _, e := range events {
		at, ok := rule(e)
		if !ok || e.Category == "" || at.Before(start) || !at.Before(end) {
			continue
		}
		counts[e.Category]++
	}

	out := make([]CategoryCount, 0, len(counts))
	for cat, n := range counts {
		out = append(out, CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}
