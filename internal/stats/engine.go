package stats

import (
	"fmt"
	"log/slog"
	"time"
)

// Kind selects a record collection the engine can aggregate.
type Kind string

const (
	KindSleep Kind = "sleep"
	KindMeal  Kind = "meals"
	KindWater Kind = "water"

	// KindMilestone only feeds counts and category distributions.
	KindMilestone Kind = "milestones"
)

// ParseKind validates a collection name from user input.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSleep, KindMeal, KindWater, KindMilestone:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown statistics kind %q (want sleep, meals, water or milestones)", s)
}

// Source hands the engine a read-only snapshot of one collection. The
// returned slice must not be mutated by the source afterwards.
type Source interface {
	Events(kind Kind) []Event
}

// SourceFunc adapts a function to Source.
type SourceFunc func(kind Kind) []Event

// Events implements Source.
func (f SourceFunc) Events(kind Kind) []Event { return f(kind) }

// Engine serves cached statistics over a Source. Create one per session
// and wire InvalidateCache to the record store's change hook.
type Engine struct {
	source Source
	cal    Calendar
	cache  *Cache
	rules  map[Kind]AttributionRule
	log    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCalendar sets the location and clock used for period arithmetic.
func WithCalendar(cal Calendar) Option {
	return func(e *Engine) { e.cal = cal }
}

// WithLogger sets the logger for cache diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithCacheLimit bounds the number of memoized results.
func WithCacheLimit(n int) Option {
	return func(e *Engine) { e.cache = NewCache(n) }
}

// WithRule overrides the attribution rule for kind.
func WithRule(kind Kind, rule AttributionRule) Option {
	return func(e *Engine) { e.rules[kind] = rule }
}

// NewEngine creates an Engine. Sleep is attributed by wake time, meals and
// water by their timestamp.
func NewEngine(source Source, opts ...Option) *Engine {
	e := &Engine{
		source: source,
		cal:    NewCalendar(time.Local),
		cache:  NewCache(DefaultCacheLimit),
		rules: map[Kind]AttributionRule{
			KindSleep:     AttributeByEnd,
			KindMeal:      AttributeByStart,
			KindWater:     AttributeByStart,
			KindMilestone: AttributeByStart,
		},
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Calendar returns the engine's calendar.
func (e *Engine) Calendar() Calendar { return e.cal }

// Cache exposes the result cache for inspection.
func (e *Engine) Cache() *Cache { return e.cache }

// InvalidateCache drops every memoized result. The record store must call
// it after each successful mutation.
func (e *Engine) InvalidateCache() {
	e.cache.Invalidate()
	e.log.Debug("stats cache invalidated", "generation", e.cache.Generation())
}

func (e *Engine) rule(kind Kind) AttributionRule {
	if r, ok := e.rules[kind]; ok {
		return r
	}
	return AttributeByStart
}

func (e *Engine) anchorOrNow(anchor time.Time) time.Time {
	if anchor.IsZero() {
		return e.cal.Today()
	}
	return anchor
}

// Statistics returns window summaries of granularity g for kind, oldest
// first, ending with the period containing anchor (zero anchor = now).
func (e *Engine) Statistics(kind Kind, g Granularity, window int, anchor time.Time) []PeriodSummary {
	mustValid(g)
	if window <= 0 {
		panic(fmt.Sprintf("stats: window must be positive, got %d", window))
	}
	anchor = e.anchorOrNow(anchor)
	start, _ := e.cal.Range(g, anchor)
	k := cacheKey{
		op:          "periods",
		kind:        kind,
		granularity: g,
		window:      window,
		start:       unixOrZero(start),
		generation:  e.cache.Generation(),
	}
	v, hit := memo(e.cache, k, func() []PeriodSummary {
		return Aggregate(e.cal, e.source.Events(kind), g, window, anchor, e.rule(kind))
	})
	e.log.Debug("stats periods", "key", k.String(), "hit", hit)
	out := append([]PeriodSummary(nil), v...)
	// Current tracks the clock, not the data; recompute it on every call.
	for i := range out {
		out[i].Current = e.cal.IsCurrent(g, out[i].Start)
	}
	return out
}

// DailyStatistics returns days daily summaries ending at anchor.
func (e *Engine) DailyStatistics(kind Kind, days int, anchor time.Time) []PeriodSummary {
	return e.Statistics(kind, Day, days, anchor)
}

// WeeklyStatistics returns weeks Monday-start weekly summaries ending at anchor.
func (e *Engine) WeeklyStatistics(kind Kind, weeks int, anchor time.Time) []PeriodSummary {
	return e.Statistics(kind, Week, weeks, anchor)
}

// MonthlyStatistics returns months calendar-month summaries ending at anchor.
func (e *Engine) MonthlyStatistics(kind Kind, months int, anchor time.Time) []PeriodSummary {
	return e.Statistics(kind, Month, months, anchor)
}

// YearlyStatistics returns years calendar-year summaries ending at anchor.
func (e *Engine) YearlyStatistics(kind Kind, years int, anchor time.Time) []PeriodSummary {
	return e.Statistics(kind, Year, years, anchor)
}

// Chart returns the hours projection of Statistics.
func (e *Engine) Chart(kind Kind, g Granularity, window int, anchor time.Time) []ChartPoint {
	return ChartPoints(e.Statistics(kind, g, window, anchor))
}

// RangeSummary aggregates kind over [start, end).
func (e *Engine) RangeSummary(kind Kind, start, end time.Time) RangeSummary {
	k := cacheKey{
		op:         "range",
		kind:       kind,
		start:      unixOrZero(start),
		end:        unixOrZero(end),
		generation: e.cache.Generation(),
	}
	v, _ := memo(e.cache, k, func() RangeSummary {
		return SummaryForRange(e.source.Events(kind), start, end, e.rule(kind))
	})
	return v
}

// Today aggregates kind over the current day.
func (e *Engine) Today(kind Kind) RangeSummary {
	start, end := e.cal.Range(Day, e.cal.Today())
	return e.RangeSummary(kind, start, end)
}

// ThisWeek aggregates kind over the current Monday-start week.
func (e *Engine) ThisWeek(kind Kind) RangeSummary {
	start, end := e.cal.Range(Week, e.cal.Today())
	return e.RangeSummary(kind, start, end)
}

// Distribution counts kind per category over [start, end).
func (e *Engine) Distribution(kind Kind, start, end time.Time) []CategoryCount {
	k := cacheKey{
		op:         "distribution",
		kind:       kind,
		start:      unixOrZero(start),
		end:        unixOrZero(end),
		generation: e.cache.Generation(),
	}
	v, _ := memo(e.cache, k, func() []CategoryCount {
		return Distribution(e.source.Events(kind), start, end, e.rule(kind))
	})
	return append([]CategoryCount(nil), v...)
}

// SleepTiming returns circular bedtime / wake-time averages per period.
func (e *Engine) SleepTiming(g Granularity, window int, anchor time.Time) []SleepTiming {
	mustValid(g)
	if window <= 0 {
		panic(fmt.Sprintf("stats: window must be positive, got %d", window))
	}
	anchor = e.anchorOrNow(anchor)
	start, _ := e.cal.Range(g, anchor)
	k := cacheKey{
		op:          "timing",
		kind:        KindSleep,
		granularity: g,
		window:      window,
		start:       unixOrZero(start),
		generation:  e.cache.Generation(),
	}
	v, _ := memo(e.cache, k, func() []SleepTiming {
		return Timing(e.cal, e.source.Events(KindSleep), g, window, anchor, e.rule(KindSleep))
	})
	return append([]SleepTiming(nil), v...)
}
