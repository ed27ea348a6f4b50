package models

import (
	"time"

	"github.com/claude/babytrack/internal/stats"
	"github.com/google/uuid"
)

// Record is implemented by every stored record type.
type Record interface {
	RecordID() uuid.UUID
	// Timestamp orders records within their collection.
	Timestamp() time.Time
}

// SleepSession is one sleep interval. WakeTime is nil while the child is
// still asleep.
type SleepSession struct {
	ID        uuid.UUID  `json:"id"`
	SleepTime time.Time  `json:"sleep_time"`
	WakeTime  *time.Time `json:"wake_time,omitempty"`
	Quality   int        `json:"quality,omitempty"`
	Note      string     `json:"note,omitempty"`
}

func (s SleepSession) RecordID() uuid.UUID  { return s.ID }
func (s SleepSession) Timestamp() time.Time { return s.SleepTime }

// InProgress reports whether the session has no wake time yet.
func (s SleepSession) InProgress() bool { return s.WakeTime == nil }

// Duration returns the session length, or zero while in progress.
func (s SleepSession) Duration() time.Duration {
	if s.WakeTime == nil || s.WakeTime.Before(s.SleepTime) {
		return 0
	}
	return s.WakeTime.Sub(s.SleepTime)
}

// Event converts the session for aggregation.
func (s SleepSession) Event() stats.Event {
	e := stats.Event{ID: s.ID.String(), OccurredAt: s.SleepTime}
	if s.WakeTime != nil {
		w := *s.WakeTime
		e.EndedAt = &w
	}
	return e
}

// Meal is a single feeding. AmountML is set for bottle feeds and drinks.
type Meal struct {
	ID       uuid.UUID `json:"id"`
	Time     time.Time `json:"time"`
	Type     MealType  `json:"type"`
	AmountML float64   `json:"amount_ml,omitempty"`
	Note     string    `json:"note,omitempty"`
}

func (m Meal) RecordID() uuid.UUID  { return m.ID }
func (m Meal) Timestamp() time.Time { return m.Time }

// Event converts the meal for aggregation; the meal type is its category.
func (m Meal) Event() stats.Event {
	return stats.Event{
		ID:         m.ID.String(),
		OccurredAt: m.Time,
		Quantity:   m.AmountML,
		Category:   string(m.Type),
	}
}

// WaterIntake is a drink of water.
type WaterIntake struct {
	ID       uuid.UUID `json:"id"`
	Time     time.Time `json:"time"`
	AmountML float64   `json:"amount_ml"`
}

func (w WaterIntake) RecordID() uuid.UUID  { return w.ID }
func (w WaterIntake) Timestamp() time.Time { return w.Time }

// Event converts the intake for aggregation.
func (w WaterIntake) Event() stats.Event {
	return stats.Event{ID: w.ID.String(), OccurredAt: w.Time, Quantity: w.AmountML}
}

// Milestone is a developmental milestone. Only counted and grouped by
// category.
type Milestone struct {
	ID       uuid.UUID         `json:"id"`
	Date     time.Time         `json:"date"`
	Category MilestoneCategory `json:"category"`
	Title    string            `json:"title"`
	Note     string            `json:"note,omitempty"`
}

func (m Milestone) RecordID() uuid.UUID  { return m.ID }
func (m Milestone) Timestamp() time.Time { return m.Date }

// Event converts a milestone into its instantaneous stats form.
func (m Milestone) Event() stats.Event {
	return stats.Event{ID: m.ID.String(), OccurredAt: m.Date, Category: string(m.Category)}
}

// Note is a free-text diary entry.
type Note struct {
	ID   uuid.UUID `json:"id"`
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

func (n Note) RecordID() uuid.UUID  { return n.ID }
func (n Note) Timestamp() time.Time { return n.Time }
