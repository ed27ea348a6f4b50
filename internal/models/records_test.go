package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSleepSessionEvent(t *testing.T) {
	sleep := time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)
	wake := time.Date(2026, 1, 2, 7, 0, 0, 0, time.UTC)
	s := SleepSession{ID: uuid.New(), SleepTime: sleep, WakeTime: &wake}

	if s.InProgress() {
		t.Error("finished session reported in progress")
	}
	if got := s.Duration(); got != 8*time.Hour {
		t.Errorf("Duration = %s, want 8h", got)
	}

	e := s.Event()
	if e.ID != s.ID.String() || !e.OccurredAt.Equal(sleep) {
		t.Errorf("Event = %+v, want id %s at %s", e, s.ID, sleep)
	}
	if e.EndedAt == nil || !e.EndedAt.Equal(wake) {
		t.Fatalf("EndedAt = %v, want %s", e.EndedAt, wake)
	}
	// The event must not alias the record's wake time.
	*e.EndedAt = e.EndedAt.Add(time.Hour)
	if !s.WakeTime.Equal(wake) {
		t.Error("mutating the event changed the record")
	}
	if e.Duration() != 9*time.Hour {
		t.Errorf("event Duration = %s, want 9h", e.Duration())
	}
}

func TestSleepSessionInProgress(t *testing.T) {
	s := SleepSession{ID: uuid.New(), SleepTime: time.Now()}
	if !s.InProgress() {
		t.Error("session without wake time not in progress")
	}
	if s.Duration() != 0 {
		t.Errorf("Duration = %s, want 0", s.Duration())
	}
	if e := s.Event(); e.EndedAt != nil {
		t.Errorf("EndedAt = %v, want nil", e.EndedAt)
	}
}

func TestMealAndWaterEvents(t *testing.T) {
	at := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	m := Meal{ID: uuid.New(), Time: at, Type: MealBottle, AmountML: 150}
	e := m.Event()
	if e.Category != "bottle" || e.Quantity != 150 || !e.OccurredAt.Equal(at) || e.EndedAt != nil {
		t.Errorf("meal event = %+v", e)
	}

	w := WaterIntake{ID: uuid.New(), Time: at, AmountML: 60}
	if e := w.Event(); e.Quantity != 60 || e.Category != "" {
		t.Errorf("water event = %+v", e)
	}
}

func TestMilestoneEvent(t *testing.T) {
	at := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	m := Milestone{ID: uuid.New(), Date: at, Category: MilestoneSocial, Title: "First smile"}
	e := m.Event()
	if e.Category != "social" || !e.OccurredAt.Equal(at) || e.EndedAt != nil || e.Quantity != 0 {
		t.Errorf("milestone event = %+v", e)
	}
}
