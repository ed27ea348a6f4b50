package stats

import (
	"math"
	"testing"
)

// Times near midnight must average across the 24→0 boundary instead of
// producing the naive 12:00 result.
func TestCircularMeanStd(t *testing.T) {
	tests := []struct {
		name     string
		hours    []float64
		wantMean float64
	}{
		{"same time", []float64{22.0, 22.0, 22.0}, 22.0},
		{"around midnight", []float64{23.0, 1.0}, 0.0},
		{"morning cluster", []float64{7.0, 7.5, 8.0}, 7.5},
		{"evening cluster", []float64{22.0, 22.5, 23.0}, 22.5},
		{"empty", nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, std := circularMeanStd(tt.hours)
			diff := math.Abs(mean - tt.wantMean)
			if diff > 12 {
				diff = 24 - diff
			}
			if diff > 0.1 {
				t.Errorf("circularMeanStd(%v) mean = %.2f, want %.2f", tt.hours, mean, tt.wantMean)
			}
			if tt.name == "same time" && std > 0.01 {
				t.Errorf("expected std ≈ 0 for identical times, got %.4f", std)
			}
			if tt.name == "morning cluster" && std <= 0 {
				t.Errorf("expected std > 0 for varied times, got %.4f", std)
			}
		})
	}
}

func TestHoursToHHMM(t *testing.T) {
	tests := []struct {
		hours float64
		want  string
	}{
		{0.0, "00:00"},
		{7.5, "07:30"},
		{22.75, "22:45"},
		{23.999, "00:00"},
		{24.0, "00:00"},
		{-1.0, "23:00"},
	}
	for _, tt := range tests {
		if got := hoursToHHMM(tt.hours); got != tt.want {
			t.Errorf("hoursToHHMM(%v) = %q, want %q", tt.hours, got, tt.want)
		}
	}
}

func TestTiming(t *testing.T) {
	cal := fixedCalendar(t, date(2026, 1, 7, 12, 0))
	events := []Event{
		sleepEvent("a", date(2026, 1, 5, 23, 0), ptr(date(2026, 1, 6, 7, 0))),
		sleepEvent("b", date(2026, 1, 7, 1, 0), ptr(date(2026, 1, 7, 7, 0))),
		sleepEvent("open", date(2026, 1, 7, 10, 0), nil),
	}
	got := Timing(cal, events, Week, 2, date(2026, 1, 7, 12, 0), nil)
	if len(got) != 2 {
		t.Fatalf("got %d periods, want 2", len(got))
	}
	if got[0].Sessions != 0 || got[0].AvgBedtime != "" {
		t.Errorf("previous week = %+v, want empty", got[0])
	}
	cur := got[1]
	if cur.Sessions != 2 {
		t.Errorf("sessions = %d, want 2", cur.Sessions)
	}
	if cur.AvgBedtime != "00:00" {
		t.Errorf("avg bedtime = %q, want 00:00", cur.AvgBedtime)
	}
	if cur.AvgWaketime != "07:00" {
		t.Errorf("avg waketime = %q, want 07:00", cur.AvgWaketime)
	}
	if cur.WaketimeConsistencyStdHr != 0 {
		t.Errorf("wake stddev = %v, want 0", cur.WaketimeConsistencyStdHr)
	}
}
