package stats

import (
	"fmt"
	"math"
	"time"
)

// SleepTiming holds circular bedtime / wake-time averages for one period.
type SleepTiming struct {
	Label                    string    `json:"label"`
	Start                    time.Time `json:"start"`
	End                      time.Time `json:"end"`
	Sessions                 int       `json:"sessions"`
	AvgBedtime               string    `json:"avg_bedtime"`
	AvgWaketime              string    `json:"avg_waketime"`
	BedtimeConsistencyStdHr  float64   `json:"bedtime_consistency_stddev_hr"`
	WaketimeConsistencyStdHr float64   `json:"waketime_consistency_stddev_hr"`
}

// Timing computes SleepTiming for window periods ending at anchor. Sessions
// are attributed by rule (normally the wake time); bedtime is the session
// start, wake time the session end.
func Timing(cal Calendar, events []Event, g Granularity, window int, anchor time.Time, rule AttributionRule) []SleepTiming {
	mustValid(g)
	if window <= 0 {
		panic(fmt.Sprintf("stats: window must be positive, got %d", window))
	}
	if rule == nil {
		rule = AttributeByEnd
	}

	out := make([]SleepTiming, window)
	for i := 0; i < window; i++ {
		a := cal.Shift(g, anchor, -i)
		start, end := cal.Range(g, a)

		var bed, wake []float64
		for _, e := range events {
			at, ok := rule(e)
			if !ok || e.EndedAt == nil || at.Before(start) || !at.Before(end) {
				continue
			}
			bed = append(bed, hourOfDay(e.OccurredAt.In(cal.loc())))
			wake = append(wake, hourOfDay(e.EndedAt.In(cal.loc())))
		}

		st := SleepTiming{Label: cal.Label(g, a), Start: start, End: end, Sessions: len(bed)}
		if len(bed) > 0 {
			avgBed, stdBed := circularMeanStd(bed)
			avgWake, stdWake := circularMeanStd(wake)
			st.AvgBedtime = hoursToHHMM(avgBed)
			st.AvgWaketime = hoursToHHMM(avgWake)
			st.BedtimeConsistencyStdHr = math.Round(stdBed*100) / 100
			st.WaketimeConsistencyStdHr = math.Round(stdWake*100) / 100
		}
		out[window-1-i] = st
	}
	return out
}

// hourOfDay extracts the fractional hour of day.
func hourOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60.0 + float64(t.Second())/3600.0
}

// circularMeanStd computes the circular mean and standard deviation of
// clock times expressed in hours (0–24), so 23:00 and 01:00 average to
// midnight rather than noon.
func circularMeanStd(hours []float64) (mean, std float64) {
	if len(hours) == 0 {
		return 0, 0
	}

	var sinSum, cosSum float64
	for _, h := range hours {
		rad := h / 24.0 * 2 * math.Pi
		sinSum += math.Sin(rad)
		cosSum += math.Cos(rad)
	}

	n := float64(len(hours))
	sinAvg := sinSum / n
	cosAvg := cosSum / n

	meanRad := math.Atan2(sinAvg, cosAvg)
	if meanRad < 0 {
		meanRad += 2 * math.Pi
	}
	mean = meanRad / (2 * math.Pi) * 24.0

	r := math.Sqrt(sinAvg*sinAvg + cosAvg*cosAvg)
	if r > 1 {
		r = 1
	}
	if r > 0 {
		std = math.Sqrt(-2*math.Log(r)) / (2 * math.Pi) * 24.0
	}
	return mean, std
}

// hoursToHHMM formats fractional hours as "HH:MM".
func hoursToHHMM(h float64) string {
	h = math.Mod(h, 24)
	if h < 0 {
		h += 24
	}
	hours := int(h)
	minutes := int(math.Round((h - float64(hours)) * 60))
	if minutes == 60 {
		hours++
		minutes = 0
	}
	if hours >= 24 {
		hours -= 24
	}
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}
