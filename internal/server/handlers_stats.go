package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/babytrack/internal/stats"
	"github.com/go-chi/chi/v5"
)

// maxWindow caps the number of periods one request may ask for.
const maxWindow = 400

type periodQuery struct {
	kind        stats.Kind
	granularity stats.Granularity
	window      int
	anchor      time.Time
}

// parsePeriodQuery reads {kind} plus ?granularity=&window=&anchor=.
// Defaults: day granularity, the server's default window, anchor now.
func (s *Server) parsePeriodQuery(r *http.Request) (periodQuery, error) {
	var pq periodQuery
	kind, err := stats.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		return pq, err
	}
	pq.kind = kind

	q := r.URL.Query()
	pq.granularity = stats.Day
	if g := q.Get("granularity"); g != "" {
		if pq.granularity, err = stats.ParseGranularity(g); err != nil {
			return pq, err
		}
	}

	pq.window = s.defaultWindow
	if v := q.Get("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxWindow {
			return pq, fmt.Errorf("window must be an integer between 1 and %d", maxWindow)
		}
		pq.window = n
	}

	cal := s.engine.Calendar()
	pq.anchor = cal.Today()
	if v := q.Get("anchor"); v != "" {
		if pq.anchor, _, err = parseTime(v, pq.anchor.Location()); err != nil {
			return pq, fmt.Errorf("invalid anchor: %w", err)
		}
	}
	return pq, nil
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	pq, err := s.parsePeriodQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	periods := s.engine.Statistics(pq.kind, pq.granularity, pq.window, pq.anchor)
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":        pq.kind,
		"granularity": pq.granularity.String(),
		"window":      pq.window,
		"periods":     periods,
	})
}

// handleChart returns chart points. ?metric= selects hours (default),
// quantity or count; ?format=ascii renders a text chart instead of JSON.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	pq, err := s.parsePeriodQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var points []stats.ChartPoint
	metric := r.URL.Query().Get("metric")
	switch metric {
	case "", "hours":
		metric = "hours"
		points = s.engine.Chart(pq.kind, pq.granularity, pq.window, pq.anchor)
	case "quantity":
		points = stats.QuantityPoints(s.engine.Statistics(pq.kind, pq.granularity, pq.window, pq.anchor))
	case "count":
		points = stats.CountPoints(s.engine.Statistics(pq.kind, pq.granularity, pq.window, pq.anchor))
	default:
		writeError(w, http.StatusBadRequest, "metric must be hours, quantity or count")
		return
	}

	if r.URL.Query().Get("format") == "ascii" {
		caption := fmt.Sprintf("%s %s per %s", pq.kind, metric, pq.granularity)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, stats.RenderChart(points, 60, 12, caption))
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleRangeSummary(w http.ResponseWriter, r *http.Request) {
	kind, err := stats.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	now := s.engine.Calendar().Today()
	start, end, err := parseTimeRange(r, now, now.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.engine.RangeSummary(kind, start, end))
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	kind, err := stats.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	now := s.engine.Calendar().Today()
	start, end, err := parseTimeRange(r, now, now.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Distribution(kind, start, end))
}

func (s *Server) handleSleepTiming(w http.ResponseWriter, r *http.Request) {
	pq, err := s.parsePeriodQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if pq.kind != stats.KindSleep {
		writeError(w, http.StatusBadRequest, "timing is only available for sleep")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.SleepTiming(pq.granularity, pq.window, pq.anchor))
}
