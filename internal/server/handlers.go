package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/claude/babytrack/internal/storage"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps storage errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrInvalidID):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// parseTime accepts RFC 3339 or a bare date. A bare date is midnight in loc
// and reports dateOnly.
func parseTime(v string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	t, err = time.Parse(time.RFC3339, v)
	if err == nil {
		return t.In(loc), false, nil
	}
	t, err = time.ParseInLocation("2006-01-02", v, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// endOfDay returns the midnight that closes t's day.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

// parseTimeRange reads ?start=&end=. Without start it defaults to the last
// 7 calendar days including today; a missing end is the end of today and a
// date-only end covers that whole day.
func parseTimeRange(r *http.Request, now time.Time, loc *time.Location) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		end = endOfDay(now)
		start = end.AddDate(0, 0, -7)
		return
	}

	start, _, err = parseTime(startStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if endStr == "" {
		end = endOfDay(now)
		return
	}
	var dateOnly bool
	end, dateOnly, err = parseTime(endStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if dateOnly {
		end = end.AddDate(0, 0, 1)
	}
	return
}
