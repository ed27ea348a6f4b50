package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/claude/babytrack/internal/models"
	"github.com/claude/babytrack/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// prepareFunc validates a decoded record and sets its ID. A non-nil id
// (from the URL) always wins; otherwise a missing ID is generated.
type prepareFunc[T any] func(rec *T, id uuid.UUID) error

func setID(dst *uuid.UUID, id uuid.UUID) {
	switch {
	case id != uuid.Nil:
		*dst = id
	case *dst == uuid.Nil:
		*dst = uuid.New()
	}
}

func prepareSleep(rec *models.SleepSession, id uuid.UUID) error {
	setID(&rec.ID, id)
	if rec.SleepTime.IsZero() {
		return fmt.Errorf("sleep_time is required")
	}
	if rec.WakeTime != nil && rec.WakeTime.Before(rec.SleepTime) {
		return fmt.Errorf("wake_time is before sleep_time")
	}
	if rec.Quality < 0 || rec.Quality > 5 {
		return fmt.Errorf("quality must be between 0 and 5")
	}
	return nil
}

func prepareMeal(rec *models.Meal, id uuid.UUID) error {
	setID(&rec.ID, id)
	if rec.Time.IsZero() {
		return fmt.Errorf("time is required")
	}
	mt, known := models.NormalizeMealType(string(rec.Type))
	if !known {
		return fmt.Errorf("unknown meal type %q", rec.Type)
	}
	rec.Type = mt
	if rec.AmountML < 0 {
		return fmt.Errorf("amount_ml must not be negative")
	}
	return nil
}

func prepareWater(rec *models.WaterIntake, id uuid.UUID) error {
	setID(&rec.ID, id)
	if rec.Time.IsZero() {
		return fmt.Errorf("time is required")
	}
	if rec.AmountML <= 0 {
		return fmt.Errorf("amount_ml must be positive")
	}
	return nil
}

func prepareMilestone(rec *models.Milestone, id uuid.UUID) error {
	setID(&rec.ID, id)
	if rec.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if rec.Title == "" {
		return fmt.Errorf("title is required")
	}
	c, err := models.ParseMilestoneCategory(string(rec.Category))
	if err != nil {
		return err
	}
	rec.Category = c
	return nil
}

func prepareNote(rec *models.Note, id uuid.UUID) error {
	setID(&rec.ID, id)
	if rec.Time.IsZero() {
		return fmt.Errorf("time is required")
	}
	if rec.Text == "" {
		return fmt.Errorf("text is required")
	}
	return nil
}

func listRecords[T models.Record](s *Server, t *storage.Table[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows := t.List()
		if r.URL.Query().Get("start") != "" {
			cal := s.engine.Calendar()
			start, end, err := parseTimeRange(r, cal.Today(), cal.Today().Location())
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			filtered := rows[:0]
			for _, row := range rows {
				ts := row.Timestamp()
				if !ts.Before(start) && ts.Before(end) {
					filtered = append(filtered, row)
				}
			}
			rows = filtered
		}
		if rows == nil {
			rows = []T{}
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func getRecord[T models.Record](t *storage.Table[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid record ID")
			return
		}
		rec, err := t.Get(id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func insertRecord[T models.Record](s *Server, t *storage.Table[T], prepare prepareFunc[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rec T
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		if err := prepare(&rec, uuid.Nil); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := t.Insert(r.Context(), rec); err != nil {
			s.log.Error("insert failed", "collection", t.Name(), "error", err)
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func updateRecord[T models.Record](s *Server, t *storage.Table[T], prepare prepareFunc[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid record ID")
			return
		}
		var rec T
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		if err := prepare(&rec, id); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := t.Update(r.Context(), rec); err != nil {
			s.log.Error("update failed", "collection", t.Name(), "id", id, "error", err)
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func deleteRecord[T models.Record](s *Server, t *storage.Table[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid record ID")
			return
		}
		if err := t.Delete(r.Context(), id); err != nil {
			s.log.Error("delete failed", "collection", t.Name(), "id", id, "error", err)
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
