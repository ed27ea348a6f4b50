package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/claude/babytrack/internal/ingest"
	"github.com/claude/babytrack/internal/storage"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds import and sync uploads.
const maxBodyBytes = 32 << 20

func (s *Server) handleDataStats(w http.ResponseWriter, r *http.Request) {
	hits, misses := s.engine.Cache().Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"records": map[string]int{
			string(storage.CollectionSleep):      s.store.Sleep.Len(),
			string(storage.CollectionMeals):      s.store.Meals.Len(),
			string(storage.CollectionWater):      s.store.Water.Len(),
			string(storage.CollectionMilestones): s.store.Milestones.Len(),
			string(storage.CollectionNotes):      s.store.Notes.Len(),
		},
		"cache": map[string]any{
			"generation": s.engine.Cache().Generation(),
			"entries":    s.engine.Cache().Len(),
			"hits":       hits,
			"misses":     misses,
			"evictions":  s.engine.Cache().Evictions(),
		},
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="babytrack-export.json"`)
	writeJSON(w, http.StatusOK, ingest.Export(s.store, time.Now()))
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	payload, err := ingest.Read(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := ingest.Apply(r.Context(), s.store, payload)
	if err != nil {
		s.log.Error("import error", "error", err)
		writeStoreError(w, err)
		return
	}
	s.log.Info("import complete", "message", result.Message)
	writeJSON(w, http.StatusOK, result)
}

// handleKVGet serves one collection blob to a syncing client.
func (s *Server) handleKVGet(w http.ResponseWriter, r *http.Request) {
	c, err := storage.ParseCollection(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	data, err := s.store.ExportJSON(c)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleKVPut replaces one collection with a blob pushed by a syncing client.
func (s *Server) handleKVPut(w http.ResponseWriter, r *http.Request) {
	c, err := storage.ParseCollection(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body: "+err.Error())
		return
	}
	if !json.Valid(data) {
		writeError(w, http.StatusBadRequest, "body is not valid JSON")
		return
	}
	n, err := s.store.ImportJSON(r.Context(), c, data)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrDuplicate) || errors.Is(err, storage.ErrInvalidID) {
			writeStoreError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.Info("collection synced", "collection", c, "records", n)
	w.WriteHeader(http.StatusNoContent)
}
