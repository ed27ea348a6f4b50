// Package ingest reads and writes the bulk JSON export of every collection.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/claude/babytrack/internal/models"
	"github.com/claude/babytrack/internal/storage"
	"github.com/google/uuid"
)

// FormatVersion is written into every export.
const FormatVersion = 1

// Payload is a full export of the store.
type Payload struct {
	Version    int                   `json:"version"`
	ExportedAt time.Time             `json:"exported_at"`
	Sleep      []models.SleepSession `json:"sleep"`
	Meals      []models.Meal         `json:"meals"`
	Water      []models.WaterIntake  `json:"water"`
	Milestones []models.Milestone    `json:"milestones"`
	Notes      []models.Note         `json:"notes"`
}

// Result holds the outcome of an import.
type Result struct {
	SleepSessions int `json:"sleep_sessions"`
	Meals         int `json:"meals"`
	Water         int `json:"water"`
	Milestones    int `json:"milestones"`
	Notes         int `json:"notes"`

	IDsAssigned         int      `json:"ids_assigned,omitempty"`
	MealTypesNormalized int      `json:"meal_types_normalized,omitempty"`
	UnknownMealTypes    []string `json:"unknown_meal_types,omitempty"`

	Message string `json:"message,omitempty"`
}

// Export snapshots every collection of store.
func Export(store *storage.Store, now time.Time) Payload {
	return Payload{
		Version:    FormatVersion,
		ExportedAt: now.UTC(),
		Sleep:      nonNil(store.Sleep.List()),
		Meals:      nonNil(store.Meals.List()),
		Water:      nonNil(store.Water.List()),
		Milestones: nonNil(store.Milestones.List()),
		Notes:      nonNil(store.Notes.List()),
	}
}

// Write encodes p as indented JSON.
func Write(w io.Writer, p Payload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}

// Read decodes an export.
func Read(r io.Reader) (Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Payload{}, fmt.Errorf("decoding export: %w", err)
	}
	if p.Version > FormatVersion {
		return Payload{}, fmt.Errorf("export version %d is newer than supported version %d", p.Version, FormatVersion)
	}
	return p, nil
}

// Apply replaces every collection of store with the payload contents. This is
// a bulk reload: existing records are discarded. Records without an ID get a
// fresh one; localized meal types are normalized.
func Apply(ctx context.Context, store *storage.Store, p Payload) (*Result, error) {
	res := &Result{}
	normalize(&p, res)

	if err := store.Sleep.ReplaceAll(ctx, p.Sleep); err != nil {
		return res, fmt.Errorf("importing sleep: %w", err)
	}
	res.SleepSessions = len(p.Sleep)
	if err := store.Meals.ReplaceAll(ctx, p.Meals); err != nil {
		return res, fmt.Errorf("importing meals: %w", err)
	}
	res.Meals = len(p.Meals)
	if err := store.Water.ReplaceAll(ctx, p.Water); err != nil {
		return res, fmt.Errorf("importing water: %w", err)
	}
	res.Water = len(p.Water)
	if err := store.Milestones.ReplaceAll(ctx, p.Milestones); err != nil {
		return res, fmt.Errorf("importing milestones: %w", err)
	}
	res.Milestones = len(p.Milestones)
	if err := store.Notes.ReplaceAll(ctx, p.Notes); err != nil {
		return res, fmt.Errorf("importing notes: %w", err)
	}
	res.Notes = len(p.Notes)

	res.Message = fmt.Sprintf("imported %d sleep sessions, %d meals, %d water intakes, %d milestones, %d notes",
		res.SleepSessions, res.Meals, res.Water, res.Milestones, res.Notes)
	return res, nil
}

func normalize(p *Payload, res *Result) {
	assign := func(id *uuid.UUID) {
		if *id == uuid.Nil {
			*id = uuid.New()
			res.IDsAssigned++
		}
	}
	for i := range p.Sleep {
		assign(&p.Sleep[i].ID)
	}
	unknown := map[string]bool{}
	for i := range p.Meals {
		assign(&p.Meals[i].ID)
		raw := string(p.Meals[i].Type)
		mt, known := models.NormalizeMealType(raw)
		if !known {
			if raw != "" && !unknown[raw] {
				unknown[raw] = true
				res.UnknownMealTypes = append(res.UnknownMealTypes, raw)
			}
			continue
		}
		if string(mt) != raw {
			res.MealTypesNormalized++
		}
		p.Meals[i].Type = mt
	}
	for i := range p.Water {
		assign(&p.Water[i].ID)
	}
	for i := range p.Milestones {
		assign(&p.Milestones[i].ID)
		if c, err := models.ParseMilestoneCategory(string(p.Milestones[i].Category)); err == nil {
			p.Milestones[i].Category = c
		}
	}
	for i := range p.Notes {
		assign(&p.Notes[i].ID)
	}
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
