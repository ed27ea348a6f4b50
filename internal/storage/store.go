package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/claude/babytrack/internal/models"
	"github.com/claude/babytrack/internal/stats"
	"github.com/google/uuid"
)

// Collection names a record collection. The name doubles as its KV key.
type Collection string

const (
	CollectionSleep      Collection = "sleep"
	CollectionMeals      Collection = "meals"
	CollectionWater      Collection = "water"
	CollectionMilestones Collection = "milestones"
	CollectionNotes      Collection = "notes"
)

// Collections lists every collection in load order.
var Collections = []Collection{CollectionSleep, CollectionMeals, CollectionWater, CollectionMilestones, CollectionNotes}

// ParseCollection validates a collection name from a URL or flag.
func ParseCollection(s string) (Collection, error) {
	for _, c := range Collections {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown collection %q", s)
}

var (
	ErrInvalidID = errors.New("record id is required")
	ErrDuplicate = errors.New("record id already exists")
)

// Change describes one successful mutation. Data is the collection's new
// JSON encoding.
type Change struct {
	Collection Collection
	Data       []byte
}

// Store holds all record collections in memory, persists each collection to
// a KV after every mutation and notifies change hooks.
type Store struct {
	Sleep      *Table[models.SleepSession]
	Meals      *Table[models.Meal]
	Water      *Table[models.WaterIntake]
	Milestones *Table[models.Milestone]
	Notes      *Table[models.Note]

	kv  KV
	log *slog.Logger

	hookMu sync.RWMutex
	hooks  []func(Change)
}

// NewStore creates an empty store. kv may be nil for a purely in-memory store.
func NewStore(kv KV, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	s := &Store{kv: kv, log: log}
	s.Sleep = newTable[models.SleepSession](s, CollectionSleep)
	s.Meals = newTable[models.Meal](s, CollectionMeals)
	s.Water = newTable[models.WaterIntake](s, CollectionWater)
	s.Milestones = newTable[models.Milestone](s, CollectionMilestones)
	s.Notes = newTable[models.Note](s, CollectionNotes)
	return s
}

// OnChange registers fn to run after every successful mutation, outside any
// store lock.
func (s *Store) OnChange(fn func(Change)) {
	s.hookMu.Lock()
	s.hooks = append(s.hooks, fn)
	s.hookMu.Unlock()
}

// Load replaces every collection with its persisted blob. Missing keys load
// as empty collections. Hooks fire once per collection.
func (s *Store) Load(ctx context.Context) error {
	if s.kv == nil {
		return nil
	}
	for _, c := range Collections {
		data, err := s.kv.Load(ctx, string(c))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("loading %s: %w", c, err)
		}
		if err := s.restore(c, data); err != nil {
			return err
		}
	}
	return nil
}

// ImportJSON replaces collection c with the JSON array in data and
// persists it.
func (s *Store) ImportJSON(ctx context.Context, c Collection, data []byte) (int, error) {
	switch c {
	case CollectionSleep:
		return replaceFromJSON(ctx, s.Sleep, data)
	case CollectionMeals:
		return replaceFromJSON(ctx, s.Meals, data)
	case CollectionWater:
		return replaceFromJSON(ctx, s.Water, data)
	case CollectionMilestones:
		return replaceFromJSON(ctx, s.Milestones, data)
	case CollectionNotes:
		return replaceFromJSON(ctx, s.Notes, data)
	}
	return 0, fmt.Errorf("unknown collection %q", c)
}

// ExportJSON returns the JSON encoding of collection c.
func (s *Store) ExportJSON(c Collection) ([]byte, error) {
	switch c {
	case CollectionSleep:
		return s.Sleep.MarshalJSON()
	case CollectionMeals:
		return s.Meals.MarshalJSON()
	case CollectionWater:
		return s.Water.MarshalJSON()
	case CollectionMilestones:
		return s.Milestones.MarshalJSON()
	case CollectionNotes:
		return s.Notes.MarshalJSON()
	}
	return nil, fmt.Errorf("unknown collection %q", c)
}

// Clear empties every collection.
func (s *Store) Clear(ctx context.Context) error {
	for _, fn := range []func(context.Context) error{
		s.Sleep.Clear, s.Meals.Clear, s.Water.Clear, s.Milestones.Clear, s.Notes.Clear,
	} {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Events implements stats.Source. Each call returns a fresh snapshot.
func (s *Store) Events(kind stats.Kind) []stats.Event {
	switch kind {
	case stats.KindSleep:
		return toEvents(s.Sleep.List(), models.SleepSession.Event)
	case stats.KindMeal:
		return toEvents(s.Meals.List(), models.Meal.Event)
	case stats.KindWater:
		return toEvents(s.Water.List(), models.WaterIntake.Event)
	case stats.KindMilestone:
		return toEvents(s.Milestones.List(), models.Milestone.Event)
	}
	return nil
}

var _ stats.Source = (*Store)(nil)

func toEvents[T any](rows []T, conv func(T) stats.Event) []stats.Event {
	out := make([]stats.Event, len(rows))
	for i, r := range rows {
		out[i] = conv(r)
	}
	return out
}

func (s *Store) restore(c Collection, data []byte) error {
	var err error
	switch c {
	case CollectionSleep:
		err = s.Sleep.restore(data)
	case CollectionMeals:
		err = s.Meals.restore(data)
	case CollectionWater:
		err = s.Water.restore(data)
	case CollectionMilestones:
		err = s.Milestones.restore(data)
	case CollectionNotes:
		err = s.Notes.restore(data)
	}
	if err != nil {
		return fmt.Errorf("decoding %s: %w", c, err)
	}
	s.notify(Change{Collection: c, Data: data})
	return nil
}

// committed persists a collection after a mutation and runs the hooks.
// The in-memory change stands even when persistence fails.
func (s *Store) committed(ctx context.Context, c Collection, data []byte) error {
	s.notify(Change{Collection: c, Data: data})
	if s.kv == nil {
		return nil
	}
	if err := s.kv.Save(ctx, string(c), data); err != nil {
		s.log.Error("persisting collection failed", "collection", c, "error", err)
		return fmt.Errorf("persisting %s: %w", c, err)
	}
	return nil
}

func (s *Store) notify(ch Change) {
	s.hookMu.RLock()
	hooks := append(([]func(Change))(nil), s.hooks...)
	s.hookMu.RUnlock()
	for _, fn := range hooks {
		fn(ch)
	}
}

// Table is one ordered record collection. Rows are kept sorted by
// Timestamp, ties in insertion order.
type Table[T models.Record] struct {
	store *Store
	name  Collection

	mu   sync.RWMutex
	rows []T
}

func newTable[T models.Record](s *Store, name Collection) *Table[T] {
	return &Table[T]{store: s, name: name}
}

// Name returns the collection name.
func (t *Table[T]) Name() Collection { return t.name }

// List returns a copy of all rows.
func (t *Table[T]) List() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]T(nil), t.rows...)
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Get returns the row with id, or ErrNotFound.
func (t *Table[T]) Get(id uuid.UUID) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i := t.index(id); i >= 0 {
		return t.rows[i], nil
	}
	var zero T
	return zero, ErrNotFound
}

// Insert adds rec. Its ID must be set and unique.
func (t *Table[T]) Insert(ctx context.Context, rec T) error {
	if rec.RecordID() == uuid.Nil {
		return ErrInvalidID
	}
	return t.mutate(ctx, func() error {
		if t.index(rec.RecordID()) >= 0 {
			return ErrDuplicate
		}
		t.rows = append(t.rows, rec)
		t.sort()
		return nil
	})
}

// Update replaces the row whose ID matches rec.
func (t *Table[T]) Update(ctx context.Context, rec T) error {
	return t.mutate(ctx, func() error {
		i := t.index(rec.RecordID())
		if i < 0 {
			return ErrNotFound
		}
		t.rows[i] = rec
		t.sort()
		return nil
	})
}

// Delete removes the row with id.
func (t *Table[T]) Delete(ctx context.Context, id uuid.UUID) error {
	return t.mutate(ctx, func() error {
		i := t.index(id)
		if i < 0 {
			return ErrNotFound
		}
		t.rows = append(t.rows[:i], t.rows[i+1:]...)
		return nil
	})
}

// ReplaceAll swaps the whole collection for rows.
func (t *Table[T]) ReplaceAll(ctx context.Context, rows []T) error {
	seen := make(map[uuid.UUID]bool, len(rows))
	for _, r := range rows {
		id := r.RecordID()
		if id == uuid.Nil {
			return ErrInvalidID
		}
		if seen[id] {
			return fmt.Errorf("%w: %s", ErrDuplicate, id)
		}
		seen[id] = true
	}
	return t.mutate(ctx, func() error {
		t.rows = append([]T(nil), rows...)
		t.sort()
		return nil
	})
}

// Clear removes every row.
func (t *Table[T]) Clear(ctx context.Context) error {
	return t.mutate(ctx, func() error {
		t.rows = nil
		return nil
	})
}

// MarshalJSON encodes the rows as a JSON array.
func (t *Table[T]) MarshalJSON() ([]byte, error) {
	rows := t.List()
	if rows == nil {
		rows = []T{}
	}
	return json.Marshal(rows)
}

func (t *Table[T]) mutate(ctx context.Context, fn func() error) error {
	t.mu.Lock()
	if err := fn(); err != nil {
		t.mu.Unlock()
		return err
	}
	rows := t.rows
	if rows == nil {
		rows = []T{}
	}
	data, err := json.Marshal(rows)
	t.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", t.name, err)
	}
	return t.store.committed(ctx, t.name, data)
}

func (t *Table[T]) restore(data []byte) error {
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	t.mu.Lock()
	t.rows = rows
	t.sort()
	t.mu.Unlock()
	return nil
}

func (t *Table[T]) index(id uuid.UUID) int {
	for i, r := range t.rows {
		if r.RecordID() == id {
			return i
		}
	}
	return -1
}

func (t *Table[T]) sort() {
	sort.SliceStable(t.rows, func(i, j int) bool {
		return t.rows[i].Timestamp().Before(t.rows[j].Timestamp())
	})
}

func replaceFromJSON[T models.Record](ctx context.Context, t *Table[T], data []byte) (int, error) {
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0, fmt.Errorf("decoding %s: %w", t.name, err)
	}
	if err := t.ReplaceAll(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
