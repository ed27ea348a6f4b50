package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/babytrack/internal/storage"
)

// Stats tracks sync progress.
type Stats struct {
	Pushed     int
	Skipped    int
	Superseded int
	Failed     int
	Pulled     int
}

// lane serializes background pushes of one collection. next holds the
// newest change not yet sent; older pending changes are replaced.
type lane struct {
	running bool
	next    *storage.Change
}

// Syncer mirrors store collections to a remote babytrack server.
type Syncer struct {
	client  *Client
	state   *StateDB
	timeout time.Duration
	log     *slog.Logger

	wg    sync.WaitGroup
	mu    sync.Mutex
	stats Stats

	laneMu sync.Mutex
	lanes  map[storage.Collection]*lane
}

// New creates a new Syncer. state may be nil, in which case every change
// is pushed.
func New(client *Client, state *StateDB, log *slog.Logger) *Syncer {
	return &Syncer{
		client:  client,
		state:   state,
		timeout: 2 * time.Minute,
		log:     log,
		lanes:   make(map[storage.Collection]*lane),
	}
}

// Hook returns a store change hook that pushes changes in the background.
// Pushes of one collection run one at a time in change order, and a change
// still waiting when a newer one arrives is dropped in its favour, so the
// remote always ends on the latest local state.
func (s *Syncer) Hook() func(storage.Change) {
	return func(ch storage.Change) {
		s.laneMu.Lock()
		l := s.lanes[ch.Collection]
		if l == nil {
			l = &lane{}
			s.lanes[ch.Collection] = l
		}
		if l.next != nil {
			s.count(func(st *Stats) { st.Superseded++ })
		}
		l.next = &ch
		if l.running {
			s.laneMu.Unlock()
			return
		}
		l.running = true
		s.wg.Add(1)
		s.laneMu.Unlock()

		go s.drain(l)
	}
}

// drain pushes l's pending change until none is left.
func (s *Syncer) drain(l *lane) {
	defer s.wg.Done()
	for {
		s.laneMu.Lock()
		ch := l.next
		l.next = nil
		if ch == nil {
			l.running = false
			s.laneMu.Unlock()
			return
		}
		s.laneMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		if err := s.Push(ctx, *ch); err != nil {
			s.log.Warn("background sync failed", "collection", ch.Collection, "error", err)
		}
		cancel()
	}
}

// Wait blocks until background pushes have finished.
func (s *Syncer) Wait() {
	s.wg.Wait()
}

// Stats returns a copy of the counters.
func (s *Syncer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Push sends one collection blob unless the remote already has it.
func (s *Syncer) Push(ctx context.Context, ch storage.Change) error {
	key := string(ch.Collection)
	hash := HashBlob(ch.Data)

	if s.state != nil {
		pushed, err := s.state.IsPushed(key, hash)
		if err != nil {
			s.log.Warn("checking sync state", "collection", key, "error", err)
		} else if pushed {
			s.count(func(st *Stats) { st.Skipped++ })
			return nil
		}
	}

	if err := s.client.PushBlob(ctx, key, ch.Data); err != nil {
		s.count(func(st *Stats) { st.Failed++ })
		return err
	}
	s.count(func(st *Stats) { st.Pushed++ })
	s.log.Info("pushed collection", "collection", key, "bytes", len(ch.Data))

	if s.state != nil {
		if err := s.state.MarkPushed(key, hash); err != nil {
			s.log.Warn("recording sync state", "collection", key, "error", err)
		}
	}
	return nil
}

// PushAll pushes every collection of store.
func (s *Syncer) PushAll(ctx context.Context, store *storage.Store) error {
	for _, c := range storage.Collections {
		data, err := store.ExportJSON(c)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", c, err)
		}
		if err := s.Push(ctx, storage.Change{Collection: c, Data: data}); err != nil {
			return fmt.Errorf("pushing %s: %w", c, err)
		}
	}
	return nil
}

// Pull replaces each local collection with the remote copy. Collections the
// remote does not have are left untouched. Call it before registering Hook,
// or every pulled collection is pushed straight back.
func (s *Syncer) Pull(ctx context.Context, store *storage.Store) error {
	for _, c := range storage.Collections {
		data, err := s.client.FetchBlob(ctx, string(c))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		n, err := store.ImportJSON(ctx, c, data)
		if err != nil {
			return fmt.Errorf("applying %s: %w", c, err)
		}
		if s.state != nil {
			local, err := store.ExportJSON(c)
			if err == nil {
				err = s.state.MarkPushed(string(c), HashBlob(local))
			}
			if err != nil {
				s.log.Warn("recording sync state", "collection", c, "error", err)
			}
		}
		s.count(func(st *Stats) { st.Pulled++ })
		s.log.Info("pulled collection", "collection", c, "records", n)
	}
	return nil
}

func (s *Syncer) count(fn func(*Stats)) {
	s.mu.Lock()
	fn(&s.stats)
	s.mu.Unlock()
}
