package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/babytrack/internal/models"
	"github.com/claude/babytrack/internal/stats"
	"github.com/claude/babytrack/internal/storage"
	"github.com/go-chi/chi/v5"
	"tailscale.com/client/local"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store         *storage.Store
	engine        *stats.Engine
	log           *slog.Logger
	apiKey        string
	defaultWindow int
	ts            *local.Client
	router        chi.Router
}

// New creates a new Server with all routes configured.
func New(store *storage.Store, engine *stats.Engine, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		store:         store,
		engine:        engine,
		log:           log,
		apiKey:        apiKey,
		defaultWindow: 7,
		router:        chi.NewRouter(),
	}
	s.routes()
	return s
}

// SetTailscale enables identity lookup through the tsnet local client.
func (s *Server) SetTailscale(lc *local.Client) {
	s.ts = lc
}

// SetDefaultWindow sets the number of periods returned when a statistics
// request has no window parameter.
func (s *Server) SetDefaultWindow(n int) {
	if n > 0 {
		s.defaultWindow = n
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(s.identity)

	s.router.Get("/api/v1/me", s.handleMe)

	s.router.Route("/api/v1/stats/{kind}", func(r chi.Router) {
		r.Get("/", s.handleStatistics)
		r.Get("/chart", s.handleChart)
		r.Get("/range", s.handleRangeSummary)
		r.Get("/distribution", s.handleDistribution)
		r.Get("/timing", s.handleSleepTiming)
	})
	s.router.Get("/api/v1/data/stats", s.handleDataStats)

	// Bulk and sync endpoints (API key required)
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Get("/api/v1/export", s.handleExport)
		r.Post("/api/v1/import", s.handleImport)
		r.Get("/api/v1/kv/{key}", s.handleKVGet)
		r.Put("/api/v1/kv/{key}", s.handleKVPut)
	})

	mountTable(s, s.store.Sleep, prepareSleep)
	mountTable(s, s.store.Meals, prepareMeal)
	mountTable(s, s.store.Water, prepareWater)
	mountTable(s, s.store.Milestones, prepareMilestone)
	mountTable(s, s.store.Notes, prepareNote)
}

// mountTable registers list/insert/update/delete routes for one collection.
// Reads are open; writes need the API key.
func mountTable[T models.Record](s *Server, t *storage.Table[T], prepare prepareFunc[T]) {
	base := "/api/v1/" + string(t.Name())
	s.router.Get(base, listRecords(s, t))
	s.router.Get(base+"/{id}", getRecord(t))
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post(base, insertRecord(s, t, prepare))
		r.Put(base+"/{id}", updateRecord(s, t, prepare))
		r.Delete(base+"/{id}", deleteRecord(s, t))
	})
}
