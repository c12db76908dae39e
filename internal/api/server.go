// Package api provides the read-only HTTP API for observing a running world.
// Every handler reads simulation state through Engine.View so that requests
// never see a half-applied tick.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/talgya/chronicle/internal/chronicle"
	"github.com/talgya/chronicle/internal/economy"
	"github.com/talgya/chronicle/internal/ecs"
	"github.com/talgya/chronicle/internal/engine"
	"github.com/talgya/chronicle/internal/events"
	"github.com/talgya/chronicle/internal/social"
	"github.com/talgya/chronicle/internal/treaty"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 1000
	defaultChainDepth = 8
)

// Server serves the world state over HTTP.
type Server struct {
	Engine    *engine.Engine
	Log       *events.Log
	Economy   *economy.System
	Factions  *social.Registry
	Influence *social.InfluenceSystem
	Treaties  *treaty.Enforcement
	Chronicle *chronicle.Chronicler

	// ChainLimiter bounds causal chain walks. Nil disables limiting.
	ChainLimiter *RateLimiter

	srv *http.Server
}

// Handler returns the API's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/events/{id}", s.handleEvent)
	mux.HandleFunc("GET /api/v1/events/{id}/chain", s.limited(s.handleChain))
	mux.HandleFunc("GET /api/v1/chronicle", s.handleChronicle)
	mux.HandleFunc("GET /api/v1/markets", s.handleMarkets)
	mux.HandleFunc("GET /api/v1/markets/{id}", s.handleMarket)
	mux.HandleFunc("GET /api/v1/routes", s.handleRoutes)
	mux.HandleFunc("GET /api/v1/factions", s.handleFactions)
	mux.HandleFunc("GET /api/v1/treaties", s.handleTreaties)
	mux.HandleFunc("GET /api/v1/entities/{id}", s.handleEntity)
	return corsMiddleware(mux)
}

// corsMiddleware allows browser dashboards on other origins to read the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	if s.ChainLimiter == nil {
		return next
	}
	return RateLimitMiddleware(s.ChainLimiter, next)
}

// Start listens on addr and serves in a goroutine.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", ln.Addr().String())

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Shutdown stops a started server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// eventView is the wire form of a WorldEvent with its payload flattened.
type eventView struct {
	ID           ecs.EventID    `json:"id"`
	Category     string         `json:"category"`
	Subtype      string         `json:"subtype"`
	Tick         uint64         `json:"tick"`
	When         string         `json:"when"`
	Participants []ecs.EntityID `json:"participants"`
	Location     *ecs.SiteID    `json:"location,omitempty"`
	Causes       []ecs.EventID  `json:"causes"`
	Consequences []ecs.EventID  `json:"consequences"`
	Significance int            `json:"significance"`
	Data         map[string]any `json:"data"`
}

func viewOf(ev *events.WorldEvent) eventView {
	return eventView{
		ID:           ev.ID,
		Category:     ev.Category.String(),
		Subtype:      ev.Subtype,
		Tick:         ev.Timestamp,
		When:         engine.SimTime(ev.Timestamp),
		Participants: append([]ecs.EntityID{}, ev.Participants...),
		Location:     ev.Location,
		Causes:       append([]ecs.EventID{}, ev.Causes...),
		Consequences: append([]ecs.EventID{}, ev.Consequences...),
		Significance: ev.Significance,
		Data:         ev.Fields(),
	}
}

func viewsOf(evs []*events.WorldEvent) []eventView {
	out := make([]eventView, len(evs))
	for i, ev := range evs {
		out[i] = viewOf(ev)
	}
	return out
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var resp map[string]any
	s.Engine.View(func() {
		tick := s.Engine.Clock.Tick()
		resp = map[string]any{
			"tick":      tick,
			"sim_time":  engine.SimTime(tick),
			"season":    engine.SeasonOf(tick).String(),
			"running":   s.Engine.Running(),
			"speed":     s.Engine.Speed,
			"systems":   s.Engine.Systems(),
			"failures":  s.Engine.Failures(),
			"entities":  s.Engine.World.EntityCount(),
			"events":    s.Log.Len(),
			"markets":   s.Economy.MarketCount(),
			"routes":    len(s.Economy.TradeRoutes()),
			"treaties":  len(s.Treaties.ActiveTreaties()),
			"dominant":  s.Factions.NameOf(s.Influence.Dominant()),
			"factions":  s.Factions.Len(),
			"log_epoch": s.Log.MaxID(),
		}
	})
	writeJSON(w, resp)
}

// handleEvents returns recent events, newest first. Filters: subtype,
// entity, limit.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultEventLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit = min(max(limit, 1), maxEventLimit)

	var entity ecs.EntityID
	if v := r.URL.Query().Get("entity"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid entity", http.StatusBadRequest)
			return
		}
		entity = ecs.EntityID(id)
	}
	subtype := r.URL.Query().Get("subtype")

	var out []eventView
	s.Engine.View(func() {
		var evs []*events.WorldEvent
		switch {
		case entity != 0:
			evs = s.Log.ForEntity(entity)
		case subtype != "":
			evs = s.Log.BySubtype(subtype)
		default:
			evs = s.Log.All()
		}
		out = make([]eventView, 0, limit)
		for i := len(evs) - 1; i >= 0 && len(out) < limit; i-- {
			if subtype != "" && evs[i].Subtype != subtype {
				continue
			}
			out = append(out, viewOf(evs[i]))
		}
	})
	writeJSON(w, out)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var (
		resp  map[string]any
		found bool
	)
	s.Engine.View(func() {
		ev, ok := s.Log.Get(ecs.EventID(id))
		if !ok {
			return
		}
		found = true
		resp = map[string]any{
			"event":  viewOf(ev),
			"causes": viewsOf(s.Log.Causes(ev.ID)),
		}
		if s.Chronicle != nil {
			resp["text"] = s.Chronicle.Render(ev)
		}
	})
	if !found {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}
	writeJSON(w, resp)
}

// handleChain walks consequences from one event, breadth-first.
func (s *Server) handleChain(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	depth, err := intParam(r, "depth", defaultChainDepth)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var chain []eventView
	s.Engine.View(func() {
		chain = viewsOf(s.Log.CausalChain(ecs.EventID(id), depth))
	})
	if len(chain) == 0 {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}
	writeJSON(w, chain)
}

func (s *Server) handleChronicle(w http.ResponseWriter, r *http.Request) {
	if s.Chronicle == nil {
		writeJSON(w, []chronicle.Entry{})
		return
	}
	limit, err := intParam(r, "limit", defaultEventLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit = min(max(limit, 1), maxEventLimit)

	out := []chronicle.Entry{}
	s.Engine.View(func() {
		evs := s.Log.All()
		for i := len(evs) - 1; i >= 0 && len(out) < limit; i-- {
			if s.Chronicle.Notable(evs[i]) {
				out = append(out, s.Chronicle.Entry(evs[i]))
			}
		}
	})
	writeJSON(w, out)
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	type summary struct {
		SettlementID ecs.SiteID    `json:"settlement_id"`
		Name         string        `json:"name"`
		FactionID    ecs.FactionID `json:"faction_id"`
		Terrain      string        `json:"terrain"`
		Population   int           `json:"population"`
		Speciality   string        `json:"specialization"`
		Wealth       float64       `json:"wealth"`
		Shortages    []string      `json:"shortages"`
	}
	var out []summary
	s.Engine.View(func() {
		for _, m := range s.Economy.Markets() {
			sm := summary{
				SettlementID: m.SettlementID,
				Name:         m.Name,
				FactionID:    m.FactionID,
				Terrain:      m.Terrain.String(),
				Population:   m.Population,
				Speciality:   m.Specialization.String(),
				Wealth:       m.Wealth(),
				Shortages:    []string{},
			}
			for _, res := range economy.AllResources() {
				if m.InShortage(res) {
					sm.Shortages = append(sm.Shortages, res.String())
				}
			}
			out = append(out, sm)
		}
	})
	writeJSON(w, out)
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body []byte
	var err error
	s.Engine.View(func() {
		m, found := s.Economy.Market(ecs.SiteID(id))
		if !found {
			return
		}
		body, err = json.Marshal(map[string]any{
			"market": m,
			"routes": s.Economy.RoutesFor(m.SettlementID),
		})
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if body == nil {
		http.Error(w, "market not found", http.StatusNotFound)
		return
	}
	writeRaw(w, body)
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	var body []byte
	var err error
	s.Engine.View(func() {
		body, err = json.Marshal(s.Economy.TradeRoutes())
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeRaw(w, body)
}

func (s *Server) handleFactions(w http.ResponseWriter, r *http.Request) {
	var body []byte
	var err error
	s.Engine.View(func() {
		body, err = json.Marshal(map[string]any{
			"dominant": s.Influence.Dominant(),
			"factions": s.Factions.All(),
		})
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeRaw(w, body)
}

// handleTreaties lists active treaties; ?all=1 includes lapsed ones.
func (s *Server) handleTreaties(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all") != ""
	var out []treaty.Treaty
	s.Engine.View(func() {
		if all {
			out = s.Treaties.All()
		} else {
			out = s.Treaties.ActiveTreaties()
		}
	})
	writeJSON(w, out)
}

// handleEntity returns every component an entity holds, keyed by type name.
func (s *Server) handleEntity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e := ecs.EntityID(id)
	var (
		body  []byte
		err   error
		alive bool
	)
	s.Engine.View(func() {
		world := s.Engine.World
		if !world.IsAlive(e) {
			return
		}
		alive = true
		comps := make(map[string]ecs.Component)
		for _, name := range world.ComponentTypes() {
			if c, ok := world.GetComponent(e, name); ok {
				comps[name] = c
			}
		}
		body, err = json.Marshal(map[string]any{"id": e, "components": comps})
	})
	if !alive {
		http.Error(w, "entity not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeRaw(w, body)
}

func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("api write failed", "error", err)
	}
}

func writeRaw(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(append(body, '\n'))
}
