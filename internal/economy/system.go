package economy

import (
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"github.com/talgya/chronicle/internal/component"
	"github.com/talgya/chronicle/internal/ecs"
	"github.com/talgya/chronicle/internal/engine"
	"github.com/talgya/chronicle/internal/events"
	"github.com/talgya/chronicle/internal/world"
)

// maxGoodsPerRoute caps how many resources one route carries.
const maxGoodsPerRoute = 3

// Config tunes the economic system.
type Config struct {
	Frequency          uint64  // Ticks between executions
	ShortageRatio      float64 // Shortage when available < demand × ratio
	SurplusRatio       float64 // Surplus when stockpile > demand × ratio
	SpikeRatio         float64 // Spike when price rises by this factor; crash when it falls by it
	MaxTradeDistance   int     // Hexes
	MinRouteProfit     float64 // Percent margin needed to open a route
	MaxRoutesPerMarket int
	BaseRouteVolume    float64 // Units per month on a mature, safe, break-even route
	MinTradeOpenness   float64 // Markets below this never open routes
	SpoilageRate       float64 // Monthly loss on perishable stockpiles
	Seed               int64   // Treaty enforcement rolls
}

// DefaultConfig returns the monthly economy.
func DefaultConfig() Config {
	return Config{
		Frequency:          engine.TicksPerMonth,
		ShortageRatio:      0.5,
		SurplusRatio:       3.0,
		SpikeRatio:         1.5,
		MaxTradeDistance:   8,
		MinRouteProfit:     15,
		MaxRoutesPerMarket: 3,
		BaseRouteVolume:    20,
		MinTradeOpenness:   10,
		SpoilageRate:       0.1,
		Seed:               1,
	}
}

// System owns every settlement market and trade route. Markets are created
// by Initialize for each entity with Economy, Population, Biome, Ownership
// and Position, or injected with AddMarket.
type System struct {
	cfg      Config
	treaties TreatyQuery
	factory  *events.Factory
	logger   *slog.Logger
	rng      *rand.Rand

	markets     map[ecs.SiteID]*Market
	routes      map[ecs.TradeRouteID]*TradeRoute
	routeIDs    *ecs.Sequence[ecs.TradeRouteID]
	initialized bool
}

// NewSystem creates an economic system. treaties may be nil, in which case
// all trade is allowed.
func NewSystem(cfg Config, factory *events.Factory, treaties TreatyQuery) *System {
	if cfg.Frequency == 0 {
		cfg.Frequency = engine.TicksPerMonth
	}
	if factory == nil {
		factory = events.NewFactory()
	}
	return &System{
		cfg:      cfg,
		treaties: treaties,
		factory:  factory,
		logger:   slog.Default(),
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		markets:  make(map[ecs.SiteID]*Market),
		routes:   make(map[ecs.TradeRouteID]*TradeRoute),
		routeIDs: ecs.NewSequence[ecs.TradeRouteID](),
	}
}

// SetLogger replaces the system's logger.
func (s *System) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

func (s *System) Name() string      { return "economy" }
func (s *System) Frequency() uint64 { return s.cfg.Frequency }

// Config returns the active configuration.
func (s *System) Config() Config { return s.cfg }

// Initialized reports whether Initialize has run since the last Clear.
func (s *System) Initialized() bool { return s.initialized }

// Initialize creates a market for every qualifying settlement that does not
// have one yet.
func (s *System) Initialize(w *ecs.World) error {
	if w == nil {
		return nil
	}
	for _, e := range w.Query(
		component.TypeEconomy, component.TypePopulation, component.TypeBiome,
		component.TypeOwnership, component.TypePosition,
	) {
		id := ecs.SiteID(e)
		if _, ok := s.markets[id]; ok {
			continue
		}
		biome, ok := ecs.Get[*component.Biome](w, e)
		if !ok {
			continue
		}
		m := NewMarket(id, biome.Terrain)
		s.refresh(w, m)
		s.seed(m)
		s.markets[id] = m
		s.logger.Debug("market created",
			"settlement", id, "name", m.Name, "terrain", m.Terrain, "specialization", m.Specialization)
	}
	s.initialized = true
	s.logger.Info("economy initialized", "markets", len(s.markets))
	return nil
}

// refresh copies the settlement's current components into its market.
// Markets without a living entity keep their last values.
func (s *System) refresh(w *ecs.World, m *Market) {
	e := ecs.Entity(m.SettlementID)
	if !w.IsAlive(e) {
		return
	}
	if pop, ok := ecs.Get[*component.Population](w, e); ok {
		m.Population = pop.Count
	}
	if eco, ok := ecs.Get[*component.Economy](w, e); ok {
		m.TechLevel = eco.TechLevel
		m.Industries = append(m.Industries[:0], eco.Industries...)
		m.TradeOpenness = eco.TradeOpenness
	}
	if own, ok := ecs.Get[*component.Ownership](w, e); ok {
		m.FactionID = own.FactionID
	}
	if pos, ok := ecs.Get[*component.Position](w, e); ok {
		m.Coord = pos.Hex()
	}
	if name := component.NameOf(w, e); name != "" {
		m.Name = name
	}
}

// seed gives a new market a stockpile that exactly covers the first month,
// so opening prices sit at base wherever production falls short.
func (s *System) seed(m *Market) {
	for _, r := range AllResources() {
		prod := m.ProductionOf(r)
		demand := m.DemandOf(r)
		m.Stockpile[r] = math.Max(demand-prod, 0)
		m.Production[r] = prod
		e := m.Prices[r]
		e.Supply = m.Stockpile[r] + prod
		e.Demand = demand
		e.Price = CalculatePrice(r, e.Supply, e.Demand, 1)
		e.Trend = Stable
	}
}

// Execute runs one economic month: production and consumption, pricing
// with shortage, surplus and price events, trade along existing routes with
// treaty checks, then formation of new routes.
func (s *System) Execute(w *ecs.World, clock *engine.Clock, bus *events.Bus) error {
	if len(s.markets) == 0 {
		return nil
	}
	tick := clock.Tick()
	season := clock.Season()

	for _, m := range s.Markets() {
		if w != nil {
			s.refresh(w, m)
		}
		s.updateMarket(m, tick, season, bus)
	}
	s.executeRoutes(tick, bus)
	s.formRoutes(tick, bus)
	return nil
}

func (s *System) updateMarket(m *Market, tick uint64, season engine.Season, bus *events.Bus) {
	m.ensure()
	for _, r := range AllResources() {
		entry := m.Prices[r]
		prod := m.ProductionOf(r)
		demand := m.DemandOf(r)

		stock := m.Stockpile[r]
		if r.Perishable() {
			stock *= 1 - s.cfg.SpoilageRate
		}
		available := stock + prod
		consumed := math.Min(available, demand)
		m.Stockpile[r] = available - consumed
		m.Production[r] = prod

		oldPrice := entry.Price
		entry.Supply = available
		entry.Demand = demand
		entry.Resolve(r, SeasonalModifier(season, r))

		var shortageID ecs.EventID
		short := demand > 0 && available < demand*s.cfg.ShortageRatio
		if short && !m.shortages[r] {
			sig := 30 + int(20*(1-available/demand))
			if r == Food || r == Fish {
				sig += 15
			}
			shortageID = s.emit(bus, m, tick, events.Params{
				Subtype:      SubtypeShortage,
				Data:         ShortagePayload{Settlement: m.Name, Resource: r, Available: available, Demand: demand},
				Significance: sig,
				Potential: []events.Hook{
					{Subtype: SubtypePriceSpike, Probability: 0.6},
					{Subtype: "politics.unrest", Probability: 0.2},
				},
			})
		}
		m.shortages[r] = short

		surplus := demand > 0 && m.Stockpile[r] > demand*s.cfg.SurplusRatio
		if surplus && !m.surpluses[r] {
			s.emit(bus, m, tick, events.Params{
				Subtype:      SubtypeSurplus,
				Data:         SurplusPayload{Settlement: m.Name, Resource: r, Stockpile: m.Stockpile[r], Demand: demand},
				Significance: 15,
				Potential:    []events.Hook{{Subtype: SubtypeRouteEstablished, Probability: 0.3}},
			})
		}
		m.surpluses[r] = surplus

		switch {
		case oldPrice > 0 && entry.Price >= oldPrice*s.cfg.SpikeRatio:
			var causes []ecs.EventID
			if shortageID != 0 {
				causes = []ecs.EventID{shortageID}
			}
			s.emit(bus, m, tick, events.Params{
				Subtype:      SubtypePriceSpike,
				Causes:       causes,
				Data:         PricePayload{Settlement: m.Name, Resource: r, OldPrice: oldPrice, NewPrice: entry.Price},
				Significance: 30 + int(10*(entry.Price/oldPrice-1)),
			})
		case entry.Price > 0 && entry.Price*s.cfg.SpikeRatio <= oldPrice:
			s.emit(bus, m, tick, events.Params{
				Subtype:      SubtypePriceCrash,
				Data:         PricePayload{Settlement: m.Name, Resource: r, OldPrice: oldPrice, NewPrice: entry.Price},
				Significance: 25,
			})
		}
	}
}

// emit stamps market context onto p, publishes it, and returns the new
// event's id, or zero if the bus refused it.
func (s *System) emit(bus *events.Bus, m *Market, tick uint64, p events.Params) ecs.EventID {
	p.Category = events.Economic
	p.Timestamp = tick
	if len(p.Participants) == 0 {
		p.Participants = marketParticipants(m)
	}
	if p.Location == nil {
		loc := m.SettlementID
		p.Location = &loc
	}
	ev := s.factory.Create(p)
	if bus == nil {
		return 0
	}
	if err := bus.Emit(ev); err != nil {
		s.logger.Warn("economy event delivery", "subtype", ev.Subtype, "error", err)
		if errors.Is(err, events.ErrCascadeDepthExceeded) ||
			errors.Is(err, events.ErrReentrantEvent) ||
			errors.Is(err, events.ErrDuplicateEvent) {
			return 0
		}
	}
	return ev.ID
}

func marketParticipants(m *Market) []ecs.EntityID {
	out := []ecs.EntityID{ecs.Entity(m.SettlementID)}
	if m.FactionID != 0 {
		out = append(out, ecs.Entity(m.FactionID))
	}
	return out
}

func (s *System) executeRoutes(tick uint64, bus *events.Bus) {
	for _, route := range s.TradeRoutes() {
		src, ok := s.markets[route.Source]
		if !ok {
			continue
		}
		dst, ok := s.markets[route.Target]
		if !ok {
			continue
		}
		s.checkViolations(route, src, dst, tick, bus)

		var carried []Resource
		for _, r := range route.Resources {
			if !route.Suspended[r] {
				carried = append(carried, r)
			}
		}
		if len(carried) == 0 {
			continue
		}

		share := 1 / float64(len(carried))
		moved, profitSum := 0.0, 0.0
		for _, r := range carried {
			profit := CalculateTradeProfitability(src, dst, r)
			want := CalculateTradeVolume(s.cfg.BaseRouteVolume, route.Safety, profit, route.IsNew()) * share
			qty := math.Max(math.Min(want, src.Stockpile[r]), 0)
			src.Stockpile[r] -= qty
			dst.Stockpile[r] += qty
			moved += qty
			profitSum += profit
		}
		route.Volume = moved
		route.Profitability = profitSum / float64(len(carried))
		route.Delivered += moved
		route.Executions++
	}
}

// checkViolations reports each route resource that breaches an active
// exclusivity term, once per resource and treaty. The term's enforceability
// is the chance the resource is suspended on the route.
func (s *System) checkViolations(route *TradeRoute, src, dst *Market, tick uint64, bus *events.Bus) {
	if s.treaties == nil {
		return
	}
	for _, r := range route.Resources {
		if route.Suspended[r] {
			continue
		}
		dec := checkRouteAllowed(route.SourceFaction, route.TargetFaction, r, s.treaties)
		if dec.Allowed || dec.Blocking == nil {
			continue
		}
		term := dec.Blocking
		key := violationKey{resource: r, treaty: term.TreatyID}
		if route.reported == nil {
			route.reported = make(map[violationKey]bool)
		}
		if route.reported[key] {
			continue
		}
		route.reported[key] = true

		suspended := s.rng.Float64() < float64(term.Enforceability)/100
		if suspended {
			if route.Suspended == nil {
				route.Suspended = make(map[Resource]bool)
			}
			route.Suspended[r] = true
		}

		violator, partner := route.SourceFaction, route.TargetFaction
		if !term.Binds(violator) {
			violator, partner = partner, violator
		}
		s.logger.Info("trade exclusivity violated",
			"route", route.ID, "resource", r, "treaty", term.Treaty, "suspended", suspended)

		participants := []ecs.EntityID{ecs.Entity(src.SettlementID), ecs.Entity(dst.SettlementID)}
		for _, f := range []ecs.FactionID{violator, partner} {
			if f != 0 {
				participants = append(participants, ecs.Entity(f))
			}
		}
		s.emit(bus, src, tick, events.Params{
			Subtype:      SubtypeExclusivityViolated,
			Participants: participants,
			Data: ViolationPayload{
				RouteID:        route.ID,
				Resource:       r,
				TreatyID:       term.TreatyID,
				Treaty:         term.Treaty,
				Violator:       violator,
				Partner:        partner,
				Enforceability: term.Enforceability,
				Suspended:      suspended,
			},
			Significance: 50 + term.Enforceability/5,
			Potential: []events.Hook{
				{Subtype: "diplomacy.treaty_dispute", Probability: float64(term.Enforceability) / 100},
			},
		})
	}
}

type candidate struct {
	resource Resource
	profit   float64
}

// formRoutes links market pairs, in ascending id order, that are close
// enough, open to trade, not already linked and below their route cap.
func (s *System) formRoutes(tick uint64, bus *events.Bus) {
	markets := s.Markets()
	counts := make(map[ecs.SiteID]int, len(markets))
	for _, r := range s.routes {
		counts[r.Source]++
		counts[r.Target]++
	}

	for i := 0; i < len(markets); i++ {
		for j := i + 1; j < len(markets); j++ {
			a, b := markets[i], markets[j]
			if counts[a.SettlementID] >= s.cfg.MaxRoutesPerMarket || counts[b.SettlementID] >= s.cfg.MaxRoutesPerMarket {
				continue
			}
			if a.TradeOpenness < s.cfg.MinTradeOpenness || b.TradeOpenness < s.cfg.MinTradeOpenness {
				continue
			}
			if s.linked(a.SettlementID, b.SettlementID) {
				continue
			}
			dist := world.Distance(a.Coord, b.Coord)
			if dist > s.cfg.MaxTradeDistance {
				continue
			}

			src, dst, goods := s.bestGoods(a, b)
			if len(goods) == 0 {
				continue
			}
			resources := make([]Resource, len(goods))
			for k, g := range goods {
				resources[k] = g.resource
			}
			safety := RouteSafety(dist)
			route := &TradeRoute{
				ID:            s.routeIDs.Next(),
				Source:        src.SettlementID,
				Target:        dst.SettlementID,
				SourceFaction: src.FactionID,
				TargetFaction: dst.FactionID,
				Resources:     resources,
				Safety:        safety,
				Profitability: goods[0].profit,
				Volume:        CalculateTradeVolume(s.cfg.BaseRouteVolume, safety, goods[0].profit, true),
				EstablishedAt: tick,
				Suspended:     make(map[Resource]bool),
				reported:      make(map[violationKey]bool),
			}
			s.routes[route.ID] = route
			counts[src.SettlementID]++
			counts[dst.SettlementID]++

			s.logger.Debug("trade route established",
				"route", route.ID, "from", src.Name, "to", dst.Name, "goods", len(resources))

			participants := []ecs.EntityID{ecs.Entity(src.SettlementID), ecs.Entity(dst.SettlementID)}
			s.emit(bus, src, tick, events.Params{
				Subtype:      SubtypeRouteEstablished,
				Participants: participants,
				Data: RoutePayload{
					RouteID:       route.ID,
					Source:        src.Name,
					Target:        dst.Name,
					Resources:     resources,
					Volume:        route.Volume,
					Safety:        safety,
					Profitability: route.Profitability,
				},
				Significance: 40,
			})
		}
	}
}

// bestGoods picks the more profitable direction between a and b and the
// resources worth carrying that way, best first.
func (s *System) bestGoods(a, b *Market) (src, dst *Market, goods []candidate) {
	ab := s.profitableGoods(a, b)
	ba := s.profitableGoods(b, a)
	switch {
	case len(ab) == 0 && len(ba) == 0:
		return a, b, nil
	case len(ba) == 0 || (len(ab) > 0 && ab[0].profit >= ba[0].profit):
		return a, b, ab
	default:
		return b, a, ba
	}
}

func (s *System) profitableGoods(src, dst *Market) []candidate {
	var out []candidate
	for _, r := range AllResources() {
		if src.Stockpile[r] <= 0 {
			continue
		}
		profit := CalculateTradeProfitability(src, dst, r)
		if profit < s.cfg.MinRouteProfit {
			continue
		}
		if !checkRouteAllowed(src.FactionID, dst.FactionID, r, s.treaties).Allowed {
			continue
		}
		out = append(out, candidate{resource: r, profit: profit})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].profit > out[j].profit })
	if len(out) > maxGoodsPerRoute {
		out = out[:maxGoodsPerRoute]
	}
	return out
}

func (s *System) linked(a, b ecs.SiteID) bool {
	for _, r := range s.routes {
		if r.Connects(a, b) {
			return true
		}
	}
	return false
}

// AddMarket injects a market directly, replacing any market for the same
// settlement.
func (s *System) AddMarket(m *Market) {
	m.ensure()
	s.markets[m.SettlementID] = m
}

// AddTradeRoute injects a route. A zero ID is assigned from the route
// sequence; an explicit ID moves the sequence past it.
func (s *System) AddTradeRoute(r *TradeRoute) ecs.TradeRouteID {
	if r.ID == 0 {
		r.ID = s.routeIDs.Next()
	} else {
		s.routeIDs.SetNext(r.ID + 1)
	}
	if r.Suspended == nil {
		r.Suspended = make(map[Resource]bool)
	}
	if r.reported == nil {
		r.reported = make(map[violationKey]bool)
	}
	s.routes[r.ID] = r
	return r.ID
}

// Market returns the market for a settlement.
func (s *System) Market(id ecs.SiteID) (*Market, bool) {
	m, ok := s.markets[id]
	return m, ok
}

// Markets returns every market ordered by settlement id.
func (s *System) Markets() []*Market {
	out := make([]*Market, 0, len(s.markets))
	for _, m := range s.markets {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SettlementID < out[j].SettlementID })
	return out
}

// MarketCount returns the number of markets.
func (s *System) MarketCount() int {
	return len(s.markets)
}

// TradeRoute returns the route with the given id.
func (s *System) TradeRoute(id ecs.TradeRouteID) (*TradeRoute, bool) {
	r, ok := s.routes[id]
	return r, ok
}

// TradeRoutes returns every route ordered by id.
func (s *System) TradeRoutes() []*TradeRoute {
	out := make([]*TradeRoute, 0, len(s.routes))
	for _, r := range s.routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RoutesFor returns the routes touching a settlement, ordered by id.
func (s *System) RoutesFor(id ecs.SiteID) []*TradeRoute {
	var out []*TradeRoute
	for _, r := range s.TradeRoutes() {
		if r.Source == id || r.Target == id {
			out = append(out, r)
		}
	}
	return out
}

// Clear wipes all markets and routes and rewinds the route sequence and
// enforcement rolls, returning the system to its uninitialized state.
func (s *System) Clear() {
	s.markets = make(map[ecs.SiteID]*Market)
	s.routes = make(map[ecs.TradeRouteID]*TradeRoute)
	s.routeIDs.Reset()
	s.rng = rand.New(rand.NewSource(s.cfg.Seed))
	s.initialized = false
}
