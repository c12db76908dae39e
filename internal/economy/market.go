package economy

import (
	"github.com/talgya/chronicle/internal/ecs"
	"github.com/talgya/chronicle/internal/world"
)

// PriceEntry is the supply/demand state for one resource in one market.
type PriceEntry struct {
	Price  float64 `json:"price"`
	Supply float64 `json:"supply"` // Available this month: stockpile plus production
	Demand float64 `json:"demand"`
	Trend  Trend   `json:"trend"`
}

// Market holds the economic state of a single settlement.
type Market struct {
	SettlementID ecs.SiteID     `json:"settlement_id"`
	Name         string         `json:"name"`
	FactionID    ecs.FactionID  `json:"faction_id"`
	Coord        world.HexCoord `json:"coord"`
	Terrain      world.Terrain  `json:"terrain"`

	Population    int      `json:"population"`
	TechLevel     int      `json:"tech_level"`
	Industries    []string `json:"industries"`
	TradeOpenness float64  `json:"trade_openness"` // 0–100

	Specialization Resource                 `json:"specialization"`
	Prices         map[Resource]*PriceEntry `json:"prices"`
	Stockpile      map[Resource]float64     `json:"stockpile"`
	Production     map[Resource]float64     `json:"production"` // Last month's output

	// Resources currently in shortage or surplus; events fire on entry.
	shortages map[Resource]bool
	surpluses map[Resource]bool
}

// NewMarket creates a market with every resource at base price and an
// empty stockpile. The specialization follows the terrain.
func NewMarket(id ecs.SiteID, terrain world.Terrain) *Market {
	m := &Market{
		SettlementID:   id,
		Terrain:        terrain,
		Specialization: SpecializationFor(terrain),
		TradeOpenness:  50,
		Prices:         make(map[Resource]*PriceEntry, resourceCount),
		Stockpile:      make(map[Resource]float64, resourceCount),
		Production:     make(map[Resource]float64, resourceCount),
		shortages:      make(map[Resource]bool),
		surpluses:      make(map[Resource]bool),
	}
	for _, r := range AllResources() {
		m.Prices[r] = &PriceEntry{Price: BasePrice(r), Supply: 1, Demand: 1}
	}
	return m
}

// ensure fills maps left nil by a hand-built Market.
func (m *Market) ensure() {
	if m.Prices == nil {
		m.Prices = make(map[Resource]*PriceEntry, resourceCount)
	}
	for _, r := range AllResources() {
		if m.Prices[r] == nil {
			m.Prices[r] = &PriceEntry{Price: BasePrice(r), Supply: 1, Demand: 1}
		}
	}
	if m.Stockpile == nil {
		m.Stockpile = make(map[Resource]float64, resourceCount)
	}
	if m.Production == nil {
		m.Production = make(map[Resource]float64, resourceCount)
	}
	if m.shortages == nil {
		m.shortages = make(map[Resource]bool)
	}
	if m.surpluses == nil {
		m.surpluses = make(map[Resource]bool)
	}
}

// Price returns the current price of r.
func (m *Market) Price(r Resource) float64 {
	if e, ok := m.Prices[r]; ok {
		return e.Price
	}
	return BasePrice(r)
}

// ProductionOf returns this market's monthly output of r at its current
// population and tech.
func (m *Market) ProductionOf(r Resource) float64 {
	return CalculateProduction(r, m.Terrain, m.Population, m.TechLevel, m.Specialization)
}

// DemandOf returns this market's monthly demand for r.
func (m *Market) DemandOf(r Resource) float64 {
	return CalculateDemand(r, m.Population, m.Industries)
}

// Resolve reprices the entry from its supply and demand and records the
// trend against the previous price.
func (e *PriceEntry) Resolve(r Resource, modifier float64) {
	old := e.Price
	e.Price = CalculatePrice(r, e.Supply, e.Demand, modifier)
	e.Trend = DetermineTrend(old, e.Price)
}

// InShortage reports whether r is currently flagged as short.
func (m *Market) InShortage(r Resource) bool {
	return m.shortages[r]
}

// InSurplus reports whether r is currently flagged as in surplus.
func (m *Market) InSurplus(r Resource) bool {
	return m.surpluses[r]
}

// Wealth values the stockpile at current prices.
func (m *Market) Wealth() float64 {
	total := 0.0
	for _, r := range AllResources() {
		total += m.Stockpile[r] * m.Price(r)
	}
	return total
}
