package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/chronicle/internal/component"
	"github.com/talgya/chronicle/internal/ecs"
	"github.com/talgya/chronicle/internal/engine"
	"github.com/talgya/chronicle/internal/events"
	"github.com/talgya/chronicle/internal/treaty"
	"github.com/talgya/chronicle/internal/world"
)

type settlementSpec struct {
	name       string
	terrain    world.Terrain
	x, y       int
	population int
	tech       int
	industries []string
	faction    ecs.FactionID
}

func newWorld(t *testing.T, specs ...settlementSpec) (*ecs.World, []ecs.EntityID) {
	t.Helper()
	w := ecs.NewWorld()
	component.RegisterAll(w)
	ids := make([]ecs.EntityID, 0, len(specs))
	for _, s := range specs {
		e := w.CreateEntity()
		for _, c := range []ecs.Component{
			&component.Name{Value: s.name},
			&component.Position{X: s.x, Y: s.y},
			&component.Population{Count: s.population},
			&component.Economy{TechLevel: s.tech, Industries: s.industries, TradeOpenness: 60},
			&component.Biome{Terrain: s.terrain},
			&component.Ownership{FactionID: s.faction},
		} {
			require.NoError(t, w.AddComponent(e, c))
		}
		ids = append(ids, e)
	}
	return w, ids
}

func monthClock(months uint64) *engine.Clock {
	c := engine.NewClock()
	c.SetTick(months * engine.TicksPerMonth)
	return c
}

func TestInitializeCreatesMarketPerSettlement(t *testing.T) {
	w, ids := newWorld(t,
		settlementSpec{name: "Elmwood", terrain: world.TerrainForest, population: 500, tech: 5, faction: 1},
		settlementSpec{name: "Stonehelm", terrain: world.TerrainMountain, x: 3, population: 800, tech: 4, faction: 2},
	)
	// A settlement missing Ownership is not a market.
	stray := w.CreateEntity()
	require.NoError(t, w.AddComponent(stray, &component.Population{Count: 50}))

	sys := NewSystem(DefaultConfig(), events.NewFactory(), nil)
	require.NoError(t, sys.Initialize(w))
	assert.True(t, sys.Initialized())
	assert.Equal(t, 2, sys.MarketCount())

	forest, ok := sys.Market(ecs.SiteID(ids[0]))
	require.True(t, ok)
	assert.Equal(t, Timber, forest.Specialization)
	assert.Equal(t, "Elmwood", forest.Name)
	assert.Equal(t, 500, forest.Population)

	mountain, ok := sys.Market(ecs.SiteID(ids[1]))
	require.True(t, ok)
	assert.Equal(t, Stone, mountain.Specialization)

	require.NoError(t, sys.Initialize(w))
	assert.Equal(t, 2, sys.MarketCount(), "initialize does not duplicate markets")
}

func TestExecuteOnEmptyWorldIsNoop(t *testing.T) {
	w := ecs.NewWorld()
	log := events.NewLog()
	sys := NewSystem(DefaultConfig(), events.NewFactory(), nil)
	require.NoError(t, sys.Initialize(w))
	require.NoError(t, sys.Execute(w, monthClock(1), events.NewBus(events.WithLog(log))))
	assert.Zero(t, sys.MarketCount())
	assert.Zero(t, log.Len())
}

func TestIronPriceRisesWhenStockRunsOutAndDemandClimbs(t *testing.T) {
	w, ids := newWorld(t,
		settlementSpec{name: "Elmwood", terrain: world.TerrainForest, population: 500, tech: 5, faction: 1},
	)
	sys := NewSystem(DefaultConfig(), events.NewFactory(), nil)
	require.NoError(t, sys.Initialize(w))

	m, ok := sys.Market(ecs.SiteID(ids[0]))
	require.True(t, ok)
	before := m.Price(Iron)

	m.Stockpile[Iron] = 0.01
	eco, ok := ecs.Get[*component.Economy](w, ids[0])
	require.True(t, ok)
	eco.Industries = []string{"smithing", "armory"}

	require.NoError(t, sys.Execute(w, monthClock(1), events.NewBus()))
	assert.Greater(t, m.Price(Iron), before)
	assert.Equal(t, Rising, m.Prices[Iron].Trend)
}

func TestPriceSpikeNamesShortageAsCause(t *testing.T) {
	log := events.NewLog()
	bus := events.NewBus(events.WithLog(log))
	sys := NewSystem(DefaultConfig(), events.NewFactory(), nil)

	m := NewMarket(7, world.TerrainDesert)
	m.Name = "Dunmere"
	m.Population = 1000
	sys.AddMarket(m)

	require.NoError(t, sys.Execute(nil, monthClock(1), bus))

	shortages := log.BySubtype(SubtypeShortage)
	spikes := log.BySubtype(SubtypePriceSpike)
	var foodShortage, foodSpike *events.WorldEvent
	for _, ev := range shortages {
		if ev.Fields()["resource"] == "Food" {
			foodShortage = ev
		}
	}
	for _, ev := range spikes {
		if ev.Fields()["resource"] == "Food" {
			foodSpike = ev
		}
	}
	require.NotNil(t, foodShortage)
	require.NotNil(t, foodSpike)
	assert.Equal(t, []ecs.EventID{foodShortage.ID}, foodSpike.Causes)
	assert.Contains(t, foodShortage.Consequences, foodSpike.ID)
	assert.Equal(t, events.Economic, foodSpike.Category)
	require.NotNil(t, foodSpike.Location)
	assert.Equal(t, ecs.SiteID(7), *foodSpike.Location)

	// The shortage persists but is only reported on entry.
	require.NoError(t, sys.Execute(nil, monthClock(2), bus))
	count := 0
	for _, ev := range log.BySubtype(SubtypeShortage) {
		if ev.Fields()["resource"] == "Food" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestRouteFormsBetweenComplementaryMarkets(t *testing.T) {
	w, ids := newWorld(t,
		settlementSpec{name: "Elmwood", terrain: world.TerrainForest, population: 1500, tech: 4, faction: 1},
		settlementSpec{name: "Saltmarsh", terrain: world.TerrainCoast, x: 2, population: 1500, tech: 4, faction: 2,
			industries: []string{"carpentry"}},
		settlementSpec{name: "Farreach", terrain: world.TerrainTundra, x: 40, population: 300, tech: 1, faction: 2},
	)
	log := events.NewLog()
	bus := events.NewBus(events.WithLog(log))
	sys := NewSystem(DefaultConfig(), events.NewFactory(), nil)
	require.NoError(t, sys.Initialize(w))

	for month := uint64(1); month <= 3; month++ {
		require.NoError(t, sys.Execute(w, monthClock(month), bus))
	}

	routes := sys.TradeRoutes()
	require.NotEmpty(t, routes)
	r := routes[0]
	assert.True(t, r.Connects(ecs.SiteID(ids[0]), ecs.SiteID(ids[1])))
	assert.InDelta(t, RouteSafety(2), r.Safety, 1e-9)
	assert.Empty(t, sys.RoutesFor(ecs.SiteID(ids[2])), "too far to trade")

	established := log.BySubtype(SubtypeRouteEstablished)
	require.NotEmpty(t, established)
	assert.Equal(t, uint64(r.ID), established[0].Fields()["route_id"])
	assert.Positive(t, r.Executions)
}

func TestRouteSafety(t *testing.T) {
	assert.Equal(t, 100.0, RouteSafety(0))
	assert.Equal(t, 90.0, RouteSafety(2))
	assert.Equal(t, 10.0, RouteSafety(30))
}

func TestExclusivityViolationReportedOnceAndSuspends(t *testing.T) {
	const guild, outsider, partner ecs.FactionID = 1, 2, 3
	enf := treaty.NewEnforcement()
	_, err := enf.RegisterTreaty(treaty.Treaty{
		Name:    "Timber Charter",
		Parties: []ecs.FactionID{guild, partner},
		Terms: []treaty.Term{{
			Type:           treaty.TradeExclusivity,
			Resources:      []string{"Timber"},
			Enforceability: 100,
		}},
	})
	require.NoError(t, err)

	log := events.NewLog()
	bus := events.NewBus(events.WithLog(log))
	sys := NewSystem(DefaultConfig(), events.NewFactory(), enf)

	src := NewMarket(10, world.TerrainForest)
	src.FactionID = guild
	src.Population = 800
	dst := NewMarket(11, world.TerrainPlains)
	dst.FactionID = outsider
	dst.Population = 800
	dst.Coord = world.HexCoord{Q: 1}
	sys.AddMarket(src)
	sys.AddMarket(dst)
	id := sys.AddTradeRoute(&TradeRoute{
		Source: 10, Target: 11, SourceFaction: guild, TargetFaction: outsider,
		Resources: []Resource{Timber, Stone}, Safety: 90,
	})
	assert.Equal(t, ecs.TradeRouteID(1), id)

	require.NoError(t, sys.Execute(nil, monthClock(1), bus))
	require.NoError(t, sys.Execute(nil, monthClock(2), bus))

	violations := log.BySubtype(SubtypeExclusivityViolated)
	require.Len(t, violations, 1)
	f := violations[0].Fields()
	assert.Equal(t, "Timber", f["resource"])
	assert.Equal(t, uint64(guild), f["violator"])
	assert.Equal(t, true, f["suspended"])
	assert.Contains(t, violations[0].Participants, ecs.Entity(outsider))

	route, ok := sys.TradeRoute(id)
	require.True(t, ok)
	assert.False(t, route.Carries(Timber))
	assert.True(t, route.Carries(Stone))
}

func TestAddTradeRouteRespectsExplicitIDs(t *testing.T) {
	sys := NewSystem(DefaultConfig(), nil, nil)
	assert.Equal(t, ecs.TradeRouteID(5), sys.AddTradeRoute(&TradeRoute{ID: 5}))
	assert.Equal(t, ecs.TradeRouteID(6), sys.AddTradeRoute(&TradeRoute{}))
}

func TestClearReturnsToUninitialized(t *testing.T) {
	w, _ := newWorld(t,
		settlementSpec{name: "Elmwood", terrain: world.TerrainForest, population: 500, tech: 5, faction: 1},
	)
	sys := NewSystem(DefaultConfig(), nil, nil)
	require.NoError(t, sys.Initialize(w))
	sys.AddTradeRoute(&TradeRoute{Source: 1, Target: 2})
	sys.Clear()
	assert.Zero(t, sys.MarketCount())
	assert.Empty(t, sys.TradeRoutes())
	assert.False(t, sys.Initialized())
	assert.Equal(t, ecs.TradeRouteID(1), sys.AddTradeRoute(&TradeRoute{}))
}

func TestExecutionIsDeterministic(t *testing.T) {
	run := func() uint64 {
		w, _ := newWorld(t,
			settlementSpec{name: "Elmwood", terrain: world.TerrainForest, population: 1500, tech: 4, faction: 1},
			settlementSpec{name: "Saltmarsh", terrain: world.TerrainCoast, x: 2, population: 1200, tech: 3, faction: 2},
			settlementSpec{name: "Dunmere", terrain: world.TerrainDesert, x: 1, y: 3, population: 900, tech: 2, faction: 2,
				industries: []string{"jewelcraft"}},
		)
		log := events.NewLog()
		bus := events.NewBus(events.WithLog(log))
		sys := NewSystem(DefaultConfig(), events.NewFactory(), nil)
		require.NoError(t, sys.Initialize(w))
		for month := uint64(1); month <= 12; month++ {
			require.NoError(t, sys.Execute(w, monthClock(month), bus))
		}
		require.Positive(t, log.Len())
		return log.Digest()
	}
	assert.Equal(t, run(), run())
}

func TestViolationWhenOnlyTargetIsBound(t *testing.T) {
	const guild, outsider, partner ecs.FactionID = 1, 2, 3
	enf := treaty.NewEnforcement()
	_, err := enf.RegisterTreaty(treaty.Treaty{
		Name:    "Timber Charter",
		Parties: []ecs.FactionID{guild, partner},
		Terms: []treaty.Term{{
			Type:           treaty.TradeExclusivity,
			Resources:      []string{"Timber"},
			Enforceability: 100,
		}},
	})
	require.NoError(t, err)

	log := events.NewLog()
	bus := events.NewBus(events.WithLog(log))
	sys := NewSystem(DefaultConfig(), events.NewFactory(), enf)

	src := NewMarket(10, world.TerrainForest)
	src.FactionID = outsider
	src.Population = 800
	dst := NewMarket(11, world.TerrainPlains)
	dst.FactionID = guild
	dst.Population = 800
	dst.Coord = world.HexCoord{Q: 1}
	sys.AddMarket(src)
	sys.AddMarket(dst)
	id := sys.AddTradeRoute(&TradeRoute{
		Source: 10, Target: 11, SourceFaction: outsider, TargetFaction: guild,
		Resources: []Resource{Timber}, Safety: 90,
	})

	require.NoError(t, sys.Execute(nil, monthClock(1), bus))

	violations := log.BySubtype(SubtypeExclusivityViolated)
	require.Len(t, violations, 1)
	assert.Equal(t, uint64(guild), violations[0].Fields()["violator"])
	assert.Equal(t, uint64(outsider), violations[0].Fields()["partner"])

	route, ok := sys.TradeRoute(id)
	require.True(t, ok)
	assert.False(t, route.Carries(Timber))
}

// terrainTag shares the Biome store name with a different Go type.
type terrainTag struct{ Name string }

func (*terrainTag) ComponentType() string { return component.TypeBiome }

func TestInitializeSkipsMistypedBiome(t *testing.T) {
	w, ids := newWorld(t,
		settlementSpec{name: "Elmwood", terrain: world.TerrainForest, population: 500, tech: 5, faction: 1},
		settlementSpec{name: "Oddmire", terrain: world.TerrainSwamp, x: 3, population: 300, tech: 2, faction: 1},
	)
	require.NoError(t, w.AddComponent(ids[1], &terrainTag{Name: "bog"}))

	sys := NewSystem(DefaultConfig(), events.NewFactory(), nil)
	assert.NotPanics(t, func() { require.NoError(t, sys.Initialize(w)) })
	assert.Equal(t, 1, sys.MarketCount())
	_, ok := sys.Market(ecs.SiteID(ids[1]))
	assert.False(t, ok)
}
