package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/chronicle/internal/ecs"
	"github.com/talgya/chronicle/internal/treaty"
	"github.com/talgya/chronicle/internal/world"
)

func TestCalculatePriceAtEquilibriumIsBase(t *testing.T) {
	for _, r := range AllResources() {
		assert.InDelta(t, BasePrice(r), CalculatePrice(r, 50, 50, 1), 1e-9, r.String())
	}
}

func TestCalculatePriceBounds(t *testing.T) {
	base := BasePrice(Iron)
	for _, tc := range []struct{ supply, demand float64 }{
		{1, 1e6}, {1e6, 1}, {0.001, 5}, {5, 0.001}, {30, 31}, {7, 3},
	} {
		p := CalculatePrice(Iron, tc.supply, tc.demand, 1)
		assert.GreaterOrEqual(t, p, base*PriceFloor)
		assert.LessOrEqual(t, p, base*PriceCeiling)
	}
	assert.Equal(t, base*PriceCeiling, CalculatePrice(Iron, 0, 10, 1))
	assert.Equal(t, base*PriceFloor, CalculatePrice(Iron, 10, 0, 1))
	assert.Greater(t, CalculatePrice(Iron, 10, 20, 1), base)
	assert.Less(t, CalculatePrice(Iron, 20, 10, 1), base)
	assert.InDelta(t, base*1.5, CalculatePrice(Iron, 10, 10, 1.5), 1e-9)
	assert.InDelta(t, base, CalculatePrice(Iron, 10, 10, 0), 1e-9, "non-positive modifier is neutral")
}

func TestDetermineTrend(t *testing.T) {
	assert.Equal(t, Rising, DetermineTrend(100, 105))
	assert.Equal(t, Stable, DetermineTrend(100, 104.9))
	assert.Equal(t, Stable, DetermineTrend(100, 95.1))
	assert.Equal(t, Falling, DetermineTrend(100, 95))
	assert.Equal(t, Stable, DetermineTrend(0, 10))
	assert.Equal(t, "rising", Rising.String())
}

func TestCalculateTradeVolume(t *testing.T) {
	established := CalculateTradeVolume(100, 100, 20, false)
	fresh := CalculateTradeVolume(100, 100, 20, true)
	assert.InDelta(t, 0.5, fresh/established, 0.1)
	assert.InDelta(t, 0.5, fresh/established, 1e-9)

	assert.Greater(t, CalculateTradeVolume(100, 80, 20, false), CalculateTradeVolume(100, 40, 20, false))
	assert.Greater(t, CalculateTradeVolume(100, 80, 40, false), CalculateTradeVolume(100, 80, 10, false))

	losing := CalculateTradeVolume(100, 80, -500, false)
	assert.Greater(t, losing, 0.0)
	assert.Less(t, losing, CalculateTradeVolume(100, 80, 0, false))
	assert.Zero(t, CalculateTradeVolume(0, 100, 20, false))
}

func TestCalculateTradeProfitability(t *testing.T) {
	src := NewMarket(1, world.TerrainForest)
	dst := NewMarket(2, world.TerrainPlains)
	assert.Zero(t, CalculateTradeProfitability(src, dst, Timber))

	dst.Prices[Timber].Price = BasePrice(Timber) * 1.5
	assert.InDelta(t, 50, CalculateTradeProfitability(src, dst, Timber), 1e-9)
	assert.InDelta(t, -100.0/3, CalculateTradeProfitability(dst, src, Timber), 1e-9)
}

func TestCheckTradeAllowed(t *testing.T) {
	const a, b, c ecs.FactionID = 1, 2, 3
	enf := treaty.NewEnforcement()
	_, err := enf.RegisterTreaty(treaty.Treaty{
		Name:    "Iron Compact",
		Parties: []ecs.FactionID{a, c},
		Terms: []treaty.Term{{
			Type:           treaty.TradeExclusivity,
			Parties:        []ecs.FactionID{a, c},
			Resources:      []string{Iron.String()},
			Enforceability: 60,
		}},
	})
	require.NoError(t, err)

	d := CheckTradeAllowed(a, b, Iron, enf)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "exclusivity")
	require.NotNil(t, d.Blocking)
	assert.Equal(t, 60, d.Blocking.Enforceability)

	assert.True(t, CheckTradeAllowed(b, a, Iron, enf).Allowed, "terms binding only the partner do not restrict b")
	assert.False(t, checkRouteAllowed(b, a, Iron, enf).Allowed, "routes are blocked from either end")
	assert.True(t, checkRouteAllowed(b, c, Iron, enf).Allowed)
	assert.True(t, CheckTradeAllowed(a, b, Timber, enf).Allowed)
	assert.True(t, CheckTradeAllowed(a, c, Iron, enf).Allowed)
	assert.True(t, CheckTradeAllowed(a, b, Iron, nil).Allowed)

	var missing *treaty.Enforcement
	assert.True(t, CheckTradeAllowed(a, b, Iron, missing).Allowed)
}

func TestCalculateProduction(t *testing.T) {
	plain := CalculateProduction(Timber, world.TerrainForest, 500, 5, ResourceNone)
	special := CalculateProduction(Timber, world.TerrainForest, 500, 5, Timber)
	assert.InDelta(t, SpecializationBonus, special/plain, 1e-9)

	assert.Less(t, TerrainMultiplier(world.TerrainDesert, Food), 0.5)
	assert.Greater(t, TerrainMultiplier(world.TerrainForest, Timber), TerrainMultiplier(world.TerrainPlains, Timber))
	assert.Greater(t, TerrainMultiplier(world.TerrainMountain, Iron), 1.0)
	assert.Greater(t, TerrainMultiplier(world.TerrainMountain, Gold), 1.0)

	assert.Greater(t, TechMultiplier(6), TechMultiplier(5))
	assert.Greater(t, WorkforceMultiplier(400), WorkforceMultiplier(100))
	assert.Less(t, WorkforceMultiplier(400), 4*WorkforceMultiplier(100), "sub-linear")
	assert.Zero(t, CalculateProduction(Food, world.TerrainPlains, 0, 3, Food))
	assert.Zero(t, CalculateProduction(ResourceNone, world.TerrainPlains, 100, 3, Food))
}

func TestCalculateDemand(t *testing.T) {
	food := CalculateDemand(Food, 1000, nil)
	for _, r := range AllResources() {
		if r != Food {
			assert.Greater(t, food, CalculateDemand(r, 1000, nil), r.String())
		}
	}
	assert.Greater(t, CalculateDemand(Food, 2000, nil), food)

	assert.Greater(t, CalculateDemand(Iron, 500, []string{"smithing"}), CalculateDemand(Iron, 500, nil))
	assert.Greater(t, CalculateDemand(MagicalComponents, 500, []string{"Magic"}),
		CalculateDemand(MagicalComponents, 500, nil))
	assert.Equal(t, CalculateDemand(Iron, 500, []string{"juggling"}), CalculateDemand(Iron, 500, nil))
	assert.Zero(t, CalculateDemand(Food, 0, nil))
}

func TestSpecializationFor(t *testing.T) {
	assert.Equal(t, Timber, SpecializationFor(world.TerrainForest))
	assert.Equal(t, Stone, SpecializationFor(world.TerrainMountain))
	assert.Equal(t, Spices, SpecializationFor(world.TerrainDesert))
	assert.Equal(t, ResourceNone, SpecializationFor(world.TerrainOcean))
}

func TestParseResource(t *testing.T) {
	r, err := ParseResource("magicalcomponents")
	require.NoError(t, err)
	assert.Equal(t, MagicalComponents, r)
	_, err = ParseResource("Mithril")
	assert.Error(t, err)
	assert.Len(t, AllResources(), 16)
	assert.False(t, ResourceNone.Valid())
}
