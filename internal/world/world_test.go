package world

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceAndNeighbors(t *testing.T) {
	origin := HexCoord{}
	assert.Equal(t, 0, Distance(origin, origin))
	assert.Equal(t, 3, Distance(origin, HexCoord{Q: 3, R: -3}))
	assert.Equal(t, 4, Distance(HexCoord{Q: -2, R: 1}, HexCoord{Q: 2, R: -1}))

	for _, n := range origin.Neighbors() {
		assert.Equal(t, 1, Distance(origin, n))
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	cfg := SmallTestConfig()
	a := Generate(cfg)
	b := Generate(cfg)

	r := cfg.Radius
	assert.Equal(t, 3*r*(r+1)+1, a.HexCount())
	require.Equal(t, a.HexCount(), b.HexCount())
	for _, c := range a.Coords() {
		assert.Equal(t, a.Get(c).Terrain, b.Get(c).Terrain, c)
		assert.True(t, a.InBounds(c))
		f := a.Get(c).Fertility
		assert.True(t, f >= 0 && f <= 1)
	}
}

func TestCoordsAreSorted(t *testing.T) {
	m := Generate(SmallTestConfig())
	coords := m.Coords()
	for i := 1; i < len(coords); i++ {
		assert.True(t, coords[i-1].Less(coords[i]))
	}
}

func TestPlaceSettlements(t *testing.T) {
	m := Generate(SmallTestConfig())
	seeds := PlaceSettlements(m, 42, DefaultPlacement())
	require.NotEmpty(t, seeds)

	names := map[string]bool{}
	lastSize := SizeCity
	for i, s := range seeds {
		assert.NotEqual(t, TerrainOcean, s.Terrain)
		assert.Equal(t, m.Get(s.Coord).Terrain, s.Terrain)
		assert.False(t, names[s.Name], "duplicate name %s", s.Name)
		names[s.Name] = true
		assert.LessOrEqual(t, s.Size, lastSize, "cities, then towns, then villages")
		lastSize = s.Size

		for _, o := range seeds[:i] {
			assert.GreaterOrEqual(t, Distance(s.Coord, o.Coord), 2)
		}
	}

	again := PlaceSettlements(m, 42, DefaultPlacement())
	assert.Equal(t, seeds, again)

	none := PlaceSettlements(m, 42, PlacementConfig{})
	assert.Empty(t, none)
}

func TestSettlementSizeText(t *testing.T) {
	for _, s := range []SettlementSize{SizeVillage, SizeTown, SizeCity} {
		text, err := s.MarshalText()
		require.NoError(t, err)
		var back SettlementSize
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}
	_, err := ParseSettlementSize("metropolis")
	assert.Error(t, err)
}

func TestTerrainParse(t *testing.T) {
	tr, err := ParseTerrain("Mountain")
	require.NoError(t, err)
	assert.Equal(t, TerrainMountain, tr)
	_, err = ParseTerrain("lava")
	assert.Error(t, err)
}

func TestPopulationAndTechForSize(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		p := PopulationForSize(SizeCity, rng)
		assert.True(t, p >= 2000 && p < 8000)
		p = PopulationForSize(SizeVillage, rng)
		assert.True(t, p >= 50 && p < 300)
	}
	assert.Equal(t, 6, TechForSize(SizeCity))
	assert.Equal(t, 4, TechForSize(SizeTown))
	assert.Equal(t, 2, TechForSize(SizeVillage))
}
