package persistence

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/chronicle/internal/economy"
	"github.com/talgya/chronicle/internal/ecs"
	"github.com/talgya/chronicle/internal/events"
	"github.com/talgya/chronicle/internal/world"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.SaveMeta("k", "v"))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	v, err := db.GetMeta("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetMeta("last_tick")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, db.SaveMeta("last_tick", "30"))
	require.NoError(t, db.SaveMeta("last_tick", "60"))
	v, err := db.GetMeta("last_tick")
	require.NoError(t, err)
	assert.Equal(t, "60", v)
}

func TestSaveEventsUpsertsConsequences(t *testing.T) {
	db := openTestDB(t)
	log := events.NewLog()
	f := events.NewFactory()
	site := ecs.SiteID(9)

	shortage := f.Create(events.Params{
		Category:     events.Economic,
		Subtype:      "economy.shortage",
		Timestamp:    30,
		Participants: []ecs.EntityID{9, 2},
		Location:     &site,
		Data:         events.Data{"resource": "Food"},
		Significance: 40,
	})
	require.NoError(t, log.Append(shortage))
	require.NoError(t, db.SaveEvents(log.All()))

	spike := f.Create(events.Params{
		Category:     events.Economic,
		Subtype:      "economy.price_spike",
		Timestamp:    30,
		Participants: []ecs.EntityID{9},
		Location:     &site,
		Causes:       []ecs.EventID{shortage.ID},
		Significance: 55,
	})
	require.NoError(t, log.Append(spike))
	require.NoError(t, db.SaveEvents(log.All()))

	n, err := db.EventCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	recent, err := db.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, spike.ID, recent[0].ID)
	assert.Equal(t, []ecs.EventID{shortage.ID}, recent[0].Causes)
	assert.Equal(t, []ecs.EventID{spike.ID}, recent[1].Consequences)
	assert.Equal(t, "Economic", recent[1].Category)
	assert.Equal(t, int64(9), recent[1].Location.Int64)
	assert.JSONEq(t, `{"resource":"Food"}`, string(recent[1].Data))
	assert.JSONEq(t, `{}`, string(recent[0].Data))

	forTwo, err := db.EventsForEntity(2)
	require.NoError(t, err)
	require.Len(t, forTwo, 1)
	assert.Equal(t, shortage.ID, forTwo[0].ID)

	forSite, err := db.EventsForEntity(9)
	require.NoError(t, err)
	assert.Len(t, forSite, 2)

	spikes, err := db.EventsBySubtype("economy.price_spike")
	require.NoError(t, err)
	assert.Len(t, spikes, 1)
}

func TestSaveMarketsAndRoutesReplace(t *testing.T) {
	db := openTestDB(t)

	m := economy.NewMarket(3, world.TerrainMountain)
	m.Name = "Ironcrest"
	m.Population = 500
	m.Stockpile[economy.Iron] = 12
	require.NoError(t, db.SaveMarkets(30, []*economy.Market{m}))
	require.NoError(t, db.SaveMarkets(60, []*economy.Market{m}))

	prices, err := db.MarketPrices(3)
	require.NoError(t, err)
	assert.Len(t, prices, len(economy.AllResources()))
	for _, p := range prices {
		if p.Resource == "Iron" {
			assert.Equal(t, 12.0, p.Stockpile)
		}
	}

	route := &economy.TradeRoute{
		ID:        1,
		Source:    3,
		Target:    4,
		Resources: []economy.Resource{economy.Iron, economy.Stone},
		Suspended: map[economy.Resource]bool{economy.Iron: true},
	}
	require.NoError(t, db.SaveTradeRoutes([]*economy.TradeRoute{route}))
	require.NoError(t, db.SaveTradeRoutes([]*economy.TradeRoute{route}))
	n, err := db.TradeRouteCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunRoundTrip(t *testing.T) {
	db := openTestDB(t)

	r := NewRun(42, "generated")
	require.NotEmpty(t, r.ID)
	r.Digest = 0xfedcba9876543210
	r.LastTick = 360
	require.NoError(t, db.SaveRun(r))

	r.LastTick = 720
	require.NoError(t, db.SaveRun(r))

	got, err := db.GetRun(r.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(720), got.LastTick)
	assert.Equal(t, r.Digest, got.Digest)
	assert.Equal(t, int64(42), got.Seed)
	assert.True(t, r.StartedAt.Equal(got.StartedAt))

	latest, err := db.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, r.ID, latest.ID)
}

func TestSaveSnapshot(t *testing.T) {
	db := openTestDB(t)
	log := events.NewLog()
	f := events.NewFactory()
	require.NoError(t, log.Append(f.Create(events.Params{Subtype: "diplomacy.treaty_signed", Timestamp: 1})))

	run := NewRun(1, "test")
	require.NoError(t, db.SaveSnapshot(Snapshot{Run: run, Log: log, Tick: 90}))

	assert.Equal(t, uint64(90), run.LastTick)
	assert.Equal(t, log.Digest(), run.Digest)

	v, err := db.GetMeta("last_tick")
	require.NoError(t, err)
	assert.Equal(t, "90", v)

	got, err := db.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Events)
}
