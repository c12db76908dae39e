package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/chronicle/internal/ecs"
)

// Run identifies one simulation run in the archive.
type Run struct {
	ID        string
	Seed      int64
	Scenario  string
	StartedAt time.Time
	LastTick  uint64
	Events    int
	Digest    uint64
}

// NewRun starts a run record with a fresh id.
func NewRun(seed int64, scenario string) *Run {
	return &Run{
		ID:        uuid.New().String(),
		Seed:      seed,
		Scenario:  scenario,
		StartedAt: time.Now().UTC(),
	}
}

type runRow struct {
	ID        string `db:"id"`
	Seed      int64  `db:"seed"`
	Scenario  string `db:"scenario"`
	StartedAt string `db:"started_at"`
	LastTick  int64  `db:"last_tick"`
	Events    int    `db:"events"`
	Digest    string `db:"digest"`
}

// SaveRun inserts or updates r.
func (db *DB) SaveRun(r *Run) error {
	_, err := db.conn.NamedExec(`INSERT INTO runs
		(id, seed, scenario, started_at, last_tick, events, digest)
		VALUES (:id, :seed, :scenario, :started_at, :last_tick, :events, :digest)
		ON CONFLICT(id) DO UPDATE SET
			last_tick = excluded.last_tick,
			events = excluded.events,
			digest = excluded.digest`,
		runRow{
			ID:        r.ID,
			Seed:      r.Seed,
			Scenario:  r.Scenario,
			StartedAt: r.StartedAt.Format(time.RFC3339Nano),
			LastTick:  int64(r.LastTick),
			Events:    r.Events,
			Digest:    strconv.FormatUint(r.Digest, 16),
		})
	return err
}

// GetRun loads a run by id.
func (db *DB) GetRun(id string) (*Run, error) {
	var row runRow
	if err := db.conn.Get(&row, "SELECT * FROM runs WHERE id = ?", id); err != nil {
		return nil, err
	}
	return row.run()
}

// LatestRun returns the most recently started run, or sql.ErrNoRows.
func (db *DB) LatestRun() (*Run, error) {
	var row runRow
	if err := db.conn.Get(&row, "SELECT * FROM runs ORDER BY started_at DESC LIMIT 1"); err != nil {
		return nil, err
	}
	return row.run()
}

func (row runRow) run() (*Run, error) {
	started, err := time.Parse(time.RFC3339Nano, row.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("run %s started_at: %w", row.ID, err)
	}
	digest, err := strconv.ParseUint(row.Digest, 16, 64)
	if err != nil {
		return nil, fmt.Errorf("run %s digest: %w", row.ID, err)
	}
	return &Run{
		ID:        row.ID,
		Seed:      row.Seed,
		Scenario:  row.Scenario,
		StartedAt: started,
		LastTick:  uint64(row.LastTick),
		Events:    row.Events,
		Digest:    digest,
	}, nil
}

// EventRecord is an archived event. Payload fields stay as raw JSON.
type EventRecord struct {
	ID           ecs.EventID     `db:"id"`
	Tick         uint64          `db:"tick"`
	Category     string          `db:"category"`
	Subtype      string          `db:"subtype"`
	Location     sql.NullInt64   `db:"location"`
	Significance int             `db:"significance"`
	Participants []ecs.EntityID  `db:"-"`
	Causes       []ecs.EventID   `db:"-"`
	Consequences []ecs.EventID   `db:"-"`
	Data         json.RawMessage `db:"-"`

	ParticipantsJSON string `db:"participants_json"`
	CausesJSON       string `db:"causes_json"`
	ConsequencesJSON string `db:"consequences_json"`
	DataJSON         string `db:"data_json"`
}

func (r *EventRecord) decode() error {
	if err := json.Unmarshal([]byte(r.ParticipantsJSON), &r.Participants); err != nil {
		return fmt.Errorf("event %d participants: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.CausesJSON), &r.Causes); err != nil {
		return fmt.Errorf("event %d causes: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.ConsequencesJSON), &r.Consequences); err != nil {
		return fmt.Errorf("event %d consequences: %w", r.ID, err)
	}
	r.Data = json.RawMessage(r.DataJSON)
	return nil
}

const eventColumns = `e.id, e.tick, e.category, e.subtype, e.location, e.significance,
	e.participants_json, e.causes_json, e.consequences_json, e.data_json`

func (db *DB) selectEvents(query string, args ...any) ([]EventRecord, error) {
	var out []EventRecord
	if err := db.conn.Select(&out, query, args...); err != nil {
		return nil, err
	}
	for i := range out {
		if err := out[i].decode(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]EventRecord, error) {
	return db.selectEvents(
		"SELECT "+eventColumns+" FROM events e ORDER BY e.id DESC LIMIT ?",
		limit,
	)
}

// EventsForEntity returns every archived event the entity took part in or
// that happened at it, oldest first.
func (db *DB) EventsForEntity(id ecs.EntityID) ([]EventRecord, error) {
	return db.selectEvents(
		"SELECT "+eventColumns+` FROM events e
		JOIN event_entities l ON l.event_id = e.id
		WHERE l.entity_id = ?
		ORDER BY e.id`,
		int64(id),
	)
}

// EventsBySubtype returns archived events of one subtype, oldest first.
func (db *DB) EventsBySubtype(subtype string) ([]EventRecord, error) {
	return db.selectEvents(
		"SELECT "+eventColumns+" FROM events e WHERE e.subtype = ? ORDER BY e.id",
		subtype,
	)
}

// EventCount returns the number of archived events.
func (db *DB) EventCount() (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM events")
	return n, err
}

// PriceRecord is one archived market price row.
type PriceRecord struct {
	SettlementID ecs.SiteID `db:"settlement_id"`
	Resource     string     `db:"resource"`
	Price        float64    `db:"price"`
	Supply       float64    `db:"supply"`
	Demand       float64    `db:"demand"`
	Trend        string     `db:"trend"`
	Stockpile    float64    `db:"stockpile"`
	Production   float64    `db:"production"`
}

// MarketPrices returns the archived prices for one settlement, by resource
// name.
func (db *DB) MarketPrices(id ecs.SiteID) ([]PriceRecord, error) {
	var out []PriceRecord
	err := db.conn.Select(&out,
		"SELECT * FROM market_prices WHERE settlement_id = ? ORDER BY resource",
		int64(id),
	)
	return out, err
}

// TradeRouteCount returns the number of archived trade routes.
func (db *DB) TradeRouteCount() (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM trade_routes")
	return n, err
}
