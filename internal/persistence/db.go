// Package persistence archives a run's history to SQLite: the event log,
// market snapshots, trade routes and run metadata. The archive is write-mostly
// and never feeds back into a running simulation.
package persistence

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/talgya/chronicle/internal/economy"
	"github.com/talgya/chronicle/internal/ecs"
	"github.com/talgya/chronicle/internal/events"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB wraps a SQLite connection for the run archive.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path and applies
// pending migrations.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate(ctx context.Context) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.conn.DB, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// SaveEvents upserts evs. Events are immutable once logged except for their
// consequences, so a conflict only refreshes that column.
func (db *DB) SaveEvents(evs []*events.WorldEvent) error {
	if len(evs) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO events
		(id, tick, category, subtype, location, significance,
		 participants_json, causes_json, consequences_json, data_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET consequences_json = excluded.consequences_json`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	link, err := tx.Preparex("INSERT OR IGNORE INTO event_entities (event_id, entity_id) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer link.Close()

	for _, e := range evs {
		participants, err := toJSON(nonNil(e.Participants))
		if err != nil {
			return fmt.Errorf("encode event %d: %w", e.ID, err)
		}
		causes, err := toJSON(nonNilIDs(e.Causes))
		if err != nil {
			return fmt.Errorf("encode event %d: %w", e.ID, err)
		}
		consequences, err := toJSON(nonNilIDs(e.Consequences))
		if err != nil {
			return fmt.Errorf("encode event %d: %w", e.ID, err)
		}
		data, err := toJSON(e.Fields())
		if err != nil {
			return fmt.Errorf("encode event %d: %w", e.ID, err)
		}

		var location *int64
		if e.Location != nil {
			l := int64(*e.Location)
			location = &l
		}

		if _, err := stmt.Exec(
			int64(e.ID), int64(e.Timestamp), e.Category.String(), e.Subtype, location,
			e.Significance, participants, causes, consequences, data,
		); err != nil {
			return fmt.Errorf("insert event %d: %w", e.ID, err)
		}

		for _, p := range e.Participants {
			if _, err := link.Exec(int64(e.ID), int64(p)); err != nil {
				return fmt.Errorf("link event %d: %w", e.ID, err)
			}
		}
		if location != nil {
			if _, err := link.Exec(int64(e.ID), *location); err != nil {
				return fmt.Errorf("link event %d: %w", e.ID, err)
			}
		}
	}

	return tx.Commit()
}

func nonNil(ids []ecs.EntityID) []ecs.EntityID {
	if ids == nil {
		return []ecs.EntityID{}
	}
	return ids
}

func nonNilIDs(ids []ecs.EventID) []ecs.EventID {
	if ids == nil {
		return []ecs.EventID{}
	}
	return ids
}

// SaveMarkets replaces the market snapshot with markets as of tick.
func (db *DB) SaveMarkets(tick uint64, markets []*economy.Market) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM market_prices"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM markets"); err != nil {
		return err
	}

	for _, m := range markets {
		_, err := tx.Exec(`INSERT INTO markets
			(settlement_id, name, faction_id, pos_q, pos_r, terrain, population,
			 tech_level, specialization, wealth, tick)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			int64(m.SettlementID), m.Name, int64(m.FactionID), m.Coord.Q, m.Coord.R,
			m.Terrain.String(), m.Population, m.TechLevel, m.Specialization.String(),
			m.Wealth(), int64(tick),
		)
		if err != nil {
			return fmt.Errorf("insert market %d: %w", m.SettlementID, err)
		}

		for _, r := range economy.AllResources() {
			p, ok := m.Prices[r]
			if !ok {
				continue
			}
			_, err := tx.Exec(`INSERT INTO market_prices
				(settlement_id, resource, price, supply, demand, trend, stockpile, production)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				int64(m.SettlementID), r.String(), p.Price, p.Supply, p.Demand,
				p.Trend.String(), m.Stockpile[r], m.Production[r],
			)
			if err != nil {
				return fmt.Errorf("insert price %d/%s: %w", m.SettlementID, r, err)
			}
		}
	}

	return tx.Commit()
}

// SaveTradeRoutes replaces the stored routes with routes.
func (db *DB) SaveTradeRoutes(routes []*economy.TradeRoute) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM trade_routes"); err != nil {
		return err
	}

	for _, r := range routes {
		resources, err := toJSON(r.Resources)
		if err != nil {
			return fmt.Errorf("encode route %d: %w", r.ID, err)
		}
		suspended := r.Suspended
		if suspended == nil {
			suspended = map[economy.Resource]bool{}
		}
		susp, err := toJSON(suspended)
		if err != nil {
			return fmt.Errorf("encode route %d: %w", r.ID, err)
		}

		_, err = tx.Exec(`INSERT INTO trade_routes
			(id, source, target, source_faction, target_faction, resources_json,
			 suspended_json, volume, safety, profitability, established_at,
			 executions, delivered)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			int64(r.ID), int64(r.Source), int64(r.Target),
			int64(r.SourceFaction), int64(r.TargetFaction), resources, susp,
			r.Volume, r.Safety, r.Profitability, int64(r.EstablishedAt),
			r.Executions, r.Delivered,
		)
		if err != nil {
			return fmt.Errorf("insert route %d: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// Snapshot is everything archived at a save point.
type Snapshot struct {
	Run     *Run
	Log     *events.Log
	Economy *economy.System
	Tick    uint64
}

// SaveSnapshot performs a full save: events, markets, routes, run record and
// the last tick.
func (db *DB) SaveSnapshot(s Snapshot) error {
	slog.Info("archiving run", "tick", s.Tick, "events", s.Log.Len())

	if err := db.SaveEvents(s.Log.All()); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if s.Economy != nil {
		if err := db.SaveMarkets(s.Tick, s.Economy.Markets()); err != nil {
			return fmt.Errorf("save markets: %w", err)
		}
		if err := db.SaveTradeRoutes(s.Economy.TradeRoutes()); err != nil {
			return fmt.Errorf("save trade routes: %w", err)
		}
	}
	if s.Run != nil {
		s.Run.LastTick = s.Tick
		s.Run.Events = s.Log.Len()
		s.Run.Digest = s.Log.Digest()
		if err := db.SaveRun(s.Run); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
	}
	if err := db.SaveMeta("last_tick", fmt.Sprintf("%d", s.Tick)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Debug("run archived", "tick", s.Tick)
	return nil
}
