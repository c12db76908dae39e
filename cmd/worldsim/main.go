// Command worldsim runs the chronicle world simulation: factions, markets,
// trade and treaties advancing tick by tick, with notable events written to
// the console and the run archived to SQLite.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/chronicle/internal/api"
	"github.com/talgya/chronicle/internal/chronicle"
	"github.com/talgya/chronicle/internal/component"
	"github.com/talgya/chronicle/internal/config"
	"github.com/talgya/chronicle/internal/economy"
	"github.com/talgya/chronicle/internal/ecs"
	"github.com/talgya/chronicle/internal/engine"
	"github.com/talgya/chronicle/internal/events"
	"github.com/talgya/chronicle/internal/persistence"
	"github.com/talgya/chronicle/internal/scenario"
	"github.com/talgya/chronicle/internal/social"
	"github.com/talgya/chronicle/internal/treaty"
	"github.com/talgya/chronicle/internal/world"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worldsim failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	slog.Info("worldsim starting", "seed", cfg.Simulation.Seed, "ticks", cfg.Simulation.Ticks)

	// ── Scenario ──────────────────────────────────────────────────────
	scen, err := loadScenario(cfg)
	if err != nil {
		return err
	}

	w := ecs.NewWorld()
	reg := social.NewRegistry()
	enf := treaty.NewEnforcement()
	built, err := scenario.Build(scen, w, reg, enf)
	if err != nil {
		return fmt.Errorf("build scenario: %w", err)
	}
	slog.Info("world built",
		"scenario", scen.Name,
		"factions", len(built.Factions),
		"settlements", len(built.Settlements),
		"treaties", len(built.Treaties),
	)

	// ── Events ────────────────────────────────────────────────────────
	log := events.NewLog()
	bus := events.NewBus(
		events.WithLog(log),
		events.WithLogger(logger),
		events.WithMaxCascadeDepth(cfg.Events.MaxCascadeDepth),
	)
	factory := events.NewFactory()

	// ── Systems (fixed execution order) ───────────────────────────────
	eng := engine.NewEngine(w, bus)
	eng.SetLogger(logger)
	eng.Speed = cfg.Simulation.Speed
	eng.Interval = cfg.Simulation.Interval

	econ := economy.NewSystem(economyConfig(cfg), factory, enf)
	econ.SetLogger(logger)
	influence := social.NewInfluenceSystem(reg, factory, enf)

	for _, sys := range []engine.System{treaty.NewSystem(enf, factory), econ, influence} {
		if err := eng.Register(sys); err != nil {
			return err
		}
	}
	if err := eng.Initialize(); err != nil {
		return err
	}
	slog.Info("systems registered", "order", eng.Systems(), "markets", econ.MarketCount())

	// ── Chronicle ─────────────────────────────────────────────────────
	chron := chronicle.New(cfg.Events.ChronicleThreshold, func(e ecs.EntityID) string {
		return component.NameOf(w, e)
	})
	chron.Subscribe(bus, func(e chronicle.Entry) {
		logger.Info(e.Text, "when", e.When, "event", e.Subtype, "significance", e.Significance)
	})

	// ── Archive ───────────────────────────────────────────────────────
	runRecord := persistence.NewRun(cfg.Simulation.Seed, scen.Name)
	var db *persistence.DB
	if cfg.Database.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		db, err = persistence.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		slog.Info("archive opened", "path", cfg.Database.Path, "run", runRecord.ID)
	}
	archive := func(tick uint64) {
		if db == nil {
			return
		}
		if err := db.SaveSnapshot(persistence.Snapshot{
			Run: runRecord, Log: log, Economy: econ, Tick: tick,
		}); err != nil {
			slog.Error("archive failed", "tick", tick, "error", err)
		}
	}
	eng.OnTick = func(tick uint64) {
		if cfg.Database.SaveEvery > 0 && tick%cfg.Database.SaveEvery == 0 {
			archive(tick)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.API.Addr != "" {
		srv := &api.Server{
			Engine:    eng,
			Log:       log,
			Economy:   econ,
			Factions:  reg,
			Influence: influence,
			Treaties:  enf,
			Chronicle: chron,
		}
		if cfg.API.ChainRate > 0 {
			srv.ChainLimiter = api.NewRateLimiter(cfg.API.ChainRate, time.Minute)
		}
		if err := srv.Start(cfg.API.Addr); err != nil {
			return fmt.Errorf("start api: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				slog.Warn("api shutdown", "error", err)
			}
		}()
	}

	// ── Run ───────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	if cfg.Simulation.Speed == 0 {
		_, err = eng.RunTicksContext(ctx, cfg.Simulation.Ticks)
	} else {
		err = eng.Run(ctx, cfg.Simulation.Ticks)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	archive(eng.Clock.Tick())
	summarize(eng, log, econ, influence, reg, started)
	return nil
}

func newLogger(lc config.LoggingConfig) (*slog.Logger, error) {
	level, err := lc.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts)), nil
}

func loadScenario(cfg *config.Config) (*scenario.Scenario, error) {
	if cfg.Scenario.Path != "" {
		slog.Info("loading scenario", "path", cfg.Scenario.Path)
		return scenario.Load(cfg.Scenario.Path)
	}

	gen := world.DefaultGenConfig()
	gen.Seed = cfg.Simulation.Seed
	gen.Radius = cfg.World.Radius
	gen.SeaLevel = cfg.World.SeaLevel
	gen.MountainLvl = cfg.World.MountainLevel
	pc := world.PlacementConfig{
		Cities:   cfg.World.Cities,
		Towns:    cfg.World.Towns,
		Villages: cfg.World.Villages,
	}

	slog.Info("generating world", "radius", gen.Radius, "seed", gen.Seed)
	s := scenario.Generate(gen, pc)
	for t, n := range s.Map.TerrainCounts() {
		slog.Debug("terrain", "type", t, "hexes", n)
	}
	return s, nil
}

func economyConfig(cfg *config.Config) economy.Config {
	ec := economy.DefaultConfig()
	ec.Frequency = cfg.Economy.Frequency
	ec.ShortageRatio = cfg.Economy.ShortageRatio
	ec.SurplusRatio = cfg.Economy.SurplusRatio
	ec.SpikeRatio = cfg.Economy.SpikeRatio
	ec.MaxTradeDistance = cfg.Economy.MaxTradeDistance
	ec.MinRouteProfit = cfg.Economy.MinRouteProfit
	ec.MaxRoutesPerMarket = cfg.Economy.MaxRoutesPerMarket
	ec.BaseRouteVolume = cfg.Economy.BaseRouteVolume
	ec.Seed = cfg.Simulation.Seed
	return ec
}

func summarize(eng *engine.Engine, log *events.Log, econ *economy.System, inf *social.InfluenceSystem, reg *social.Registry, started time.Time) {
	tick := eng.Clock.Tick()
	var delivered float64
	for _, r := range econ.TradeRoutes() {
		delivered += r.Delivered
	}

	slog.Info("simulation complete",
		"sim_time", engine.SimTime(tick),
		"ticks", humanize.Comma(int64(tick)),
		"events", humanize.Comma(int64(log.Len())),
		"trade_routes", len(econ.TradeRoutes()),
		"goods_moved", humanize.FormatFloat("#,###.", delivered),
		"dominant", reg.NameOf(inf.Dominant()),
		"failures", eng.Failures(),
		"digest", fmt.Sprintf("%016x", log.Digest()),
		"elapsed", humanize.RelTime(started, time.Now(), "", ""),
	)
}
