package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/chronicle/internal/economy"
	"github.com/talgya/chronicle/internal/ecs"
	"github.com/talgya/chronicle/internal/engine"
	"github.com/talgya/chronicle/internal/events"
	"github.com/talgya/chronicle/internal/social"
	"github.com/talgya/chronicle/internal/treaty"
	"github.com/talgya/chronicle/internal/world"
)

// runWorld builds s into a fresh world, runs the full system stack for
// ticks and returns the event log.
func runWorld(t *testing.T, s *Scenario, ticks uint64) *events.Log {
	t.Helper()
	w := ecs.NewWorld()
	reg := social.NewRegistry()
	enf := treaty.NewEnforcement()
	_, err := Build(s, w, reg, enf)
	require.NoError(t, err)

	log := events.NewLog()
	bus := events.NewBus(events.WithLog(log))
	factory := events.NewFactory()
	eng := engine.NewEngine(w, bus)

	cfg := economy.DefaultConfig()
	cfg.Seed = s.Seed
	for _, sys := range []engine.System{
		treaty.NewSystem(enf, factory),
		economy.NewSystem(cfg, factory, enf),
		social.NewInfluenceSystem(reg, factory, enf),
	} {
		require.NoError(t, eng.Register(sys))
	}
	require.NoError(t, eng.Initialize())

	eng.RunTicks(ticks)
	require.Equal(t, ticks, eng.Clock.Tick())
	require.Zero(t, eng.Failures())
	return log
}

func TestShippedScenarioReplaysIdentically(t *testing.T) {
	first := runWorld(t, loadSample(t), 2*engine.TicksPerYear)
	second := runWorld(t, loadSample(t), 2*engine.TicksPerYear)

	require.Positive(t, first.Len())
	assert.Equal(t, first.Len(), second.Len())
	assert.Equal(t, first.Digest(), second.Digest())

	// The truce lapses at tick 720 and is announced exactly once.
	assert.Len(t, first.BySubtype(treaty.SubtypeExpired), 1)
}

func TestGeneratedScenarioReplaysIdentically(t *testing.T) {
	gen := world.SmallTestConfig()
	gen.Seed = 1234
	pc := world.DefaultPlacement()

	first := runWorld(t, Generate(gen, pc), engine.TicksPerYear)
	second := runWorld(t, Generate(gen, pc), engine.TicksPerYear)

	require.Positive(t, first.Len())
	assert.Equal(t, first.Digest(), second.Digest())
}
