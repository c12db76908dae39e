package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/chronicle/internal/ecs"
	"github.com/talgya/chronicle/internal/events"
)

type recordingSystem struct {
	name   string
	freq   uint64
	trace  *[]string
	fail   error
	panics bool
	inits  int
}

func (s *recordingSystem) Name() string      { return s.name }
func (s *recordingSystem) Frequency() uint64 { return s.freq }

func (s *recordingSystem) Initialize(*ecs.World) error {
	s.inits++
	return nil
}

func (s *recordingSystem) Execute(_ *ecs.World, clock *Clock, _ *events.Bus) error {
	*s.trace = append(*s.trace, s.name)
	if s.panics {
		panic("broken system")
	}
	return s.fail
}

func TestEngineRunsDueSystemsInRegistrationOrder(t *testing.T) {
	var trace []string
	e := NewEngine(ecs.NewWorld(), events.NewBus())
	monthly := &recordingSystem{name: "monthly", freq: 30, trace: &trace}
	daily := &recordingSystem{name: "daily", freq: 1, trace: &trace}
	require.NoError(t, e.Register(monthly))
	require.NoError(t, e.Register(daily))
	require.NoError(t, e.Initialize())
	assert.Equal(t, 1, monthly.inits)

	e.RunTicks(29)
	assert.Equal(t, 0, e.Runs("monthly"))
	assert.Equal(t, 29, e.Runs("daily"))

	trace = trace[:0]
	e.Step()
	assert.Equal(t, []string{"monthly", "daily"}, trace)
	assert.Equal(t, uint64(30), e.Clock.Tick())
	assert.Equal(t, []string{"monthly", "daily"}, e.Systems())
}

func TestEngineContainsFailures(t *testing.T) {
	var trace []string
	e := NewEngine(ecs.NewWorld(), events.NewBus())
	require.NoError(t, e.Register(&recordingSystem{name: "panics", freq: 1, trace: &trace, panics: true}))
	require.NoError(t, e.Register(&recordingSystem{name: "errors", freq: 1, trace: &trace, fail: errors.New("nope")}))
	require.NoError(t, e.Register(&recordingSystem{name: "fine", freq: 1, trace: &trace}))

	e.Step()
	assert.Equal(t, []string{"panics", "errors", "fine"}, trace)
	assert.Equal(t, 2, e.Failures())
}

func TestEngineRejectsBadRegistrations(t *testing.T) {
	var trace []string
	e := NewEngine(ecs.NewWorld(), events.NewBus())
	require.NoError(t, e.Register(&recordingSystem{name: "a", freq: 1, trace: &trace}))
	assert.ErrorIs(t, e.Register(&recordingSystem{name: "a", freq: 2, trace: &trace}), ErrDuplicateSystem)
	assert.Error(t, e.Register(&recordingSystem{name: "b", freq: 0, trace: &trace}))
}

func TestRunHonoursLimitAndCancel(t *testing.T) {
	e := NewEngine(ecs.NewWorld(), events.NewBus())
	e.Interval = time.Millisecond
	e.Speed = 100

	require.NoError(t, e.Run(context.Background(), 10))
	assert.Equal(t, uint64(10), e.Clock.Tick())
	assert.False(t, e.Running())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, e.Run(ctx, 0), context.Canceled)
}

func TestStopEndsRun(t *testing.T) {
	e := NewEngine(ecs.NewWorld(), events.NewBus())
	e.Interval = time.Millisecond
	e.OnTick = func(tick uint64) {
		if tick == 5 {
			e.Stop()
		}
	}
	require.NoError(t, e.Run(context.Background(), 0))
	assert.Equal(t, uint64(5), e.Clock.Tick())
	e.Stop()
}

func TestRunTicksContextStopsOnCancel(t *testing.T) {
	e := NewEngine(ecs.NewWorld(), events.NewBus())

	done, err := e.RunTicksContext(context.Background(), 45)
	require.NoError(t, err)
	assert.Equal(t, uint64(45), done)

	ctx, cancel := context.WithCancel(context.Background())
	e.OnTick = func(tick uint64) {
		if tick == 50 {
			cancel()
		}
	}
	done, err = e.RunTicksContext(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(5), done)
	assert.Equal(t, uint64(50), e.Clock.Tick())
}
