package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worldsim.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	path := writeConfig(t, `
[simulation]
seed = 7
interval = "250ms"

[economy]
max_trade_distance = 12

[logging]
level = "debug"
format = "json"

[api]
addr = "127.0.0.1:8080"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.Simulation.Seed)
	assert.Equal(t, 250*time.Millisecond, cfg.Simulation.Interval)
	assert.Equal(t, uint64(3600), cfg.Simulation.Ticks)
	assert.Equal(t, 12, cfg.Economy.MaxTradeDistance)
	assert.Equal(t, 0.5, cfg.Economy.ShortageRatio)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "127.0.0.1:8080", cfg.API.Addr)
	assert.Equal(t, 30, cfg.API.ChainRate)

	level, err := cfg.Logging.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(writeConfig(t, "[world]\nradius = 0\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[logging]\nlevel = \"chatty\"\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[simulation\nseed = 1"))
	assert.Error(t, err)

	for _, body := range []string{
		"[economy]\nspike_ratio = 1.0\n",
		"[economy]\nspike_ratio = 0.8\n",
		"[economy]\nshortage_ratio = 0\n",
		"[economy]\nshortage_ratio = 1.2\n",
		"[economy]\nsurplus_ratio = 1.0\n",
		"[economy]\nmax_routes_per_market = 0\n",
	} {
		_, err := Load(writeConfig(t, body))
		assert.Error(t, err, body)
	}
	_, err = Load(writeConfig(t, "[economy]\nspike_ratio = 1.2\n"))
	assert.NoError(t, err)
}

func TestPathHonoursEnvironment(t *testing.T) {
	t.Setenv(EnvPath, "")
	assert.Equal(t, DefaultPath, Path())
	t.Setenv(EnvPath, "/etc/worldsim.toml")
	assert.Equal(t, "/etc/worldsim.toml", Path())
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "worldsim.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Economy, cfg.Economy)
	assert.Equal(t, Defaults().World, cfg.World)
}
