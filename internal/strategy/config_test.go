package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateUnits(t *testing.T) {
	cfg := Config{TotalCapital: 10000, TopN: 5}

	assert.Equal(t, 20, cfg.CalculateUnits(100))
	assert.Equal(t, 19, cfg.CalculateUnits(101.6))
	assert.Equal(t, 0, cfg.CalculateUnits(2500))
	assert.Equal(t, 0, cfg.CalculateUnits(0))
}

func TestMaxDailyLossAmount(t *testing.T) {
	cfg := Config{TotalCapital: 10000, MaxDailyLossPercent: 1}
	assert.InDelta(t, 100.0, cfg.MaxDailyLossAmount(), 0.001)
}

func TestRegistry_Defaults(t *testing.T) {
	registry := NewRegistry(10000)

	active := registry.Active()
	assert.Equal(t, PresetS1, active.ID)
	assert.Equal(t, "Balanced Momentum", active.Name)

	list := registry.List()
	require.Len(t, list, 4)
	assert.Equal(t, PresetS1, list[0].ID)
	assert.Equal(t, PresetS4, list[3].ID)
}

func TestRegistry_ApplyUnknown(t *testing.T) {
	registry := NewRegistry(10000)

	_, err := registry.Apply(PresetID("S9"))
	assert.EqualError(t, err, `unknown strategy preset "S9"`)
	assert.Equal(t, PresetS1, registry.Active().ID)
}

func TestRegistry_OptionPresetIsOptionMode(t *testing.T) {
	registry := NewRegistry(10000)

	s4, err := registry.Get(PresetS4)
	require.NoError(t, err)
	assert.True(t, s4.Config.OptionMode)
	assert.Equal(t, 2.0, s4.Config.TargetPoints)
}

func TestRegistry_PublishAutoActivates(t *testing.T) {
	registry := NewRegistry(10000)
	s2, err := registry.Get(PresetS2)
	require.NoError(t, err)

	published := registry.PublishAuto("Auto Optimized (2025-04-04) from S2", s2.Config)

	assert.Equal(t, PresetAuto, published.ID)
	assert.Equal(t, PresetAuto, registry.Active().ID)
	assert.Equal(t, s2.Config, registry.Active().Config)
	assert.Len(t, registry.List(), 5)

	// Named presets stay untouched.
	s2Again, err := registry.Get(PresetS2)
	require.NoError(t, err)
	assert.Equal(t, "Conservative Filter", s2Again.Name)
}
