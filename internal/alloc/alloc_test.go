package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() Config {
	return Config{
		CCSStrategy: RoundRobin, BSSStrategy: RoundRobin, GSStrategy: First,
		SLBStrategy: First, MDSStrategy: First,
		CCSCount: 3, BSSCount: 4, GSCount: 2, SLBCount: 2, MDSCount: 2,
	}
}

func TestNextLabelSharesOneCounterAcrossPrefixes(t *testing.T) {
	a, err := New(baseConfig())
	require.NoError(t, err)

	assert.Equal(t, "s0", a.NextLabel("s"))
	assert.Equal(t, "r1", a.NextLabel("r"))
	assert.Equal(t, "c2", a.NextLabel("c"))
}

func TestNextTagMonotone(t *testing.T) {
	a, err := New(baseConfig())
	require.NoError(t, err)

	assert.EqualValues(t, 0, a.NextTag())
	assert.EqualValues(t, 1, a.NextTag())
	assert.EqualValues(t, 2, a.NextTag())
}

func TestRoundRobinWraps(t *testing.T) {
	a, err := New(baseConfig())
	require.NoError(t, err)

	got := []int{a.NextCCS(), a.NextCCS(), a.NextCCS(), a.NextCCS()}
	assert.Equal(t, []int{0, 1, 2, 0}, got)
}

func TestFirstStrategyAlwaysZero(t *testing.T) {
	a, err := New(baseConfig())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.Equal(t, 0, a.NextGS())
		assert.Equal(t, 0, a.NextSLB())
		assert.Equal(t, 0, a.NextMDS())
	}
}

func TestRandomStrategyStaysInExclusiveRange(t *testing.T) {
	cfg := baseConfig()
	cfg.CCSStrategy = Random
	cfg.Seed = 7
	a, err := New(cfg)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		v := a.NextCCS()
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, cfg.CCSCount, "random strategy must never return the modulo itself")
	}
}

func TestNextBSSKeyedPerSlice(t *testing.T) {
	a, err := New(baseConfig())
	require.NoError(t, err)

	assert.Equal(t, 0, a.NextBSS(5))
	assert.Equal(t, 1, a.NextBSS(5))
	// a different slice's counter starts independently at 0
	assert.Equal(t, 0, a.NextBSS(6))
	assert.Equal(t, 2, a.NextBSS(5))
}

func TestConfigInvalidStrategy(t *testing.T) {
	cfg := baseConfig()
	cfg.CCSStrategy = "bogus"
	_, err := New(cfg)
	assert.Error(t, err)
}
