package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	require.NoError(t, Default().Validate())
	assert.Equal(t, 1.0, Default().Policy.CandidateStdScale)

	sac := Config{Algorithm: DefaultSAC(), Policy: DefaultPolicy()}
	require.NoError(t, sac.Validate())
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"meta_period zero", func(c *Config) { c.Policy.MetaPeriod = 0 }},
		{"corrections with meta_period one", func(c *Config) {
			c.Policy.MetaPeriod = 1
			c.Policy.OffPolicyCorrections = true
		}},
		{"negative cg_weights", func(c *Config) { c.Policy.CGWeights = -0.1 }},
		{"too few candidates", func(c *Config) { c.Policy.NumCandidates = 1 }},
		{"non-positive candidate std scale", func(c *Config) { c.Policy.CandidateStdScale = 0 }},
		{"zero buffer", func(c *Config) { c.Policy.BufferSize = 0 }},
		{"zero batch", func(c *Config) { c.Policy.BatchSize = 0 }},
		{"tau out of range", func(c *Config) { c.Policy.Tau = 1.5 }},
		{"gamma out of range", func(c *Config) { c.Policy.Gamma = -0.1 }},
		{"no layers", func(c *Config) { c.Policy.Layers = nil }},
		{"unknown family", func(c *Config) { c.Algorithm.Family = "ppo" }},
		{"bad actor freq", func(c *Config) { c.Algorithm.ActorUpdateFreq = 0 }},
		{"bad meta freq", func(c *Config) { c.Algorithm.MetaUpdateFreq = 0 }},
		{"bad verbosity", func(c *Config) { c.Algorithm.Verbose = 3 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseMergesOverDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
policy:
  meta_period: 5
  relative_goals: true
  hindsight: true
  candidate_std_scale: 0.25
algorithm:
  family: sac
  seed: 42
`))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Policy.MetaPeriod)
	assert.Equal(t, 0.25, cfg.Policy.CandidateStdScale)
	assert.True(t, cfg.Policy.RelativeGoals)
	assert.True(t, cfg.Policy.Hindsight)
	assert.Equal(t, SAC, cfg.Algorithm.Family)
	assert.Equal(t, int64(42), cfg.Algorithm.Seed)

	// Untouched fields keep their defaults.
	assert.Equal(t, DefaultPolicy().BufferSize, cfg.Policy.BufferSize)
	assert.Equal(t, DefaultPolicy().Layers, cfg.Policy.Layers)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte(`
policy:
  meta_perod: 5
`))
	require.Error(t, err)
}

func TestParseRejectsInvalidMergedConfig(t *testing.T) {
	_, err := Parse([]byte(`
policy:
  meta_period: 1
  off_policy_corrections: true
`))
	require.Error(t, err)
}

func TestTargetEntropyOptional(t *testing.T) {
	cfg, err := Parse([]byte(`
policy:
  target_entropy: -2.5
`))
	require.NoError(t, err)
	require.NotNil(t, cfg.Policy.TargetEntropy)
	assert.Equal(t, -2.5, *cfg.Policy.TargetEntropy)

	assert.Nil(t, Default().Policy.TargetEntropy)
}
