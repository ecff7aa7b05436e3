// Package config holds the layered training configuration: immutable
// default tables merged with YAML overrides, validated before training.
package config

import (
	"errors"
	"fmt"
)

// PolicyFamily selects the actor-critic update semantics.
type PolicyFamily string

const (
	// TD3 twin delayed deterministic policy gradient.
	TD3 PolicyFamily = "td3"
	// SAC soft actor-critic with a learned entropy temperature.
	SAC PolicyFamily = "sac"
)

// Policy carries the per-level policy hyperparameters and the hierarchy
// options. Zero values are filled from the default tables before use.
type Policy struct {
	// Hierarchy options.
	MetaPeriod           int     `yaml:"meta_period"`
	RelativeGoals        bool    `yaml:"relative_goals"`
	OffPolicyCorrections bool    `yaml:"off_policy_corrections"`
	Hindsight            bool    `yaml:"hindsight"`
	ConnectedGradients   bool    `yaml:"connected_gradients"`
	CGWeights            float64 `yaml:"cg_weights"`
	NumCandidates        int     `yaml:"num_candidates"`
	CandidateStdScale    float64 `yaml:"candidate_std_scale"`
	ManagerRewardSum     bool    `yaml:"manager_reward_sum"`

	// Shared actor-critic hyperparameters.
	BufferSize        int      `yaml:"buffer_size"`
	BatchSize         int      `yaml:"batch_size"`
	ActorLR           float64  `yaml:"actor_lr"`
	CriticLR          float64  `yaml:"critic_lr"`
	Tau               float64  `yaml:"tau"`
	Gamma             float64  `yaml:"gamma"`
	Noise             float64  `yaml:"noise"`
	TargetPolicyNoise float64  `yaml:"target_policy_noise"`
	TargetNoiseClip   float64  `yaml:"target_noise_clip"`
	TargetEntropy     *float64 `yaml:"target_entropy"`
	Layers            []int    `yaml:"layers"`
	LayerNorm         bool     `yaml:"layer_norm"`
	UseHuber          bool     `yaml:"use_huber"`
}

// Algorithm carries the training-loop schedule.
type Algorithm struct {
	Family          PolicyFamily `yaml:"family"`
	NbRolloutSteps  int          `yaml:"nb_rollout_steps"`
	NbTrainSteps    int          `yaml:"nb_train_steps"`
	NbEvalEpisodes  int          `yaml:"nb_eval_episodes"`
	EvalInterval    int          `yaml:"eval_interval"` // in rollout cycles, 0 disables
	ActorUpdateFreq int          `yaml:"actor_update_freq"`
	MetaUpdateFreq  int          `yaml:"meta_update_freq"`
	WarmupSteps     int          `yaml:"warmup_steps"` // random actions before policy use
	Seed            int64        `yaml:"seed"`
	Verbose         int          `yaml:"verbose"` // 0 silent, 1 summaries, 2 debug
}

// Config is the full training configuration.
type Config struct {
	Algorithm Algorithm `yaml:"algorithm"`
	Policy    Policy    `yaml:"policy"`
}

// DefaultPolicy returns the feedforward policy defaults.
func DefaultPolicy() Policy {
	return Policy{
		MetaPeriod:        10,
		CGWeights:         0.0005,
		NumCandidates:     10,
		CandidateStdScale: 1,
		ManagerRewardSum:  true,
		BufferSize:        200000,
		BatchSize:         128,
		ActorLR:           3e-4,
		CriticLR:          3e-4,
		Tau:               0.005,
		Gamma:             0.99,
		Noise:             0.05,
		TargetPolicyNoise: 0.2,
		TargetNoiseClip:   0.5,
		Layers:            []int{256, 256},
		UseHuber:          false,
	}
}

// DefaultTD3 returns the TD3 algorithm defaults.
func DefaultTD3() Algorithm {
	return Algorithm{
		Family:          TD3,
		NbRolloutSteps:  1,
		NbTrainSteps:    1,
		NbEvalEpisodes:  10,
		EvalInterval:    0,
		ActorUpdateFreq: 2,
		MetaUpdateFreq:  10,
		WarmupSteps:     0,
		Verbose:         1,
	}
}

// DefaultSAC returns the SAC algorithm defaults.
func DefaultSAC() Algorithm {
	a := DefaultTD3()
	a.Family = SAC
	a.ActorUpdateFreq = 1
	return a
}

// Default returns the full default configuration.
func Default() Config {
	return Config{Algorithm: DefaultTD3(), Policy: DefaultPolicy()}
}

// Validate checks the configuration before training starts. Any error here
// is fatal and aborts startup.
func (c Config) Validate() error {
	p, a := c.Policy, c.Algorithm

	if p.MetaPeriod < 1 {
		return fmt.Errorf("config: meta_period must be >= 1, got %d", p.MetaPeriod)
	}
	if p.OffPolicyCorrections && p.MetaPeriod == 1 {
		return errors.New("config: off_policy_corrections requires meta_period > 1")
	}
	if p.CGWeights < 0 {
		return fmt.Errorf("config: cg_weights must be >= 0, got %g", p.CGWeights)
	}
	if p.NumCandidates < 2 {
		return fmt.Errorf("config: num_candidates must be >= 2, got %d", p.NumCandidates)
	}
	if p.CandidateStdScale <= 0 {
		return fmt.Errorf("config: candidate_std_scale must be > 0, got %g", p.CandidateStdScale)
	}
	if p.BufferSize <= 0 {
		return fmt.Errorf("config: buffer_size must be > 0, got %d", p.BufferSize)
	}
	if p.BatchSize <= 0 {
		return fmt.Errorf("config: batch_size must be > 0, got %d", p.BatchSize)
	}
	if p.Tau <= 0 || p.Tau > 1 {
		return fmt.Errorf("config: tau must be in (0, 1], got %g", p.Tau)
	}
	if p.Gamma < 0 || p.Gamma > 1 {
		return fmt.Errorf("config: gamma must be in [0, 1], got %g", p.Gamma)
	}
	if len(p.Layers) == 0 {
		return errors.New("config: layers must name at least one hidden layer")
	}
	switch a.Family {
	case TD3, SAC:
	default:
		return fmt.Errorf("config: unknown policy family %q", a.Family)
	}
	if a.ActorUpdateFreq < 1 {
		return fmt.Errorf("config: actor_update_freq must be >= 1, got %d", a.ActorUpdateFreq)
	}
	if a.MetaUpdateFreq < 1 {
		return fmt.Errorf("config: meta_update_freq must be >= 1, got %d", a.MetaUpdateFreq)
	}
	if a.Verbose < 0 || a.Verbose > 2 {
		return fmt.Errorf("config: verbose must be 0, 1, or 2, got %d", a.Verbose)
	}
	return nil
}
