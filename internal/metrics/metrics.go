// Package metrics exposes Prometheus collectors for the training loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector bundles the training-process metrics. Register it once per
// process on a prometheus.Registerer.
type Collector struct {
	EnvSteps       prometheus.Counter
	Episodes       prometheus.Counter
	UpdatesSkipped *prometheus.CounterVec
	NaNSkipped     *prometheus.CounterVec
	ActorLoss      *prometheus.GaugeVec
	CriticLoss     *prometheus.GaugeVec
	TrainReturn    prometheus.Gauge
	EvalReturn     prometheus.Gauge
	BufferEntries  prometheus.Gauge
}

// NewCollector creates and registers the collectors under the given
// namespace. Pass prometheus.DefaultRegisterer outside of tests.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	c := &Collector{
		EnvSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "env_steps_total",
			Help:      "Total environment steps taken during training.",
		}),
		Episodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "episodes_total",
			Help:      "Total training episodes completed.",
		}),
		UpdatesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_skipped_total",
			Help:      "Updates skipped because the buffer held too few entries.",
		}, []string{"level"}),
		NaNSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nan_steps_skipped_total",
			Help:      "Optimizer steps skipped due to non-finite losses or gradients.",
		}, []string{"level"}),
		ActorLoss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "actor_loss",
			Help:      "Most recent actor loss per policy level.",
		}, []string{"level"}),
		CriticLoss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "critic_loss",
			Help:      "Most recent critic loss per policy level.",
		}, []string{"level"}),
		TrainReturn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "train_return",
			Help:      "Rolling mean training episode return.",
		}),
		EvalReturn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "eval_return",
			Help:      "Mean return of the most recent evaluation rollouts.",
		}),
		BufferEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "replay_entries",
			Help:      "Entries currently held in the replay buffer.",
		}),
	}
	reg.MustRegister(
		c.EnvSteps, c.Episodes, c.UpdatesSkipped, c.NaNSkipped,
		c.ActorLoss, c.CriticLoss, c.TrainReturn, c.EvalReturn,
		c.BufferEntries,
	)
	return c
}

// Nop returns a collector registered on a throwaway registry, for tests
// and for callers that do not scrape metrics.
func Nop() *Collector {
	return NewCollector("hrl", prometheus.NewRegistry())
}
