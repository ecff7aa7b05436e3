package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("hrl", reg)

	c.EnvSteps.Inc()
	c.EnvSteps.Inc()
	c.NaNSkipped.WithLabelValues("worker").Inc()
	c.CriticLoss.WithLabelValues("manager").Set(0.25)
	c.TrainReturn.Set(-3)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.EnvSteps))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NaNSkipped.WithLabelValues("worker")))
	assert.Equal(t, 0.25, testutil.ToFloat64(c.CriticLoss.WithLabelValues("manager")))
	assert.Equal(t, -3.0, testutil.ToFloat64(c.TrainReturn))

	// Double registration on the same registry must fail loudly.
	require.Panics(t, func() { NewCollector("hrl", reg) })
}

func TestNopCollectorIsUsable(t *testing.T) {
	c := Nop()
	c.EnvSteps.Inc()
	c.UpdatesSkipped.WithLabelValues("worker").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.EnvSteps))
}
