package handler

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsh2dsh/logchain/internal/logger"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	RegisterMetrics(reg)

	m := NewMetrics()
	m.SetLevel(logger.Info)
	c := NewChain(m).WithName("metrics")

	r := newRecord(logger.Warning, "x")
	r.Channel = "metrics_test"
	counter := metricRecords.WithLabelValues(r.Channel, "warning")
	before := testutil.ToFloat64(counter)

	handled, err := c.Dispatch(t.Context(), r)
	require.NoError(t, err)
	assert.True(t, handled)
	require.NoError(t, m.HandleBatch(t.Context(), []logger.Record{r, r}))
	assert.InDelta(t, before+3, testutil.ToFloat64(counter), 0)

	r.Level = logger.Debug
	handled, err = c.Dispatch(t.Context(), r)
	require.NoError(t, err)
	assert.False(t, handled)
	require.NoError(t, m.Close())
}

func TestMetrics_SinkErrors(t *testing.T) {
	h, w := newTestHandler(logger.Debug, true)
	w.err = errors.New("failed")
	c := NewChain(h).WithName("sink_errors_test")

	counter := metricSinkErrors.WithLabelValues(c.Name(), "processing")
	before := testutil.ToFloat64(counter)
	_, err := c.Dispatch(t.Context(), newRecord(logger.Info, "x"))
	require.Error(t, err)
	assert.InDelta(t, before+1, testutil.ToFloat64(counter), 0)
}
