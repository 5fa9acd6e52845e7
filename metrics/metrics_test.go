package metrics

import (
	"errors"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestAccountControlMetricsSingleton(t *testing.T) {
	m := NewAccountControlMetrics()
	require.Same(t, m, NewAccountControlMetrics())

	m.RecordReserve("qc-metrics", 100, 150)
	require.Equal(t, float64(1), promtestutil.ToFloat64(m.reserveUndercollat.WithLabelValues("qc-metrics")))
	m.RecordReserve("qc-metrics", 200, 150)
	require.Equal(t, float64(0), promtestutil.ToFloat64(m.reserveUndercollat.WithLabelValues("qc-metrics")))

	before := promtestutil.ToFloat64(m.mints.WithLabelValues("failure"))
	m.RecordMint(errors.New("boom"))
	require.Equal(t, before+1, promtestutil.ToFloat64(m.mints.WithLabelValues("failure")))
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	addr, err := cfg.Address()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:2112", addr)

	cfg.Host = "not-an-ip"
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Port = 70000
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.UpdateInterval = 0
	require.Error(t, cfg.Validate())
}
