package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
)

func TestPrometheus_RegistraContadores(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheus(reg)

	m.MovementApplied(entity.MovementOUT)
	m.MovementApplied(entity.MovementOUT)
	m.MovementApplied(entity.MovementIN)
	m.InsufficientStock()
	m.AlertCreated()
	m.FollowUpFailed("display_stock")
	m.ObserveTx("apply_movement", 3*time.Millisecond)

	count, err := testutil.GatherAndCount(reg, "inventory_movements_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "una serie por tipo")

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				values[mf.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, 3.0, values["inventory_movements_total"])
	assert.Equal(t, 1.0, values["inventory_insufficient_stock_total"])
	assert.Equal(t, 1.0, values["inventory_low_stock_alerts_total"])
	assert.Equal(t, 1.0, values["inventory_followup_failures_total"])
}
