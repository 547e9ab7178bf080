// Package metrics implementa el puerto de métricas del motor con Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var _ inventory.Metrics = (*Prometheus)(nil)

// Prometheus contadores e histogramas del motor de inventario.
type Prometheus struct {
	movements         *prometheus.CounterVec
	insufficientStock prometheus.Counter
	alertsCreated     prometheus.Counter
	followUpFailures  *prometheus.CounterVec
	txDuration        *prometheus.HistogramVec
}

// NewPrometheus crea y registra las métricas en reg (prometheus.DefaultRegisterer en producción,
// un registro propio en tests).
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	m := &Prometheus{
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_movements_total",
			Help: "Movimientos de inventario confirmados por tipo",
		}, []string{"kind"}),
		insufficientStock: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_insufficient_stock_total",
			Help: "Salidas rechazadas por stock insuficiente",
		}),
		alertsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_low_stock_alerts_total",
			Help: "Alertas de stock bajo creadas",
		}),
		followUpFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_followup_failures_total",
			Help: "Acciones post-commit que fallaron tras agotar reintentos",
		}, []string{"hook"}),
		txDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "inventory_tx_duration_seconds",
			Help:    "Duración de las transacciones de inventario",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(m.movements, m.insufficientStock, m.alertsCreated, m.followUpFailures, m.txDuration)
	return m
}

func (m *Prometheus) MovementApplied(kind entity.MovementKind) {
	m.movements.WithLabelValues(string(kind)).Inc()
}

func (m *Prometheus) InsufficientStock() { m.insufficientStock.Inc() }

func (m *Prometheus) AlertCreated() { m.alertsCreated.Inc() }

func (m *Prometheus) FollowUpFailed(hook string) {
	m.followUpFailures.WithLabelValues(hook).Inc()
}

func (m *Prometheus) ObserveTx(operation string, d time.Duration) {
	m.txDuration.WithLabelValues(operation).Observe(d.Seconds())
}
