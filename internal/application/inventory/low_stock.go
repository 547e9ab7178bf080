package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// LowStockMonitor crea alertas de stock bajo deduplicadas (una abierta por línea) y las
// resuelve cuando la cantidad vuelve a superar el umbral.
type LowStockMonitor struct {
	lines    repository.InventoryLineRepository
	alerts   repository.AlertRepository
	notifier AlertNotifier
	log      zerolog.Logger
	metrics  Metrics
	now      func() time.Time
}

// MonitorDeps dependencias del monitor.
type MonitorDeps struct {
	Lines    repository.InventoryLineRepository
	Alerts   repository.AlertRepository
	Notifier AlertNotifier
	Logger   *zerolog.Logger
	Metrics  Metrics
}

// NewLowStockMonitor construye el monitor.
func NewLowStockMonitor(deps MonitorDeps) *LowStockMonitor {
	log := zerolog.Nop()
	if deps.Logger != nil {
		log = deps.Logger.With().Str("component", "low_stock").Logger()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &LowStockMonitor{
		lines:    deps.Lines,
		alerts:   deps.Alerts,
		notifier: notifier,
		log:      log,
		metrics:  metrics,
		now:      time.Now,
	}
}

func (m *LowStockMonitor) Name() string { return "low_stock" }

// AfterCommit revisa las líneas tocadas por un commit.
func (m *LowStockMonitor) AfterCommit(ctx context.Context, lines []entity.InventoryLine) error {
	_, err := m.CheckLines(ctx, lines)
	return err
}

// CheckLines recarga cada línea (la foto del commit puede estar vieja) y aplica la regla:
// en o bajo el umbral abre alerta si no hay una abierta; sobre el umbral resuelve la abierta.
func (m *LowStockMonitor) CheckLines(ctx context.Context, lines []entity.InventoryLine) ([]*entity.LowStockAlert, error) {
	var created []*entity.LowStockAlert
	for _, l := range lines {
		current, err := m.lines.Get(ctx, l.Identity)
		if err != nil {
			return created, fmt.Errorf("reload line: %w", err)
		}
		if current == nil {
			continue
		}
		if current.IsLow() {
			alert, err := m.raise(ctx, current)
			if err != nil {
				return created, err
			}
			if alert != nil {
				created = append(created, alert)
			}
			continue
		}
		if err := m.resolveLine(ctx, current); err != nil {
			return created, err
		}
	}
	return created, nil
}

// ScanAndAlert recorre todas las líneas en o bajo su umbral y abre las alertas faltantes.
// Devuelve solo las alertas creadas en esta pasada.
func (m *LowStockMonitor) ScanAndAlert(ctx context.Context) ([]*entity.LowStockAlert, error) {
	low, err := m.lines.ListAtOrBelowThreshold(ctx)
	if err != nil {
		return nil, fmt.Errorf("list low lines: %w", err)
	}
	var created []*entity.LowStockAlert
	for _, l := range low {
		alert, err := m.raise(ctx, l)
		if err != nil {
			return created, err
		}
		if alert != nil {
			created = append(created, alert)
		}
	}
	if len(created) > 0 {
		m.log.Info().Int("created", len(created)).Int("low_lines", len(low)).Msg("barrido de stock bajo")
	}
	return created, nil
}

// ResolveRecovered resuelve las alertas abiertas cuya línea ya superó el umbral.
func (m *LowStockMonitor) ResolveRecovered(ctx context.Context) (int, error) {
	open, err := m.alerts.ListOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("list open alerts: %w", err)
	}
	resolved := 0
	for _, a := range open {
		line, err := m.lines.Get(ctx, a.Identity)
		if err != nil {
			return resolved, fmt.Errorf("reload line: %w", err)
		}
		if line != nil && line.IsLow() {
			continue
		}
		ok, err := m.alerts.Resolve(ctx, a.ID, m.now())
		if err != nil {
			return resolved, fmt.Errorf("resolve alert: %w", err)
		}
		if ok {
			resolved++
		}
	}
	return resolved, nil
}

// Resolve resuelve manualmente una alerta. Resolver una alerta ya resuelta no es error.
func (m *LowStockMonitor) Resolve(ctx context.Context, alertID string) (*entity.LowStockAlert, error) {
	alertID = strings.TrimSpace(alertID)
	if alertID == "" {
		return nil, domain.NewValidation("alert_id", "requerido")
	}
	alert, err := m.alerts.GetByID(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	if alert == nil {
		return nil, domain.ErrNotFound
	}
	if !alert.IsOpen() {
		return alert, nil
	}
	at := m.now()
	if _, err := m.alerts.Resolve(ctx, alertID, at); err != nil {
		return nil, fmt.Errorf("resolve alert: %w", err)
	}
	return m.alerts.GetByID(ctx, alertID)
}

// ListOpen alertas sin resolver.
func (m *LowStockMonitor) ListOpen(ctx context.Context) ([]*entity.LowStockAlert, error) {
	return m.alerts.ListOpen(ctx)
}

// raise crea la alerta si la línea no tiene una abierta. Devuelve nil si ya existía.
// Un fallo al notificar no deshace la alerta: queda registrado y se cuenta en métricas.
func (m *LowStockMonitor) raise(ctx context.Context, line *entity.InventoryLine) (*entity.LowStockAlert, error) {
	alert := &entity.LowStockAlert{
		ID:              uuid.New().String(),
		InventoryLineID: line.ID,
		Identity:        line.Identity,
		Quantity:        line.Quantity,
		Threshold:       line.LowStockThreshold,
		CreatedAt:       m.now(),
	}
	created, err := m.alerts.CreateIfAbsent(ctx, alert)
	if err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}
	if !created {
		return nil, nil
	}
	// Otro commit pudo subir la línea entre la lectura y la creación de la alerta.
	current, err := m.lines.Get(ctx, line.Identity)
	if err != nil {
		return nil, fmt.Errorf("reload line: %w", err)
	}
	if current != nil && !current.IsLow() {
		if _, err := m.alerts.Resolve(ctx, alert.ID, m.now()); err != nil {
			return nil, fmt.Errorf("resolve alert: %w", err)
		}
		return nil, nil
	}
	m.metrics.AlertCreated()
	m.log.Warn().
		Str("alert_id", alert.ID).
		Str("line", line.Identity.String()).
		Int64("quantity", line.Quantity).
		Int64("threshold", line.LowStockThreshold).
		Msg("alerta de stock bajo")

	if err := m.notifier.AlertCreated(ctx, newAlertCreatedEvent(alert)); err != nil {
		m.metrics.FollowUpFailed("alert_notifier")
		m.log.Error().Err(err).Str("alert_id", alert.ID).Msg("no se pudo notificar la alerta")
	}
	return alert, nil
}

func (m *LowStockMonitor) resolveLine(ctx context.Context, line *entity.InventoryLine) error {
	open, err := m.alerts.FindOpenByLine(ctx, line.ID)
	if err != nil {
		return fmt.Errorf("find open alert: %w", err)
	}
	if open == nil {
		return nil
	}
	ok, err := m.alerts.Resolve(ctx, open.ID, m.now())
	if err != nil {
		return fmt.Errorf("resolve alert: %w", err)
	}
	if ok {
		m.log.Info().Str("alert_id", open.ID).Int64("quantity", line.Quantity).Msg("alerta de stock bajo resuelta")
	}
	return nil
}
