package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// AlertCreatedEvent se emite al crear una alerta de stock bajo (consumido por notificaciones).
type AlertCreatedEvent struct {
	AlertID         string    `json:"alert_id"`
	InventoryLineID string    `json:"inventory_line_id"`
	ProductID       string    `json:"product_id"`
	VariantID       string    `json:"variant_id,omitempty"`
	WarehouseID     string    `json:"warehouse_id"`
	Batch           string    `json:"batch,omitempty"`
	Quantity        int64     `json:"quantity"`
	Threshold       int64     `json:"threshold"`
	CreatedAt       time.Time `json:"created_at"`
}

// StockChangedEvent se emite por cada línea tocada en un commit (difusión en vivo).
type StockChangedEvent struct {
	InventoryLineID string    `json:"inventory_line_id"`
	ProductID       string    `json:"product_id"`
	VariantID       string    `json:"variant_id,omitempty"`
	WarehouseID     string    `json:"warehouse_id"`
	Batch           string    `json:"batch,omitempty"`
	Quantity        int64     `json:"quantity"`
	ChangedAt       time.Time `json:"changed_at"`
}

// AlertNotifier colaborador de notificación (email/SMS/dashboard) detrás de un bus de eventos.
type AlertNotifier interface {
	AlertCreated(ctx context.Context, evt AlertCreatedEvent) error
}

// StockBroadcaster difusor opcional de cambios de stock.
type StockBroadcaster interface {
	StockChanged(ctx context.Context, evt StockChangedEvent) error
}

// NoopNotifier descarta los eventos.
type NoopNotifier struct{}

func (NoopNotifier) AlertCreated(context.Context, AlertCreatedEvent) error { return nil }

// NoopBroadcaster descarta los eventos.
type NoopBroadcaster struct{}

func (NoopBroadcaster) StockChanged(context.Context, StockChangedEvent) error { return nil }

func newAlertCreatedEvent(a *entity.LowStockAlert) AlertCreatedEvent {
	return AlertCreatedEvent{
		AlertID:         a.ID,
		InventoryLineID: a.InventoryLineID,
		ProductID:       a.Identity.ProductID,
		VariantID:       a.Identity.VariantID,
		WarehouseID:     a.Identity.WarehouseID,
		Batch:           a.Identity.Batch,
		Quantity:        a.Quantity,
		Threshold:       a.Threshold,
		CreatedAt:       a.CreatedAt,
	}
}

// StockBroadcastHook adapta un StockBroadcaster como acción post-commit.
type StockBroadcastHook struct {
	broadcaster StockBroadcaster
}

// NewStockBroadcastHook construye el hook; nil equivale a NoopBroadcaster.
func NewStockBroadcastHook(b StockBroadcaster) *StockBroadcastHook {
	if b == nil {
		b = NoopBroadcaster{}
	}
	return &StockBroadcastHook{broadcaster: b}
}

func (h *StockBroadcastHook) Name() string { return "stock_broadcast" }

func (h *StockBroadcastHook) AfterCommit(ctx context.Context, lines []entity.InventoryLine) error {
	for _, l := range lines {
		evt := StockChangedEvent{
			InventoryLineID: l.ID,
			ProductID:       l.Identity.ProductID,
			VariantID:       l.Identity.VariantID,
			WarehouseID:     l.Identity.WarehouseID,
			Batch:           l.Identity.Batch,
			Quantity:        l.Quantity,
			ChangedAt:       l.LastUpdated,
		}
		if err := h.broadcaster.StockChanged(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}
