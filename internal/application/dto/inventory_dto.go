package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// IdentityDTO identidad de una línea de inventario.
type IdentityDTO struct {
	ProductID   string `json:"product_id" query:"product_id"`
	VariantID   string `json:"variant_id,omitempty" query:"variant_id"`
	WarehouseID string `json:"warehouse_id" query:"warehouse_id"`
	Batch       string `json:"batch,omitempty" query:"batch"`
}

// ToEntity convierte a entity.Identity.
func (i IdentityDTO) ToEntity() entity.Identity {
	return entity.Identity{ProductID: i.ProductID, VariantID: i.VariantID, WarehouseID: i.WarehouseID, Batch: i.Batch}
}

func identityFrom(id entity.Identity) IdentityDTO {
	return IdentityDTO{ProductID: id.ProductID, VariantID: id.VariantID, WarehouseID: id.WarehouseID, Batch: id.Batch}
}

// SourceDTO documento de origen ("sale", "purchase", "manual").
type SourceDTO struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// ToEntity convierte a entity.Source; nil = sin origen.
func (s *SourceDTO) ToEntity() entity.Source {
	if s == nil {
		return entity.Source{}
	}
	return entity.Source{Kind: entity.SourceKind(s.Kind), ID: s.ID}
}

// RegisterMovementRequest body para POST /api/inventory/movements.
type RegisterMovementRequest struct {
	IdentityDTO
	Type     string           `json:"type"`     // IN | OUT | ADJUSTMENT
	Quantity int64            `json:"quantity"` // ADJUSTMENT: delta con signo
	UnitCost *decimal.Decimal `json:"unit_cost,omitempty"`
	Notes    string           `json:"notes,omitempty"`
	Source   *SourceDTO       `json:"source,omitempty"`
}

// BulkMovementItem ítem de un lote de movimientos.
type BulkMovementItem struct {
	IdentityDTO
	Type     string           `json:"type"`
	Quantity int64            `json:"quantity"`
	UnitCost *decimal.Decimal `json:"unit_cost,omitempty"`
	Notes    string           `json:"notes,omitempty"`
}

// ToEntity convierte a entity.Movement.
func (m BulkMovementItem) ToEntity() entity.Movement {
	return entity.Movement{
		Identity: m.IdentityDTO.ToEntity(),
		Kind:     entity.MovementKind(m.Type),
		Quantity: m.Quantity,
		UnitCost: m.UnitCost,
		Notes:    m.Notes,
	}
}

// BulkMovementRequest body para POST /api/inventory/movements/bulk (todo o nada).
type BulkMovementRequest struct {
	Movements []BulkMovementItem `json:"movements"`
	Source    *SourceDTO         `json:"source,omitempty"`
}

// LineSettingsRequest body para PUT /api/inventory/lines/settings. Campos nil = sin cambio.
type LineSettingsRequest struct {
	IdentityDTO
	LowStockThreshold *int64           `json:"low_stock_threshold,omitempty"`
	SupplierRef       *string          `json:"supplier_ref,omitempty"`
	PurchasePrice     *decimal.Decimal `json:"purchase_price,omitempty"`
}

// LedgerEntryResponse movimiento registrado.
type LedgerEntryResponse struct {
	ID              string `json:"id"`
	InventoryLineID string `json:"inventory_line_id"`
	IdentityDTO
	Type         string           `json:"type"`
	Quantity     int64            `json:"quantity"`
	BalanceAfter int64            `json:"balance_after"`
	UnitCost     *decimal.Decimal `json:"unit_cost,omitempty"`
	PerformedBy  string           `json:"performed_by"`
	Notes        string           `json:"notes,omitempty"`
	Source       *SourceDTO       `json:"source,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// FromLedgerEntry mapea la entidad a respuesta.
func FromLedgerEntry(e *entity.LedgerEntry) LedgerEntryResponse {
	out := LedgerEntryResponse{
		ID:              e.ID,
		InventoryLineID: e.InventoryLineID,
		IdentityDTO:     identityFrom(e.Identity),
		Type:            string(e.Kind),
		Quantity:        e.Quantity,
		BalanceAfter:    e.BalanceAfter,
		UnitCost:        e.UnitCost,
		PerformedBy:     e.PerformedBy,
		Notes:           e.Notes,
		CreatedAt:       e.CreatedAt,
	}
	if !e.Source.IsZero() {
		out.Source = &SourceDTO{Kind: string(e.Source.Kind), ID: e.Source.ID}
	}
	return out
}

// FromLedgerEntries mapea una lista.
func FromLedgerEntries(entries []*entity.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, FromLedgerEntry(e))
	}
	return out
}

// InventoryLineResponse estado actual de una línea.
type InventoryLineResponse struct {
	ID string `json:"id"`
	IdentityDTO
	Quantity          int64            `json:"quantity"`
	LowStockThreshold int64            `json:"low_stock_threshold"`
	SupplierRef       string           `json:"supplier_ref,omitempty"`
	PurchasePrice     *decimal.Decimal `json:"purchase_price,omitempty"`
	LastUpdated       time.Time        `json:"last_updated"`
}

// FromInventoryLine mapea la entidad a respuesta.
func FromInventoryLine(l *entity.InventoryLine) InventoryLineResponse {
	return InventoryLineResponse{
		ID:                l.ID,
		IdentityDTO:       identityFrom(l.Identity),
		Quantity:          l.Quantity,
		LowStockThreshold: l.LowStockThreshold,
		SupplierRef:       l.SupplierRef,
		PurchasePrice:     l.PurchasePrice,
		LastUpdated:       l.LastUpdated,
	}
}
