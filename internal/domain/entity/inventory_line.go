package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryLine es la foto de cantidad actual por identidad (fuente de verdad del stock).
// Nunca se elimina: las líneas en cero se conservan como ancla del historial.
type InventoryLine struct {
	ID                string
	Identity          Identity
	Quantity          int64
	LowStockThreshold int64
	SupplierRef       string
	PurchasePrice     *decimal.Decimal
	LastUpdated       time.Time
	CreatedAt         time.Time
}

// CanApply indica si aplicar delta mantiene quantity >= 0.
func (l *InventoryLine) CanApply(delta int64) bool {
	return l.Quantity+delta >= 0
}

// IsLow indica si la línea está en o bajo su umbral.
func (l *InventoryLine) IsLow() bool {
	return l.Quantity <= l.LowStockThreshold
}
