package entity

import (
	"strings"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// Identity es la clave de una línea de inventario: (producto, variante?, bodega, lote?).
// VariantID y Batch vacíos significan "sin variante" y "sin lote".
type Identity struct {
	ProductID   string
	VariantID   string
	WarehouseID string
	Batch       string
}

// Normalize recorta espacios; un lote "  " equivale a sin lote.
func (i Identity) Normalize() Identity {
	return Identity{
		ProductID:   strings.TrimSpace(i.ProductID),
		VariantID:   strings.TrimSpace(i.VariantID),
		WarehouseID: strings.TrimSpace(i.WarehouseID),
		Batch:       strings.TrimSpace(i.Batch),
	}
}

// Validate exige producto y bodega.
func (i Identity) Validate() error {
	if i.ProductID == "" {
		return domain.NewValidation("product_id", "requerido")
	}
	if i.WarehouseID == "" {
		return domain.NewValidation("warehouse_id", "requerido")
	}
	return nil
}

// Key devuelve una clave canónica y ordenable. Se usa para fijar el orden de
// adquisición de bloqueos y evitar deadlocks entre operaciones masivas.
func (i Identity) Key() string {
	return i.WarehouseID + "\x00" + i.ProductID + "\x00" + i.VariantID + "\x00" + i.Batch
}

// String representación legible para errores y logs.
func (i Identity) String() string {
	var b strings.Builder
	b.WriteString("product=")
	b.WriteString(i.ProductID)
	if i.VariantID != "" {
		b.WriteString(" variant=")
		b.WriteString(i.VariantID)
	}
	b.WriteString(" warehouse=")
	b.WriteString(i.WarehouseID)
	if i.Batch != "" {
		b.WriteString(" batch=")
		b.WriteString(i.Batch)
	}
	return b.String()
}
