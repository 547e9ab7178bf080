package entity

import "time"

// Product contrato mínimo del catálogo. DisplayStock es un contador desnormalizado
// para lecturas rápidas; la fuente de verdad es InventoryLine.
type Product struct {
	ID           string
	Name         string
	DisplayStock int64
	UpdatedAt    time.Time
}

// Variant presentación de un producto (p. ej. caja x 30).
type Variant struct {
	ID           string
	ProductID    string
	Name         string
	DisplayStock int64
	UpdatedAt    time.Time
}
