package entity

import "time"

// LowStockAlert alerta deduplicada: a lo sumo una abierta por línea de inventario.
type LowStockAlert struct {
	ID              string
	InventoryLineID string
	Identity        Identity
	Quantity        int64 // foto al crear la alerta
	Threshold       int64
	CreatedAt       time.Time
	ResolvedAt      *time.Time
}

// IsOpen indica si la alerta sigue sin resolver.
func (a *LowStockAlert) IsOpen() bool {
	return a.ResolvedAt == nil
}
