package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// InventoryLineRepository define el puerto para las líneas de inventario (stock por identidad).
// Usado dentro de transacciones para garantizar consistencia.
type InventoryLineRepository interface {
	// GetOrCreateForUpdate bloquea la fila (SELECT FOR UPDATE) hasta el fin de la transacción.
	// Si la identidad no existe la crea con cantidad 0 y el umbral indicado.
	GetOrCreateForUpdate(ctx context.Context, id entity.Identity, defaultThreshold int64) (*entity.InventoryLine, error)
	// Update persiste cantidad, atributos y last_updated de una línea ya bloqueada.
	Update(ctx context.Context, line *entity.InventoryLine) error
	// Get devuelve nil, nil si la identidad no existe.
	Get(ctx context.Context, id entity.Identity) (*entity.InventoryLine, error)
	// ListAtOrBelowThreshold líneas con quantity <= low_stock_threshold.
	ListAtOrBelowThreshold(ctx context.Context) ([]*entity.InventoryLine, error)
	// SumByProduct suma de cantidades de todas las líneas del producto (todas las bodegas).
	SumByProduct(ctx context.Context, productID string) (int64, error)
	// SumByVariant suma de cantidades de todas las líneas de la variante.
	SumByVariant(ctx context.Context, variantID string) (int64, error)
}
