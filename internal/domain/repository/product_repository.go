package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// CatalogRepository contrato con el catálogo: existencia de productos/variantes y
// escritura del stock de exhibición desnormalizado.
type CatalogRepository interface {
	// GetProduct devuelve nil, nil si no existe.
	GetProduct(ctx context.Context, id string) (*entity.Product, error)
	// GetVariant devuelve nil, nil si no existe.
	GetVariant(ctx context.Context, id string) (*entity.Variant, error)
	SetProductDisplayStock(ctx context.Context, productID string, qty int64) error
	SetVariantDisplayStock(ctx context.Context, variantID string, qty int64) error
	// ResyncDisplayStock recalcula el stock de exhibición de todos los productos y variantes
	// como suma de sus líneas (0 si no tienen). Devuelve el número de filas actualizadas.
	ResyncDisplayStock(ctx context.Context) (int64, error)
}
