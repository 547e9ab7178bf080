package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.CatalogRepository = (*CatalogRepo)(nil)

// CatalogRepo contrato con el catálogo (productos y variantes) sobre PostgreSQL.
type CatalogRepo struct {
	q Querier
}

// NewCatalogRepository construye el adaptador del catálogo. Pasar pool o tx (Querier).
func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

// GetProduct obtiene un producto por ID.
func (r *CatalogRepo) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	var p entity.Product
	err := r.q.QueryRow(ctx,
		`SELECT id, name, display_stock, updated_at FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.DisplayStock, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// GetVariant obtiene una variante por ID.
func (r *CatalogRepo) GetVariant(ctx context.Context, id string) (*entity.Variant, error) {
	var v entity.Variant
	err := r.q.QueryRow(ctx,
		`SELECT id, product_id, name, display_stock, updated_at FROM product_variants WHERE id = $1`, id,
	).Scan(&v.ID, &v.ProductID, &v.Name, &v.DisplayStock, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}
	return &v, nil
}

// SetProductDisplayStock escribe el stock de exhibición del producto (sin efecto si no existe).
func (r *CatalogRepo) SetProductDisplayStock(ctx context.Context, productID string, qty int64) error {
	_, err := r.q.Exec(ctx,
		`UPDATE products SET display_stock = $2, updated_at = now() WHERE id = $1`, productID, qty,
	)
	if err != nil {
		return fmt.Errorf("update product display stock: %w", err)
	}
	return nil
}

// SetVariantDisplayStock escribe el stock de exhibición de la variante.
func (r *CatalogRepo) SetVariantDisplayStock(ctx context.Context, variantID string, qty int64) error {
	_, err := r.q.Exec(ctx,
		`UPDATE product_variants SET display_stock = $2, updated_at = now() WHERE id = $1`, variantID, qty,
	)
	if err != nil {
		return fmt.Errorf("update variant display stock: %w", err)
	}
	return nil
}

// ResyncDisplayStock recalcula en bloque productos y variantes a partir de inventory_lines.
func (r *CatalogRepo) ResyncDisplayStock(ctx context.Context) (int64, error) {
	products := `
		UPDATE products p
		SET display_stock = COALESCE((SELECT SUM(l.quantity) FROM inventory_lines l WHERE l.product_id = p.id), 0),
		    updated_at = now()`
	tagP, err := r.q.Exec(ctx, products)
	if err != nil {
		return 0, fmt.Errorf("resync products: %w", err)
	}
	variants := `
		UPDATE product_variants v
		SET display_stock = COALESCE((SELECT SUM(l.quantity) FROM inventory_lines l WHERE l.variant_id = v.id), 0),
		    updated_at = now()`
	tagV, err := r.q.Exec(ctx, variants)
	if err != nil {
		return 0, fmt.Errorf("resync variants: %w", err)
	}
	return tagP.RowsAffected() + tagV.RowsAffected(), nil
}
