package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.InventoryLineRepository = (*InventoryLineRepo)(nil)

const inventoryLineColumns = `id, product_id, variant_id, warehouse_id, batch, quantity, low_stock_threshold,
		supplier_ref, purchase_price, last_updated, created_at`

// InventoryLineRepo implementación de InventoryLineRepository sobre PostgreSQL (usable con pool o tx).
type InventoryLineRepo struct {
	q Querier
}

// NewInventoryLineRepository construye el adaptador de líneas. Pasar pool o tx (Querier).
func NewInventoryLineRepository(q Querier) *InventoryLineRepo {
	return &InventoryLineRepo{q: q}
}

// GetOrCreateForUpdate inserta la línea en 0 si no existe (ON CONFLICT DO NOTHING espera a un
// insert concurrente) y luego la bloquea con SELECT FOR UPDATE.
func (r *InventoryLineRepo) GetOrCreateForUpdate(ctx context.Context, id entity.Identity, defaultThreshold int64) (*entity.InventoryLine, error) {
	insert := `
		INSERT INTO inventory_lines (id, product_id, variant_id, warehouse_id, batch, quantity, low_stock_threshold, last_updated, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, now(), now())
		ON CONFLICT (product_id, variant_id, warehouse_id, batch) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert,
		uuid.New().String(), id.ProductID, id.VariantID, id.WarehouseID, id.Batch, defaultThreshold,
	); err != nil {
		return nil, fmt.Errorf("create inventory line: %w", err)
	}

	query := `SELECT ` + inventoryLineColumns + `
		FROM inventory_lines
		WHERE product_id = $1 AND variant_id = $2 AND warehouse_id = $3 AND batch = $4
		FOR UPDATE`
	line, err := scanInventoryLine(r.q.QueryRow(ctx, query, id.ProductID, id.VariantID, id.WarehouseID, id.Batch))
	if err != nil {
		return nil, fmt.Errorf("get inventory line for update: %w", err)
	}
	return line, nil
}

// Update persiste cantidad y atributos de una línea ya bloqueada.
func (r *InventoryLineRepo) Update(ctx context.Context, line *entity.InventoryLine) error {
	query := `
		UPDATE inventory_lines
		SET quantity = $2, low_stock_threshold = $3, supplier_ref = $4, purchase_price = $5, last_updated = $6
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		line.ID, line.Quantity, line.LowStockThreshold, line.SupplierRef, line.PurchasePrice, line.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("update inventory line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update inventory line %s: fila inexistente", line.ID)
	}
	return nil
}

// Get lectura sin bloqueo; nil, nil si la identidad no existe.
func (r *InventoryLineRepo) Get(ctx context.Context, id entity.Identity) (*entity.InventoryLine, error) {
	query := `SELECT ` + inventoryLineColumns + `
		FROM inventory_lines
		WHERE product_id = $1 AND variant_id = $2 AND warehouse_id = $3 AND batch = $4`
	line, err := scanInventoryLine(r.q.QueryRow(ctx, query, id.ProductID, id.VariantID, id.WarehouseID, id.Batch))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get inventory line: %w", err)
	}
	return line, nil
}

// ListAtOrBelowThreshold líneas en o bajo su umbral, de mayor déficit a menor.
func (r *InventoryLineRepo) ListAtOrBelowThreshold(ctx context.Context) ([]*entity.InventoryLine, error) {
	query := `SELECT ` + inventoryLineColumns + `
		FROM inventory_lines
		WHERE quantity <= low_stock_threshold
		ORDER BY (low_stock_threshold - quantity) DESC, id`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list low stock lines: %w", err)
	}
	defer rows.Close()
	var list []*entity.InventoryLine
	for rows.Next() {
		line, err := scanInventoryLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory line: %w", err)
		}
		list = append(list, line)
	}
	return list, rows.Err()
}

// SumByProduct suma de todas las líneas del producto en todas las bodegas.
func (r *InventoryLineRepo) SumByProduct(ctx context.Context, productID string) (int64, error) {
	var total int64
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0)::BIGINT FROM inventory_lines WHERE product_id = $1`, productID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum product stock: %w", err)
	}
	return total, nil
}

// SumByVariant suma de todas las líneas de la variante.
func (r *InventoryLineRepo) SumByVariant(ctx context.Context, variantID string) (int64, error) {
	var total int64
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0)::BIGINT FROM inventory_lines WHERE variant_id = $1`, variantID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum variant stock: %w", err)
	}
	return total, nil
}

func scanInventoryLine(row pgx.Row) (*entity.InventoryLine, error) {
	var l entity.InventoryLine
	err := row.Scan(
		&l.ID, &l.Identity.ProductID, &l.Identity.VariantID, &l.Identity.WarehouseID, &l.Identity.Batch,
		&l.Quantity, &l.LowStockThreshold, &l.SupplierRef, &l.PurchasePrice, &l.LastUpdated, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
