package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.AlertRepository = (*AlertRepo)(nil)

const alertColumns = `id, inventory_line_id, product_id, variant_id, warehouse_id, batch, quantity, threshold, created_at, resolved_at`

// AlertRepo alertas de stock bajo. La deduplicación la garantiza el índice único parcial
// uq_low_stock_alerts_open (una abierta por línea).
type AlertRepo struct {
	q Querier
}

// NewAlertRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAlertRepository(q Querier) *AlertRepo {
	return &AlertRepo{q: q}
}

// CreateIfAbsent inserta la alerta salvo que la línea ya tenga una abierta.
func (r *AlertRepo) CreateIfAbsent(ctx context.Context, a *entity.LowStockAlert) (bool, error) {
	query := `
		INSERT INTO low_stock_alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL)
		ON CONFLICT (inventory_line_id) WHERE resolved_at IS NULL DO NOTHING`
	tag, err := r.q.Exec(ctx, query,
		a.ID, a.InventoryLineID, a.Identity.ProductID, a.Identity.VariantID, a.Identity.WarehouseID, a.Identity.Batch,
		a.Quantity, a.Threshold, a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("create alert: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// FindOpenByLine alerta abierta de la línea; nil, nil si no hay.
func (r *AlertRepo) FindOpenByLine(ctx context.Context, lineID string) (*entity.LowStockAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM low_stock_alerts WHERE inventory_line_id = $1 AND resolved_at IS NULL`
	a, err := scanAlert(r.q.QueryRow(ctx, query, lineID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find open alert: %w", err)
	}
	return a, nil
}

// GetByID obtiene una alerta; nil, nil si no existe.
func (r *AlertRepo) GetByID(ctx context.Context, id string) (*entity.LowStockAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM low_stock_alerts WHERE id = $1`
	a, err := scanAlert(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

// Resolve marca la alerta resuelta; false si ya lo estaba o no existe.
func (r *AlertRepo) Resolve(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE low_stock_alerts SET resolved_at = $2 WHERE id = $1 AND resolved_at IS NULL`, id, at,
	)
	if err != nil {
		return false, fmt.Errorf("resolve alert: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListOpen alertas sin resolver, más antiguas primero.
func (r *AlertRepo) ListOpen(ctx context.Context) ([]*entity.LowStockAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM low_stock_alerts WHERE resolved_at IS NULL ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list open alerts: %w", err)
	}
	defer rows.Close()
	var list []*entity.LowStockAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func scanAlert(row pgx.Row) (*entity.LowStockAlert, error) {
	var a entity.LowStockAlert
	err := row.Scan(
		&a.ID, &a.InventoryLineID, &a.Identity.ProductID, &a.Identity.VariantID, &a.Identity.WarehouseID, &a.Identity.Batch,
		&a.Quantity, &a.Threshold, &a.CreatedAt, &a.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
