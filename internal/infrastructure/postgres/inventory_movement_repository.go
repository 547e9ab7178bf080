package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

const ledgerColumns = `id, inventory_line_id, product_id, variant_id, warehouse_id, batch, kind, quantity,
		balance_after, unit_cost, performed_by, notes, source_kind, source_id, created_at`

// LedgerRepo libro de movimientos sobre PostgreSQL. Solo inserta: un trigger rechaza UPDATE y DELETE.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// Create persiste un movimiento de inventario.
func (r *LedgerRepo) Create(ctx context.Context, e *entity.LedgerEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	query := `
		INSERT INTO inventory_ledger (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.InventoryLineID, e.Identity.ProductID, e.Identity.VariantID, e.Identity.WarehouseID, e.Identity.Batch,
		string(e.Kind), e.Quantity, e.BalanceAfter, e.UnitCost, e.PerformedBy, e.Notes,
		string(e.Source.Kind), e.Source.ID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create ledger entry: %w", err)
	}
	return nil
}

// ListByLine historial de una línea, más reciente primero.
func (r *LedgerRepo) ListByLine(ctx context.Context, lineID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM inventory_ledger WHERE inventory_line_id = $1
		ORDER BY seq DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, lineID, limit, offset)
}

// ListBySource movimientos de un documento de origen en orden de creación.
func (r *LedgerRepo) ListBySource(ctx context.Context, source entity.Source) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM inventory_ledger WHERE source_kind = $1 AND source_id = $2
		ORDER BY seq`
	return r.list(ctx, query, string(source.Kind), source.ID)
}

func (r *LedgerRepo) list(ctx context.Context, query string, args ...any) ([]*entity.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()
	var list []*entity.LedgerEntry
	for rows.Next() {
		var e entity.LedgerEntry
		var kind, sourceKind string
		if err := rows.Scan(
			&e.ID, &e.InventoryLineID, &e.Identity.ProductID, &e.Identity.VariantID, &e.Identity.WarehouseID, &e.Identity.Batch,
			&kind, &e.Quantity, &e.BalanceAfter, &e.UnitCost, &e.PerformedBy, &e.Notes,
			&sourceKind, &e.Source.ID, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Kind = entity.MovementKind(kind)
		e.Source.Kind = entity.SourceKind(sourceKind)
		list = append(list, &e)
	}
	return list, rows.Err()
}
