package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// LedgerRepository puerto del libro de movimientos (solo inserción, sin update ni delete).
type LedgerRepository interface {
	Create(ctx context.Context, entry *entity.LedgerEntry) error
	// ListByLine historial de una línea, más reciente primero.
	ListByLine(ctx context.Context, lineID string, limit, offset int) ([]*entity.LedgerEntry, error)
	// ListBySource movimientos de un documento de origen, en orden de creación.
	ListBySource(ctx context.Context, source entity.Source) ([]*entity.LedgerEntry, error)
}
