package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// AlertRepository puerto de alertas de stock bajo.
type AlertRepository interface {
	// CreateIfAbsent inserta la alerta solo si la línea no tiene otra abierta.
	// created=false indica que ya existía una abierta (deduplicación).
	CreateIfAbsent(ctx context.Context, alert *entity.LowStockAlert) (created bool, err error)
	// FindOpenByLine devuelve nil, nil si no hay alerta abierta.
	FindOpenByLine(ctx context.Context, lineID string) (*entity.LowStockAlert, error)
	GetByID(ctx context.Context, id string) (*entity.LowStockAlert, error)
	// Resolve marca la alerta resuelta; resolved=false si ya lo estaba.
	Resolve(ctx context.Context, id string, at time.Time) (resolved bool, err error)
	ListOpen(ctx context.Context) ([]*entity.LowStockAlert, error)
}
