package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRepos repositorios atados a una misma transacción.
type TxRepos struct {
	Lines  repository.InventoryLineRepository
	Ledger repository.LedgerRepository
	Sales  repository.SaleRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Commit si fn retorna nil, Rollback en cualquier otro caso. Garantiza atomicidad para el motor de inventario.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos TxRepos) error) error
}

// PostCommitHook acción de seguimiento que se ejecuta después del commit con las líneas tocadas.
// Su fallo nunca revierte el cambio de stock ya confirmado.
type PostCommitHook interface {
	Name() string
	AfterCommit(ctx context.Context, lines []entity.InventoryLine) error
}

// Metrics puerto de métricas del motor (Prometheus en producción).
type Metrics interface {
	MovementApplied(kind entity.MovementKind)
	InsufficientStock()
	AlertCreated()
	FollowUpFailed(hook string)
	ObserveTx(operation string, d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) MovementApplied(entity.MovementKind) {}
func (noopMetrics) InsufficientStock() {}
func (noopMetrics) AlertCreated() {}
func (noopMetrics) FollowUpFailed(string) {}
func (noopMetrics) ObserveTx(string, time.Duration) {}
