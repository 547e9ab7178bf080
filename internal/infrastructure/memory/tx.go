package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// memTx escrituras pendientes y bloqueos de una transacción.
type memTx struct {
	s      *Store
	held   []string
	locked map[string]bool

	lines     map[string]*entity.InventoryLine // por Identity.Key()
	ledger    []*entity.LedgerEntry
	sales     map[string]*entity.Sale
	saleOrder []string
}

func (s *Store) begin() *memTx {
	return &memTx{
		s:      s,
		locked: make(map[string]bool),
		lines:  make(map[string]*entity.InventoryLine),
		sales:  make(map[string]*entity.Sale),
	}
}

func (tx *memTx) repos() inventory.TxRepos {
	return inventory.TxRepos{
		Lines:  &LineRepo{s: tx.s, tx: tx},
		Ledger: &LedgerRepo{s: tx.s, tx: tx},
		Sales:  &SaleRepo{s: tx.s, tx: tx},
	}
}

// lock es reentrante dentro de la misma transacción.
func (tx *memTx) lock(ctx context.Context, key string) error {
	if tx.locked[key] {
		return nil
	}
	if err := tx.s.lockRow(ctx, key); err != nil {
		return err
	}
	tx.locked[key] = true
	tx.held = append(tx.held, key)
	return nil
}

func (tx *memTx) commit() {
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, l := range tx.lines {
		s.lines[key] = copyLine(l)
	}
	s.ledger = append(s.ledger, tx.ledger...)
	for _, id := range tx.saleOrder {
		s.sales[id] = copySale(tx.sales[id])
	}
}

func (tx *memTx) release() {
	for i := len(tx.held) - 1; i >= 0; i-- {
		tx.s.unlockRow(tx.held[i])
	}
	tx.held = nil
	tx.locked = nil
}

func lineLockKey(id entity.Identity) string { return "line:" + id.Key() }
func saleLockKey(id string) string          { return "sale:" + id }

// getOrCreateLine requiere el bloqueo de la fila ya tomado.
func (tx *memTx) getOrCreateLine(id entity.Identity, defaultThreshold int64) *entity.InventoryLine {
	key := id.Key()
	if l, ok := tx.lines[key]; ok {
		return copyLine(l)
	}
	tx.s.mu.Lock()
	committed, ok := tx.s.lines[key]
	var line *entity.InventoryLine
	if ok {
		line = copyLine(committed)
	}
	tx.s.mu.Unlock()
	if line == nil {
		now := timeNow()
		line = &entity.InventoryLine{
			ID:                uuid.New().String(),
			Identity:          id,
			LowStockThreshold: defaultThreshold,
			LastUpdated:       now,
			CreatedAt:         now,
		}
	}
	tx.lines[key] = copyLine(line)
	return line
}

func (tx *memTx) updateLine(line *entity.InventoryLine) error {
	key := line.Identity.Key()
	if !tx.locked[lineLockKey(line.Identity)] {
		return fmt.Errorf("update inventory line %s: la fila no está bloqueada", line.ID)
	}
	cur, ok := tx.lines[key]
	if !ok || cur.ID != line.ID {
		return fmt.Errorf("update inventory line %s: fila inexistente", line.ID)
	}
	tx.lines[key] = copyLine(line)
	return nil
}
