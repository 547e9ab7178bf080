package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.InventoryLineRepository = (*LineRepo)(nil)
	_ repository.LedgerRepository        = (*LedgerRepo)(nil)
	_ repository.SaleRepository          = (*SaleRepo)(nil)
	_ repository.AlertRepository         = (*AlertRepo)(nil)
	_ repository.CatalogRepository       = (*CatalogRepo)(nil)
	_ repository.WarehouseRepository     = (*WarehouseRepo)(nil)
)

var timeNow = time.Now

// ─── Líneas de inventario ─────────────────────────────────────────────────────

// LineRepo líneas de inventario. Con tx == nil cada escritura es su propia transacción.
type LineRepo struct {
	s  *Store
	tx *memTx
}

func (r *LineRepo) GetOrCreateForUpdate(ctx context.Context, id entity.Identity, defaultThreshold int64) (*entity.InventoryLine, error) {
	if r.tx == nil {
		var line *entity.InventoryLine
		err := r.s.Run(ctx, func(repos inventory.TxRepos) error {
			var err error
			line, err = repos.Lines.GetOrCreateForUpdate(ctx, id, defaultThreshold)
			return err
		})
		return line, err
	}
	if err := r.tx.lock(ctx, lineLockKey(id)); err != nil {
		return nil, err
	}
	return r.tx.getOrCreateLine(id, defaultThreshold), nil
}

func (r *LineRepo) Update(ctx context.Context, line *entity.InventoryLine) error {
	if r.tx == nil {
		return r.s.Run(ctx, func(repos inventory.TxRepos) error {
			tx := repos.Lines.(*LineRepo).tx
			if err := tx.lock(ctx, lineLockKey(line.Identity)); err != nil {
				return err
			}
			r.s.mu.Lock()
			_, ok := r.s.lines[line.Identity.Key()]
			r.s.mu.Unlock()
			if !ok {
				return fmt.Errorf("update inventory line %s: fila inexistente", line.ID)
			}
			tx.getOrCreateLine(line.Identity, line.LowStockThreshold)
			return tx.updateLine(line)
		})
	}
	return r.tx.updateLine(line)
}

func (r *LineRepo) Get(_ context.Context, id entity.Identity) (*entity.InventoryLine, error) {
	key := id.Key()
	if r.tx != nil {
		if l, ok := r.tx.lines[key]; ok {
			return copyLine(l), nil
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.lines[key]
	if !ok {
		return nil, nil
	}
	return copyLine(l), nil
}

func (r *LineRepo) ListAtOrBelowThreshold(context.Context) ([]*entity.InventoryLine, error) {
	r.s.mu.Lock()
	var list []*entity.InventoryLine
	for _, l := range r.s.lines {
		if l.IsLow() {
			list = append(list, copyLine(l))
		}
	}
	r.s.mu.Unlock()
	sort.Slice(list, func(i, j int) bool {
		di := list[i].LowStockThreshold - list[i].Quantity
		dj := list[j].LowStockThreshold - list[j].Quantity
		if di != dj {
			return di > dj
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (r *LineRepo) SumByProduct(_ context.Context, productID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var total int64
	for _, l := range r.s.lines {
		if l.Identity.ProductID == productID {
			total += l.Quantity
		}
	}
	return total, nil
}

func (r *LineRepo) SumByVariant(_ context.Context, variantID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var total int64
	for _, l := range r.s.lines {
		if variantID != "" && l.Identity.VariantID == variantID {
			total += l.Quantity
		}
	}
	return total, nil
}

// ─── Libro de movimientos ─────────────────────────────────────────────────────

// LedgerRepo libro solo inserción.
type LedgerRepo struct {
	s  *Store
	tx *memTx
}

func (r *LedgerRepo) Create(_ context.Context, e *entity.LedgerEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	c := *e
	if r.tx != nil {
		r.tx.ledger = append(r.tx.ledger, &c)
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.ledger = append(r.s.ledger, &c)
	return nil
}

func (r *LedgerRepo) ListByLine(_ context.Context, lineID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var list []*entity.LedgerEntry
	skipped := 0
	for i := len(r.s.ledger) - 1; i >= 0; i-- {
		e := r.s.ledger[i]
		if e.InventoryLineID != lineID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if limit > 0 && len(list) >= limit {
			break
		}
		c := *e
		list = append(list, &c)
	}
	return list, nil
}

func (r *LedgerRepo) ListBySource(_ context.Context, source entity.Source) ([]*entity.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var list []*entity.LedgerEntry
	for _, e := range r.s.ledger {
		if e.Source == source {
			c := *e
			list = append(list, &c)
		}
	}
	return list, nil
}

// ─── Ventas ───────────────────────────────────────────────────────────────────

// SaleRepo ventas; GetForUpdate bloquea la cabecera hasta el fin de la transacción.
type SaleRepo struct {
	s  *Store
	tx *memTx
}

func (r *SaleRepo) Create(_ context.Context, sale *entity.Sale) error {
	if r.tx != nil {
		if _, ok := r.tx.sales[sale.ID]; ok {
			return fmt.Errorf("insert sale %s: %w", sale.ID, domain.ErrConflict)
		}
		r.tx.sales[sale.ID] = copySale(sale)
		r.tx.saleOrder = append(r.tx.saleOrder, sale.ID)
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sales[sale.ID]; ok {
		return fmt.Errorf("insert sale %s: %w", sale.ID, domain.ErrConflict)
	}
	r.s.sales[sale.ID] = copySale(sale)
	return nil
}

func (r *SaleRepo) GetByID(_ context.Context, id string) (*entity.Sale, error) {
	if r.tx != nil {
		if s, ok := r.tx.sales[id]; ok {
			return copySale(s), nil
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s, ok := r.s.sales[id]
	if !ok {
		return nil, nil
	}
	return copySale(s), nil
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, id string) (*entity.Sale, error) {
	if r.tx == nil {
		return r.GetByID(ctx, id)
	}
	if err := r.tx.lock(ctx, saleLockKey(id)); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *SaleRepo) MarkCancelled(_ context.Context, sale *entity.Sale) error {
	if r.tx == nil {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		if _, ok := r.s.sales[sale.ID]; !ok {
			return fmt.Errorf("cancel sale %s: %w", sale.ID, domain.ErrNotFound)
		}
		r.s.sales[sale.ID] = copySale(sale)
		return nil
	}
	if !r.tx.locked[saleLockKey(sale.ID)] {
		return fmt.Errorf("cancel sale %s: la venta no está bloqueada", sale.ID)
	}
	if _, ok := r.tx.sales[sale.ID]; !ok {
		r.tx.saleOrder = append(r.tx.saleOrder, sale.ID)
	}
	r.tx.sales[sale.ID] = copySale(sale)
	return nil
}

// ─── Alertas ──────────────────────────────────────────────────────────────────

// AlertRepo alertas de stock bajo; la comprobación y la inserción ocurren bajo el mismo mutex.
type AlertRepo struct {
	s *Store
}

func (r *AlertRepo) CreateIfAbsent(_ context.Context, a *entity.LowStockAlert) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.alerts {
		if existing.InventoryLineID == a.InventoryLineID && existing.IsOpen() {
			return false, nil
		}
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	r.s.alerts[a.ID] = copyAlert(a)
	r.s.alertOrder = append(r.s.alertOrder, a.ID)
	return true, nil
}

func (r *AlertRepo) FindOpenByLine(_ context.Context, lineID string) (*entity.LowStockAlert, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.alerts {
		if a.InventoryLineID == lineID && a.IsOpen() {
			return copyAlert(a), nil
		}
	}
	return nil, nil
}

func (r *AlertRepo) GetByID(_ context.Context, id string) (*entity.LowStockAlert, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.alerts[id]
	if !ok {
		return nil, nil
	}
	return copyAlert(a), nil
}

func (r *AlertRepo) Resolve(_ context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.alerts[id]
	if !ok || !a.IsOpen() {
		return false, nil
	}
	a.ResolvedAt = &at
	return true, nil
}

func (r *AlertRepo) ListOpen(context.Context) ([]*entity.LowStockAlert, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var list []*entity.LowStockAlert
	for _, id := range r.s.alertOrder {
		if a := r.s.alerts[id]; a.IsOpen() {
			list = append(list, copyAlert(a))
		}
	}
	return list, nil
}

// ─── Catálogo y bodegas ───────────────────────────────────────────────────────

// CatalogRepo productos y variantes registrados con AddProduct / AddVariant.
type CatalogRepo struct {
	s *Store
}

func (r *CatalogRepo) GetProduct(_ context.Context, id string) (*entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (r *CatalogRepo) GetVariant(_ context.Context, id string) (*entity.Variant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.variants[id]
	if !ok {
		return nil, nil
	}
	c := *v
	return &c, nil
}

func (r *CatalogRepo) SetProductDisplayStock(_ context.Context, productID string, qty int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.products[productID]; ok {
		p.DisplayStock = qty
		p.UpdatedAt = timeNow()
	}
	return nil
}

func (r *CatalogRepo) SetVariantDisplayStock(_ context.Context, variantID string, qty int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if v, ok := r.s.variants[variantID]; ok {
		v.DisplayStock = qty
		v.UpdatedAt = timeNow()
	}
	return nil
}

func (r *CatalogRepo) ResyncDisplayStock(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byProduct := make(map[string]int64)
	byVariant := make(map[string]int64)
	for _, l := range r.s.lines {
		byProduct[l.Identity.ProductID] += l.Quantity
		if l.Identity.VariantID != "" {
			byVariant[l.Identity.VariantID] += l.Quantity
		}
	}
	now := timeNow()
	var n int64
	for id, p := range r.s.products {
		p.DisplayStock = byProduct[id]
		p.UpdatedAt = now
		n++
	}
	for id, v := range r.s.variants {
		v.DisplayStock = byVariant[id]
		v.UpdatedAt = now
		n++
	}
	return n, nil
}

// WarehouseRepo bodegas registradas con AddWarehouse.
type WarehouseRepo struct {
	s *Store
}

func (r *WarehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.warehouses[id]
	if !ok {
		return nil, nil
	}
	c := *w
	return &c, nil
}
