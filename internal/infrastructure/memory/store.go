// Package memory implementa los puertos de persistencia en memoria, con la misma semántica
// transaccional que PostgreSQL: bloqueo exclusivo por fila hasta el fin de la transacción,
// escrituras diferidas hasta el commit y espera de bloqueo acotada.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var _ inventory.TxRunner = (*Store)(nil)

// DefaultLockTimeout espera máxima por un bloqueo de fila si no se configura otra.
const DefaultLockTimeout = 2 * time.Second

// Store estado confirmado. mu protege los mapas; los bloqueos de fila son semáforos
// independientes para no serializar transacciones que tocan filas distintas.
type Store struct {
	mu          sync.Mutex
	lockTimeout time.Duration
	rowLocks    map[string]chan struct{}

	lines      map[string]*entity.InventoryLine // por Identity.Key()
	ledger     []*entity.LedgerEntry            // orden de commit
	sales      map[string]*entity.Sale
	alerts     map[string]*entity.LowStockAlert
	alertOrder []string
	products   map[string]*entity.Product
	variants   map[string]*entity.Variant
	warehouses map[string]*entity.Warehouse
}

// Option configura el Store.
type Option func(*Store)

// WithLockTimeout fija la espera máxima por bloqueo; al agotarse se devuelve ErrConcurrencyTimeout.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// New construye un Store vacío.
func New(opts ...Option) *Store {
	s := &Store{
		lockTimeout: DefaultLockTimeout,
		rowLocks:    make(map[string]chan struct{}),
		lines:       make(map[string]*entity.InventoryLine),
		sales:       make(map[string]*entity.Sale),
		alerts:      make(map[string]*entity.LowStockAlert),
		products:    make(map[string]*entity.Product),
		variants:    make(map[string]*entity.Variant),
		warehouses:  make(map[string]*entity.Warehouse),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ejecuta fn en una transacción: commit si fn retorna nil, descarte en cualquier otro caso.
// Los bloqueos adquiridos se liberan al terminar, después de aplicar el commit.
func (s *Store) Run(ctx context.Context, fn func(repos inventory.TxRepos) error) error {
	tx := s.begin()
	defer tx.release()
	if err := fn(tx.repos()); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// Lines repositorio de líneas fuera de transacción.
func (s *Store) Lines() *LineRepo { return &LineRepo{s: s} }

// Ledger repositorio del libro fuera de transacción.
func (s *Store) Ledger() *LedgerRepo { return &LedgerRepo{s: s} }

// Sales repositorio de ventas fuera de transacción.
func (s *Store) Sales() *SaleRepo { return &SaleRepo{s: s} }

// Alerts repositorio de alertas.
func (s *Store) Alerts() *AlertRepo { return &AlertRepo{s: s} }

// Catalog repositorio del catálogo.
func (s *Store) Catalog() *CatalogRepo { return &CatalogRepo{s: s} }

// Warehouses repositorio de bodegas.
func (s *Store) Warehouses() *WarehouseRepo { return &WarehouseRepo{s: s} }

// AddWarehouse registra una bodega (datos de referencia).
func (s *Store) AddWarehouse(w entity.Warehouse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	s.warehouses[w.ID] = &w
}

// AddProduct registra un producto del catálogo.
func (s *Store) AddProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = &p
}

// AddVariant registra una variante; el producto debe existir.
func (s *Store) AddVariant(v entity.Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[v.ProductID]; !ok {
		return fmt.Errorf("producto %s: %w", v.ProductID, domain.ErrNotFound)
	}
	s.variants[v.ID] = &v
	return nil
}

// Seed registra bodegas, productos y variantes en ese orden. Falla si una variante
// referencia un producto que no existe.
func (s *Store) Seed(warehouses []entity.Warehouse, products []entity.Product, variants []entity.Variant) error {
	for _, w := range warehouses {
		s.AddWarehouse(w)
	}
	for _, p := range products {
		s.AddProduct(p)
	}
	for _, v := range variants {
		if err := s.AddVariant(v); err != nil {
			return fmt.Errorf("variante %s: %w", v.ID, err)
		}
	}
	return nil
}

// lockRow adquiere el semáforo de la fila o falla por timeout / cancelación.
func (s *Store) lockRow(ctx context.Context, key string) error {
	s.mu.Lock()
	sem, ok := s.rowLocks[key]
	if !ok {
		sem = make(chan struct{}, 1)
		s.rowLocks[key] = sem
	}
	s.mu.Unlock()

	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()
	select {
	case sem <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: %s", domain.ErrConcurrencyTimeout, key)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) unlockRow(key string) {
	s.mu.Lock()
	sem := s.rowLocks[key]
	s.mu.Unlock()
	<-sem
}

func copyLine(l *entity.InventoryLine) *entity.InventoryLine {
	c := *l
	if l.PurchasePrice != nil {
		p := *l.PurchasePrice
		c.PurchasePrice = &p
	}
	return &c
}

func copySale(s *entity.Sale) *entity.Sale {
	c := *s
	c.Lines = append([]entity.SaleLine(nil), s.Lines...)
	if s.Customer != nil {
		cust := *s.Customer
		c.Customer = &cust
	}
	if s.Payment != nil {
		pay := *s.Payment
		c.Payment = &pay
	}
	if s.CancelledAt != nil {
		at := *s.CancelledAt
		c.CancelledAt = &at
	}
	return &c
}

func copyAlert(a *entity.LowStockAlert) *entity.LowStockAlert {
	c := *a
	if a.ResolvedAt != nil {
		at := *a.ResolvedAt
		c.ResolvedAt = &at
	}
	return &c
}
