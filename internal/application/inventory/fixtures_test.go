package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testWarehouse = "W1"
	testProduct   = "P1"
	testProduct2  = "P2"
	testVariant   = "V1"
	testActor     = "user-1"
)

// fixture motor completo sobre el store en memoria.
type fixture struct {
	store    *memory.Store
	stock    *inventory.StockTransactionService
	sales    *inventory.SaleCoordinator
	monitor  *inventory.LowStockMonitor
	display  *inventory.DisplayStockSync
	notifier *recordingNotifier
	metrics  *recordingMetrics
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	settings   inventory.Settings
	extraHooks []inventory.PostCommitHook
	noMonitor  bool
	notifyErr  error
}

func withExtraHook(h inventory.PostCommitHook) fixtureOption {
	return func(c *fixtureConfig) { c.extraHooks = append(c.extraHooks, h) }
}

func withoutMonitorHook() fixtureOption {
	return func(c *fixtureConfig) { c.noMonitor = true }
}

func withNotifierError(err error) fixtureOption {
	return func(c *fixtureConfig) { c.notifyErr = err }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := fixtureConfig{settings: inventory.Settings{
		DefaultLowStockThreshold: 10,
		TaxRate:                  decimal.RequireFromString("0.19"),
		HookRetries:              2,
		HookBackoff:              0,
	}}
	for _, opt := range opts {
		opt(&cfg)
	}

	store := memory.New(memory.WithLockTimeout(2 * time.Second))
	store.AddWarehouse(entity.Warehouse{ID: testWarehouse, Name: "Principal"})
	store.AddProduct(entity.Product{ID: testProduct, Name: "Acetaminofén 500mg"})
	store.AddProduct(entity.Product{ID: testProduct2, Name: "Ibuprofeno 400mg"})
	require.NoError(t, store.AddVariant(entity.Variant{ID: testVariant, ProductID: testProduct, Name: "Caja x 30"}))

	notifier := &recordingNotifier{err: cfg.notifyErr}
	metrics := &recordingMetrics{failed: map[string]int{}}
	display := inventory.NewDisplayStockSync(store.Lines(), store.Catalog(), nil)
	monitor := inventory.NewLowStockMonitor(inventory.MonitorDeps{
		Lines:    store.Lines(),
		Alerts:   store.Alerts(),
		Notifier: notifier,
		Metrics:  metrics,
	})
	hooks := []inventory.PostCommitHook{display}
	if !cfg.noMonitor {
		hooks = append(hooks, monitor)
	}
	hooks = append(hooks, cfg.extraHooks...)

	stock := inventory.NewStockTransactionService(inventory.ServiceDeps{
		TxRunner: store,
		Lines:    store.Lines(),
		Ledger:   store.Ledger(),
		Settings: cfg.settings,
		Metrics:  metrics,
		Hooks:    hooks,
	})
	return &fixture{
		store:    store,
		stock:    stock,
		sales:    inventory.NewSaleCoordinator(stock, store.Catalog(), store.Warehouses(), store.Sales()),
		monitor:  monitor,
		display:  display,
		notifier: notifier,
		metrics:  metrics,
	}
}

func ident(product string) entity.Identity {
	return entity.Identity{ProductID: product, WarehouseID: testWarehouse}
}

// seed deja la línea con qty unidades mediante una entrada.
func (f *fixture) seed(t *testing.T, id entity.Identity, qty int64) {
	t.Helper()
	_, err := f.stock.ApplyMovement(context.Background(), inventory.MovementInput{
		Identity: id, Kind: entity.MovementIN, Quantity: qty, Actor: testActor,
		Source: entity.PurchaseSource("seed"),
	})
	require.NoError(t, err)
}

func (f *fixture) quantity(t *testing.T, id entity.Identity) int64 {
	t.Helper()
	line, err := f.store.Lines().Get(context.Background(), id)
	require.NoError(t, err)
	if line == nil {
		return 0
	}
	return line.Quantity
}

func (f *fixture) apply(kind entity.MovementKind, id entity.Identity, qty int64) (*entity.LedgerEntry, error) {
	return f.stock.ApplyMovement(context.Background(), inventory.MovementInput{
		Identity: id, Kind: kind, Quantity: qty, Actor: testActor,
	})
}

// recordingNotifier guarda los eventos recibidos.
type recordingNotifier struct {
	mu     sync.Mutex
	events []inventory.AlertCreatedEvent
	err    error
}

func (n *recordingNotifier) AlertCreated(_ context.Context, evt inventory.AlertCreatedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

// recordingMetrics cuenta llamadas relevantes para los tests.
type recordingMetrics struct {
	mu           sync.Mutex
	insufficient int
	alerts       int
	failed       map[string]int
}

func (m *recordingMetrics) MovementApplied(entity.MovementKind) {}
func (m *recordingMetrics) ObserveTx(string, time.Duration)     {}

func (m *recordingMetrics) InsufficientStock() {
	m.mu.Lock()
	m.insufficient++
	m.mu.Unlock()
}

func (m *recordingMetrics) AlertCreated() {
	m.mu.Lock()
	m.alerts++
	m.mu.Unlock()
}

func (m *recordingMetrics) FollowUpFailed(hook string) {
	m.mu.Lock()
	m.failed[hook]++
	m.mu.Unlock()
}

func (m *recordingMetrics) failures(hook string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed[hook]
}

// failingHook falla siempre y cuenta los intentos.
type failingHook struct {
	mu    sync.Mutex
	calls int
}

var errHookDown = errors.New("servicio externo caído")

func (h *failingHook) Name() string { return "failing" }

func (h *failingHook) AfterCommit(context.Context, []entity.InventoryLine) error {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	return errHookDown
}
