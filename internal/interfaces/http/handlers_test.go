package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	apphttp "github.com/jhoicas/stock-ledger/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

// buildAPI levanta el router completo sobre el store en memoria.
func buildAPI(t *testing.T) *fiber.App {
	t.Helper()
	store := memory.New()
	store.AddWarehouse(entity.Warehouse{ID: "W1", Name: "Principal"})
	store.AddProduct(entity.Product{ID: "P1", Name: "Acetaminofén"})
	store.AddProduct(entity.Product{ID: "P2", Name: "Ibuprofeno"})

	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheus(reg)
	display := inventory.NewDisplayStockSync(store.Lines(), store.Catalog(), nil)
	monitor := inventory.NewLowStockMonitor(inventory.MonitorDeps{
		Lines: store.Lines(), Alerts: store.Alerts(), Metrics: m,
	})
	stock := inventory.NewStockTransactionService(inventory.ServiceDeps{
		TxRunner: store,
		Lines:    store.Lines(),
		Ledger:   store.Ledger(),
		Settings: inventory.DefaultSettings(),
		Metrics:  m,
		Hooks:    []inventory.PostCommitHook{display, monitor},
	})

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Stock:     stock,
		Sales:     inventory.NewSaleCoordinator(stock, store.Catalog(), store.Warehouses(), store.Sales()),
		Monitor:   monitor,
		Display:   display,
		JWTSecret: testJWTSecret,
		Gatherer:  reg,
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, role string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func movement(product, kind string, qty int64) dto.RegisterMovementRequest {
	return dto.RegisterMovementRequest{
		IdentityDTO: dto.IdentityDTO{ProductID: product, WarehouseID: "W1"},
		Type:        kind,
		Quantity:    qty,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Movimientos
// ──────────────────────────────────────────────────────────────────────────────

func TestHTTP_RegistrarMovimiento(t *testing.T) {
	app := buildAPI(t)

	resp, body := call(t, app, http.MethodPost, "/api/inventory/movements", "bodeguero", movement("P1", "in", 12))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var entry dto.LedgerEntryResponse
	require.NoError(t, json.Unmarshal(body, &entry))
	assert.Equal(t, "IN", entry.Type)
	assert.Equal(t, int64(12), entry.BalanceAfter)
	assert.Equal(t, testUserID, entry.PerformedBy, "el actor es el usuario del token")

	resp, body = call(t, app, http.MethodGet, "/api/inventory/lines?product_id=P1&warehouse_id=W1", "bodeguero", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var line dto.InventoryLineResponse
	require.NoError(t, json.Unmarshal(body, &line))
	assert.Equal(t, int64(12), line.Quantity)
}

func TestHTTP_StockInsuficiente409(t *testing.T) {
	app := buildAPI(t)
	call(t, app, http.MethodPost, "/api/inventory/movements", "bodeguero", movement("P1", "IN", 3))

	resp, body := call(t, app, http.MethodPost, "/api/inventory/movements", "bodeguero", movement("P1", "OUT", 5))
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "INSUFFICIENT_STOCK", e.Code)
	require.NotNil(t, e.Available)
	require.NotNil(t, e.Requested)
	assert.Equal(t, int64(3), *e.Available)
	assert.Equal(t, int64(5), *e.Requested)
}

func TestHTTP_ValidacionYNoEncontrado(t *testing.T) {
	app := buildAPI(t)

	resp, body := call(t, app, http.MethodPost, "/api/inventory/movements", "bodeguero", movement("P1", "TRANSFER", 1))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "VALIDATION", e.Code)
	assert.Equal(t, "kind", e.Field)

	resp, _ = call(t, app, http.MethodGet, "/api/inventory/lines?product_id=P9&warehouse_id=W1", "bodeguero", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = call(t, app, http.MethodPost, "/api/inventory/movements", "", movement("P1", "IN", 1))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTP_LoteAtomico(t *testing.T) {
	app := buildAPI(t)
	req := dto.BulkMovementRequest{
		Movements: []dto.BulkMovementItem{
			{IdentityDTO: dto.IdentityDTO{ProductID: "P1", WarehouseID: "W1"}, Type: "IN", Quantity: 5},
			{IdentityDTO: dto.IdentityDTO{ProductID: "P2", WarehouseID: "W1"}, Type: "OUT", Quantity: 1},
		},
		Source: &dto.SourceDTO{Kind: "manual", ID: "conteo-7"},
	}
	resp, body := call(t, app, http.MethodPost, "/api/inventory/movements/bulk", "bodeguero", req)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "INSUFFICIENT_STOCK", e.Code)
	require.NotNil(t, e.Line)
	assert.Equal(t, 1, *e.Line)

	resp, _ = call(t, app, http.MethodGet, "/api/inventory/lines?product_id=P1&warehouse_id=W1", "bodeguero", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "la entrada del lote fallido no se aplicó")
}

// ──────────────────────────────────────────────────────────────────────────────
// Ventas
// ──────────────────────────────────────────────────────────────────────────────

func TestHTTP_VentaYAnulacion(t *testing.T) {
	app := buildAPI(t)
	call(t, app, http.MethodPost, "/api/inventory/movements", "bodeguero", movement("P1", "IN", 10))
	call(t, app, http.MethodPost, "/api/inventory/movements", "bodeguero", movement("P2", "IN", 1))

	failing := dto.CreateSaleRequest{
		WarehouseID: "W1",
		Items: []dto.SaleItemRequest{
			{ProductID: "P1", Quantity: 2, UnitPrice: decimal.NewFromInt(1000)},
			{ProductID: "P2", Quantity: 2, UnitPrice: decimal.NewFromInt(1000)},
		},
	}
	resp, body := call(t, app, http.MethodPost, "/api/sales", "vendedor", failing)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	require.NotNil(t, e.Line)
	assert.Equal(t, 1, *e.Line)

	ok := dto.CreateSaleRequest{
		WarehouseID: "W1",
		Items:       []dto.SaleItemRequest{{ProductID: "P1", Quantity: 2, UnitPrice: decimal.NewFromInt(1000)}},
	}
	resp, body = call(t, app, http.MethodPost, "/api/sales", "vendedor", ok)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var sale dto.SaleResponse
	require.NoError(t, json.Unmarshal(body, &sale))
	assert.Equal(t, testUserID, sale.VendorID)

	resp, _ = call(t, app, http.MethodGet, "/api/sales/"+sale.ID, "vendedor", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel := dto.CancelSaleRequest{Reason: "error de digitación"}
	resp, _ = call(t, app, http.MethodPost, "/api/sales/"+sale.ID+"/cancel", "admin", cancel)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = call(t, app, http.MethodPost, "/api/sales/"+sale.ID+"/cancel", "admin", cancel)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "ALREADY_CANCELLED")
}

// ──────────────────────────────────────────────────────────────────────────────
// Alertas, mantenimiento y métricas
// ──────────────────────────────────────────────────────────────────────────────

func TestHTTP_AlertasYMantenimiento(t *testing.T) {
	app := buildAPI(t)
	call(t, app, http.MethodPost, "/api/inventory/movements", "bodeguero", movement("P1", "IN", 2))

	resp, body := call(t, app, http.MethodGet, "/api/inventory/alerts", "bodeguero", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var alerts []dto.LowStockAlertResponse
	require.NoError(t, json.Unmarshal(body, &alerts))
	require.Len(t, alerts, 1)

	resp, _ = call(t, app, http.MethodPost, "/api/inventory/alerts/scan", "vendedor", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "el barrido manual es solo para admin")

	resp, body = call(t, app, http.MethodPost, "/api/inventory/alerts/scan", "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var scan dto.ScanResponse
	require.NoError(t, json.Unmarshal(body, &scan))
	assert.Empty(t, scan.Created, "la alerta ya existía")

	resp, _ = call(t, app, http.MethodPost, "/api/inventory/alerts/"+alerts[0].ID+"/resolve", "bodeguero", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = call(t, app, http.MethodPost, "/api/inventory/display-stock/resync", "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var resync dto.ResyncResponse
	require.NoError(t, json.Unmarshal(body, &resync))
	assert.Equal(t, int64(2), resync.Rows)

	resp, body = call(t, app, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "inventory_movements_total")
}
