package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Stock     *inventory.StockTransactionService
	Sales     *inventory.SaleCoordinator
	Monitor   *inventory.LowStockMonitor
	Display   *inventory.DisplayStockSync
	JWTSecret string
	// Gatherer origen de /metrics; nil = sin endpoint de métricas.
	Gatherer prometheus.Gatherer
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	inventoryHandler := NewInventoryHandler(deps.Stock, deps.Display)
	alertHandler := NewAlertHandler(deps.Monitor)
	inv := api.Group("/inventory")
	inv.Post("/movements", inventoryHandler.RegisterMovement)
	inv.Post("/movements/bulk", inventoryHandler.RegisterBulk)
	inv.Get("/lines", inventoryHandler.GetLine)
	inv.Put("/lines/settings", inventoryHandler.UpdateLineSettings)
	inv.Get("/lines/ledger", inventoryHandler.ListLedger)
	inv.Get("/alerts", alertHandler.ListOpen)
	inv.Post("/alerts/:id/resolve", alertHandler.Resolve)

	// Mantenimiento (solo admin)
	inv.Post("/alerts/scan", RequireRole("admin"), alertHandler.Scan)
	inv.Post("/display-stock/resync", RequireRole("admin"), inventoryHandler.ResyncDisplayStock)

	saleHandler := NewSaleHandler(deps.Sales)
	sales := api.Group("/sales")
	sales.Post("/", saleHandler.Create)
	sales.Get("/:id", saleHandler.GetByID)
	sales.Post("/:id/cancel", saleHandler.Cancel)
}
