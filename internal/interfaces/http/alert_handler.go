package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

// AlertHandler alertas de stock bajo.
type AlertHandler struct {
	monitor *inventory.LowStockMonitor
}

// NewAlertHandler construye el handler.
func NewAlertHandler(monitor *inventory.LowStockMonitor) *AlertHandler {
	return &AlertHandler{monitor: monitor}
}

// ListOpen alertas de stock bajo sin resolver.
func (h *AlertHandler) ListOpen(c *fiber.Ctx) error {
	alerts, err := h.monitor.ListOpen(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromAlerts(alerts))
}

// Scan barrido manual: abre alertas para toda línea en o bajo su umbral.
func (h *AlertHandler) Scan(c *fiber.Ctx) error {
	created, err := h.monitor.ScanAndAlert(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ScanResponse{Created: dto.FromAlerts(created)})
}

// Resolve resuelve una alerta manualmente (idempotente).
func (h *AlertHandler) Resolve(c *fiber.Ctx) error {
	alert, err := h.monitor.Resolve(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromAlert(alert))
}
