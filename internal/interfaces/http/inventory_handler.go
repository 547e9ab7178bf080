package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// InventoryHandler maneja las peticiones HTTP de movimientos y líneas de inventario (protegido).
type InventoryHandler struct {
	stock   *inventory.StockTransactionService
	display *inventory.DisplayStockSync
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(stock *inventory.StockTransactionService, display *inventory.DisplayStockSync) *InventoryHandler {
	return &InventoryHandler{stock: stock, display: display}
}

// RegisterMovement POST /api/inventory/movements: registra un movimiento y responde 201 con el asiento.
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	entry, err := h.stock.ApplyMovement(c.Context(), inventory.MovementInput{
		Identity: in.IdentityDTO.ToEntity(),
		Kind:     entity.MovementKind(strings.ToUpper(in.Type)),
		Quantity: in.Quantity,
		Actor:    GetUserID(c),
		Source:   in.Source.ToEntity(),
		UnitCost: in.UnitCost,
		Notes:    in.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromLedgerEntry(entry))
}

// RegisterBulk registra varios movimientos como una unidad atómica.
func (h *InventoryHandler) RegisterBulk(c *fiber.Ctx) error {
	var in dto.BulkMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	movements := make([]entity.Movement, len(in.Movements))
	for i, m := range in.Movements {
		m.Type = strings.ToUpper(m.Type)
		movements[i] = m.ToEntity()
	}
	entries, err := h.stock.ApplyBulk(c.Context(), movements, GetUserID(c), in.Source.ToEntity())
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromLedgerEntries(entries))
}

// GetLine estado actual de una línea de inventario.
func (h *InventoryHandler) GetLine(c *fiber.Ctx) error {
	var id dto.IdentityDTO
	if err := c.QueryParser(&id); err != nil {
		return badBody(c)
	}
	line, err := h.stock.GetLine(c.Context(), id.ToEntity())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromInventoryLine(line))
}

// UpdateLineSettings umbral de stock bajo, proveedor y precio de compra de una línea.
func (h *InventoryHandler) UpdateLineSettings(c *fiber.Ctx) error {
	var in dto.LineSettingsRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	line, err := h.stock.SetLineSettings(c.Context(), inventory.LineSettingsInput{
		Identity:          in.IdentityDTO.ToEntity(),
		LowStockThreshold: in.LowStockThreshold,
		SupplierRef:       in.SupplierRef,
		PurchasePrice:     in.PurchasePrice,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromInventoryLine(line))
}

// ListLedger historial de movimientos de una línea (más reciente primero).
func (h *InventoryHandler) ListLedger(c *fiber.Ctx) error {
	var id dto.IdentityDTO
	var page dto.PageRequest
	if err := c.QueryParser(&id); err != nil {
		return badBody(c)
	}
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	page.DefaultPage()
	entries, err := h.stock.ListLedger(c.Context(), id.ToEntity(), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromLedgerEntries(entries))
}

// ResyncDisplayStock recalcula el stock de exhibición de todo el catálogo.
func (h *InventoryHandler) ResyncDisplayStock(c *fiber.Ctx) error {
	n, err := h.display.ResyncAll(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ResyncResponse{Rows: n})
}
