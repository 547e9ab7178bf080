package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// SaleHandler ventas multi-línea con descuento de inventario atómico.
type SaleHandler struct {
	sales *inventory.SaleCoordinator
}

// NewSaleHandler construye el handler.
func NewSaleHandler(sales *inventory.SaleCoordinator) *SaleHandler {
	return &SaleHandler{sales: sales}
}

// Create registra la venta (descuenta inventario de todas las líneas o de ninguna).
func (h *SaleHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	input := inventory.CreateSaleInput{
		VendorID:    GetUserID(c),
		WarehouseID: in.WarehouseID,
		Lines:       make([]inventory.SaleLineInput, len(in.Items)),
		Discount:    in.Discount,
	}
	for i, it := range in.Items {
		input.Lines[i] = inventory.SaleLineInput{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Batch:     it.Batch,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Discount:  it.Discount,
		}
	}
	if in.Customer != nil {
		input.Customer = &entity.CustomerInfo{Name: in.Customer.Name, Phone: in.Customer.Phone, Document: in.Customer.Document}
	}
	if in.Payment != nil {
		input.Payment = &entity.PaymentInfo{Method: in.Payment.Method, Reference: in.Payment.Reference, Amount: in.Payment.Amount}
	}

	sale, err := h.sales.CreateSale(c.Context(), input)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromSale(sale))
}

// GetByID GET /api/sales/:id.
func (h *SaleHandler) GetByID(c *fiber.Ctx) error {
	sale, err := h.sales.GetSale(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromSale(sale))
}

// Cancel anula la venta completa (devuelve el stock de todas las líneas).
func (h *SaleHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	sale, err := h.sales.CancelSale(c.Context(), c.Params("id"), GetUserID(c), in.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromSale(sale))
}
