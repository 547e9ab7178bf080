package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// SaleCoordinator crea ventas multi-línea descontando el inventario en una sola transacción
// y anula ventas completas devolviendo el stock.
type SaleCoordinator struct {
	stock      *StockTransactionService
	catalog    repository.CatalogRepository
	warehouses repository.WarehouseRepository
	sales      repository.SaleRepository // lecturas fuera de transacción
}

// NewSaleCoordinator construye el coordinador. Reutiliza el TxRunner, la configuración,
// métricas y acciones post-commit del servicio de stock.
func NewSaleCoordinator(
	stock *StockTransactionService,
	catalog repository.CatalogRepository,
	warehouses repository.WarehouseRepository,
	sales repository.SaleRepository,
) *SaleCoordinator {
	return &SaleCoordinator{
		stock:      stock,
		catalog:    catalog,
		warehouses: warehouses,
		sales:      sales,
	}
}

// SaleLineInput ítem de la venta. Discount es por unidad.
type SaleLineInput struct {
	ProductID string
	VariantID string
	Batch     string
	Quantity  int64
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
}

// CreateSaleInput entrada para crear una venta.
type CreateSaleInput struct {
	VendorID    string
	WarehouseID string
	Lines       []SaleLineInput
	Discount    decimal.Decimal // descuento global
	Customer    *entity.CustomerInfo
	Payment     *entity.PaymentInfo
}

// CreateSale valida la venta, descuenta cada línea (OUT con origen en la venta) y guarda
// cabecera y líneas. Si cualquier línea no tiene stock suficiente no se persiste nada.
func (c *SaleCoordinator) CreateSale(ctx context.Context, in CreateSaleInput) (sale *entity.Sale, err error) {
	ctx, span := tracer.Start(ctx, "inventory.CreateSale", trace.WithAttributes(
		attribute.Int("sale.lines", len(in.Lines)),
	))
	defer func() { endSpan(span, err) }()

	vendor := strings.TrimSpace(in.VendorID)
	if vendor == "" {
		return nil, domain.NewValidation("vendor_id", "requerido")
	}
	warehouseID := strings.TrimSpace(in.WarehouseID)
	if warehouseID == "" {
		return nil, domain.NewValidation("warehouse_id", "requerido")
	}
	if len(in.Lines) == 0 {
		return nil, domain.NewValidation("lines", "la venta debe tener al menos una línea")
	}
	if in.Discount.IsNegative() {
		return nil, domain.NewValidation("discount", "no puede ser negativo")
	}

	// Validar bodega
	wh, err := c.warehouses.GetByID(ctx, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("get warehouse: %w", err)
	}
	if wh == nil {
		return nil, fmt.Errorf("bodega %s: %w", warehouseID, domain.ErrNotFound)
	}

	// Validar productos, variantes y precios (fuera de la tx, solo lectura)
	saleID := uuid.New().String()
	lines := make([]entity.SaleLine, len(in.Lines))
	ids := make([]entity.Identity, len(in.Lines))
	subtotal := decimal.Zero
	for i, item := range in.Lines {
		line, err := c.validateLine(ctx, item)
		if err != nil {
			return nil, &domain.LineError{Line: i, Err: err}
		}
		line.ID = uuid.New().String()
		line.SaleID = saleID
		lines[i] = line
		ids[i] = line.Identity(warehouseID)
		subtotal = subtotal.Add(line.LineTotal)
	}
	tax := subtotal.Mul(c.stock.settings.TaxRate).Round(2)
	total := subtotal.Add(tax).Sub(in.Discount)
	if total.IsNegative() {
		return nil, domain.NewValidation("discount", "el descuento supera el total de la venta")
	}

	now := c.stock.now()
	sale = &entity.Sale{
		ID:          saleID,
		VendorID:    vendor,
		WarehouseID: warehouseID,
		Lines:       lines,
		Subtotal:    subtotal,
		Tax:         tax,
		Discount:    in.Discount,
		Total:       total,
		Customer:    in.Customer,
		Payment:     in.Payment,
		CreatedAt:   now,
	}
	source := entity.SaleSource(saleID)

	start := time.Now()
	var touched []entity.InventoryLine
	err = c.stock.txRunner.Run(ctx, func(repos TxRepos) error {
		touched = touched[:0]
		seen := make(map[string]int)
		for _, i := range LockOrder(ids) {
			mv := entity.Movement{
				Identity: ids[i],
				Kind:     entity.MovementOUT,
				Quantity: lines[i].Quantity,
				Notes:    "Venta #" + saleID,
			}
			entry, invLine, txErr := c.stock.ApplyInTx(ctx, repos, mv, vendor, source, now)
			if txErr != nil {
				return &domain.LineError{Line: i, Err: txErr}
			}
			sale.Lines[i].LedgerEntryID = entry.ID
			if pos, ok := seen[invLine.ID]; ok {
				touched[pos] = *invLine
				continue
			}
			seen[invLine.ID] = len(touched)
			touched = append(touched, *invLine)
		}
		if err := repos.Sales.Create(ctx, sale); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		return nil
	})
	c.stock.metrics.ObserveTx("create_sale", time.Since(start))
	if err != nil {
		return nil, err
	}
	for range sale.Lines {
		c.stock.metrics.MovementApplied(entity.MovementOUT)
	}
	c.stock.log.Info().
		Str("sale_id", sale.ID).
		Str("warehouse_id", warehouseID).
		Int("lines", len(sale.Lines)).
		Str("total", sale.Total.StringFixed(2)).
		Msg("venta registrada")

	c.stock.RunFollowUps(ctx, touched)
	return sale, nil
}

func (c *SaleCoordinator) validateLine(ctx context.Context, item SaleLineInput) (entity.SaleLine, error) {
	line := entity.SaleLine{
		ProductID: strings.TrimSpace(item.ProductID),
		VariantID: strings.TrimSpace(item.VariantID),
		Batch:     strings.TrimSpace(item.Batch),
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice,
		Discount:  item.Discount,
	}
	if line.ProductID == "" {
		return line, domain.NewValidation("product_id", "requerido")
	}
	if line.Quantity <= 0 {
		return line, domain.NewValidation("quantity", "debe ser mayor que cero")
	}
	if line.UnitPrice.IsNegative() {
		return line, domain.NewValidation("unit_price", "no puede ser negativo")
	}
	if line.Discount.IsNegative() || line.Discount.GreaterThan(line.UnitPrice) {
		return line, domain.NewValidation("discount", "debe estar entre 0 y el precio unitario")
	}

	product, err := c.catalog.GetProduct(ctx, line.ProductID)
	if err != nil {
		return line, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return line, fmt.Errorf("producto %s: %w", line.ProductID, domain.ErrNotFound)
	}
	if line.VariantID != "" {
		variant, err := c.catalog.GetVariant(ctx, line.VariantID)
		if err != nil {
			return line, fmt.Errorf("get variant: %w", err)
		}
		if variant == nil {
			return line, fmt.Errorf("variante %s: %w", line.VariantID, domain.ErrNotFound)
		}
		if variant.ProductID != product.ID {
			return line, domain.NewValidation("variant_id", "la variante no pertenece al producto")
		}
	}

	line.LineTotal = line.UnitPrice.Sub(line.Discount).Mul(decimal.NewFromInt(line.Quantity))
	return line, nil
}

// CancelSale anula la venta completa: devuelve al inventario cada línea (IN con origen en la
// venta) y marca la venta como anulada, todo en una transacción.
func (c *SaleCoordinator) CancelSale(ctx context.Context, saleID, actor, reason string) (sale *entity.Sale, err error) {
	ctx, span := tracer.Start(ctx, "inventory.CancelSale", trace.WithAttributes(
		attribute.String("sale.id", saleID),
	))
	defer func() { endSpan(span, err) }()

	saleID = strings.TrimSpace(saleID)
	actor = strings.TrimSpace(actor)
	reason = strings.TrimSpace(reason)
	if saleID == "" {
		return nil, domain.NewValidation("sale_id", "requerido")
	}
	if actor == "" {
		return nil, domain.NewValidation("actor", "requerido")
	}
	if reason == "" {
		return nil, domain.NewValidation("reason", "requerido")
	}

	start := time.Now()
	now := c.stock.now()
	source := entity.SaleSource(saleID)
	var touched []entity.InventoryLine
	err = c.stock.txRunner.Run(ctx, func(repos TxRepos) error {
		touched = touched[:0]
		// Bloquea la cabecera: dos anulaciones concurrentes se serializan aquí
		s, err := repos.Sales.GetForUpdate(ctx, saleID)
		if err != nil {
			return fmt.Errorf("get sale: %w", err)
		}
		if s == nil {
			return fmt.Errorf("venta %s: %w", saleID, domain.ErrNotFound)
		}
		if s.IsCancelled {
			return domain.ErrAlreadyCancelled
		}

		ids := make([]entity.Identity, len(s.Lines))
		for i, l := range s.Lines {
			ids[i] = l.Identity(s.WarehouseID)
		}
		seen := make(map[string]int)
		for _, i := range LockOrder(ids) {
			mv := entity.Movement{
				Identity: ids[i],
				Kind:     entity.MovementIN,
				Quantity: s.Lines[i].Quantity,
				Notes:    "Anulación venta #" + saleID + ": " + reason,
			}
			_, invLine, err := c.stock.ApplyInTx(ctx, repos, mv, actor, source, now)
			if err != nil {
				return &domain.LineError{Line: i, Err: err}
			}
			if pos, ok := seen[invLine.ID]; ok {
				touched[pos] = *invLine
				continue
			}
			seen[invLine.ID] = len(touched)
			touched = append(touched, *invLine)
		}

		s.IsCancelled = true
		s.CancelReason = reason
		s.CancelledAt = &now
		s.CancelledBy = actor
		if err := repos.Sales.MarkCancelled(ctx, s); err != nil {
			return fmt.Errorf("cancel sale: %w", err)
		}
		sale = s
		return nil
	})
	c.stock.metrics.ObserveTx("cancel_sale", time.Since(start))
	if err != nil {
		return nil, err
	}
	for range sale.Lines {
		c.stock.metrics.MovementApplied(entity.MovementIN)
	}
	c.stock.log.Info().
		Str("sale_id", saleID).
		Str("actor", actor).
		Int("lines", len(sale.Lines)).
		Msg("venta anulada")

	c.stock.RunFollowUps(ctx, touched)
	return sale, nil
}

// GetSale devuelve la venta con sus líneas o ErrNotFound.
func (c *SaleCoordinator) GetSale(ctx context.Context, id string) (*entity.Sale, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.NewValidation("sale_id", "requerido")
	}
	sale, err := c.sales.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, domain.ErrNotFound
	}
	return sale, nil
}
