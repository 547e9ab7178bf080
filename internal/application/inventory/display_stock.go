package inventory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// DisplayStockSync mantiene el stock de exhibición del catálogo como suma de las líneas.
// Es un valor derivado: si queda desfasado, ResyncAll lo recalcula.
type DisplayStockSync struct {
	lines   repository.InventoryLineRepository
	catalog repository.CatalogRepository
	log     zerolog.Logger
}

// NewDisplayStockSync construye el sincronizador.
func NewDisplayStockSync(lines repository.InventoryLineRepository, catalog repository.CatalogRepository, logger *zerolog.Logger) *DisplayStockSync {
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "display_stock").Logger()
	}
	return &DisplayStockSync{lines: lines, catalog: catalog, log: log}
}

func (d *DisplayStockSync) Name() string { return "display_stock" }

// AfterCommit recalcula cada producto y variante tocados una sola vez.
func (d *DisplayStockSync) AfterCommit(ctx context.Context, lines []entity.InventoryLine) error {
	products := make(map[string]bool)
	variants := make(map[string]bool)
	for _, l := range lines {
		if !products[l.Identity.ProductID] {
			products[l.Identity.ProductID] = true
			if err := d.syncProduct(ctx, l.Identity.ProductID); err != nil {
				return err
			}
		}
		if v := l.Identity.VariantID; v != "" && !variants[v] {
			variants[v] = true
			if err := d.syncVariant(ctx, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// SyncDisplayStock recalcula el producto de la línea y, si la tiene, su variante.
func (d *DisplayStockSync) SyncDisplayStock(ctx context.Context, line entity.InventoryLine) error {
	if err := d.syncProduct(ctx, line.Identity.ProductID); err != nil {
		return err
	}
	if line.Identity.VariantID == "" {
		return nil
	}
	return d.syncVariant(ctx, line.Identity.VariantID)
}

// ResyncAll recalcula todo el catálogo (0 para productos y variantes sin líneas).
func (d *DisplayStockSync) ResyncAll(ctx context.Context) (int64, error) {
	n, err := d.catalog.ResyncDisplayStock(ctx)
	if err != nil {
		return 0, fmt.Errorf("resync display stock: %w", err)
	}
	d.log.Info().Int64("rows", n).Msg("stock de exhibición recalculado")
	return n, nil
}

func (d *DisplayStockSync) syncProduct(ctx context.Context, productID string) error {
	total, err := d.lines.SumByProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("sum product stock: %w", err)
	}
	if err := d.catalog.SetProductDisplayStock(ctx, productID, total); err != nil {
		return fmt.Errorf("set product display stock: %w", err)
	}
	return nil
}

func (d *DisplayStockSync) syncVariant(ctx context.Context, variantID string) error {
	total, err := d.lines.SumByVariant(ctx, variantID)
	if err != nil {
		return fmt.Errorf("sum variant stock: %w", err)
	}
	if err := d.catalog.SetVariantDisplayStock(ctx, variantID, total); err != nil {
		return fmt.Errorf("set variant display stock: %w", err)
	}
	return nil
}
