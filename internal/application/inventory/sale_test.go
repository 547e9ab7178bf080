package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func saleInput(lines ...inventory.SaleLineInput) inventory.CreateSaleInput {
	return inventory.CreateSaleInput{
		VendorID:    testActor,
		WarehouseID: testWarehouse,
		Lines:       lines,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// CreateSale
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateSale_DescuentaYCalculaTotales(t *testing.T) {
	f := newFixture(t)
	f.seed(t, ident(testProduct), 50)
	f.seed(t, ident(testProduct2), 10)

	in := saleInput(
		inventory.SaleLineInput{ProductID: testProduct, Quantity: 2, UnitPrice: dec("10000")},
		inventory.SaleLineInput{ProductID: testProduct2, Quantity: 1, UnitPrice: dec("5000"), Discount: dec("500")},
	)
	in.Discount = dec("1000")
	in.Payment = &entity.PaymentInfo{Method: "cash", Amount: dec("30000")}

	sale, err := f.sales.CreateSale(context.Background(), in)
	require.NoError(t, err)

	// 2×10000 + 1×(5000-500) = 24500; IVA 19% = 4655; total = 24500 + 4655 - 1000
	assert.Equal(t, "24500.00", sale.Subtotal.StringFixed(2))
	assert.Equal(t, "4655.00", sale.Tax.StringFixed(2))
	assert.Equal(t, "28155.00", sale.Total.StringFixed(2))
	assert.Equal(t, "4500.00", sale.Lines[1].LineTotal.StringFixed(2))

	assert.Equal(t, int64(48), f.quantity(t, ident(testProduct)))
	assert.Equal(t, int64(9), f.quantity(t, ident(testProduct2)))

	entries, err := f.store.Ledger().ListBySource(context.Background(), entity.SaleSource(sale.ID))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, entity.MovementOUT, e.Kind)
		assert.Equal(t, "Venta #"+sale.ID, e.Notes)
	}
	for _, l := range sale.Lines {
		assert.NotEmpty(t, l.LedgerEntryID, "cada línea apunta a su salida")
	}

	stored, err := f.sales.GetSale(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 2)
	assert.Equal(t, "cash", stored.Payment.Method)
}

func TestCreateSale_LineaSinStockRevierteTodo(t *testing.T) {
	f := newFixture(t)
	f.seed(t, ident(testProduct), 50)
	f.seed(t, ident(testProduct2), 1)

	_, err := f.sales.CreateSale(context.Background(), saleInput(
		inventory.SaleLineInput{ProductID: testProduct, Quantity: 5, UnitPrice: dec("100")},
		inventory.SaleLineInput{ProductID: testProduct2, Quantity: 2, UnitPrice: dec("100")},
	))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	var lineErr *domain.LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 1, lineErr.Line, "el error señala la línea sin stock")

	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, int64(1), stockErr.Available)
	assert.Equal(t, int64(2), stockErr.Requested)

	assert.Equal(t, int64(50), f.quantity(t, ident(testProduct)), "la primera línea no queda descontada")
	assert.Equal(t, int64(1), f.quantity(t, ident(testProduct2)))

	line, err := f.stock.GetLine(context.Background(), ident(testProduct))
	require.NoError(t, err)
	entries, err := f.store.Ledger().ListByLine(context.Background(), line.ID, 50, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "sin registros de la venta fallida")
}

func TestCreateSale_MismaIdentidadEnDosLineas(t *testing.T) {
	f := newFixture(t)
	f.seed(t, ident(testProduct), 5)

	_, err := f.sales.CreateSale(context.Background(), saleInput(
		inventory.SaleLineInput{ProductID: testProduct, Quantity: 3, UnitPrice: dec("100")},
		inventory.SaleLineInput{ProductID: testProduct, Quantity: 3, UnitPrice: dec("100")},
	))
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock), "6 unidades sobre 5 disponibles")
	assert.Equal(t, int64(5), f.quantity(t, ident(testProduct)))
}

func TestCreateSale_ConVariante(t *testing.T) {
	f := newFixture(t)
	id := entity.Identity{ProductID: testProduct, VariantID: testVariant, WarehouseID: testWarehouse}
	f.seed(t, id, 12)

	_, err := f.sales.CreateSale(context.Background(), saleInput(
		inventory.SaleLineInput{ProductID: testProduct, VariantID: testVariant, Quantity: 2, UnitPrice: dec("9000")},
	))
	require.NoError(t, err)
	assert.Equal(t, int64(10), f.quantity(t, id))

	variant, err := f.store.Catalog().GetVariant(context.Background(), testVariant)
	require.NoError(t, err)
	assert.Equal(t, int64(10), variant.DisplayStock)
}

func TestCreateSale_Validaciones(t *testing.T) {
	f := newFixture(t)
	f.seed(t, ident(testProduct), 5)
	valid := inventory.SaleLineInput{ProductID: testProduct, Quantity: 1, UnitPrice: dec("100")}

	t.Run("sin líneas", func(t *testing.T) {
		_, err := f.sales.CreateSale(context.Background(), saleInput())
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
	t.Run("bodega inexistente", func(t *testing.T) {
		in := saleInput(valid)
		in.WarehouseID = "NOPE"
		_, err := f.sales.CreateSale(context.Background(), in)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
	t.Run("producto inexistente", func(t *testing.T) {
		_, err := f.sales.CreateSale(context.Background(), saleInput(valid,
			inventory.SaleLineInput{ProductID: "NOPE", Quantity: 1, UnitPrice: dec("1")}))
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		var lineErr *domain.LineError
		require.True(t, errors.As(err, &lineErr))
		assert.Equal(t, 1, lineErr.Line)
	})
	t.Run("variante de otro producto", func(t *testing.T) {
		_, err := f.sales.CreateSale(context.Background(), saleInput(
			inventory.SaleLineInput{ProductID: testProduct2, VariantID: testVariant, Quantity: 1, UnitPrice: dec("1")}))
		var valErr *domain.ValidationError
		require.True(t, errors.As(err, &valErr))
		assert.Equal(t, "variant_id", valErr.Field)
	})
	t.Run("descuento mayor que el precio", func(t *testing.T) {
		_, err := f.sales.CreateSale(context.Background(), saleInput(
			inventory.SaleLineInput{ProductID: testProduct, Quantity: 1, UnitPrice: dec("100"), Discount: dec("101")}))
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
	t.Run("total negativo", func(t *testing.T) {
		in := saleInput(valid)
		in.Discount = dec("500")
		_, err := f.sales.CreateSale(context.Background(), in)
		var valErr *domain.ValidationError
		require.True(t, errors.As(err, &valErr))
		assert.Equal(t, "discount", valErr.Field)
	})

	assert.Equal(t, int64(5), f.quantity(t, ident(testProduct)), "ninguna venta inválida descuenta stock")
}

// ──────────────────────────────────────────────────────────────────────────────
// CancelSale
// ──────────────────────────────────────────────────────────────────────────────

func TestCancelSale_DevuelveStockYMarcaAnulada(t *testing.T) {
	f := newFixture(t)
	f.seed(t, ident(testProduct), 20)
	f.seed(t, ident(testProduct2), 20)

	sale, err := f.sales.CreateSale(context.Background(), saleInput(
		inventory.SaleLineInput{ProductID: testProduct, Quantity: 4, UnitPrice: dec("100")},
		inventory.SaleLineInput{ProductID: testProduct2, Quantity: 6, UnitPrice: dec("100")},
	))
	require.NoError(t, err)

	cancelled, err := f.sales.CancelSale(context.Background(), sale.ID, "admin-1", "cliente desistió")
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled)
	assert.Equal(t, "cliente desistió", cancelled.CancelReason)
	assert.Equal(t, "admin-1", cancelled.CancelledBy)
	require.NotNil(t, cancelled.CancelledAt)

	assert.Equal(t, int64(20), f.quantity(t, ident(testProduct)))
	assert.Equal(t, int64(20), f.quantity(t, ident(testProduct2)))

	entries, err := f.store.Ledger().ListBySource(context.Background(), entity.SaleSource(sale.ID))
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, entity.MovementIN, entries[2].Kind)
	assert.Equal(t, "Anulación venta #"+sale.ID+": cliente desistió", entries[2].Notes)

	_, err = f.sales.CancelSale(context.Background(), sale.ID, "admin-1", "otra vez")
	assert.True(t, errors.Is(err, domain.ErrAlreadyCancelled))
	assert.Equal(t, int64(20), f.quantity(t, ident(testProduct)), "la segunda anulación no devuelve stock")
}

func TestCancelSale_Errores(t *testing.T) {
	f := newFixture(t)

	_, err := f.sales.CancelSale(context.Background(), "no-existe", testActor, "x")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = f.sales.CancelSale(context.Background(), "no-existe", testActor, "  ")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "el motivo es obligatorio")

	_, err = f.sales.GetSale(context.Background(), "no-existe")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
