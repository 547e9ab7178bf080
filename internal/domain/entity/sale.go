package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale transacción de venta multi-línea (p. ej. venta en mostrador). Las líneas quedan
// fijas al crearla; la anulación es de la venta completa.
type Sale struct {
	ID           string
	VendorID     string
	WarehouseID  string
	Lines        []SaleLine
	Subtotal     decimal.Decimal // Σ (precio - descuento por ítem) × cantidad
	Tax          decimal.Decimal
	Discount     decimal.Decimal // descuento global de la venta
	Total        decimal.Decimal // subtotal + impuesto - descuento
	Customer     *CustomerInfo
	Payment      *PaymentInfo
	IsCancelled  bool
	CancelReason string
	CancelledAt  *time.Time
	CancelledBy  string
	CreatedAt    time.Time
}

// SaleLine línea de venta; LedgerEntryID apunta a la salida (OUT) que la respalda.
type SaleLine struct {
	ID            string
	SaleID        string
	ProductID     string
	VariantID     string
	Batch         string
	Quantity      int64
	UnitPrice     decimal.Decimal
	Discount      decimal.Decimal // por unidad
	LineTotal     decimal.Decimal
	LedgerEntryID string
}

// Identity de la línea en la bodega de la venta.
func (l SaleLine) Identity(warehouseID string) Identity {
	return Identity{ProductID: l.ProductID, VariantID: l.VariantID, WarehouseID: warehouseID, Batch: l.Batch}
}

// CustomerInfo datos opcionales del cliente.
type CustomerInfo struct {
	Name     string
	Phone    string
	Document string
}

// PaymentInfo metadatos de pago.
type PaymentInfo struct {
	Method    string // cash, card, transfer...
	Reference string
	Amount    decimal.Decimal
}
