package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// SaleItemRequest ítem de venta. Discount es por unidad.
type SaleItemRequest struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Batch     string          `json:"batch,omitempty"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
}

// CustomerDTO datos opcionales del cliente.
type CustomerDTO struct {
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Document string `json:"document,omitempty"`
}

// PaymentDTO metadatos de pago.
type PaymentDTO struct {
	Method    string          `json:"method"`
	Reference string          `json:"reference,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
}

// CreateSaleRequest body para POST /api/sales. El vendedor es el usuario del token.
type CreateSaleRequest struct {
	WarehouseID string            `json:"warehouse_id"`
	Items       []SaleItemRequest `json:"items"`
	Discount    decimal.Decimal   `json:"discount"`
	Customer    *CustomerDTO      `json:"customer,omitempty"`
	Payment     *PaymentDTO       `json:"payment,omitempty"`
}

// CancelSaleRequest body para POST /api/sales/:id/cancel.
type CancelSaleRequest struct {
	Reason string `json:"reason"`
}

// SaleLineResponse línea de venta.
type SaleLineResponse struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"product_id"`
	VariantID     string          `json:"variant_id,omitempty"`
	Batch         string          `json:"batch,omitempty"`
	Quantity      int64           `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Discount      decimal.Decimal `json:"discount"`
	LineTotal     decimal.Decimal `json:"line_total"`
	LedgerEntryID string          `json:"ledger_entry_id"`
}

// SaleResponse venta con sus líneas.
type SaleResponse struct {
	ID           string             `json:"id"`
	VendorID     string             `json:"vendor_id"`
	WarehouseID  string             `json:"warehouse_id"`
	Items        []SaleLineResponse `json:"items"`
	Subtotal     decimal.Decimal    `json:"subtotal"`
	Tax          decimal.Decimal    `json:"tax"`
	Discount     decimal.Decimal    `json:"discount"`
	Total        decimal.Decimal    `json:"total"`
	Customer     *CustomerDTO       `json:"customer,omitempty"`
	Payment      *PaymentDTO        `json:"payment,omitempty"`
	IsCancelled  bool               `json:"is_cancelled"`
	CancelReason string             `json:"cancel_reason,omitempty"`
	CancelledAt  *time.Time         `json:"cancelled_at,omitempty"`
	CancelledBy  string             `json:"cancelled_by,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

// FromSale mapea la entidad a respuesta.
func FromSale(s *entity.Sale) SaleResponse {
	out := SaleResponse{
		ID:           s.ID,
		VendorID:     s.VendorID,
		WarehouseID:  s.WarehouseID,
		Items:        make([]SaleLineResponse, 0, len(s.Lines)),
		Subtotal:     s.Subtotal,
		Tax:          s.Tax,
		Discount:     s.Discount,
		Total:        s.Total,
		IsCancelled:  s.IsCancelled,
		CancelReason: s.CancelReason,
		CancelledAt:  s.CancelledAt,
		CancelledBy:  s.CancelledBy,
		CreatedAt:    s.CreatedAt,
	}
	for _, l := range s.Lines {
		out.Items = append(out.Items, SaleLineResponse{
			ID:            l.ID,
			ProductID:     l.ProductID,
			VariantID:     l.VariantID,
			Batch:         l.Batch,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			Discount:      l.Discount,
			LineTotal:     l.LineTotal,
			LedgerEntryID: l.LedgerEntryID,
		})
	}
	if s.Customer != nil {
		out.Customer = &CustomerDTO{Name: s.Customer.Name, Phone: s.Customer.Phone, Document: s.Customer.Document}
	}
	if s.Payment != nil {
		out.Payment = &PaymentDTO{Method: s.Payment.Method, Reference: s.Payment.Reference, Amount: s.Payment.Amount}
	}
	return out
}
