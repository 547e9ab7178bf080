package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

const saleColumns = `id, vendor_id, warehouse_id, subtotal, tax, discount, total,
		customer_name, customer_phone, customer_document, payment_method, payment_reference, payment_amount,
		is_cancelled, cancel_reason, cancelled_at, cancelled_by, created_at`

// SaleRepo ventas (cabecera + líneas) sobre PostgreSQL (usable con pool o tx).
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

// Create inserta la cabecera y sus líneas. Debe ejecutarse dentro de la tx de la venta.
func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	var custName, custPhone, custDoc, payMethod, payRef *string
	var payAmount *decimal.Decimal
	if s.Customer != nil {
		custName, custPhone, custDoc = &s.Customer.Name, &s.Customer.Phone, &s.Customer.Document
	}
	if s.Payment != nil {
		payMethod, payRef, payAmount = &s.Payment.Method, &s.Payment.Reference, &s.Payment.Amount
	}
	query := `
		INSERT INTO sales (` + saleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.VendorID, s.WarehouseID, s.Subtotal, s.Tax, s.Discount, s.Total,
		custName, custPhone, custDoc, payMethod, payRef, payAmount,
		s.IsCancelled, s.CancelReason, s.CancelledAt, s.CancelledBy, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	lineQuery := `
		INSERT INTO sale_lines (id, sale_id, position, product_id, variant_id, batch, quantity, unit_price, discount, line_total, ledger_entry_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	for i, l := range s.Lines {
		if _, err := r.q.Exec(ctx, lineQuery,
			l.ID, s.ID, i, l.ProductID, l.VariantID, l.Batch, l.Quantity, l.UnitPrice, l.Discount, l.LineTotal, l.LedgerEntryID,
		); err != nil {
			return fmt.Errorf("insert sale line %d: %w", i, err)
		}
	}
	return nil
}

// GetByID obtiene la venta con sus líneas; nil, nil si no existe.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	return r.get(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
}

// GetForUpdate igual que GetByID pero bloquea la cabecera (SELECT FOR UPDATE).
func (r *SaleRepo) GetForUpdate(ctx context.Context, id string) (*entity.Sale, error) {
	return r.get(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, id)
}

// MarkCancelled persiste la anulación.
func (r *SaleRepo) MarkCancelled(ctx context.Context, s *entity.Sale) error {
	query := `
		UPDATE sales SET is_cancelled = true, cancel_reason = $2, cancelled_at = $3, cancelled_by = $4
		WHERE id = $1 AND NOT is_cancelled`
	tag, err := r.q.Exec(ctx, query, s.ID, s.CancelReason, s.CancelledAt, s.CancelledBy)
	if err != nil {
		return fmt.Errorf("cancel sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cancel sale %s: sin filas actualizadas", s.ID)
	}
	return nil
}

func (r *SaleRepo) get(ctx context.Context, query, id string) (*entity.Sale, error) {
	var s entity.Sale
	var custName, custPhone, custDoc, payMethod, payRef *string
	var payAmount *decimal.Decimal
	var cancelledAt *time.Time
	err := r.q.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.VendorID, &s.WarehouseID, &s.Subtotal, &s.Tax, &s.Discount, &s.Total,
		&custName, &custPhone, &custDoc, &payMethod, &payRef, &payAmount,
		&s.IsCancelled, &s.CancelReason, &cancelledAt, &s.CancelledBy, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	s.CancelledAt = cancelledAt
	if custName != nil || custPhone != nil || custDoc != nil {
		s.Customer = &entity.CustomerInfo{Name: deref(custName), Phone: deref(custPhone), Document: deref(custDoc)}
	}
	if payMethod != nil || payAmount != nil {
		s.Payment = &entity.PaymentInfo{Method: deref(payMethod), Reference: deref(payRef)}
		if payAmount != nil {
			s.Payment.Amount = *payAmount
		}
	}

	lines, err := r.lines(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Lines = lines
	return &s, nil
}

func (r *SaleRepo) lines(ctx context.Context, saleID string) ([]entity.SaleLine, error) {
	query := `
		SELECT id, sale_id, product_id, variant_id, batch, quantity, unit_price, discount, line_total, ledger_entry_id
		FROM sale_lines WHERE sale_id = $1 ORDER BY position`
	rows, err := r.q.Query(ctx, query, saleID)
	if err != nil {
		return nil, fmt.Errorf("list sale lines: %w", err)
	}
	defer rows.Close()
	var list []entity.SaleLine
	for rows.Next() {
		var l entity.SaleLine
		if err := rows.Scan(
			&l.ID, &l.SaleID, &l.ProductID, &l.VariantID, &l.Batch, &l.Quantity,
			&l.UnitPrice, &l.Discount, &l.LineTotal, &l.LedgerEntryID,
		); err != nil {
			return nil, fmt.Errorf("scan sale line: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
