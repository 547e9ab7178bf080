package dto

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// LowStockAlertResponse alerta de stock bajo.
type LowStockAlertResponse struct {
	ID              string `json:"id"`
	InventoryLineID string `json:"inventory_line_id"`
	IdentityDTO
	Quantity   int64      `json:"quantity"`
	Threshold  int64      `json:"threshold"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// FromAlert mapea la entidad a respuesta.
func FromAlert(a *entity.LowStockAlert) LowStockAlertResponse {
	return LowStockAlertResponse{
		ID:              a.ID,
		InventoryLineID: a.InventoryLineID,
		IdentityDTO:     identityFrom(a.Identity),
		Quantity:        a.Quantity,
		Threshold:       a.Threshold,
		CreatedAt:       a.CreatedAt,
		ResolvedAt:      a.ResolvedAt,
	}
}

// FromAlerts mapea una lista.
func FromAlerts(alerts []*entity.LowStockAlert) []LowStockAlertResponse {
	out := make([]LowStockAlertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, FromAlert(a))
	}
	return out
}

// ScanResponse resultado de un barrido manual.
type ScanResponse struct {
	Created []LowStockAlertResponse `json:"created"`
}

// ResyncResponse resultado del recálculo de stock de exhibición.
type ResyncResponse struct {
	Rows int64 `json:"rows"`
}
