package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings configuración explícita del motor, inyectada al construir los servicios.
type Settings struct {
	// DefaultLowStockThreshold umbral asignado a las líneas creadas de forma perezosa.
	DefaultLowStockThreshold int64
	// TaxRate tasa de impuesto de ventas como fracción (0.19 = 19%).
	TaxRate decimal.Decimal
	// HookRetries intentos por acción post-commit antes de registrar el fallo.
	HookRetries int
	// HookBackoff espera base entre intentos (se duplica en cada reintento).
	HookBackoff time.Duration
}

// DefaultSettings valores por defecto.
func DefaultSettings() Settings {
	return Settings{
		DefaultLowStockThreshold: 10,
		TaxRate:                  decimal.Zero,
		HookRetries:              3,
		HookBackoff:              50 * time.Millisecond,
	}
}

func (s Settings) withDefaults() Settings {
	if s.DefaultLowStockThreshold < 0 {
		s.DefaultLowStockThreshold = 0
	}
	if s.TaxRate.IsNegative() {
		s.TaxRate = decimal.Zero
	}
	if s.HookRetries < 1 {
		s.HookRetries = 1
	}
	if s.HookBackoff < 0 {
		s.HookBackoff = 0
	}
	return s
}
