package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind tipo de movimiento de inventario.
type MovementKind string

// Tipos de movimiento de inventario.
const (
	MovementIN         MovementKind = "IN"         // entrada
	MovementOUT        MovementKind = "OUT"        // salida
	MovementADJUSTMENT MovementKind = "ADJUSTMENT" // ajuste (delta con signo)
)

// Valid indica si el tipo es soportado.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementIN, MovementOUT, MovementADJUSTMENT:
		return true
	}
	return false
}

// Movement solicitud de cambio de stock sobre una identidad.
// Para IN/OUT Quantity es la magnitud (> 0); para ADJUSTMENT es un delta con signo (!= 0).
type Movement struct {
	Identity Identity
	Kind     MovementKind
	Quantity int64
	UnitCost *decimal.Decimal
	Notes    string
}

// Delta efecto del movimiento sobre la cantidad de la línea.
func (m Movement) Delta() int64 {
	if m.Kind == MovementOUT {
		return -m.Quantity
	}
	return m.Quantity
}

// LedgerEntry registro inmutable de un movimiento aplicado. Nunca se actualiza ni se
// borra; las correcciones se hacen con nuevos movimientos.
type LedgerEntry struct {
	ID              string
	InventoryLineID string
	Identity        Identity
	Kind            MovementKind
	Quantity        int64 // magnitud para IN/OUT, delta con signo para ADJUSTMENT
	BalanceAfter    int64 // cantidad de la línea tras aplicar el movimiento
	UnitCost        *decimal.Decimal
	PerformedBy     string
	Notes           string
	Source          Source
	CreatedAt       time.Time
}

// Delta efecto del registro sobre la cantidad de la línea.
func (e *LedgerEntry) Delta() int64 {
	if e.Kind == MovementOUT {
		return -e.Quantity
	}
	return e.Quantity
}
