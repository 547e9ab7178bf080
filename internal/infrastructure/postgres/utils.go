package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// SQLSTATE relevantes para el motor.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeLockNotAvailable     = "55P03" // lock_timeout agotado
	codeDeadlockDetected     = "40P01"
	codeSerializationFailure = "40001"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

// isLockFailure bloqueo no obtenido a tiempo, deadlock o conflicto de serialización:
// la operación no se aplicó y puede reintentarse.
func isLockFailure(err error) bool {
	switch pgCode(err) {
	case codeLockNotAvailable, codeDeadlockDetected, codeSerializationFailure:
		return true
	}
	return false
}

// mapTxError traduce errores de PostgreSQL al vocabulario de dominio conservando la cadena original.
func mapTxError(err error) error {
	if err == nil {
		return nil
	}
	if isLockFailure(err) {
		return fmt.Errorf("%w: %w", domain.ErrConcurrencyTimeout, err)
	}
	if pgCode(err) == codeCheckViolation {
		// quantity >= 0 respaldado por CHECK: no debería alcanzarse si el servicio valida antes
		return fmt.Errorf("%w: %w", domain.ErrInsufficientStock, err)
	}
	return err
}
