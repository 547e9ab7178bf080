package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// writeError traduce la taxonomía de errores de dominio a códigos HTTP.
func writeError(c *fiber.Ctx, err error) error {
	resp := dto.ErrorResponse{Message: err.Error()}
	var lineErr *domain.LineError
	if errors.As(err, &lineErr) {
		line := lineErr.Line
		resp.Line = &line
	}

	var stockErr *domain.InsufficientStockError
	var valErr *domain.ValidationError
	status := fiber.StatusInternalServerError
	switch {
	case errors.As(err, &stockErr):
		status, resp.Code = fiber.StatusConflict, "INSUFFICIENT_STOCK"
		resp.Available, resp.Requested = &stockErr.Available, &stockErr.Requested
	case errors.Is(err, domain.ErrInsufficientStock):
		status, resp.Code = fiber.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.As(err, &valErr):
		status, resp.Code = fiber.StatusBadRequest, "VALIDATION"
		resp.Field = valErr.Field
	case errors.Is(err, domain.ErrInvalidInput):
		status, resp.Code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrAlreadyCancelled):
		status, resp.Code = fiber.StatusConflict, "ALREADY_CANCELLED"
	case errors.Is(err, domain.ErrNotFound):
		status, resp.Code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrConcurrencyTimeout):
		status, resp.Code = fiber.StatusServiceUnavailable, "CONCURRENCY_TIMEOUT"
		resp.Retryable = true
	case errors.Is(err, domain.ErrConflict):
		status, resp.Code = fiber.StatusConflict, "CONFLICT"
	default:
		resp.Code = "INTERNAL"
	}
	return c.Status(status).JSON(resp)
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
