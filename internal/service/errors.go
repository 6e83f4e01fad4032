package service

import (
	"errors"
	"fmt"
)

// Errores de negocio exportados (los usa el controller para elegir el status)
var (
	ErrAlreadyPaid  = errors.New("order is already paid")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError nombra el recurso y el identificador que no se encontró.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

type InsufficientStockError struct {
	ProductID string
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock for %q. Only %d left, requested %d.", e.Name, e.Available, e.Requested)
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }
