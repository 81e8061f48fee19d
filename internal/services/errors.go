package services

import (
	"errors"

	"github.com/Murega14/agrilink/internal/repositories"
)

// Errors returned by the services. Callers match them with errors.Is; the
// wrapped message carries the detail.
var (
	ErrNotFound           = repositories.ErrNotFound
	ErrInsufficientStock  = repositories.ErrInsufficientStock
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("already exists")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

// EventPublisher delivers JSON payloads to a named queue.
type EventPublisher interface {
	Publish(queue string, payload interface{}) error
}

func totalPages(total int64, perPage int) int {
	if perPage <= 0 || total == 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
