package calendar

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrEventNotFound = errors.New("calendar event not found")
	ErrStatusChanged = errors.New("calendar event status changed concurrently")
)

type Repository interface {
	// Create writes the event and its assignment rows in one transaction.
	Create(ctx context.Context, e Event, assignments []Assignment) (*Event, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Event, error)
}
