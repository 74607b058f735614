package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotificationNotFound = errors.New("notification not found")

type Repository interface {
	Insert(ctx context.Context, d Draft, r Recipient) (*Notification, error)
	// InsertForActiveEmployees writes one row per active employee, reading the
	// roster and writing the rows in a single statement.
	InsertForActiveEmployees(ctx context.Context, d Draft) ([]Notification, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	ListForRecipient(ctx context.Context, r Recipient, f ListFilter) ([]Notification, int, error)
	CountUnread(ctx context.Context, r Recipient) (int, error)

	// UpdateStatus moves id to `to` only when its current status is one of from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from []Status, to Status) (bool, error)
	MarkAllRead(ctx context.Context, r Recipient) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
