package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrStatusChanged means the row left the expected status between load and update.
	ErrStatusChanged = errors.New("appointment status changed concurrently")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	Create(ctx context.Context, in NewAppointment) (*Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)

	// UpdateStatus only succeeds while the row is still in `from`. A non-empty
	// note is appended to the appointment notes.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, note string) (*Appointment, error)

	List(ctx context.Context, q Query) ([]Detail, int, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
