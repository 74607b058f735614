package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrDoctorNotFound  = errors.New("doctor not found")
)

// Repository is the slice of the identity store the lifecycle engine uses.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	// FindPatientByContact matches on email first, then phone.
	FindPatientByContact(ctx context.Context, email, phone string) (*Patient, error)
	CreatePatient(ctx context.Context, p NewPatient) (*Patient, error)

	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetDoctorByEmail(ctx context.Context, email string) (*Doctor, error)
	// FirstAvailableDoctor and FirstDoctor order by creation time.
	FirstAvailableDoctor(ctx context.Context) (*Doctor, error)
	FirstDoctor(ctx context.Context) (*Doctor, error)

	ListActiveEmployees(ctx context.Context) ([]Employee, error)
}
