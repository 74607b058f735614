package appointment

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-operations/internal/identity"
)

// AssigneePolicy picks the doctor for a booking or a calendar view when the
// caller did not name one, or named one that does not exist.
type AssigneePolicy interface {
	Resolve(ctx context.Context, requested *uuid.UUID) (*identity.Doctor, error)
}

// DoctorDirectory is the slice of the identity store the policy reads.
type DoctorDirectory interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*identity.Doctor, error)
	GetDoctorByEmail(ctx context.Context, email string) (*identity.Doctor, error)
	FirstAvailableDoctor(ctx context.Context) (*identity.Doctor, error)
	FirstDoctor(ctx context.Context) (*identity.Doctor, error)
}

// ErrNoDoctor is returned when the directory holds no doctors at all.
var ErrNoDoctor = errors.New("no doctor records exist")

// FallbackChain tries, in order: the requested id, the configured default
// (by id, then by email), the earliest doctor flagged available, and finally
// the earliest doctor of any kind.
type FallbackChain struct {
	Doctors      DoctorDirectory
	DefaultID    *uuid.UUID
	DefaultEmail string
}

func NewFallbackChain(doctors DoctorDirectory, defaultID *uuid.UUID, defaultEmail string) *FallbackChain {
	return &FallbackChain{
		Doctors:      doctors,
		DefaultID:    defaultID,
		DefaultEmail: strings.TrimSpace(defaultEmail),
	}
}

func (c *FallbackChain) Resolve(ctx context.Context, requested *uuid.UUID) (*identity.Doctor, error) {
	steps := make([]func() (*identity.Doctor, error), 0, 5)

	if requested != nil && *requested != uuid.Nil {
		id := *requested
		steps = append(steps, func() (*identity.Doctor, error) { return c.Doctors.GetDoctorByID(ctx, id) })
	}
	if c.DefaultID != nil {
		id := *c.DefaultID
		steps = append(steps, func() (*identity.Doctor, error) { return c.Doctors.GetDoctorByID(ctx, id) })
	}
	if c.DefaultEmail != "" {
		steps = append(steps, func() (*identity.Doctor, error) { return c.Doctors.GetDoctorByEmail(ctx, c.DefaultEmail) })
	}
	steps = append(steps,
		func() (*identity.Doctor, error) { return c.Doctors.FirstAvailableDoctor(ctx) },
		func() (*identity.Doctor, error) { return c.Doctors.FirstDoctor(ctx) },
	)

	for _, step := range steps {
		d, err := step()
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, identity.ErrDoctorNotFound) {
			return nil, err
		}
	}
	return nil, ErrNoDoctor
}

var _ AssigneePolicy = (*FallbackChain)(nil)
