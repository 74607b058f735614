package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-operations/internal/identity"
)

// doctorDir is an in-memory DoctorDirectory; doctors are kept in creation order.
type doctorDir struct {
	doctors []identity.Doctor
	err     error
}

func (d *doctorDir) add(name string, available bool) identity.Doctor {
	doc := identity.Doctor{
		ID:        uuid.New(),
		Name:      name,
		Email:     name + "@clinic.org",
		Available: available,
		CreatedAt: time.Now().Add(time.Duration(len(d.doctors)) * time.Second),
	}
	d.doctors = append(d.doctors, doc)
	return doc
}

func (d *doctorDir) GetDoctorByID(_ context.Context, id uuid.UUID) (*identity.Doctor, error) {
	if d.err != nil {
		return nil, d.err
	}
	for i := range d.doctors {
		if d.doctors[i].ID == id {
			return &d.doctors[i], nil
		}
	}
	return nil, identity.ErrDoctorNotFound
}

func (d *doctorDir) GetDoctorByEmail(_ context.Context, email string) (*identity.Doctor, error) {
	for i := range d.doctors {
		if d.doctors[i].Email == email {
			return &d.doctors[i], nil
		}
	}
	return nil, identity.ErrDoctorNotFound
}

func (d *doctorDir) FirstAvailableDoctor(_ context.Context) (*identity.Doctor, error) {
	for i := range d.doctors {
		if d.doctors[i].Available {
			return &d.doctors[i], nil
		}
	}
	return nil, identity.ErrDoctorNotFound
}

func (d *doctorDir) FirstDoctor(_ context.Context) (*identity.Doctor, error) {
	if len(d.doctors) == 0 {
		return nil, identity.ErrDoctorNotFound
	}
	return &d.doctors[0], nil
}

func TestFallbackChainPrefersExplicitDoctor(t *testing.T) {
	dir := &doctorDir{}
	dir.add("first", true)
	chosen := dir.add("chosen", false)

	got, err := NewFallbackChain(dir, nil, "").Resolve(context.Background(), &chosen.ID)
	require.NoError(t, err)
	assert.Equal(t, chosen.ID, got.ID)
}

func TestFallbackChainUnknownExplicitFallsThrough(t *testing.T) {
	dir := &doctorDir{}
	def := dir.add("default", false)
	dir.add("available", true)
	unknown := uuid.New()

	got, err := NewFallbackChain(dir, &def.ID, "").Resolve(context.Background(), &unknown)
	require.NoError(t, err)
	assert.Equal(t, def.ID, got.ID)
}

func TestFallbackChainDefaultByEmail(t *testing.T) {
	dir := &doctorDir{}
	dir.add("available", true)
	def := dir.add("house", false)

	got, err := NewFallbackChain(dir, nil, def.Email).Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, def.ID, got.ID)
}

func TestFallbackChainFirstAvailableInCreationOrder(t *testing.T) {
	dir := &doctorDir{}
	dir.add("busy", false)
	first := dir.add("first-free", true)
	dir.add("second-free", true)

	for i := 0; i < 3; i++ {
		got, err := NewFallbackChain(dir, nil, "").Resolve(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
	}
}

func TestFallbackChainAcceptsUnflaggedDoctor(t *testing.T) {
	dir := &doctorDir{}
	only := dir.add("unflagged", false)

	got, err := NewFallbackChain(dir, nil, "missing@clinic.org").Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, only.ID, got.ID)
}

func TestFallbackChainEmptyDirectory(t *testing.T) {
	_, err := NewFallbackChain(&doctorDir{}, nil, "").Resolve(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoDoctor)
}

func TestFallbackChainStopsOnStoreError(t *testing.T) {
	cause := errors.New("connection refused")
	dir := &doctorDir{err: cause}
	dir.add("x", true)
	id := dir.doctors[0].ID

	_, err := NewFallbackChain(dir, nil, "").Resolve(context.Background(), &id)
	assert.ErrorIs(t, err, cause)
}
