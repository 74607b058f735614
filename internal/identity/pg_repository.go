package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-operations/internal/db"
)

// KYCPending is the status new patients start with.
const KYCPending = "pending"

type PgRepository struct {
	q db.Querier
}

func NewPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{q: q}
}

const patientColumns = `id, name, email, phone, kyc_status, created_at, updated_at`

const doctorColumns = `id, name, email, specialty, department, available, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.KYCStatus,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Email,
		&d.Specialty,
		&d.Department,
		&d.Available,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) FindPatientByContact(ctx context.Context, email, phone string) (*Patient, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE ($1 <> '' AND lower(email) = $1)
		   OR ($2 <> '' AND phone = $2 AND ($1 = '' OR email = ''))
		ORDER BY (lower(email) = $1) DESC, created_at ASC
		LIMIT 1
	`, normalizeEmail(email), strings.TrimSpace(phone))
	return scanPatient(row)
}

func (r *PgRepository) CreatePatient(ctx context.Context, p NewPatient) (*Patient, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO patients (id, name, email, phone, kyc_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING `+patientColumns+`
	`, uuid.New(), strings.TrimSpace(p.Name), normalizeEmail(p.Email), strings.TrimSpace(p.Phone), KYCPending)
	return scanPatient(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetDoctorByEmail(ctx context.Context, email string) (*Doctor, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE lower(email) = $1
	`, normalizeEmail(email))
	return scanDoctor(row)
}

func (r *PgRepository) FirstAvailableDoctor(ctx context.Context) (*Doctor, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE available
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`)
	return scanDoctor(row)
}

func (r *PgRepository) FirstDoctor(ctx context.Context) (*Doctor, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`)
	return scanDoctor(row)
}

func (r *PgRepository) ListActiveEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, name, email, role, status, created_at
		FROM employees
		WHERE status = 'active'
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.Role, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateKYCStatus writes the denormalized patients.kyc_status column. It takes
// a Querier so callers can run it inside the transaction that changes the
// KYC document itself.
func UpdateKYCStatus(ctx context.Context, q db.Querier, patientID uuid.UUID, status string) error {
	tag, err := q.Exec(ctx, `
		UPDATE patients
		SET kyc_status = $2,
		    updated_at = now()
		WHERE id = $1
	`, patientID, status)
	if err != nil {
		return fmt.Errorf("update patient kyc status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}
