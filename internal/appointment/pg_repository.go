package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-operations/internal/db"
	"github.com/hackgods/clinic-operations/internal/identity"
)

type PgRepository struct {
	q db.Querier
}

func NewPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{q: q}
}

const appointmentColumns = `id, patient_id, doctor_id, date, time, type, status, notes, department, created_at, updated_at`

const detailColumns = `a.id, a.patient_id, a.doctor_id, a.date, a.time, a.type, a.status, a.notes, a.department, a.created_at, a.updated_at,
	p.id, p.name, p.email, p.phone, p.kyc_status, p.created_at, p.updated_at,
	d.id, d.name, d.email, d.specialty, d.department, d.available, d.created_at, d.updated_at`

const detailFrom = `appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN doctors d ON d.id = a.doctor_id`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.Date,
		&a.Time,
		&a.Type,
		&a.Status,
		&a.Notes,
		&a.Department,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func scanDetail(row pgx.Row) (*Detail, error) {
	var (
		det Detail
		p   identity.Patient
		d   identity.Doctor
	)
	a := &det.Appointment

	err := row.Scan(
		&a.ID, &a.PatientID, &a.DoctorID, &a.Date, &a.Time, &a.Type, &a.Status, &a.Notes, &a.Department, &a.CreatedAt, &a.UpdatedAt,
		&p.ID, &p.Name, &p.Email, &p.Phone, &p.KYCStatus, &p.CreatedAt, &p.UpdatedAt,
		&d.ID, &d.Name, &d.Email, &d.Specialty, &d.Department, &d.Available, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	det.Patient = &p
	det.Doctor = &d
	return &det, nil
}

// Interface methods

func (r *PgRepository) Create(ctx context.Context, in NewAppointment) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, date, time, type, status, notes, department, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'scheduled', $7, $8, now(), now())
		RETURNING `+appointmentColumns+`
	`, uuid.New(), in.PatientID, in.DoctorID, in.Date, in.Time, in.Type, in.Notes, in.Department)
	return scanAppointment(row)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+detailColumns+`
		FROM `+detailFrom+`
		WHERE a.id = $1
	`, id)
	return scanDetail(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, note string) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    notes = CASE WHEN $4::text = '' THEN notes
		                 WHEN notes = '' THEN $4::text
		                 ELSE notes || E'\n' || $4::text END,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, string(to), string(from), strings.TrimSpace(note))

	a, err := scanAppointment(row)
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, ErrStatusChanged
	}
	return a, err
}

// where accumulates positional filter clauses.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(clause, len(w.args)))
}

func (w *where) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.clauses, " AND ")
}

func buildWhere(q Query) *where {
	w := &where{}
	if q.DoctorID != nil {
		w.add("a.doctor_id = $%d", *q.DoctorID)
	}
	if q.PatientID != nil {
		w.add("a.patient_id = $%d", *q.PatientID)
	}
	if q.Status != nil {
		w.add("a.status = $%d", string(*q.Status))
	}
	if q.From != nil {
		w.add("a.date >= $%d", truncateDay(*q.From))
	}
	if q.To != nil {
		w.add("a.date <= $%d", truncateDay(*q.To))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		w.add("(p.name ILIKE $%[1]d OR p.email ILIKE $%[1]d OR a.department ILIKE $%[1]d)", "%"+s+"%")
	}
	return w
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (r *PgRepository) List(ctx context.Context, q Query) ([]Detail, int, error) {
	w := buildWhere(q)

	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM `+detailFrom+` `+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args := append(append([]any{}, w.args...), q.Limit, q.Offset)
	rows, err := r.q.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM %s
		%s
		ORDER BY a.date ASC, a.time ASC, a.created_at ASC
		LIMIT $%d OFFSET $%d
	`, detailColumns, detailFrom, w.sql(), len(w.args)+1, len(w.args)+2), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
