package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-operations/internal/db"
)

type PgRepository struct {
	q db.Querier
}

func NewPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{q: q}
}

const notificationColumns = `id, title, message, type, priority, status,
	employee_id, doctor_id, patient_id, staff_id,
	event_id, appointment_id, kyc_document_id,
	read_at, archived_at, created_at`

var recipientColumn = map[RecipientKind]string{
	RecipientEmployee: "employee_id",
	RecipientDoctor:   "doctor_id",
	RecipientPatient:  "patient_id",
	RecipientStaff:    "staff_id",
}

func columnFor(r Recipient) (string, error) {
	col, ok := recipientColumn[r.Kind]
	if !ok {
		return "", fmt.Errorf("unknown recipient kind %q", r.Kind)
	}
	return col, nil
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	var employeeID, doctorID, patientID, staffID *uuid.UUID

	err := row.Scan(
		&n.ID,
		&n.Title,
		&n.Message,
		&n.Type,
		&n.Priority,
		&n.Status,
		&employeeID,
		&doctorID,
		&patientID,
		&staffID,
		&n.Origin.EventID,
		&n.Origin.AppointmentID,
		&n.Origin.KYCDocumentID,
		&n.ReadAt,
		&n.ArchivedAt,
		&n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}

	switch {
	case employeeID != nil:
		n.Recipient = Employee(*employeeID)
	case doctorID != nil:
		n.Recipient = Doctor(*doctorID)
	case patientID != nil:
		n.Recipient = Patient(*patientID)
	case staffID != nil:
		n.Recipient = Staff(*staffID)
	}
	return &n, nil
}

func collect(rows pgx.Rows) ([]Notification, error) {
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func statusStrings(in []Status) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

func (r *PgRepository) Insert(ctx context.Context, d Draft, to Recipient) (*Notification, error) {
	col, err := columnFor(to)
	if err != nil {
		return nil, err
	}

	row := r.q.QueryRow(ctx, `
		INSERT INTO notifications (id, title, message, type, priority, status, `+col+`,
			event_id, appointment_id, kyc_document_id, created_at)
		VALUES ($1, $2, $3, $4, $5, 'unread', $6, $7, $8, $9, now())
		RETURNING `+notificationColumns+`
	`, uuid.New(), d.Title, d.Message, string(d.Type), string(d.Priority), to.ID,
		d.Origin.EventID, d.Origin.AppointmentID, d.Origin.KYCDocumentID)
	return scanNotification(row)
}

func (r *PgRepository) InsertForActiveEmployees(ctx context.Context, d Draft) ([]Notification, error) {
	rows, err := r.q.Query(ctx, `
		INSERT INTO notifications (id, title, message, type, priority, status, employee_id,
			event_id, appointment_id, kyc_document_id, created_at)
		SELECT gen_random_uuid(), $1, $2, $3, $4, 'unread', e.id, $5, $6, $7, now()
		FROM employees e
		WHERE e.status = 'active'
		ORDER BY e.created_at ASC, e.id ASC
		RETURNING `+notificationColumns+`
	`, d.Title, d.Message, string(d.Type), string(d.Priority),
		d.Origin.EventID, d.Origin.AppointmentID, d.Origin.KYCDocumentID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE id = $1
	`, id)
	return scanNotification(row)
}

func (r *PgRepository) ListForRecipient(ctx context.Context, to Recipient, f ListFilter) ([]Notification, int, error) {
	col, err := columnFor(to)
	if err != nil {
		return nil, 0, err
	}
	statuses := statusStrings(f.Statuses)

	var total int
	err = r.q.QueryRow(ctx, `
		SELECT count(*)
		FROM notifications
		WHERE `+col+` = $1
		  AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))
	`, to.ID, statuses).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.q.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE `+col+` = $1
		  AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, to.ID, statuses, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *PgRepository) CountUnread(ctx context.Context, to Recipient) (int, error) {
	col, err := columnFor(to)
	if err != nil {
		return 0, err
	}
	var n int
	err = r.q.QueryRow(ctx, `
		SELECT count(*)
		FROM notifications
		WHERE `+col+` = $1 AND status = 'unread'
	`, to.ID).Scan(&n)
	return n, err
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []Status, to Status) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE notifications
		SET status = $3::text,
		    read_at = CASE WHEN $3::text = 'read' THEN now() ELSE read_at END,
		    archived_at = CASE WHEN $3::text = 'archived' THEN now() ELSE archived_at END
		WHERE id = $1
		  AND status = ANY($2::text[])
	`, id, statusStrings(from), string(to))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgRepository) MarkAllRead(ctx context.Context, to Recipient) (int64, error) {
	col, err := columnFor(to)
	if err != nil {
		return 0, err
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE notifications
		SET status = 'read',
		    read_at = now()
		WHERE `+col+` = $1
		  AND status = 'unread'
	`, to.ID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
