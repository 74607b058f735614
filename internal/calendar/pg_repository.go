package calendar

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-operations/internal/db"
)

type PgRepository struct {
	pool db.Pool
}

func NewPgRepository(pool db.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const eventColumns = `id, title, description, start_date, end_date, event_type, status, assigned_to_all, created_by, created_at, updated_at`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(
		&e.ID,
		&e.Title,
		&e.Description,
		&e.StartDate,
		&e.EndDate,
		&e.EventType,
		&e.Status,
		&e.AssignedToAll,
		&e.CreatedBy,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *PgRepository) Create(ctx context.Context, e Event, assignments []Assignment) (*Event, error) {
	var created *Event
	err := db.WithTx(ctx, r.pool, func(q db.Querier) error {
		var err error
		created, err = scanEvent(q.QueryRow(ctx, `
			INSERT INTO calendar_events (id, title, description, start_date, end_date, event_type, status, assigned_to_all, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, 'upcoming', $7, $8, now(), now())
			RETURNING `+eventColumns+`
		`, e.ID, e.Title, e.Description, e.StartDate, e.EndDate, string(e.EventType), e.AssignedToAll, e.CreatedBy))
		if err != nil {
			return err
		}

		for _, a := range assignments {
			if _, err := q.Exec(ctx, `
				INSERT INTO calendar_event_assignments (id, event_id, position, employee_id, doctor_id, staff_id)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, a.ID, created.ID, a.Position, a.EmployeeID, a.DoctorID, a.StaffID); err != nil {
				return fmt.Errorf("insert assignment %d: %w", a.Position, err)
			}
		}
		created.Assignments = assignments
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM calendar_events
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, event_id, position, employee_id, doctor_id, staff_id
		FROM calendar_event_assignments
		WHERE event_id = $1
		ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.EventID, &a.Position, &a.EmployeeID, &a.DoctorID, &a.StaffID); err != nil {
			return nil, err
		}
		e.Assignments = append(e.Assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Event, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx, `
		UPDATE calendar_events
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+eventColumns+`
	`, id, string(to), string(from)))
	if errors.Is(err, ErrEventNotFound) {
		return nil, ErrStatusChanged
	}
	return e, err
}
