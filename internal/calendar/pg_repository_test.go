package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventCols = []string{"id", "title", "description", "start_date", "end_date", "event_type", "status", "assigned_to_all", "created_by", "created_at", "updated_at"}

func TestCreateWritesEventAndAssignmentsInOneTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	start, end := window()
	now := time.Now().UTC()
	e := Event{ID: uuid.New(), Title: "Rounds", StartDate: start, EndDate: end, EventType: TypeShift}
	emp, doc := uuid.New(), uuid.New()
	assignments := []Assignment{
		{ID: uuid.New(), EventID: e.ID, Position: 0, EmployeeID: &emp},
		{ID: uuid.New(), EventID: e.ID, Position: 1, DoctorID: &doc},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO calendar_events`).
		WithArgs(e.ID, "Rounds", "", start, end, "shift", false, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(eventCols).AddRow(e.ID, "Rounds", "", start, end, TypeShift, StatusUpcoming, false, nil, now, now))
	mock.ExpectExec(`INSERT INTO calendar_event_assignments`).
		WithArgs(assignments[0].ID, e.ID, 0, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO calendar_event_assignments`).
		WithArgs(assignments[1].ID, e.ID, 1, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	created, err := NewPgRepository(mock).Create(context.Background(), e, assignments)
	require.NoError(t, err)
	assert.Equal(t, StatusUpcoming, created.Status)
	assert.Len(t, created.Assignments, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAssignmentFailureRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	start, end := window()
	now := time.Now().UTC()
	e := Event{ID: uuid.New(), Title: "Rounds", StartDate: start, EndDate: end, EventType: TypeShift}
	staff := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO calendar_events`).
		WithArgs(e.ID, "Rounds", "", start, end, "shift", false, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(eventCols).AddRow(e.ID, "Rounds", "", start, end, TypeShift, StatusUpcoming, false, nil, now, now))
	mock.ExpectExec(`INSERT INTO calendar_event_assignments`).
		WithArgs(pgxmock.AnyArg(), e.ID, 0, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectRollback()

	_, err = NewPgRepository(mock).Create(context.Background(), e, []Assignment{{ID: uuid.New(), EventID: e.ID, StaffID: &staff}})
	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, "23503", pgErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDLoadsAssignmentsInPositionOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	start, end := window()
	now := time.Now().UTC()
	id, emp, staff := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM calendar_events\s+WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(eventCols).AddRow(id, "Rounds", "", start, end, TypeShift, StatusUpcoming, false, nil, now, now))
	mock.ExpectQuery(`ORDER BY position ASC`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "event_id", "position", "employee_id", "doctor_id", "staff_id"}).
			AddRow(uuid.New(), id, 0, &emp, nil, nil).
			AddRow(uuid.New(), id, 1, nil, nil, &staff))

	e, err := NewPgRepository(mock).GetByID(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, e.Assignments, 2)
	assert.Equal(t, emp, *e.Assignments[0].EmployeeID)
	assert.Equal(t, staff, *e.Assignments[1].StaffID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusLostRaceIsStatusChanged(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery(`UPDATE calendar_events`).
		WithArgs(id, "completed", "upcoming").
		WillReturnRows(pgxmock.NewRows(eventCols))

	_, err = NewPgRepository(mock).UpdateStatus(context.Background(), id, StatusUpcoming, StatusCompleted)
	assert.ErrorIs(t, err, ErrStatusChanged)
	assert.NoError(t, mock.ExpectationsWereMet())
}
