package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-operations/internal/apperr"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"no rows", pgx.ErrNoRows, apperr.KindNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, apperr.KindConflict},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, apperr.KindValidation},
		{"check violation", &pgconn.PgError{Code: "23514"}, apperr.KindValidation},
		{"serialization failure", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "40001"}), apperr.KindConflict},
		{"connection exception", &pgconn.PgError{Code: "08006"}, apperr.KindUnavailable},
		{"too many connections", &pgconn.PgError{Code: "53300"}, apperr.KindUnavailable},
		{"deadline", context.DeadlineExceeded, apperr.KindUnavailable},
		{"syntax error", &pgconn.PgError{Code: "42601"}, apperr.KindInternal},
		{"plain error", errors.New("boom"), apperr.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, "load appointment")
			assert.Equal(t, tt.want, apperr.KindOf(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyForeignKeyIsInvalidReference(t *testing.T) {
	got := apperr.As(Classify(&pgconn.PgError{Code: "23503", ConstraintName: "calendar_event_assignments_doctor_id_fkey"}, "create calendar event"))
	assert.Equal(t, apperr.ReasonInvalidReference, got.Reason)
	assert.Equal(t, 400, got.HTTPStatus())
}

func TestClassifyPassesThroughAppErrors(t *testing.T) {
	in := apperr.Validation(apperr.ReasonMissingFields, "name is required")
	assert.Same(t, in, Classify(in, "book"))
	assert.NoError(t, Classify(nil, "book"))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE patients").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err = WithTx(context.Background(), mock, func(q Querier) error {
		_, err := q.Exec(context.Background(), "UPDATE patients SET kyc_status = 'approved'")
		return err
	})
	require.NoError(t, err)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = WithTx(context.Background(), mock, func(q Querier) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
