package db

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/clinic-operations/internal/apperr"
)

const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeNotNullViolation     = "23502"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeTooManyConnections   = "53300"
	codeAdminShutdown        = "57P01"
	codeCannotConnectNow     = "57P03"
)

// Classify maps a store error onto the application taxonomy. Errors that are
// already classified pass through untouched. op names the failed operation.
func Classify(err error, op string) error {
	if err == nil {
		return nil
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return &apperr.Error{Kind: apperr.KindNotFound, Reason: apperr.ReasonNotFound, Message: op + ": not found", Err: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeUniqueViolation:
			return apperr.Conflict(apperr.ReasonConcurrentUpdate, op+": unique constraint violated", err)
		case pgErr.Code == codeForeignKeyViolation:
			return &apperr.Error{Kind: apperr.KindValidation, Reason: apperr.ReasonInvalidReference, Message: op + ": referenced record does not exist", Err: err}
		case pgErr.Code == codeCheckViolation, pgErr.Code == codeNotNullViolation:
			return &apperr.Error{Kind: apperr.KindValidation, Reason: apperr.ReasonInvalidBody, Message: op + ": value rejected by the store", Err: err}
		case pgErr.Code == codeSerializationFailure, pgErr.Code == codeDeadlockDetected, pgErr.Code == codeLockNotAvailable:
			return apperr.Conflict(apperr.ReasonConcurrentUpdate, op+": concurrent update", err)
		case strings.HasPrefix(pgErr.Code, "08"),
			pgErr.Code == codeTooManyConnections,
			pgErr.Code == codeAdminShutdown,
			pgErr.Code == codeCannotConnectNow:
			return apperr.Unavailable(op+": store unavailable", err)
		}
		return apperr.Internal(op, err)
	}

	if IsUnavailable(err) {
		return apperr.Unavailable(op+": store unavailable", err)
	}

	return apperr.Internal(op, err)
}

// IsUnavailable reports whether err means the store could not be reached at all.
func IsUnavailable(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	if pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
