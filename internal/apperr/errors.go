// Package apperr defines the error taxonomy shared by the state machines and
// the HTTP layer. Every failure carries a Kind (which decides the status code)
// and a stable machine-readable Reason.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation  Kind = "validation_error"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindUnavailable Kind = "service_unavailable"
	KindInternal    Kind = "internal_error"
)

// Stable reasons surfaced to API clients.
const (
	ReasonInvalidBody        = "invalid_request_body"
	ReasonMissingFields      = "missing_fields"
	ReasonInvalidID          = "invalid_id"
	ReasonInvalidReference   = "invalid_reference"
	ReasonInvalidTransition  = "invalid_status_transition"
	ReasonConcurrentUpdate   = "concurrent_update"
	ReasonRecordLocked       = "record_locked"
	ReasonInvalidAction      = "invalid_action"
	ReasonRemarksRequired    = "remarks_required"
	ReasonAlreadyReviewed    = "already_reviewed"
	ReasonNoDoctorAvailable  = "no_doctor_available"
	ReasonStoreUnavailable   = "store_unavailable"
	ReasonInternal           = "internal_error"
	ReasonNotFound           = "not_found"
	ReasonAppointmentMissing = "appointment_not_found"
	ReasonPatientMissing     = "patient_not_found"
	ReasonKYCMissing         = "kyc_not_found"
	ReasonNotificationMiss   = "notification_not_found"
	ReasonEventMissing       = "event_not_found"
)

// Error is an application error.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind and Reason so sentinel-style comparisons
// such as errors.Is(err, apperr.AlreadyReviewed) keep working on wrapped errors.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

// HTTPStatus maps the error kind to a response status code.
func (e *Error) HTTPStatus() int {
	return StatusFor(e.Kind)
}

func StatusFor(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func Validation(reason, message string) *Error {
	return &Error{Kind: KindValidation, Reason: reason, Message: message}
}

func NotFound(reason, message string) *Error {
	return &Error{Kind: KindNotFound, Reason: reason, Message: message}
}

func Conflict(reason, message string, err error) *Error {
	return &Error{Kind: KindConflict, Reason: reason, Message: message, Err: err}
}

func Unavailable(message string, err error) *Error {
	return &Error{Kind: KindUnavailable, Reason: ReasonStoreUnavailable, Message: message, Err: err}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Reason: ReasonInternal, Message: message, Err: err}
}

// Sentinels for errors.Is checks in callers and tests.
var (
	InvalidAction     = &Error{Kind: KindValidation, Reason: ReasonInvalidAction}
	RemarksRequired   = &Error{Kind: KindValidation, Reason: ReasonRemarksRequired}
	AlreadyReviewed   = &Error{Kind: KindConflict, Reason: ReasonAlreadyReviewed}
	InvalidTransition = &Error{Kind: KindConflict, Reason: ReasonInvalidTransition}
	NoDoctorAvailable = &Error{Kind: KindInternal, Reason: ReasonNoDoctorAvailable}
)

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// As unwraps err into an *Error, converting unknown errors into internal ones.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal("unexpected error", err)
}
