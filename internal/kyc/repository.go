package kyc

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrDocumentNotFound = errors.New("kyc document not found")
	ErrAlreadyReviewed  = errors.New("kyc document already reviewed")
	ErrSuperseded       = errors.New("kyc document superseded by a newer submission")
)

type Repository interface {
	// Submit replaces the patient's active bundle with a new pending one and
	// resets the patient's kyc status, all in one transaction.
	Submit(ctx context.Context, patientID uuid.UUID, slots Slots) (*Document, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*Document, error)

	// BeginReview moves a pending or submitted bundle to under_review.
	BeginReview(ctx context.Context, id uuid.UUID) (*Document, error)

	// Review writes the decision and the patient's kyc status together.
	Review(ctx context.Context, id uuid.UUID, d ReviewDecision) (*Document, error)

	List(ctx context.Context, statuses []Status, limit, offset int) ([]Document, int, error)
}
