package kyc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hackgods/clinic-operations/internal/apperr"
	"github.com/hackgods/clinic-operations/internal/db"
	"github.com/hackgods/clinic-operations/internal/identity"
	"github.com/hackgods/clinic-operations/internal/logging"
	"github.com/hackgods/clinic-operations/internal/mailer"
	"github.com/hackgods/clinic-operations/internal/metrics"
	"github.com/hackgods/clinic-operations/internal/notification"
	redisclient "github.com/hackgods/clinic-operations/internal/redis"
)

const machine = "kyc"

var tracer = otel.Tracer("github.com/hackgods/clinic-operations/internal/kyc")

// PatientReader loads the patient a decision email goes to.
type PatientReader interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
}

type Service struct {
	repo     Repository
	patients PatientReader
	locker   redisclient.Locker
	notifier notification.Notifier
	mail     mailer.Queue
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(
	repo Repository,
	patients PatientReader,
	locker redisclient.Locker,
	notifier notification.Notifier,
	mail mailer.Queue,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	if locker == nil {
		locker = redisclient.NoopLocker{}
	}
	return &Service{
		repo:     repo,
		patients: patients,
		locker:   locker,
		notifier: notifier,
		mail:     mail,
		metrics:  m,
		logger:   logger.With().Str("component", "kyc").Logger(),
		now:      time.Now,
	}
}

func mapErr(err error, op string) error {
	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return apperr.NotFound(apperr.ReasonKYCMissing, "kyc document not found")
	case errors.Is(err, identity.ErrPatientNotFound):
		return apperr.NotFound(apperr.ReasonPatientMissing, "patient not found")
	case errors.Is(err, ErrAlreadyReviewed):
		return &apperr.Error{Kind: apperr.KindConflict, Reason: apperr.ReasonAlreadyReviewed, Message: "kyc document has already been reviewed", Err: err}
	case errors.Is(err, ErrSuperseded):
		return apperr.Conflict(apperr.ReasonInvalidTransition, "kyc document was replaced by a newer submission", err)
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		return apperr.Conflict(apperr.ReasonRecordLocked, "kyc document is being reviewed, retry shortly", err)
	}
	return db.Classify(err, op)
}

// Submit opens a new review cycle for the patient.
func (s *Service) Submit(ctx context.Context, patientID uuid.UUID, slots Slots) (*Document, error) {
	ctx, span := tracer.Start(ctx, "kyc.Submit")
	defer span.End()

	if patientID == uuid.Nil {
		return nil, apperr.Validation(apperr.ReasonMissingFields, "patientId is required")
	}
	clean, err := slots.Clean()
	if err != nil {
		return nil, apperr.Validation(apperr.ReasonInvalidBody, err.Error())
	}

	doc, err := s.repo.Submit(ctx, patientID, clean)
	if err != nil {
		span.RecordError(err)
		return nil, mapErr(err, "submit kyc")
	}
	span.SetAttributes(attribute.String("kyc.id", doc.ID.String()))
	s.metrics.ObserveTransition(machine, "", string(StatusPending))

	s.notify(ctx, notification.Payload{
		Title:     "New KYC submission",
		Message:   fmt.Sprintf("A patient submitted %d document(s) for review.", len(clean)),
		Type:      notification.TypeKYC,
		Priority:  notification.PriorityMedium,
		Broadcast: true,
		Origin:    notification.Origin{KYCDocumentID: &doc.ID},
	})
	return doc, nil
}

// BeginReview claims a bundle for review.
func (s *Service) BeginReview(ctx context.Context, id uuid.UUID) (*Document, error) {
	ctx, span := tracer.Start(ctx, "kyc.BeginReview")
	defer span.End()

	var doc *Document
	err := s.locker.WithLock(ctx, machine, id, func(lockCtx context.Context) error {
		var err error
		doc, err = s.repo.BeginReview(lockCtx, id)
		return err
	})
	if err != nil {
		err = mapErr(err, "begin kyc review")
		s.metrics.ObserveRejected(machine, apperr.As(err).Reason)
		span.RecordError(err)
		return nil, err
	}
	s.metrics.ObserveTransition(machine, "awaiting", string(StatusUnderReview))
	return doc, nil
}

// Review approves or rejects a bundle. A terminal bundle cannot be reviewed again,
// and rejection needs remarks.
func (s *Service) Review(ctx context.Context, id uuid.UUID, in ReviewInput) (*Document, error) {
	ctx, span := tracer.Start(ctx, "kyc.Review")
	defer span.End()
	span.SetAttributes(attribute.String("kyc.id", id.String()), attribute.String("kyc.action", string(in.Action)))

	status, ok := in.Action.Result()
	if !ok {
		s.metrics.ObserveRejected(machine, apperr.ReasonInvalidAction)
		return nil, &apperr.Error{Kind: apperr.KindValidation, Reason: apperr.ReasonInvalidAction, Message: `action must be "approve" or "reject"`}
	}
	remarks := strings.TrimSpace(in.Remarks)
	if status == StatusRejected && remarks == "" {
		s.metrics.ObserveRejected(machine, apperr.ReasonRemarksRequired)
		return nil, &apperr.Error{Kind: apperr.KindValidation, Reason: apperr.ReasonRemarksRequired, Message: "remarks are required when rejecting"}
	}
	if in.ReviewerID == uuid.Nil {
		return nil, apperr.Validation(apperr.ReasonMissingFields, "reviewer identity is required")
	}

	decision := ReviewDecision{Status: status, ReviewerID: in.ReviewerID, At: s.now().UTC()}
	if remarks != "" {
		decision.Remarks = &remarks
	}

	var doc *Document
	err := s.locker.WithLock(ctx, machine, id, func(lockCtx context.Context) error {
		var err error
		doc, err = s.repo.Review(lockCtx, id, decision)
		return err
	})
	if err != nil {
		err = mapErr(err, "review kyc")
		ae := apperr.As(err)
		s.metrics.ObserveRejected(machine, ae.Reason)
		span.RecordError(err)
		span.SetStatus(codes.Error, ae.Reason)
		return nil, err
	}
	s.metrics.ObserveTransition(machine, "awaiting", string(doc.Status))

	s.afterReview(ctx, doc)
	return doc, nil
}

func (s *Service) afterReview(ctx context.Context, doc *Document) {
	approved := doc.Status == StatusApproved
	remarks := ""
	if doc.RejectionRemarks != nil {
		remarks = *doc.RejectionRemarks
	}

	p := notification.Payload{
		Title:    "Documents approved",
		Message:  "Your identity and insurance documents were approved.",
		Type:     notification.TypeKYC,
		Priority: notification.PriorityMedium,
		Origin:   notification.Origin{KYCDocumentID: &doc.ID},
	}
	if !approved {
		p.Title = "Documents rejected"
		p.Message = "Your documents were not approved: " + remarks
		p.Priority = notification.PriorityHigh
	}
	to := notification.Patient(doc.PatientID)
	p.Recipient = &to
	s.notify(ctx, p)

	if s.mail == nil || s.patients == nil {
		return
	}
	patient, err := s.patients.GetPatientByID(ctx, doc.PatientID)
	if err != nil {
		s.logger.Warn().Err(err).Str("patient_id", doc.PatientID.String()).Msg("load patient for kyc email")
		return
	}
	if patient.Email == "" {
		return
	}
	msg, err := mailer.KYCDecisionEmail(patient.Email, mailer.KYCDecision{
		PatientName: patient.Name,
		Approved:    approved,
		Remarks:     remarks,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("email render failed")
		return
	}
	s.mail.Enqueue(msg)
}

func (s *Service) notify(ctx context.Context, p notification.Payload) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, p); err != nil {
		s.metrics.ObserveRejected("notification", apperr.As(err).Reason)
		logging.WithTrace(ctx, s.logger).Error().Err(err).Str("title", p.Title).Msg("notification write failed")
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapErr(err, "get kyc")
	}
	return doc, nil
}

func (s *Service) ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*Document, error) {
	doc, err := s.repo.ActiveForPatient(ctx, patientID)
	if err != nil {
		return nil, mapErr(err, "get active kyc")
	}
	return doc, nil
}

// List defaults to the awaiting-review bucket, newest first.
func (s *Service) List(ctx context.Context, q Query) ([]Document, int, error) {
	if q.Bucket == "" {
		q.Bucket = BucketAwaiting
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}

	items, total, err := s.repo.List(ctx, q.Bucket.Statuses(), q.Limit, (q.Page-1)*q.Limit)
	if err != nil {
		return nil, 0, mapErr(err, "list kyc")
	}
	return items, total, nil
}
