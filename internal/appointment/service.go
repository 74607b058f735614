package appointment

import (
	"context"
	"encoding/json"
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

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentStarted   = "APPOINTMENT_STARTED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
)

const machine = "appointment"

var tracer = otel.Tracer("github.com/hackgods/clinic-operations/internal/appointment")

// PatientStore is the slice of the identity store used while booking.
type PatientStore interface {
	FindPatientByContact(ctx context.Context, email, phone string) (*identity.Patient, error)
	CreatePatient(ctx context.Context, p identity.NewPatient) (*identity.Patient, error)
}

type Options struct {
	// NotificationMailbox receives a summary of every booking. Empty disables it.
	NotificationMailbox string
	Now                 func() time.Time
}

type Service struct {
	repo     Repository
	patients PatientStore
	assignee AssigneePolicy
	locker   redisclient.Locker
	notifier notification.Notifier
	mail     mailer.Queue
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	opts     Options
}

func NewService(
	repo Repository,
	patients PatientStore,
	assignee AssigneePolicy,
	locker redisclient.Locker,
	notifier notification.Notifier,
	mail mailer.Queue,
	m *metrics.Metrics,
	logger zerolog.Logger,
	opts Options,
) *Service {
	if locker == nil {
		locker = redisclient.NoopLocker{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:     repo,
		patients: patients,
		assignee: assignee,
		locker:   locker,
		notifier: notifier,
		mail:     mail,
		metrics:  m,
		logger:   logger.With().Str("component", "appointment").Logger(),
		opts:     opts,
	}
}

func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

func validateBooking(req *BookingRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Department = strings.TrimSpace(req.Department)
	req.Time = strings.TrimSpace(req.Time)

	var missing []string
	if req.Name == "" {
		missing = append(missing, "name")
	}
	if req.Email == "" && req.Phone == "" {
		missing = append(missing, "email or phone")
	}
	if req.Department == "" {
		missing = append(missing, "department")
	}
	if len(missing) > 0 {
		return apperr.Validation(apperr.ReasonMissingFields, "missing required fields: "+strings.Join(missing, ", "))
	}
	return nil
}

// Book records a new appointment in state scheduled. The patient is matched by
// contact details and created on first contact; the doctor comes from the
// assignee policy.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Detail, error) {
	ctx, span := tracer.Start(ctx, "appointment.Book")
	defer span.End()

	if err := validateBooking(&req); err != nil {
		return nil, err
	}

	patient, err := s.findOrCreatePatient(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	doctor, err := s.assignee.Resolve(ctx, req.DoctorID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "doctor resolution failed")
		if errors.Is(err, ErrNoDoctor) {
			return nil, &apperr.Error{
				Kind:    apperr.KindInternal,
				Reason:  apperr.ReasonNoDoctorAvailable,
				Message: "no doctor is registered to take the booking",
				Err:     err,
			}
		}
		return nil, db.Classify(err, "resolve doctor")
	}

	date := today(s.opts.Now())
	if req.Date != nil && !req.Date.IsZero() {
		date = today(*req.Date)
	}
	tod := req.Time
	if tod == "" {
		tod = DefaultTime
	}
	typ := strings.TrimSpace(req.Type)
	if typ == "" {
		typ = DefaultType
	}

	appt, err := s.repo.Create(ctx, NewAppointment{
		PatientID:  patient.ID,
		DoctorID:   doctor.ID,
		Date:       date,
		Time:       tod,
		Type:       typ,
		Notes:      strings.TrimSpace(req.Message),
		Department: req.Department,
	})
	if err != nil {
		span.RecordError(err)
		return nil, db.Classify(err, "create appointment")
	}
	span.SetAttributes(attribute.String("appointment.id", appt.ID.String()), attribute.String("doctor.id", doctor.ID.String()))

	s.metrics.ObserveTransition(machine, "", string(StatusScheduled))
	s.logEvent(ctx, appt.ID, EventAppointmentBooked, map[string]any{
		"patient_id": patient.ID.String(),
		"doctor_id":  doctor.ID.String(),
		"date":       date.Format("2006-01-02"),
		"time":       tod,
	})

	detail := &Detail{Appointment: *appt, Patient: patient, Doctor: doctor}

	to := notification.Doctor(doctor.ID)
	s.notify(ctx, notification.Payload{
		Title:     "New appointment",
		Message:   fmt.Sprintf("%s booked %s on %s at %s.", patient.Name, req.Department, date.Format("2006-01-02"), tod),
		Type:      notification.TypeAppointment,
		Priority:  notification.PriorityMedium,
		Recipient: &to,
		Origin:    notification.Origin{AppointmentID: &appt.ID},
	})

	if s.opts.NotificationMailbox != "" {
		s.enqueue(mailer.BookingSummaryEmail(s.opts.NotificationMailbox, mailer.BookingSummary{
			AppointmentID: appt.ID.String(),
			PatientName:   patient.Name,
			PatientEmail:  patient.Email,
			PatientPhone:  patient.Phone,
			Department:    appt.Department,
			DoctorName:    doctor.Name,
			Date:          appt.Date,
			Time:          appt.Time,
			Notes:         appt.Notes,
		}))
	}

	return detail, nil
}

func (s *Service) findOrCreatePatient(ctx context.Context, req BookingRequest) (*identity.Patient, error) {
	p, err := s.patients.FindPatientByContact(ctx, req.Email, req.Phone)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, identity.ErrPatientNotFound) {
		return nil, db.Classify(err, "find patient")
	}

	p, err = s.patients.CreatePatient(ctx, identity.NewPatient{Name: req.Name, Email: req.Email, Phone: req.Phone})
	if err == nil {
		return p, nil
	}
	if db.IsUniqueViolation(err) {
		// Lost a race with a concurrent booking for the same contact.
		p, rerr := s.patients.FindPatientByContact(ctx, req.Email, req.Phone)
		if rerr == nil {
			return p, nil
		}
		return nil, db.Classify(rerr, "find patient")
	}
	return nil, db.Classify(err, "create patient")
}

// Accept confirms a scheduled appointment and emails the patient.
func (s *Service) Accept(ctx context.Context, id uuid.UUID) (*Detail, error) {
	return s.transition(ctx, id, "accept", StatusConfirmed, "")
}

func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Detail, error) {
	return s.transition(ctx, id, "start", StatusInProgress, "")
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Detail, error) {
	return s.transition(ctx, id, "complete", StatusCompleted, "")
}

// Cancel is allowed from any non-terminal state. reason is appended to the notes.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Detail, error) {
	note := ""
	if r := strings.TrimSpace(reason); r != "" {
		note = "Cancelled: " + r
	}
	return s.transition(ctx, id, "cancel", StatusCancelled, note)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, action string, to Status, note string) (*Detail, error) {
	ctx, span := tracer.Start(ctx, "appointment."+action)
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", id.String()))

	var (
		from    Status
		updated *Appointment
	)
	err := s.locker.WithLock(ctx, machine, id, func(lockCtx context.Context) error {
		current, err := s.repo.GetByID(lockCtx, id)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return apperr.NotFound(apperr.ReasonAppointmentMissing, "appointment not found")
			}
			return db.Classify(err, "load appointment")
		}
		from = current.Status

		if !CanTransition(from, to) {
			return &apperr.Error{
				Kind:    apperr.KindConflict,
				Reason:  apperr.ReasonInvalidTransition,
				Message: fmt.Sprintf("cannot %s an appointment that is %s", action, from),
			}
		}

		updated, err = s.repo.UpdateStatus(lockCtx, id, from, to, note)
		if err != nil {
			if errors.Is(err, ErrStatusChanged) {
				return apperr.Conflict(apperr.ReasonConcurrentUpdate, "appointment was modified concurrently", err)
			}
			return db.Classify(err, action+" appointment")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			err = apperr.Conflict(apperr.ReasonRecordLocked, "appointment is being updated, retry shortly", err)
		} else {
			err = db.Classify(err, action+" appointment")
		}
		ae := apperr.As(err)
		s.metrics.ObserveRejected(machine, ae.Reason)
		span.RecordError(err)
		span.SetStatus(codes.Error, ae.Reason)
		return nil, err
	}

	s.metrics.ObserveTransition(machine, string(from), string(to))
	s.logEvent(ctx, id, eventFor(to), map[string]any{"from": string(from), "to": string(to)})

	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		// The transition is durable; only the side effects lose their context.
		logging.WithTrace(ctx, s.logger).Error().Err(err).Str("appointment_id", id.String()).Msg("reload appointment after transition")
		return &Detail{Appointment: *updated}, nil
	}

	s.afterTransition(ctx, detail, to)
	return detail, nil
}

func eventFor(to Status) string {
	switch to {
	case StatusConfirmed:
		return EventAppointmentConfirmed
	case StatusInProgress:
		return EventAppointmentStarted
	case StatusCompleted:
		return EventAppointmentCompleted
	case StatusCancelled:
		return EventAppointmentCancelled
	}
	return "APPOINTMENT_" + strings.ToUpper(string(to))
}

func (s *Service) afterTransition(ctx context.Context, d *Detail, to Status) {
	when := fmt.Sprintf("%s at %s", d.Date.Format("2006-01-02"), d.Time)
	origin := notification.Origin{AppointmentID: &d.ID}
	patient := notification.Patient(d.PatientID)

	switch to {
	case StatusConfirmed:
		s.notify(ctx, notification.Payload{
			Title:     "Appointment confirmed",
			Message:   fmt.Sprintf("Your appointment with %s on %s is confirmed.", d.Doctor.Name, when),
			Type:      notification.TypeAppointment,
			Priority:  notification.PriorityMedium,
			Recipient: &patient,
			Origin:    origin,
		})
		if d.Patient.Email != "" {
			s.enqueue(mailer.AppointmentConfirmationEmail(d.Patient.Email, mailer.AppointmentConfirmation{
				PatientName: d.Patient.Name,
				DoctorName:  d.Doctor.Name,
				Department:  d.Department,
				Date:        d.Date,
				Time:        d.Time,
			}))
		}

	case StatusInProgress:
		s.notify(ctx, notification.Payload{
			Title:     "Appointment started",
			Message:   fmt.Sprintf("%s is now seeing you.", d.Doctor.Name),
			Type:      notification.TypeAppointment,
			Priority:  notification.PriorityLow,
			Recipient: &patient,
			Origin:    origin,
		})

	case StatusCompleted:
		s.notify(ctx, notification.Payload{
			Title:     "Appointment completed",
			Message:   fmt.Sprintf("Your appointment on %s with %s is complete.", when, d.Doctor.Name),
			Type:      notification.TypeAppointment,
			Priority:  notification.PriorityMedium,
			Recipient: &patient,
			Origin:    origin,
		})

	case StatusCancelled:
		doctor := notification.Doctor(d.DoctorID)
		for _, r := range []notification.Recipient{patient, doctor} {
			r := r
			s.notify(ctx, notification.Payload{
				Title:     "Appointment cancelled",
				Message:   fmt.Sprintf("The appointment for %s on %s was cancelled.", d.Patient.Name, when),
				Type:      notification.TypeAppointment,
				Priority:  notification.PriorityHigh,
				Recipient: &r,
				Origin:    origin,
			})
		}
	}
}

// notify writes a notification after a durable transition. Failures are logged
// and counted, never returned.
func (s *Service) notify(ctx context.Context, p notification.Payload) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, p); err != nil {
		s.metrics.ObserveRejected("notification", apperr.As(err).Reason)
		logging.WithTrace(ctx, s.logger).Error().Err(err).Str("title", p.Title).Msg("notification write failed")
	}
}

func (s *Service) enqueue(msg mailer.Message, err error) {
	if s.mail == nil {
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("email render failed")
		return
	}
	s.mail.Enqueue(msg)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	d, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, apperr.NotFound(apperr.ReasonAppointmentMissing, "appointment not found")
		}
		return nil, db.Classify(err, "get appointment")
	}
	return d, nil
}

// List returns a calendar ordered by date then time of day. Without a doctor or
// patient filter the doctor is resolved through the assignee policy.
func (s *Service) List(ctx context.Context, q Query) ([]Detail, int, error) {
	ctx, span := tracer.Start(ctx, "appointment.List")
	defer span.End()

	if q.Status != nil && !q.Status.Valid() {
		return nil, 0, apperr.Validation(apperr.ReasonInvalidBody, "unknown appointment status "+string(*q.Status))
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return nil, 0, apperr.Validation(apperr.ReasonInvalidBody, "date range end is before its start")
	}

	if q.DoctorID == nil && q.PatientID == nil {
		d, err := s.assignee.Resolve(ctx, nil)
		if err != nil {
			if errors.Is(err, ErrNoDoctor) {
				return nil, 0, nil
			}
			return nil, 0, db.Classify(err, "resolve doctor")
		}
		q.DoctorID = &d.ID
	}

	if q.Limit <= 0 {
		q.Limit = 20 // default
	}
	if q.Limit > 100 {
		q.Limit = 100 // max
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, 0, db.Classify(err, "list appointments")
	}
	return items, total, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.opts.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		logging.WithTrace(ctx, s.logger).Warn().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("failed to insert event log")
	}
}
