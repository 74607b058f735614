package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hackgods/clinic-operations/internal/apperr"
	"github.com/hackgods/clinic-operations/internal/db"
	"github.com/hackgods/clinic-operations/internal/logging"
	"github.com/hackgods/clinic-operations/internal/metrics"
	"github.com/hackgods/clinic-operations/internal/notification"
)

const machine = "calendar"

var tracer = otel.Tracer("github.com/hackgods/clinic-operations/internal/calendar")

type Service struct {
	repo     Repository
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	newID    func() uuid.UUID
}

func NewService(repo Repository, notifier notification.Notifier, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With().Str("component", "calendar").Logger(),
		newID:    uuid.New,
	}
}

func mapErr(err error, op string) error {
	switch {
	case errors.Is(err, ErrEventNotFound):
		return apperr.NotFound(apperr.ReasonEventMissing, "calendar event not found")
	case errors.Is(err, ErrStatusChanged):
		return apperr.Conflict(apperr.ReasonConcurrentUpdate, "calendar event was updated concurrently", err)
	}
	return db.Classify(err, op)
}

// buildAssignments orders rows employees first, then doctors, then staff.
// A repeated id within one list is written once.
func (s *Service) buildAssignments(eventID uuid.UUID, in NewEvent) []Assignment {
	var out []Assignment
	add := func(ids []uuid.UUID, set func(a *Assignment, id uuid.UUID)) {
		seen := make(map[uuid.UUID]struct{}, len(ids))
		for _, id := range ids {
			if id == uuid.Nil {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			a := Assignment{ID: s.newID(), EventID: eventID, Position: len(out)}
			set(&a, id)
			out = append(out, a)
		}
	}
	add(in.EmployeeIDs, func(a *Assignment, id uuid.UUID) { a.EmployeeID = &id })
	add(in.DoctorIDs, func(a *Assignment, id uuid.UUID) { a.DoctorID = &id })
	add(in.StaffIDs, func(a *Assignment, id uuid.UUID) { a.StaffID = &id })
	return out
}

func (a Assignment) recipient() notification.Recipient {
	switch {
	case a.EmployeeID != nil:
		return notification.Employee(*a.EmployeeID)
	case a.DoctorID != nil:
		return notification.Doctor(*a.DoctorID)
	default:
		return notification.Staff(*a.StaffID)
	}
}

func validate(in NewEvent) error {
	var missing []string
	if strings.TrimSpace(in.Title) == "" {
		missing = append(missing, "title")
	}
	if in.StartDate.IsZero() {
		missing = append(missing, "startDate")
	}
	if in.EndDate.IsZero() {
		missing = append(missing, "endDate")
	}
	if len(missing) > 0 {
		return apperr.Validation(apperr.ReasonMissingFields, "missing required fields: "+strings.Join(missing, ", "))
	}
	if in.EndDate.Before(in.StartDate) {
		return apperr.Validation(apperr.ReasonInvalidBody, "endDate must not be before startDate")
	}
	if !in.EventType.Valid() {
		return apperr.Validation(apperr.ReasonInvalidBody, fmt.Sprintf("unknown event type %q", in.EventType))
	}
	return nil
}

// CreateEvent stores the event and fans it out. With AssignedToAll no assignment
// rows are written and every active employee is notified; otherwise each
// assignment row gets its own notification.
func (s *Service) CreateEvent(ctx context.Context, in NewEvent) (*Event, error) {
	ctx, span := tracer.Start(ctx, "calendar.CreateEvent")
	defer span.End()

	if in.EventType == "" {
		in.EventType = TypeOther
	}
	if err := validate(in); err != nil {
		s.metrics.ObserveRejected(machine, apperr.As(err).Reason)
		return nil, err
	}

	e := Event{
		ID:            s.newID(),
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		EventType:     in.EventType,
		AssignedToAll: in.AssignedToAll,
		CreatedBy:     in.CreatedBy,
	}
	var assignments []Assignment
	if !in.AssignedToAll {
		assignments = s.buildAssignments(e.ID, in)
	}

	created, err := s.repo.Create(ctx, e, assignments)
	if err != nil {
		span.RecordError(err)
		return nil, mapErr(err, "create calendar event")
	}
	span.SetAttributes(
		attribute.String("event.id", created.ID.String()),
		attribute.Bool("event.assigned_to_all", created.AssignedToAll),
		attribute.Int("event.assignments", len(created.Assignments)),
	)
	s.metrics.ObserveTransition(machine, "", string(StatusUpcoming))

	s.fanOut(ctx, created)
	return created, nil
}

func (s *Service) fanOut(ctx context.Context, e *Event) {
	if s.notifier == nil {
		return
	}
	base := notification.Payload{
		Title:    "New " + string(e.EventType) + ": " + e.Title,
		Message:  fmt.Sprintf("%s, %s to %s", e.Title, e.StartDate.Format("Jan 2 15:04"), e.EndDate.Format("Jan 2 15:04")),
		Type:     notification.TypeEvent,
		Priority: notification.PriorityMedium,
		Origin:   notification.Origin{EventID: &e.ID},
	}
	if e.AssignedToAll {
		p := base
		p.Broadcast = true
		s.notify(ctx, p)
		return
	}
	for _, a := range e.Assignments {
		p := base
		to := a.recipient()
		p.Recipient = &to
		s.notify(ctx, p)
	}
}

func (s *Service) notify(ctx context.Context, p notification.Payload) {
	if _, err := s.notifier.Notify(ctx, p); err != nil {
		s.metrics.ObserveRejected("notification", apperr.As(err).Reason)
		logging.WithTrace(ctx, s.logger).Error().Err(err).Str("title", p.Title).Msg("notification write failed")
	}
}

func (s *Service) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapErr(err, "get calendar event")
	}
	return e, nil
}

// SetStatus closes an upcoming event as completed or cancelled.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, to Status) (*Event, error) {
	if to != StatusCompleted && to != StatusCancelled {
		s.metrics.ObserveRejected(machine, apperr.ReasonInvalidTransition)
		return nil, apperr.Validation(apperr.ReasonInvalidBody, fmt.Sprintf("status must be %q or %q", StatusCompleted, StatusCancelled))
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapErr(err, "get calendar event")
	}
	if current.Status != StatusUpcoming {
		s.metrics.ObserveRejected(machine, apperr.ReasonInvalidTransition)
		return nil, apperr.Conflict(apperr.ReasonInvalidTransition,
			fmt.Sprintf("cannot change event from %s to %s", current.Status, to), nil)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, StatusUpcoming, to)
	if err != nil {
		err = mapErr(err, "update calendar event")
		s.metrics.ObserveRejected(machine, apperr.As(err).Reason)
		return nil, err
	}
	updated.Assignments = current.Assignments
	s.metrics.ObserveTransition(machine, string(StatusUpcoming), string(to))
	return updated, nil
}
