package notification

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hackgods/clinic-operations/internal/apperr"
	"github.com/hackgods/clinic-operations/internal/db"
	"github.com/hackgods/clinic-operations/internal/logging"
	"github.com/hackgods/clinic-operations/internal/metrics"
)

var tracer = otel.Tracer("github.com/hackgods/clinic-operations/internal/notification")

// Notifier is what the state machines depend on.
type Notifier interface {
	Notify(ctx context.Context, p Payload) (*Notification, error)
}

type Engine struct {
	repo    Repository
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewEngine(repo Repository, logger zerolog.Logger, m *metrics.Metrics) *Engine {
	return &Engine{
		repo:    repo,
		logger:  logger.With().Str("component", "notification").Logger(),
		metrics: m,
	}
}

func validType(t Type) bool {
	switch t {
	case TypeEvent, TypeKYC, TypeAppointment, TypeSystem:
		return true
	}
	return false
}

func validPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func validatePayload(p *Payload) error {
	p.Title = strings.TrimSpace(p.Title)
	p.Message = strings.TrimSpace(p.Message)
	if p.Title == "" || p.Message == "" {
		return apperr.Validation(apperr.ReasonMissingFields, "title and message are required")
	}
	if !validType(p.Type) {
		return apperr.Validation(apperr.ReasonInvalidBody, "unknown notification type "+string(p.Type))
	}
	if p.Priority == "" {
		p.Priority = PriorityMedium
	}
	if !validPriority(p.Priority) {
		return apperr.Validation(apperr.ReasonInvalidBody, "unknown notification priority "+string(p.Priority))
	}
	if p.Broadcast == (p.Recipient != nil) {
		return apperr.Validation(apperr.ReasonInvalidBody, "exactly one of recipient or broadcast must be set")
	}
	if p.Recipient != nil {
		if !p.Recipient.Kind.Valid() {
			return apperr.Validation(apperr.ReasonInvalidBody, "unknown recipient type "+string(p.Recipient.Kind))
		}
		if p.Recipient.ID == uuid.Nil {
			return apperr.Validation(apperr.ReasonInvalidID, "recipient id is required")
		}
	}
	return nil
}

// Notify materializes one row per resolved recipient. For a broadcast the first
// row is returned as a representative handle; an empty roster yields (nil, nil).
func (e *Engine) Notify(ctx context.Context, p Payload) (*Notification, error) {
	ctx, span := tracer.Start(ctx, "notification.Notify")
	defer span.End()

	if err := validatePayload(&p); err != nil {
		return nil, err
	}

	d := Draft{
		Title:    p.Title,
		Message:  p.Message,
		Type:     p.Type,
		Priority: p.Priority,
		Origin:   p.Origin,
	}
	log := logging.WithTrace(ctx, e.logger)

	if p.Broadcast {
		span.SetAttributes(attribute.Bool("notification.broadcast", true))

		rows, err := e.repo.InsertForActiveEmployees(ctx, d)
		if err != nil {
			return nil, db.Classify(err, "broadcast notification")
		}
		span.SetAttributes(attribute.Int("notification.recipients", len(rows)))
		e.metrics.ObserveNotifications(string(p.Type), "broadcast", len(rows))

		if len(rows) == 0 {
			log.Info().Str("type", string(p.Type)).Msg("broadcast skipped: no active employees")
			return nil, nil
		}
		log.Debug().Str("type", string(p.Type)).Int("recipients", len(rows)).Msg("broadcast notification written")
		return &rows[0], nil
	}

	n, err := e.repo.Insert(ctx, d, *p.Recipient)
	if err != nil {
		return nil, db.Classify(err, "insert notification")
	}
	e.metrics.ObserveNotifications(string(p.Type), "single", 1)
	return n, nil
}

func (e *Engine) notFoundOr(err error, op string) error {
	if errors.Is(err, ErrNotificationNotFound) {
		return apperr.NotFound(apperr.ReasonNotificationMiss, "notification not found")
	}
	return db.Classify(err, op)
}

func (e *Engine) Get(ctx context.Context, id uuid.UUID) (*Notification, error) {
	n, err := e.repo.GetByID(ctx, id)
	if err != nil {
		return nil, e.notFoundOr(err, "get notification")
	}
	return n, nil
}

func (e *Engine) List(ctx context.Context, to Recipient, f ListFilter) ([]Notification, int, error) {
	if !to.Kind.Valid() || to.ID == uuid.Nil {
		return nil, 0, apperr.Validation(apperr.ReasonInvalidID, "a valid recipient is required")
	}
	if f.Limit <= 0 {
		f.Limit = 20 // default
	}
	if f.Limit > 100 {
		f.Limit = 100 // max
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	items, total, err := e.repo.ListForRecipient(ctx, to, f)
	if err != nil {
		return nil, 0, db.Classify(err, "list notifications")
	}
	return items, total, nil
}

func (e *Engine) UnreadCount(ctx context.Context, to Recipient) (int, error) {
	if !to.Kind.Valid() || to.ID == uuid.Nil {
		return 0, apperr.Validation(apperr.ReasonInvalidID, "a valid recipient is required")
	}
	n, err := e.repo.CountUnread(ctx, to)
	if err != nil {
		return 0, db.Classify(err, "count unread notifications")
	}
	return n, nil
}

// MarkRead moves an unread row to read. Rows already read or archived are
// returned as they are.
func (e *Engine) MarkRead(ctx context.Context, id uuid.UUID) (*Notification, error) {
	return e.advance(ctx, id, []Status{StatusUnread}, StatusRead)
}

// Archive is idempotent.
func (e *Engine) Archive(ctx context.Context, id uuid.UUID) (*Notification, error) {
	return e.advance(ctx, id, []Status{StatusUnread, StatusRead}, StatusArchived)
}

func (e *Engine) advance(ctx context.Context, id uuid.UUID, from []Status, to Status) (*Notification, error) {
	if _, err := e.repo.UpdateStatus(ctx, id, from, to); err != nil {
		return nil, db.Classify(err, "update notification status")
	}
	// Re-read either way: zero rows means missing or already past `to`.
	return e.Get(ctx, id)
}

func (e *Engine) MarkAllRead(ctx context.Context, to Recipient) (int64, error) {
	if !to.Kind.Valid() || to.ID == uuid.Nil {
		return 0, apperr.Validation(apperr.ReasonInvalidID, "a valid recipient is required")
	}
	n, err := e.repo.MarkAllRead(ctx, to)
	if err != nil {
		return 0, db.Classify(err, "mark all notifications read")
	}
	return n, nil
}

func (e *Engine) Delete(ctx context.Context, id uuid.UUID) error {
	if err := e.repo.Delete(ctx, id); err != nil {
		return e.notFoundOr(err, "delete notification")
	}
	return nil
}
