package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-operations/internal/apperr"
	"github.com/hackgods/clinic-operations/internal/notification"
)

type NotificationService interface {
	Get(ctx context.Context, id uuid.UUID) (*notification.Notification, error)
	List(ctx context.Context, to notification.Recipient, f notification.ListFilter) ([]notification.Notification, int, error)
	UnreadCount(ctx context.Context, to notification.Recipient) (int, error)
	MarkRead(ctx context.Context, id uuid.UUID) (*notification.Notification, error)
	Archive(ctx context.Context, id uuid.UUID) (*notification.Notification, error)
	MarkAllRead(ctx context.Context, to notification.Recipient) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

var recipientKinds = []notification.RecipientKind{
	notification.RecipientDoctor,
	notification.RecipientPatient,
	notification.RecipientEmployee,
	notification.RecipientStaff,
}

// sessionID is the caller's own identity for kind, falling back to the actor.
func (s Session) sessionID(kind notification.RecipientKind) *uuid.UUID {
	var id *uuid.UUID
	switch kind {
	case notification.RecipientDoctor:
		id = s.DoctorID
	case notification.RecipientPatient:
		id = s.PatientID
	case notification.RecipientEmployee:
		id = s.EmployeeID
	case notification.RecipientStaff:
		id = s.StaffID
	}
	if id == nil {
		id = s.ActorID
	}
	return id
}

// resolveRecipient uses the recipientID path segment when present and the
// session identity otherwise.
func resolveRecipient(r *http.Request, kind notification.RecipientKind, raw string) (notification.Recipient, error) {
	if raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return notification.Recipient{}, apperr.Validation(apperr.ReasonInvalidID, "recipient id must be a valid UUID")
		}
		return notification.Recipient{Kind: kind, ID: id}, nil
	}
	if id := SessionFrom(r.Context()).sessionID(kind); id != nil {
		return notification.Recipient{Kind: kind, ID: *id}, nil
	}
	return notification.Recipient{}, apperr.Validation(apperr.ReasonMissingFields, "recipient id is required")
}

func parseStatuses(raw string) ([]notification.Status, error) {
	if raw == "" {
		return nil, nil
	}
	var out []notification.Status
	for _, part := range strings.Split(raw, ",") {
		st := notification.Status(strings.TrimSpace(part))
		switch st {
		case notification.StatusUnread, notification.StatusRead, notification.StatusArchived:
			out = append(out, st)
		default:
			return nil, apperr.Validation(apperr.ReasonInvalidBody, "unknown notification status "+string(st))
		}
	}
	return out, nil
}

func listNotificationsHandler(svc NotificationService, rs responder, kind notification.RecipientKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		to, err := resolveRecipient(r, kind, chi.URLParam(r, "recipientID"))
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		statuses, err := parseStatuses(r.URL.Query().Get("status"))
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		limit, offset, err := pagination(r)
		if err != nil {
			rs.fail(w, r, err)
			return
		}

		items, total, err := svc.List(r.Context(), to, notification.ListFilter{Statuses: statuses, Limit: limit, Offset: offset})
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		if items == nil {
			items = []notification.Notification{}
		}
		writeJSON(w, http.StatusOK, Page[notification.Notification]{Items: items, Total: total, Limit: effectiveLimit(limit), Offset: offset})
	}
}

func unreadCountHandler(svc NotificationService, rs responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs := r.URL.Query()
		kind := notification.RecipientKind(qs.Get("recipientType"))
		if kind == "" {
			kind = notification.RecipientEmployee
		}
		if !kind.Valid() {
			rs.fail(w, r, apperr.Validation(apperr.ReasonInvalidBody, "recipientType must be doctor, patient, employee or staff"))
			return
		}
		to, err := resolveRecipient(r, kind, qs.Get("recipientId"))
		if err != nil {
			rs.fail(w, r, err)
			return
		}

		n, err := svc.UnreadCount(r.Context(), to)
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, UnreadCountResponse{Count: n})
	}
}

func markAllReadHandler(svc NotificationService, rs responder, kind notification.RecipientKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		to, err := resolveRecipient(r, kind, chi.URLParam(r, "recipientID"))
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		n, err := svc.MarkAllRead(r.Context(), to)
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, MarkAllReadResponse{Updated: n})
	}
}

func notificationHandler(rs responder, fn func(ctx context.Context, id uuid.UUID) (*notification.Notification, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		n, err := fn(r.Context(), id)
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, n)
	}
}

func deleteNotificationHandler(svc NotificationService, rs responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			rs.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func mountNotifications(r chi.Router, svc NotificationService, rs responder) {
	r.Get("/notifications/unread/count", unreadCountHandler(svc, rs))
	for _, kind := range recipientKinds {
		base := "/notifications/" + string(kind)
		r.Get(base, listNotificationsHandler(svc, rs, kind))
		r.Get(base+"/{recipientID}", listNotificationsHandler(svc, rs, kind))
		r.Patch(base+"/mark-all-read", markAllReadHandler(svc, rs, kind))
		r.Patch(base+"/{recipientID}/mark-all-read", markAllReadHandler(svc, rs, kind))
	}
	r.Get("/notifications/{id}", notificationHandler(rs, svc.Get))
	r.Patch("/notifications/{id}/read", notificationHandler(rs, svc.MarkRead))
	r.Patch("/notifications/{id}/archive", notificationHandler(rs, svc.Archive))
	r.Delete("/notifications/{id}", deleteNotificationHandler(svc, rs))
}
