package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-operations/internal/apperr"
	"github.com/hackgods/clinic-operations/internal/appointment"
)

type AppointmentService interface {
	Book(ctx context.Context, req appointment.BookingRequest) (*appointment.Detail, error)
	Get(ctx context.Context, id uuid.UUID) (*appointment.Detail, error)
	List(ctx context.Context, q appointment.Query) ([]appointment.Detail, int, error)
	Accept(ctx context.Context, id uuid.UUID) (*appointment.Detail, error)
	Start(ctx context.Context, id uuid.UUID) (*appointment.Detail, error)
	Complete(ctx context.Context, id uuid.UUID) (*appointment.Detail, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*appointment.Detail, error)
}

func parseDate(raw, field string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	return nil, apperr.Validation(apperr.ReasonInvalidBody, field+" must be YYYY-MM-DD or RFC 3339")
}

func bookAppointmentHandler(svc AppointmentService, rs responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := decode(r, &req); err != nil {
			rs.fail(w, r, err)
			return
		}
		date, err := parseDate(req.preferredDate(), "preferredDate")
		if err != nil {
			rs.fail(w, r, err)
			return
		}

		d, err := svc.Book(r.Context(), appointment.BookingRequest{
			Name:       req.Name,
			Email:      req.Email,
			Phone:      req.Phone,
			Department: req.Department,
			Message:    req.Message,
			Type:       req.Type,
			DoctorID:   req.DoctorID,
			Date:       date,
			Time:       req.preferredTime(),
		})
		if err != nil {
			rs.fail(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, BookAppointmentResponse{AppointmentID: d.ID, Appointment: toAppointment(d)})
	}
}

func getAppointmentHandler(svc AppointmentService, rs responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		d, err := svc.Get(r.Context(), id)
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointment(d))
	}
}

// listAppointmentsHandler serves a calendar. scope picks which session identity
// filters the list; a doctor calendar without one falls back to the default assignee.
func listAppointmentsHandler(svc AppointmentService, rs responder, scope string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFrom(r.Context())
		qs := r.URL.Query()

		limit, offset, err := pagination(r)
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		q := appointment.Query{Search: qs.Get("search"), Limit: limit, Offset: offset}

		switch scope {
		case "patient":
			if sess.PatientID == nil {
				rs.fail(w, r, apperr.Validation(apperr.ReasonMissingFields, HeaderPatientID+" header is required"))
				return
			}
			q.PatientID = sess.PatientID
		default:
			q.DoctorID = sess.DoctorID
		}

		if raw := qs.Get("status"); raw != "" {
			st := appointment.Status(raw)
			q.Status = &st
		}
		if q.From, err = parseDate(qs.Get("from"), "from"); err != nil {
			rs.fail(w, r, err)
			return
		}
		if q.To, err = parseDate(qs.Get("to"), "to"); err != nil {
			rs.fail(w, r, err)
			return
		}

		items, total, err := svc.List(r.Context(), q)
		if err != nil {
			rs.fail(w, r, err)
			return
		}

		page := Page[AppointmentResponse]{Items: make([]AppointmentResponse, 0, len(items)), Total: total, Limit: effectiveLimit(limit), Offset: offset}
		for i := range items {
			page.Items = append(page.Items, toAppointment(&items[i]))
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func transitionHandler(rs responder, fn func(ctx context.Context, id uuid.UUID) (*appointment.Detail, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		d, err := fn(r.Context(), id)
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointment(d))
	}
}

func cancelAppointmentHandler(svc AppointmentService, rs responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		var req CancelAppointmentRequest
		if r.ContentLength != 0 {
			if err := decode(r, &req); err != nil {
				rs.fail(w, r, err)
				return
			}
		}
		d, err := svc.Cancel(r.Context(), id, req.Reason)
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointment(d))
	}
}
