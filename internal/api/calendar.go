package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-operations/internal/calendar"
)

type CalendarService interface {
	CreateEvent(ctx context.Context, in calendar.NewEvent) (*calendar.Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*calendar.Event, error)
	SetStatus(ctx context.Context, id uuid.UUID, to calendar.Status) (*calendar.Event, error)
}

func createEventHandler(svc CalendarService, rs responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateEventRequest
		if err := decode(r, &req); err != nil {
			rs.fail(w, r, err)
			return
		}

		e, err := svc.CreateEvent(r.Context(), calendar.NewEvent{
			Title:         req.Title,
			Description:   req.Description,
			StartDate:     req.StartDate,
			EndDate:       req.EndDate,
			EventType:     calendar.EventType(req.EventType),
			AssignedToAll: req.AssignedToAll,
			CreatedBy:     SessionFrom(r.Context()).Reviewer(),
			EmployeeIDs:   req.EmployeeIDs,
			DoctorIDs:     req.DoctorIDs,
			StaffIDs:      req.StaffIDs,
		})
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toEvent(e))
	}
}

func getEventHandler(svc CalendarService, rs responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		e, err := svc.GetEvent(r.Context(), id)
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toEvent(e))
	}
}

func setEventStatusHandler(svc CalendarService, rs responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		var req EventStatusRequest
		if err := decode(r, &req); err != nil {
			rs.fail(w, r, err)
			return
		}
		e, err := svc.SetStatus(r.Context(), id, calendar.Status(req.Status))
		if err != nil {
			rs.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toEvent(e))
	}
}
