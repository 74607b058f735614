package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Session carries identities asserted by the auth gateway in front of this service.
type Session struct {
	ActorID    *uuid.UUID
	DoctorID   *uuid.UUID
	PatientID  *uuid.UUID
	EmployeeID *uuid.UUID
	StaffID    *uuid.UUID
}

const (
	HeaderActorID    = "X-Actor-ID"
	HeaderDoctorID   = "X-Doctor-ID"
	HeaderPatientID  = "X-Patient-ID"
	HeaderEmployeeID = "X-Employee-ID"
	HeaderStaffID    = "X-Staff-ID"
)

const sessionKey contextKey = "session"

func headerID(r *http.Request, name string) *uuid.UUID {
	raw := r.Header.Get(name)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

// SessionMiddleware reads the identity headers into the request context.
// Malformed ids are ignored.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := Session{
			ActorID:    headerID(r, HeaderActorID),
			DoctorID:   headerID(r, HeaderDoctorID),
			PatientID:  headerID(r, HeaderPatientID),
			EmployeeID: headerID(r, HeaderEmployeeID),
			StaffID:    headerID(r, HeaderStaffID),
		}
		ctx := context.WithValue(r.Context(), sessionKey, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func SessionFrom(ctx context.Context) Session {
	s, _ := ctx.Value(sessionKey).(Session)
	return s
}

// Reviewer is whoever performs an administrative action.
func (s Session) Reviewer() *uuid.UUID {
	if s.ActorID != nil {
		return s.ActorID
	}
	return s.EmployeeID
}
