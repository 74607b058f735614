package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-operations/internal/identity"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// transitions lists the allowed outgoing edges. Terminal states have none.
var transitions = map[Status][]Status{
	StatusScheduled:  {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  nil,
	StatusCancelled:  nil,
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

const (
	DefaultType = "consultation"
	// DefaultTime is shown when the patient did not pick a time of day.
	DefaultTime = "09:00 AM"
)

type Appointment struct {
	ID         uuid.UUID
	PatientID  uuid.UUID
	DoctorID   uuid.UUID
	Date       time.Time
	Time       string
	Type       string
	Status     Status
	Notes      string
	Department string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Detail is an appointment with its patient and doctor loaded.
type Detail struct {
	Appointment
	Patient *identity.Patient
	Doctor  *identity.Doctor
}

type NewAppointment struct {
	PatientID  uuid.UUID
	DoctorID   uuid.UUID
	Date       time.Time
	Time       string
	Type       string
	Notes      string
	Department string
}

// BookingRequest is what a patient submits. DoctorID, Date and Time are optional.
type BookingRequest struct {
	Name       string
	Email      string
	Phone      string
	Department string
	Message    string
	Type       string
	DoctorID   *uuid.UUID
	Date       *time.Time
	Time       string
}

// Query filters a doctor's calendar. Nil fields are not applied.
type Query struct {
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
	Status    *Status
	From      *time.Time
	To        *time.Time
	Search    string
	Limit     int
	Offset    int
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
