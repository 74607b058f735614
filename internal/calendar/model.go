package calendar

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	TypeMeeting  EventType = "meeting"
	TypeTraining EventType = "training"
	TypeHoliday  EventType = "holiday"
	TypeShift    EventType = "shift"
	TypeOther    EventType = "other"
)

func (t EventType) Valid() bool {
	switch t {
	case TypeMeeting, TypeTraining, TypeHoliday, TypeShift, TypeOther:
		return true
	}
	return false
}

type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Event struct {
	ID            uuid.UUID
	Title         string
	Description   string
	StartDate     time.Time
	EndDate       time.Time
	EventType     EventType
	Status        Status
	AssignedToAll bool
	CreatedBy     *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Assignments   []Assignment
}

// Assignment points at exactly one of employee, doctor or staff.
type Assignment struct {
	ID         uuid.UUID
	EventID    uuid.UUID
	Position   int
	EmployeeID *uuid.UUID
	DoctorID   *uuid.UUID
	StaffID    *uuid.UUID
}

type NewEvent struct {
	Title         string
	Description   string
	StartDate     time.Time
	EndDate       time.Time
	EventType     EventType
	AssignedToAll bool
	CreatedBy     *uuid.UUID
	EmployeeIDs   []uuid.UUID
	DoctorIDs     []uuid.UUID
	StaffIDs      []uuid.UUID
}
