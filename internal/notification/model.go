package notification

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeEvent       Type = "event"
	TypeKYC         Type = "kyc"
	TypeAppointment Type = "appointment"
	TypeSystem      Type = "system"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Status only moves forward: unread -> read -> archived (unread -> archived is allowed).
type Status string

const (
	StatusUnread   Status = "unread"
	StatusRead     Status = "read"
	StatusArchived Status = "archived"
)

type RecipientKind string

const (
	RecipientEmployee RecipientKind = "employee"
	RecipientDoctor   RecipientKind = "doctor"
	RecipientPatient  RecipientKind = "patient"
	RecipientStaff    RecipientKind = "staff"
)

// Recipient addresses exactly one person.
type Recipient struct {
	Kind RecipientKind `json:"type"`
	ID   uuid.UUID     `json:"id"`
}

func (k RecipientKind) Valid() bool {
	switch k {
	case RecipientEmployee, RecipientDoctor, RecipientPatient, RecipientStaff:
		return true
	}
	return false
}

func Employee(id uuid.UUID) Recipient { return Recipient{Kind: RecipientEmployee, ID: id} }
func Doctor(id uuid.UUID) Recipient   { return Recipient{Kind: RecipientDoctor, ID: id} }
func Patient(id uuid.UUID) Recipient  { return Recipient{Kind: RecipientPatient, ID: id} }
func Staff(id uuid.UUID) Recipient    { return Recipient{Kind: RecipientStaff, ID: id} }

// Origin is a weak back-reference to the entity that triggered the notification.
type Origin struct {
	EventID       *uuid.UUID `json:"eventId,omitempty"`
	AppointmentID *uuid.UUID `json:"appointmentId,omitempty"`
	KYCDocumentID *uuid.UUID `json:"kycDocumentId,omitempty"`
}

type Notification struct {
	ID         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Type       Type       `json:"type"`
	Priority   Priority   `json:"priority"`
	Status     Status     `json:"status"`
	Recipient  Recipient  `json:"recipient"`
	Origin     Origin     `json:"origin"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Draft is the recipient-independent content of a notification.
type Draft struct {
	Title    string
	Message  string
	Type     Type
	Priority Priority
	Origin   Origin
}

// Payload is the input to Notify. Exactly one of Recipient and Broadcast is set.
type Payload struct {
	Title     string
	Message   string
	Type      Type
	Priority  Priority
	Recipient *Recipient
	Broadcast bool
	Origin    Origin
}

// ListFilter selects rows for one recipient. Empty Statuses means every status.
type ListFilter struct {
	Statuses []Status
	Limit    int
	Offset   int
}
