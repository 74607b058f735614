package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-operations/internal/appointment"
	"github.com/hackgods/clinic-operations/internal/calendar"
	"github.com/hackgods/clinic-operations/internal/identity"
	"github.com/hackgods/clinic-operations/internal/kyc"
)

const dateLayout = "2006-01-02"

// BookAppointmentRequest is the public booking form. Date and Time are older
// aliases for PreferredDate and PreferredTime.
type BookAppointmentRequest struct {
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Department    string     `json:"department"`
	PreferredDate string     `json:"preferredDate"`
	PreferredTime string     `json:"preferredTime"`
	Message       string     `json:"message"`
	Type          string     `json:"type"`
	DoctorID      *uuid.UUID `json:"doctorId"`
	Date          string     `json:"date"`
	Time          string     `json:"time"`
}

func (r BookAppointmentRequest) preferredDate() string {
	if r.PreferredDate != "" {
		return r.PreferredDate
	}
	return r.Date
}

func (r BookAppointmentRequest) preferredTime() string {
	if r.PreferredTime != "" {
		return r.PreferredTime
	}
	return r.Time
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

type PatientResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	KYCStatus string    `json:"kycStatus"`
}

type DoctorResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Specialty  *string   `json:"specialty,omitempty"`
	Department *string   `json:"department,omitempty"`
	Available  bool      `json:"available"`
}

type AppointmentResponse struct {
	ID         uuid.UUID        `json:"id"`
	PatientID  uuid.UUID        `json:"patientId"`
	DoctorID   uuid.UUID        `json:"doctorId"`
	Date       string           `json:"date"`
	Time       string           `json:"time"`
	Type       string           `json:"type"`
	Status     string           `json:"status"`
	Notes      string           `json:"notes,omitempty"`
	Department string           `json:"department"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
	Patient    *PatientResponse `json:"patient,omitempty"`
	Doctor     *DoctorResponse  `json:"doctor,omitempty"`
}

type BookAppointmentResponse struct {
	AppointmentID uuid.UUID           `json:"appointmentId"`
	Appointment   AppointmentResponse `json:"appointment"`
}

func toPatient(p *identity.Patient) *PatientResponse {
	if p == nil {
		return nil
	}
	return &PatientResponse{ID: p.ID, Name: p.Name, Email: p.Email, Phone: p.Phone, KYCStatus: p.KYCStatus}
}

func toDoctor(d *identity.Doctor) *DoctorResponse {
	if d == nil {
		return nil
	}
	return &DoctorResponse{ID: d.ID, Name: d.Name, Email: d.Email, Specialty: d.Specialty, Department: d.Department, Available: d.Available}
}

func toAppointment(d *appointment.Detail) AppointmentResponse {
	return AppointmentResponse{
		ID:         d.ID,
		PatientID:  d.PatientID,
		DoctorID:   d.DoctorID,
		Date:       d.Date.Format(dateLayout),
		Time:       d.Time,
		Type:       d.Type,
		Status:     string(d.Status),
		Notes:      d.Notes,
		Department: d.Department,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
		Patient:    toPatient(d.Patient),
		Doctor:     toDoctor(d.Doctor),
	}
}

type SubmitKYCRequest struct {
	PatientID uuid.UUID         `json:"patientId"`
	Documents map[string]string `json:"documents"`
}

type ReviewKYCRequest struct {
	Action  string `json:"action"`
	Remarks string `json:"remarks"`
}

type KYCResponse struct {
	ID               uuid.UUID         `json:"id"`
	PatientID        uuid.UUID         `json:"patientId"`
	Documents        map[string]string `json:"documents"`
	Status           string            `json:"status"`
	Active           bool              `json:"active"`
	ReviewedBy       *uuid.UUID        `json:"reviewedBy,omitempty"`
	ReviewedAt       *time.Time        `json:"reviewedAt,omitempty"`
	RejectionRemarks *string           `json:"rejectionRemarks,omitempty"`
	SubmittedAt      time.Time         `json:"submittedAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

func toKYC(d *kyc.Document) KYCResponse {
	docs := make(map[string]string, len(d.Slots))
	for k, v := range d.Slots {
		docs[string(k)] = v
	}
	return KYCResponse{
		ID:               d.ID,
		PatientID:        d.PatientID,
		Documents:        docs,
		Status:           string(d.Status),
		Active:           d.Active,
		ReviewedBy:       d.ReviewedBy,
		ReviewedAt:       d.ReviewedAt,
		RejectionRemarks: d.RejectionRemarks,
		SubmittedAt:      d.SubmittedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

type KYCPage struct {
	Items []KYCResponse `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type CreateEventRequest struct {
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	StartDate     time.Time   `json:"startDate"`
	EndDate       time.Time   `json:"endDate"`
	EventType     string      `json:"eventType"`
	AssignedToAll bool        `json:"assignedToAll"`
	EmployeeIDs   []uuid.UUID `json:"employeeIds"`
	DoctorIDs     []uuid.UUID `json:"doctorIds"`
	StaffIDs      []uuid.UUID `json:"staffIds"`
}

type EventStatusRequest struct {
	Status string `json:"status"`
}

type AssignmentResponse struct {
	Position   int        `json:"position"`
	EmployeeID *uuid.UUID `json:"employeeId,omitempty"`
	DoctorID   *uuid.UUID `json:"doctorId,omitempty"`
	StaffID    *uuid.UUID `json:"staffId,omitempty"`
}

type EventResponse struct {
	ID            uuid.UUID            `json:"id"`
	Title         string               `json:"title"`
	Description   string               `json:"description,omitempty"`
	StartDate     time.Time            `json:"startDate"`
	EndDate       time.Time            `json:"endDate"`
	EventType     string               `json:"eventType"`
	Status        string               `json:"status"`
	AssignedToAll bool                 `json:"assignedToAll"`
	CreatedBy     *uuid.UUID           `json:"createdBy,omitempty"`
	Assignments   []AssignmentResponse `json:"assignments"`
	CreatedAt     time.Time            `json:"createdAt"`
}

func toEvent(e *calendar.Event) EventResponse {
	out := EventResponse{
		ID:            e.ID,
		Title:         e.Title,
		Description:   e.Description,
		StartDate:     e.StartDate,
		EndDate:       e.EndDate,
		EventType:     string(e.EventType),
		Status:        string(e.Status),
		AssignedToAll: e.AssignedToAll,
		CreatedBy:     e.CreatedBy,
		Assignments:   make([]AssignmentResponse, 0, len(e.Assignments)),
		CreatedAt:     e.CreatedAt,
	}
	for _, a := range e.Assignments {
		out.Assignments = append(out.Assignments, AssignmentResponse{
			Position:   a.Position,
			EmployeeID: a.EmployeeID,
			DoctorID:   a.DoctorID,
			StaffID:    a.StaffID,
		})
	}
	return out
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
