package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "active"
	EmployeeInactive EmployeeStatus = "inactive"
)

// Patient mirrors the KYC status of its active document bundle in KYCStatus.
type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Phone     string
	KYCStatus string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MatchesContact reports whether a booking with this email and phone belongs
// to p. Email wins when both sides have one; a phone only matches when p has
// no conflicting email.
func (p Patient) MatchesContact(email, phone string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	phone = strings.TrimSpace(phone)
	pEmail := strings.ToLower(p.Email)
	if email != "" && pEmail == email {
		return true
	}
	if phone == "" || p.Phone != phone {
		return false
	}
	return email == "" || pEmail == ""
}

type NewPatient struct {
	Name  string
	Email string
	Phone string
}

type Doctor struct {
	ID         uuid.UUID
	Name       string
	Email      string
	Specialty  *string
	Department *string
	Available  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Employee struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Role      string
	Status    EmployeeStatus
	CreatedAt time.Time
}

type Staff struct {
	ID         uuid.UUID
	Name       string
	Email      string
	Department *string
	CreatedAt  time.Time
}
