package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type BookingSummary struct {
	AppointmentID string
	PatientName   string
	PatientEmail  string
	PatientPhone  string
	Department    string
	DoctorName    string
	Date          time.Time
	Time          string
	Notes         string
}

type AppointmentConfirmation struct {
	PatientName string
	DoctorName  string
	Department  string
	Date        time.Time
	Time        string
}

type KYCDecision struct {
	PatientName string
	Approved    bool
	Remarks     string
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("mailer: render %s: %w", name, err)
	}
	return buf.String(), nil
}

// BookingSummaryEmail is sent to the clinic mailbox for every new booking.
func BookingSummaryEmail(mailbox string, d BookingSummary) (Message, error) {
	html, err := render("booking_summary.html", d)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      mailbox,
		Subject: fmt.Sprintf("New appointment: %s (%s)", d.PatientName, d.Department),
		Text: fmt.Sprintf("%s booked %s with %s on %s at %s.",
			d.PatientName, d.Department, d.DoctorName, d.Date.Format("2006-01-02"), d.Time),
		HTML: html,
	}, nil
}

func AppointmentConfirmationEmail(to string, d AppointmentConfirmation) (Message, error) {
	html, err := render("appointment_confirmation.html", d)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		ToName:  d.PatientName,
		Subject: "Your appointment is confirmed",
		Text: fmt.Sprintf("Your appointment with %s on %s at %s is confirmed.",
			d.DoctorName, d.Date.Format("2006-01-02"), d.Time),
		HTML: html,
	}, nil
}

func KYCDecisionEmail(to string, d KYCDecision) (Message, error) {
	html, err := render("kyc_decision.html", d)
	if err != nil {
		return Message{}, err
	}
	subject := "Your documents were approved"
	text := "Your identity and insurance documents have been approved."
	if !d.Approved {
		subject = "Action needed: your documents were not approved"
		text = "Your documents were not approved. Reviewer remarks: " + d.Remarks
	}
	return Message{To: to, ToName: d.PatientName, Subject: subject, Text: text, HTML: html}, nil
}
