package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-operations/internal/apperr"
	"github.com/hackgods/clinic-operations/internal/appointment"
	"github.com/hackgods/clinic-operations/internal/calendar"
	"github.com/hackgods/clinic-operations/internal/identity"
	"github.com/hackgods/clinic-operations/internal/kyc"
	"github.com/hackgods/clinic-operations/internal/notification"
)

type fakeAppointments struct {
	booked    appointment.BookingRequest
	query     appointment.Query
	cancelled string
	err       error
}

func (f *fakeAppointments) detail(status appointment.Status) *appointment.Detail {
	return &appointment.Detail{
		Appointment: appointment.Appointment{
			ID:         uuid.New(),
			PatientID:  uuid.New(),
			DoctorID:   uuid.New(),
			Date:       time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			Time:       appointment.DefaultTime,
			Type:       appointment.DefaultType,
			Status:     status,
			Department: "cardiology",
		},
		Patient: &identity.Patient{Name: "Pat", KYCStatus: identity.KYCPending},
	}
}

func (f *fakeAppointments) Book(_ context.Context, req appointment.BookingRequest) (*appointment.Detail, error) {
	f.booked = req
	if f.err != nil {
		return nil, f.err
	}
	return f.detail(appointment.StatusScheduled), nil
}

func (f *fakeAppointments) Get(context.Context, uuid.UUID) (*appointment.Detail, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.detail(appointment.StatusScheduled), nil
}

func (f *fakeAppointments) List(_ context.Context, q appointment.Query) ([]appointment.Detail, int, error) {
	f.query = q
	return []appointment.Detail{*f.detail(appointment.StatusScheduled)}, 1, f.err
}

func (f *fakeAppointments) Accept(context.Context, uuid.UUID) (*appointment.Detail, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.detail(appointment.StatusConfirmed), nil
}

func (f *fakeAppointments) Start(context.Context, uuid.UUID) (*appointment.Detail, error) {
	return f.detail(appointment.StatusInProgress), f.err
}

func (f *fakeAppointments) Complete(context.Context, uuid.UUID) (*appointment.Detail, error) {
	return f.detail(appointment.StatusCompleted), f.err
}

func (f *fakeAppointments) Cancel(_ context.Context, _ uuid.UUID, reason string) (*appointment.Detail, error) {
	f.cancelled = reason
	return f.detail(appointment.StatusCancelled), f.err
}

type fakeKYC struct {
	review kyc.ReviewInput
	query  kyc.Query
}

func (f *fakeKYC) doc(status kyc.Status) *kyc.Document {
	return &kyc.Document{ID: uuid.New(), PatientID: uuid.New(), Slots: kyc.Slots{kyc.SlotSelfie: "s3://kyc/selfie.png"}, Status: status, Active: true}
}

func (f *fakeKYC) Submit(_ context.Context, patientID uuid.UUID, slots kyc.Slots) (*kyc.Document, error) {
	d := f.doc(kyc.StatusPending)
	d.PatientID = patientID
	d.Slots = slots
	return d, nil
}

func (f *fakeKYC) BeginReview(context.Context, uuid.UUID) (*kyc.Document, error) {
	return f.doc(kyc.StatusUnderReview), nil
}

func (f *fakeKYC) Review(_ context.Context, _ uuid.UUID, in kyc.ReviewInput) (*kyc.Document, error) {
	f.review = in
	return f.doc(kyc.StatusApproved), nil
}

func (f *fakeKYC) Get(context.Context, uuid.UUID) (*kyc.Document, error) {
	return nil, apperr.NotFound(apperr.ReasonKYCMissing, "kyc document not found")
}

func (f *fakeKYC) ActiveForPatient(context.Context, uuid.UUID) (*kyc.Document, error) {
	return f.doc(kyc.StatusPending), nil
}

func (f *fakeKYC) List(_ context.Context, q kyc.Query) ([]kyc.Document, int, error) {
	f.query = q
	return []kyc.Document{*f.doc(kyc.StatusPending)}, 1, nil
}

type fakeNotifications struct {
	listedFor  notification.Recipient
	filter     notification.ListFilter
	markedFor  notification.Recipient
	countedFor notification.Recipient
	deleted    uuid.UUID
}

func (f *fakeNotifications) Get(_ context.Context, id uuid.UUID) (*notification.Notification, error) {
	return &notification.Notification{ID: id, Status: notification.StatusUnread}, nil
}

func (f *fakeNotifications) List(_ context.Context, to notification.Recipient, fl notification.ListFilter) ([]notification.Notification, int, error) {
	f.listedFor, f.filter = to, fl
	return []notification.Notification{{ID: uuid.New(), Recipient: to}}, 1, nil
}

func (f *fakeNotifications) UnreadCount(_ context.Context, to notification.Recipient) (int, error) {
	f.countedFor = to
	return 3, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, id uuid.UUID) (*notification.Notification, error) {
	return &notification.Notification{ID: id, Status: notification.StatusRead}, nil
}

func (f *fakeNotifications) Archive(_ context.Context, id uuid.UUID) (*notification.Notification, error) {
	return &notification.Notification{ID: id, Status: notification.StatusArchived}, nil
}

func (f *fakeNotifications) MarkAllRead(_ context.Context, to notification.Recipient) (int64, error) {
	f.markedFor = to
	return 2, nil
}

func (f *fakeNotifications) Delete(_ context.Context, id uuid.UUID) error {
	f.deleted = id
	return nil
}

type fakeCalendar struct {
	created calendar.NewEvent
}

func (f *fakeCalendar) CreateEvent(_ context.Context, in calendar.NewEvent) (*calendar.Event, error) {
	f.created = in
	return &calendar.Event{ID: uuid.New(), Title: in.Title, EventType: in.EventType, Status: calendar.StatusUpcoming, AssignedToAll: in.AssignedToAll}, nil
}

func (f *fakeCalendar) GetEvent(_ context.Context, id uuid.UUID) (*calendar.Event, error) {
	return &calendar.Event{ID: id, Status: calendar.StatusUpcoming}, nil
}

func (f *fakeCalendar) SetStatus(_ context.Context, id uuid.UUID, to calendar.Status) (*calendar.Event, error) {
	return &calendar.Event{ID: id, Status: to}, nil
}

type fixture struct {
	appointments  *fakeAppointments
	kyc           *fakeKYC
	notifications *fakeNotifications
	calendar      *fakeCalendar
	handler       http.Handler
}

func newFixture(exposeDetails bool) *fixture {
	f := &fixture{
		appointments:  &fakeAppointments{},
		kyc:           &fakeKYC{},
		notifications: &fakeNotifications{},
		calendar:      &fakeCalendar{},
	}
	f.handler = NewRouter(RouterConfig{
		Appointments:       f.appointments,
		KYC:                f.kyc,
		Notifications:      f.notifications,
		Calendar:           f.calendar,
		Logger:             zerolog.Nop(),
		ExposeErrorDetails: exposeDetails,
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestBookAppointmentReturnsCreated(t *testing.T) {
	f := newFixture(false)
	doctorID := uuid.New()

	rec := f.do(t, http.MethodPost, "/appointments", map[string]any{
		"name":          "Ada",
		"email":         "ada@example.com",
		"department":    "cardiology",
		"doctorId":      doctorID,
		"preferredDate": "2026-03-02",
		"preferredTime": "10:30 AM",
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeBody[BookAppointmentResponse](t, rec)
	assert.Equal(t, resp.AppointmentID, resp.Appointment.ID)
	assert.Equal(t, "scheduled", resp.Appointment.Status)
	assert.Equal(t, "2026-03-02", resp.Appointment.Date)
	require.NotNil(t, f.appointments.booked.DoctorID)
	assert.Equal(t, doctorID, *f.appointments.booked.DoctorID)
	require.NotNil(t, f.appointments.booked.Date)
	assert.Equal(t, 2, f.appointments.booked.Date.Day())
	assert.Equal(t, "10:30 AM", f.appointments.booked.Time)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestBookAppointmentAcceptsLegacyDateFields(t *testing.T) {
	f := newFixture(false)

	rec := f.do(t, http.MethodPost, "/appointments", map[string]any{
		"name":  "Ada",
		"phone": "555-0100",
		"date":  "2026-03-04",
		"time":  "02:00 PM",
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, f.appointments.booked.Date)
	assert.Equal(t, 4, f.appointments.booked.Date.Day())
	assert.Equal(t, "02:00 PM", f.appointments.booked.Time)
}

func TestBookAppointmentRejectsBadJSON(t *testing.T) {
	f := newFixture(false)
	req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.ReasonInvalidBody, decodeBody[ErrorResponse](t, rec).Error)
}

func TestErrorEnvelopeDetailsOnlyOutsideProd(t *testing.T) {
	cause := errors.New("status is completed")
	for _, expose := range []bool{false, true} {
		f := newFixture(expose)
		f.appointments.err = apperr.Conflict(apperr.ReasonInvalidTransition, "cannot accept a completed appointment", cause)

		rec := f.do(t, http.MethodPatch, "/doctor/appointments/"+uuid.NewString()+"/accept", nil, nil)
		require.Equal(t, http.StatusConflict, rec.Code)
		resp := decodeBody[ErrorResponse](t, rec)
		assert.Equal(t, apperr.ReasonInvalidTransition, resp.Error)
		assert.Equal(t, "cannot accept a completed appointment", resp.Message)
		if expose {
			assert.Equal(t, cause.Error(), resp.Details)
		} else {
			assert.Empty(t, resp.Details)
		}
	}
}

func TestInvalidPathIDIsBadRequest(t *testing.T) {
	f := newFixture(false)
	rec := f.do(t, http.MethodGet, "/appointments/not-a-uuid", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.ReasonInvalidID, decodeBody[ErrorResponse](t, rec).Error)
}

func TestDoctorCalendarUsesSessionDoctor(t *testing.T) {
	f := newFixture(false)
	doctorID := uuid.New()

	rec := f.do(t, http.MethodGet, "/doctor/appointments?status=confirmed&from=2026-03-01&limit=5&search=ada", nil,
		map[string]string{HeaderDoctorID: doctorID.String()})

	require.Equal(t, http.StatusOK, rec.Code)
	q := f.appointments.query
	require.NotNil(t, q.DoctorID)
	assert.Equal(t, doctorID, *q.DoctorID)
	require.NotNil(t, q.Status)
	assert.Equal(t, appointment.StatusConfirmed, *q.Status)
	require.NotNil(t, q.From)
	assert.Nil(t, q.To)
	assert.Equal(t, 5, q.Limit)
	assert.Equal(t, "ada", q.Search)

	page := decodeBody[Page[AppointmentResponse]](t, rec)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 5, page.Limit)
	assert.Len(t, page.Items, 1)
}

func TestDoctorCalendarWithoutSessionLeavesFallbackToService(t *testing.T) {
	f := newFixture(false)
	rec := f.do(t, http.MethodGet, "/doctor/appointments", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, f.appointments.query.DoctorID)
	assert.Nil(t, f.appointments.query.PatientID)
}

func TestPatientCalendarRequiresSession(t *testing.T) {
	f := newFixture(false)
	rec := f.do(t, http.MethodGet, "/patient/appointments", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.ReasonMissingFields, decodeBody[ErrorResponse](t, rec).Error)
}

func TestCancelPassesReason(t *testing.T) {
	f := newFixture(false)
	rec := f.do(t, http.MethodPatch, "/doctor/appointments/"+uuid.NewString()+"/cancel", CancelAppointmentRequest{Reason: "patient unwell"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "patient unwell", f.appointments.cancelled)
	assert.Equal(t, "cancelled", decodeBody[AppointmentResponse](t, rec).Status)
}

func TestReviewKYCTakesReviewerFromSession(t *testing.T) {
	f := newFixture(false)
	actor := uuid.New()

	rec := f.do(t, http.MethodPut, "/admin/kyc/"+uuid.NewString()+"/review", ReviewKYCRequest{Action: "approve"},
		map[string]string{HeaderActorID: actor.String()})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, actor, f.kyc.review.ReviewerID)
	assert.Equal(t, kyc.ActionApprove, f.kyc.review.Action)
	assert.Equal(t, "approved", decodeBody[KYCResponse](t, rec).Status)
}

func TestListKYCDefaultsToAwaitingBucket(t *testing.T) {
	f := newFixture(false)

	rec := f.do(t, http.MethodGet, "/admin/kyc", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, kyc.BucketAwaiting, f.kyc.query.Bucket)
	assert.Equal(t, 1, f.kyc.query.Page)

	rec = f.do(t, http.MethodGet, "/admin/kyc?status=bogus", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetKYCNotFound(t *testing.T) {
	f := newFixture(false)
	rec := f.do(t, http.MethodGet, "/admin/kyc/"+uuid.NewString(), nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperr.ReasonKYCMissing, decodeBody[ErrorResponse](t, rec).Error)
}

func TestSubmitKYCMapsDocuments(t *testing.T) {
	f := newFixture(false)
	patientID := uuid.New()

	rec := f.do(t, http.MethodPost, "/kyc", SubmitKYCRequest{PatientID: patientID, Documents: map[string]string{"id_front": "s3://kyc/f.png"}}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeBody[KYCResponse](t, rec)
	assert.Equal(t, patientID, resp.PatientID)
	assert.Equal(t, "s3://kyc/f.png", resp.Documents["id_front"])
}

func TestListNotificationsRecipientResolution(t *testing.T) {
	f := newFixture(false)
	explicit, session := uuid.New(), uuid.New()

	rec := f.do(t, http.MethodGet, "/notifications/doctor/"+explicit.String()+"?status=unread,read&limit=10", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notification.Doctor(explicit), f.notifications.listedFor)
	assert.Equal(t, []notification.Status{notification.StatusUnread, notification.StatusRead}, f.notifications.filter.Statuses)
	assert.Equal(t, 10, f.notifications.filter.Limit)

	rec = f.do(t, http.MethodGet, "/notifications/staff", nil, map[string]string{HeaderStaffID: session.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notification.Staff(session), f.notifications.listedFor)

	rec = f.do(t, http.MethodGet, "/notifications/employee", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.ReasonMissingFields, decodeBody[ErrorResponse](t, rec).Error)
}

func TestMarkAllReadFallsBackToActor(t *testing.T) {
	f := newFixture(false)
	actor := uuid.New()

	rec := f.do(t, http.MethodPatch, "/notifications/patient/mark-all-read", nil, map[string]string{HeaderActorID: actor.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notification.Patient(actor), f.notifications.markedFor)
	assert.Equal(t, int64(2), decodeBody[MarkAllReadResponse](t, rec).Updated)
}

func TestUnreadCountAndSingleNotificationRoutes(t *testing.T) {
	f := newFixture(false)
	who := uuid.New()

	rec := f.do(t, http.MethodGet, "/notifications/unread/count?recipientType=doctor&recipientId="+who.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decodeBody[UnreadCountResponse](t, rec).Count)
	assert.Equal(t, notification.Doctor(who), f.notifications.countedFor)

	id := uuid.New()
	rec = f.do(t, http.MethodPatch, "/notifications/"+id.String()+"/read", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notification.StatusRead, decodeBody[notification.Notification](t, rec).Status)

	rec = f.do(t, http.MethodPatch, "/notifications/"+id.String()+"/archive", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notification.StatusArchived, decodeBody[notification.Notification](t, rec).Status)

	rec = f.do(t, http.MethodDelete, "/notifications/"+id.String(), nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, id, f.notifications.deleted)
}

func TestCreateCalendarEvent(t *testing.T) {
	f := newFixture(false)
	actor, emp := uuid.New(), uuid.New()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	rec := f.do(t, http.MethodPost, "/calendar/events", CreateEventRequest{
		Title:       "Fire drill",
		StartDate:   start,
		EndDate:     start.Add(time.Hour),
		EventType:   "training",
		EmployeeIDs: []uuid.UUID{emp},
	}, map[string]string{HeaderActorID: actor.String()})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, calendar.TypeTraining, f.calendar.created.EventType)
	assert.Equal(t, []uuid.UUID{emp}, f.calendar.created.EmployeeIDs)
	require.NotNil(t, f.calendar.created.CreatedBy)
	assert.Equal(t, actor, *f.calendar.created.CreatedBy)
	assert.Equal(t, "upcoming", decodeBody[EventResponse](t, rec).Status)

	rec = f.do(t, http.MethodPatch, "/calendar/events/"+uuid.NewString()+"/status", EventStatusRequest{Status: "cancelled"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decodeBody[EventResponse](t, rec).Status)
}
