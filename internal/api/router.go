package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-operations/internal/metrics"
)

type RouterConfig struct {
	Appointments  AppointmentService
	KYC           KYCService
	Notifications NotificationService
	Calendar      CalendarService

	Health         *HealthHandler
	MetricsHandler http.Handler
	Metrics        *metrics.Metrics
	Logger         zerolog.Logger

	// ExposeErrorDetails adds the wrapped cause to error responses.
	ExposeErrorDetails bool
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	rs := responder{logger: cfg.Logger, exposeDetail: cfg.ExposeErrorDetails}

	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(SessionMiddleware)

	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if svc := cfg.Appointments; svc != nil {
		r.Post("/appointments", bookAppointmentHandler(svc, rs))
		r.Get("/appointments/{id}", getAppointmentHandler(svc, rs))
		r.Get("/patient/appointments", listAppointmentsHandler(svc, rs, "patient"))
		r.Route("/doctor/appointments", func(r chi.Router) {
			r.Get("/", listAppointmentsHandler(svc, rs, "doctor"))
			r.Patch("/{id}/accept", transitionHandler(rs, svc.Accept))
			r.Patch("/{id}/start", transitionHandler(rs, svc.Start))
			r.Patch("/{id}/complete", transitionHandler(rs, svc.Complete))
			r.Patch("/{id}/cancel", cancelAppointmentHandler(svc, rs))
		})
	}

	if svc := cfg.KYC; svc != nil {
		r.Post("/kyc", submitKYCHandler(svc, rs))
		r.Get("/patients/{patientID}/kyc", activeKYCHandler(svc, rs))
		r.Route("/admin/kyc", func(r chi.Router) {
			r.Get("/", listKYCHandler(svc, rs))
			r.Get("/{id}", getKYCHandler(svc, rs))
			r.Patch("/{id}/claim", claimKYCHandler(svc, rs))
			r.Put("/{id}/review", reviewKYCHandler(svc, rs))
		})
	}

	if cfg.Notifications != nil {
		mountNotifications(r, cfg.Notifications, rs)
	}

	if svc := cfg.Calendar; svc != nil {
		r.Post("/calendar/events", createEventHandler(svc, rs))
		r.Get("/calendar/events/{id}", getEventHandler(svc, rs))
		r.Patch("/calendar/events/{id}/status", setEventStatusHandler(svc, rs))
	}

	return r
}
