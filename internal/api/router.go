package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/observability/metrics"
	"github.com/hackgods/clinic-scheduling/internal/pagination"
	"github.com/hackgods/clinic-scheduling/internal/registry"
)

type AppointmentService interface {
	CreateAppointment(ctx context.Context, actor auth.Identity, doctorID uuid.UUID, when string) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, actor auth.Identity, id uuid.UUID) (*appointment.Appointment, error)
	UpdateAppointment(ctx context.Context, actor auth.Identity, id uuid.UUID, patch appointment.Patch) (*appointment.Appointment, error)
	DeleteAppointment(ctx context.Context, actor auth.Identity, id uuid.UUID) error
	Reserve(ctx context.Context, actor auth.Identity, id uuid.UUID) (*appointment.Appointment, error)
	Cancel(ctx context.Context, actor auth.Identity, id uuid.UUID) (*appointment.Appointment, error)
	ListByDoctor(ctx context.Context, actor auth.Identity, doctorID uuid.UUID, p pagination.Params) (pagination.Page[appointment.Slot], error)
	AvailableByDoctor(ctx context.Context, doctorID uuid.UUID, p pagination.Params) (pagination.Page[appointment.Slot], error)
	ListByPatient(ctx context.Context, actor auth.Identity, p pagination.Params) (pagination.Page[appointment.PatientAppointment], error)
	ListCanceledByPatient(ctx context.Context, actor auth.Identity, patientID uuid.UUID, p pagination.Params) (pagination.Page[appointment.PatientAppointment], error)
}

type RegistryService interface {
	CreateSpecialty(ctx context.Context, name, description string) (*registry.Specialty, error)
	ListSpecialties(ctx context.Context, p pagination.Params) ([]registry.Specialty, error)
	CreateDoctor(ctx context.Context, name, specialty string) (*registry.Doctor, error)
	UpdateDoctor(ctx context.Context, id uuid.UUID, patch registry.DoctorPatch) (*registry.Doctor, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*registry.Doctor, error)
	ListDoctors(ctx context.Context) ([]registry.Doctor, error)
}

type RouterConfig struct {
	Appointments AppointmentService
	Registry     RegistryService
	Tokens       TokenVerifier
	Health       *HealthHandler
	Logger       *zap.Logger
	Metrics      *metrics.SchedulingMetrics
	Gatherer     prometheus.Gatherer
	PageMaxLimit int
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Health == nil {
		cfg.Health = NewHealthHandler(nil, nil, "", "")
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	limit := cfg.PageMaxLimit

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(MetricsMiddleware(cfg.Metrics))
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/health/live", cfg.Health.Liveness)
	r.Get("/health/ready", cfg.Health.Readiness)
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	adminOnly := RequireRole(auth.RoleAdmin)
	patientOnly := RequireRole(auth.RolePatient)

	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticate(cfg.Tokens))

		r.Route("/specialties", func(r chi.Router) {
			r.With(adminOnly).Post("/", createSpecialtyHandler(cfg.Registry))
			r.Get("/", listSpecialtiesHandler(cfg.Registry, limit))
		})

		r.Route("/doctors", func(r chi.Router) {
			r.With(adminOnly).Post("/", createDoctorHandler(cfg.Registry))
			r.Get("/", listDoctorsHandler(cfg.Registry))
			r.Get("/{id}", getDoctorHandler(cfg.Registry, cfg.Appointments, limit))
			r.With(adminOnly).Patch("/{id}", updateDoctorHandler(cfg.Registry))
		})

		// Appointment endpoints
		r.Route("/appointments", func(r chi.Router) {
			r.With(adminOnly).Post("/", createAppointmentHandler(cfg.Appointments))
			r.With(patientOnly).Get("/mine", listMineHandler(cfg.Appointments, limit))
			r.Get("/canceled", listCanceledHandler(cfg.Appointments, limit))
			r.With(adminOnly).Get("/doctor/{id}", listByDoctorHandler(cfg.Appointments, limit))

			r.With(adminOnly).Get("/{id}", getAppointmentHandler(cfg.Appointments))
			r.With(adminOnly).Patch("/{id}", updateAppointmentHandler(cfg.Appointments))
			r.With(adminOnly).Delete("/{id}", deleteAppointmentHandler(cfg.Appointments))
			r.With(patientOnly).Post("/{id}/reserve", reserveAppointmentHandler(cfg.Appointments))
			r.With(patientOnly).Post("/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
		})
	})

	return r
}
