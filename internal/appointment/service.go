package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/observability/metrics"
	"github.com/hackgods/clinic-scheduling/internal/pagination"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

const (
	EventAppointmentCreated  = "APPOINTMENT_CREATED"
	EventAppointmentUpdated  = "APPOINTMENT_UPDATED"
	EventAppointmentDeleted  = "APPOINTMENT_DELETED"
	EventAppointmentReserved = "APPOINTMENT_RESERVED"
	EventAppointmentCanceled = "APPOINTMENT_CANCELED"
)

var tracer = otel.Tracer("clinic.internal.appointment")

type Service struct {
	repo    Repository
	doctors DoctorDirectory
	locker  redisclient.Locker
	metrics *metrics.SchedulingMetrics
	logger  *zap.Logger
}

// NewService wires the engine. A nil locker runs creates without the Redis
// slot lock; nil metrics and logger are no-ops.
func NewService(repo Repository, doctors DoctorDirectory, locker redisclient.Locker, m *metrics.SchedulingMetrics, logger *zap.Logger) *Service {
	if locker == nil {
		locker = redisclient.NoopLocker{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		doctors: doctors,
		locker:  locker,
		metrics: m,
		logger:  logger,
	}
}

// CreateAppointment opens an available slot for a doctor. The unique
// (doctor, instant) index decides conflicts; the Redis lock only keeps
// concurrent creators of the same slot off the database.
//
// When the doctor index cannot be updated or rebuilt the created appointment
// is returned together with ErrDoctorIndexStale.
func (s *Service) CreateAppointment(ctx context.Context, actor auth.Identity, doctorID uuid.UUID, when string) (created *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment.create")
	defer span.End()
	defer func() { s.finish(span, "create", err) }()

	if err := auth.Authorize(auth.RoleAdmin, actor); err != nil {
		return nil, err
	}

	var verr apperr.ValidationError
	if doctorID == uuid.Nil {
		verr.Add("doctorId is required")
	}
	at, parseErr := ParseWhen(when)
	if parseErr != nil {
		verr.Add("when must be a valid date-time")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	exists, err := s.doctors.DoctorExists(ctx, doctorID)
	if err != nil {
		return nil, apperr.Internal("check doctor", err)
	}
	if !exists {
		return nil, ErrDoctorNotFound
	}

	appt := &Appointment{
		DoctorID: doctorID,
		When:     at,
		Hour:     HourOf(at),
		Status:   StatusAvailable,
	}

	err = s.locker.WithSlotLock(ctx, doctorID, at, func(lockCtx context.Context) error {
		return s.repo.Create(lockCtx, appt)
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBusy
		}
		return nil, passOrInternal("create appointment", err)
	}

	span.SetAttributes(attribute.String("appointment.id", appt.ID.String()))
	s.logger.Info("appointment created",
		zap.String("appointment_id", appt.ID.String()),
		zap.String("doctor_id", doctorID.String()),
		zap.Time("when", at),
	)
	s.logEvent(ctx, appt.ID, EventAppointmentCreated, map[string]any{
		"doctor_id": doctorID.String(),
		"when":      at,
	})

	if err := s.syncDoctorIndex(ctx, doctorID, appt.ID, true); err != nil {
		return appt, err
	}
	return appt, nil
}

// UpdateAppointment is the admin override. It applies only the fields set in
// patch and bypasses the reservation guards.
func (s *Service) UpdateAppointment(ctx context.Context, actor auth.Identity, id uuid.UUID, patch Patch) (updated *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment.update", trace.WithAttributes(attribute.String("appointment.id", id.String())))
	defer span.End()
	defer func() { s.finish(span, "update", err) }()

	if err := auth.Authorize(auth.RoleAdmin, actor); err != nil {
		return nil, err
	}

	var verr apperr.ValidationError
	var c Changes
	if patch.When.Set {
		at, perr := ParseWhen(patch.When.Value)
		if perr != nil {
			verr.Add("when must be a valid date-time")
		}
		c.When = &at
	}
	if patch.Status.Set {
		st, perr := ParseStatus(patch.Status.Value)
		if perr != nil {
			verr.Add("status must be one of available, reserved, canceled")
		}
		c.Status = &st
	}
	c.PatientID = patch.PatientID
	if err := verr.Err(); err != nil {
		return nil, err
	}

	if c.Empty() {
		appt, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, passOrInternal("load appointment", err)
		}
		return appt, nil
	}

	appt, err := s.repo.Update(ctx, id, c)
	if err != nil {
		return nil, passOrInternal("update appointment", err)
	}

	changes := map[string]any{}
	if c.When != nil {
		changes["when"] = appt.When
	}
	if c.Status != nil {
		changes["status"] = appt.Status
	}
	if c.PatientID.Set {
		changes["patient_id"] = appt.PatientID
	}

	s.logger.Info("appointment updated", zap.String("appointment_id", id.String()), zap.Any("changes", changes))
	s.logEvent(ctx, id, EventAppointmentUpdated, changes)
	return appt, nil
}

// DeleteAppointment removes the appointment and pulls it from the doctor
// index. ErrDoctorIndexStale means the delete happened but the index could
// not follow.
func (s *Service) DeleteAppointment(ctx context.Context, actor auth.Identity, id uuid.UUID) (err error) {
	ctx, span := tracer.Start(ctx, "appointment.delete", trace.WithAttributes(attribute.String("appointment.id", id.String())))
	defer span.End()
	defer func() { s.finish(span, "delete", err) }()

	if err := auth.Authorize(auth.RoleAdmin, actor); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return passOrInternal("delete appointment", err)
	}

	s.logger.Info("appointment deleted",
		zap.String("appointment_id", id.String()),
		zap.String("doctor_id", deleted.DoctorID.String()),
	)
	s.logEvent(ctx, id, EventAppointmentDeleted, map[string]any{
		"doctor_id": deleted.DoctorID.String(),
	})

	return s.syncDoctorIndex(ctx, deleted.DoctorID, id, false)
}

// Reserve books an available slot for the calling patient. Unknown and
// already taken slots both report ErrSlotUnavailable.
func (s *Service) Reserve(ctx context.Context, actor auth.Identity, id uuid.UUID) (reserved *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment.reserve", trace.WithAttributes(attribute.String("appointment.id", id.String())))
	defer span.End()
	defer func() { s.finish(span, "reserve", err) }()

	if err := auth.Authorize(auth.RolePatient, actor); err != nil {
		return nil, err
	}

	appt, err := s.repo.Reserve(ctx, id, actor.SubjectID)
	if err != nil {
		return nil, passOrInternal("reserve appointment", err)
	}

	s.logger.Info("appointment reserved",
		zap.String("appointment_id", id.String()),
		zap.String("patient_id", actor.SubjectID.String()),
	)
	s.logEvent(ctx, id, EventAppointmentReserved, map[string]any{
		"patient_id": actor.SubjectID.String(),
	})
	return appt, nil
}

// Cancel releases the calling patient's own reservation.
func (s *Service) Cancel(ctx context.Context, actor auth.Identity, id uuid.UUID) (canceled *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment.cancel", trace.WithAttributes(attribute.String("appointment.id", id.String())))
	defer span.End()
	defer func() { s.finish(span, "cancel", err) }()

	if err := auth.Authorize(auth.RolePatient, actor); err != nil {
		return nil, err
	}

	appt, err := s.repo.Cancel(ctx, id, actor.SubjectID)
	if err != nil {
		return nil, passOrInternal("cancel appointment", err)
	}

	s.logger.Info("appointment canceled",
		zap.String("appointment_id", id.String()),
		zap.String("patient_id", actor.SubjectID.String()),
	)
	s.logEvent(ctx, id, EventAppointmentCanceled, map[string]any{
		"patient_id": actor.SubjectID.String(),
	})
	return appt, nil
}

func (s *Service) GetAppointment(ctx context.Context, actor auth.Identity, id uuid.UUID) (appt *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment.get", trace.WithAttributes(attribute.String("appointment.id", id.String())))
	defer span.End()
	defer func() { s.finish(span, "get", err) }()

	if err := auth.Authorize(auth.RoleAdmin, actor); err != nil {
		return nil, err
	}
	appt, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, passOrInternal("get appointment", err)
	}
	return appt, nil
}

// ListByDoctor pages through all of a doctor's appointments. An unknown
// doctor yields an empty page.
func (s *Service) ListByDoctor(ctx context.Context, actor auth.Identity, doctorID uuid.UUID, p pagination.Params) (page pagination.Page[Slot], err error) {
	ctx, span := tracer.Start(ctx, "appointment.list_by_doctor", trace.WithAttributes(attribute.String("doctor.id", doctorID.String())))
	defer span.End()
	defer func() { s.finish(span, "list_by_doctor", err) }()

	if err := auth.Authorize(auth.RoleAdmin, actor); err != nil {
		return pagination.Page[Slot]{}, err
	}
	return s.listSlots(ctx, Filter{DoctorID: &doctorID}, p)
}

// AvailableByDoctor lists the slots still open for reservation.
func (s *Service) AvailableByDoctor(ctx context.Context, doctorID uuid.UUID, p pagination.Params) (page pagination.Page[Slot], err error) {
	ctx, span := tracer.Start(ctx, "appointment.available_by_doctor", trace.WithAttributes(attribute.String("doctor.id", doctorID.String())))
	defer span.End()
	defer func() { s.finish(span, "available_by_doctor", err) }()

	status := StatusAvailable
	return s.listSlots(ctx, Filter{DoctorID: &doctorID, Status: &status}, p)
}

// ListByPatient lists the calling patient's appointments.
func (s *Service) ListByPatient(ctx context.Context, actor auth.Identity, p pagination.Params) (page pagination.Page[PatientAppointment], err error) {
	ctx, span := tracer.Start(ctx, "appointment.list_by_patient")
	defer span.End()
	defer func() { s.finish(span, "list_by_patient", err) }()

	if err := auth.Authorize(auth.RolePatient, actor); err != nil {
		return pagination.Page[PatientAppointment]{}, err
	}
	patientID := actor.SubjectID
	return s.listForPatient(ctx, Filter{PatientID: &patientID}, p)
}

// ListCanceledByPatient lists canceled appointments of patientID. Patients
// may only ask for their own (uuid.Nil means the caller); admins must name
// the patient.
func (s *Service) ListCanceledByPatient(ctx context.Context, actor auth.Identity, patientID uuid.UUID, p pagination.Params) (page pagination.Page[PatientAppointment], err error) {
	ctx, span := tracer.Start(ctx, "appointment.list_canceled_by_patient")
	defer span.End()
	defer func() { s.finish(span, "list_canceled_by_patient", err) }()

	switch actor.Role {
	case auth.RolePatient:
		if patientID == uuid.Nil {
			patientID = actor.SubjectID
		}
		if patientID != actor.SubjectID {
			return pagination.Page[PatientAppointment]{}, apperr.New(apperr.ErrForbidden, "patients may only list their own appointments")
		}
	case auth.RoleAdmin:
		if patientID == uuid.Nil {
			return pagination.Page[PatientAppointment]{}, apperr.Invalid("patientId is required")
		}
	default:
		return pagination.Page[PatientAppointment]{}, apperr.New(apperr.ErrForbidden, "access denied")
	}

	status := StatusCanceled
	return s.listForPatient(ctx, Filter{PatientID: &patientID, Status: &status}, p)
}

// ReconcileDoctorIndexes compares every doctor's cached appointment index
// with the appointment store and replaces the ones that differ. It returns
// how many were repaired. A failing doctor is logged and skipped.
func (s *Service) ReconcileDoctorIndexes(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "appointment.reconcile_doctor_indexes")
	defer span.End()

	doctorIDs, err := s.doctors.DoctorIDs(ctx)
	if err != nil {
		span.RecordError(err)
		return 0, apperr.Internal("list doctors", err)
	}

	repaired := 0
	for _, doctorID := range doctorIDs {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}

		fixed, err := s.reconcileDoctor(ctx, doctorID)
		if err != nil {
			s.logger.Warn("doctor index reconcile failed", zap.String("doctor_id", doctorID.String()), zap.Error(err))
			continue
		}
		if fixed {
			repaired++
			s.logger.Info("doctor index repaired", zap.String("doctor_id", doctorID.String()))
		}
	}

	span.SetAttributes(attribute.Int("doctors.repaired", repaired))
	return repaired, nil
}

func (s *Service) reconcileDoctor(ctx context.Context, doctorID uuid.UUID) (bool, error) {
	truth, err := s.repo.IDsByDoctor(ctx, doctorID)
	if err != nil {
		return false, err
	}
	cached, err := s.doctors.AppointmentIndex(ctx, doctorID)
	if err != nil {
		return false, err
	}
	if sameSet(truth, cached) {
		return false, nil
	}
	if err := s.doctors.ReplaceAppointmentIndex(ctx, doctorID, truth); err != nil {
		return false, err
	}
	s.metrics.ObserveIndexRepair()
	return true, nil
}

// syncDoctorIndex is the second step of the create/delete saga. On failure
// the index is rebuilt from the appointment store.
func (s *Service) syncDoctorIndex(ctx context.Context, doctorID, appointmentID uuid.UUID, add bool) error {
	ctx = context.WithoutCancel(ctx)

	var err error
	if add {
		err = s.doctors.AppendAppointment(ctx, doctorID, appointmentID)
	} else {
		err = s.doctors.RemoveAppointment(ctx, doctorID, appointmentID)
	}
	if err == nil {
		return nil
	}

	s.logger.Warn("doctor index write failed, rebuilding",
		zap.String("doctor_id", doctorID.String()),
		zap.String("appointment_id", appointmentID.String()),
		zap.Error(err),
	)

	truth, err := s.repo.IDsByDoctor(ctx, doctorID)
	if err == nil {
		err = s.doctors.ReplaceAppointmentIndex(ctx, doctorID, truth)
	}
	if err != nil {
		s.logger.Error("doctor index rebuild failed",
			zap.String("doctor_id", doctorID.String()),
			zap.Error(err),
		)
		return ErrDoctorIndexStale
	}

	s.metrics.ObserveIndexRepair()
	return nil
}

func (s *Service) listSlots(ctx context.Context, f Filter, p pagination.Params) (pagination.Page[Slot], error) {
	items, err := s.repo.List(ctx, f, p.Limit, p.Offset())
	if err != nil {
		return pagination.Page[Slot]{}, apperr.Internal("list appointments", err)
	}

	slots := make([]Slot, 0, len(items))
	for i := range items {
		slots = append(slots, items[i].Slot())
	}
	return pagination.NewPage(slots, p), nil
}

func (s *Service) listForPatient(ctx context.Context, f Filter, p pagination.Params) (pagination.Page[PatientAppointment], error) {
	items, err := s.repo.List(ctx, f, p.Limit, p.Offset())
	if err != nil {
		return pagination.Page[PatientAppointment]{}, apperr.Internal("list appointments", err)
	}

	doctorIDs := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, a := range items {
		if _, ok := seen[a.DoctorID]; !ok {
			seen[a.DoctorID] = struct{}{}
			doctorIDs = append(doctorIDs, a.DoctorID)
		}
	}

	names, err := s.doctors.DoctorNames(ctx, doctorIDs)
	if err != nil {
		return pagination.Page[PatientAppointment]{}, apperr.Internal("load doctor names", err)
	}

	out := make([]PatientAppointment, 0, len(items))
	for _, a := range items {
		out = append(out, PatientAppointment{
			ID:         a.ID,
			DoctorID:   a.DoctorID,
			DoctorName: names[a.DoctorID],
			When:       a.When,
			Hour:       a.Hour,
			Status:     a.Status,
		})
	}
	return pagination.NewPage(out, p), nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal event payload", zap.String("event_type", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.InsertEvent(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.Warn("failed to insert event log",
			zap.String("event_type", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) finish(span trace.Span, transition string, err error) {
	if err != nil {
		span.RecordError(err)
	}
	s.metrics.ObserveTransition(transition, outcome(err))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrDoctorIndexStale):
		return "index_stale"
	case errors.Is(err, apperr.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrConflict):
		return "conflict"
	case errors.Is(err, apperr.ErrForbidden):
		return "forbidden"
	default:
		return "internal"
	}
}

// passOrInternal keeps taxonomy errors and hides store failures.
func passOrInternal(op string, err error) error {
	var kinded *apperr.Error
	if errors.As(err, &kinded) {
		return err
	}
	return apperr.Internal(op, err)
}

func sameSet(a, b []uuid.UUID) bool {
	set := make(map[uuid.UUID]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	other := make(map[uuid.UUID]struct{}, len(b))
	for _, id := range b {
		if _, ok := set[id]; !ok {
			return false
		}
		other[id] = struct{}{}
	}
	return len(set) == len(other)
}
