package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

var (
	ErrAppointmentNotFound = apperr.New(apperr.ErrNotFound, "appointment not found")
	ErrDoctorNotFound      = apperr.New(apperr.ErrNotFound, "doctor not found")
	ErrSlotExists          = apperr.New(apperr.ErrConflict, "doctor already has an appointment at this time")
	ErrSlotBusy            = apperr.New(apperr.ErrConflict, "slot is currently being created, please retry")
	ErrSlotUnavailable     = apperr.New(apperr.ErrNotFound, "no available appointment found")
	ErrNotCancelable       = apperr.New(apperr.ErrNotFound, "no reserved appointment found for this patient")

	// ErrDoctorIndexStale accompanies a persisted result whose doctor
	// appointment index could not be written or rebuilt.
	ErrDoctorIndexStale = errors.New("doctor appointment index is stale")
)

// Changes is a validated Patch. Unset fields keep whatever the store holds at
// write time, so an update never replays a stale read.
type Changes struct {
	When      *time.Time
	Status    *Status
	PatientID Optional[*uuid.UUID]
}

func (c Changes) Empty() bool {
	return c.When == nil && c.Status == nil && !c.PatientID.Set
}

// Repository is the appointment store. Reserve and Cancel are single guarded
// writes: a miss means the guard did not hold and nothing was written.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, id uuid.UUID, c Changes) (*Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) (*Appointment, error)

	Reserve(ctx context.Context, id, patientID uuid.UUID) (*Appointment, error)
	Cancel(ctx context.Context, id, patientID uuid.UUID) (*Appointment, error)

	List(ctx context.Context, f Filter, limit, offset int) ([]Appointment, error)
	IDsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}

// DoctorDirectory is the registry as seen by the engine. The appointment
// index it keeps per doctor is a cache of the doctor_id relation stored here.
type DoctorDirectory interface {
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)
	DoctorNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
	DoctorIDs(ctx context.Context) ([]uuid.UUID, error)
	AppendAppointment(ctx context.Context, doctorID, appointmentID uuid.UUID) error
	RemoveAppointment(ctx context.Context, doctorID, appointmentID uuid.UUID) error
	AppointmentIndex(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error)
	ReplaceAppointmentIndex(ctx context.Context, doctorID uuid.UUID, ids []uuid.UUID) error
}
