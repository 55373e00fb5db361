package registry

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

var (
	ErrSpecialtyNotFound = apperr.New(apperr.ErrNotFound, "specialty not found")
	ErrSpecialtyExists   = apperr.New(apperr.ErrConflict, "specialty already exists")
	ErrDoctorNotFound    = apperr.New(apperr.ErrNotFound, "doctor not found")
	ErrDoctorExists      = apperr.New(apperr.ErrConflict, "doctor already exists")
)

// Repository contains all persistence needed by the registry service and the
// doctor directory consumed by the appointment engine.
type Repository interface {
	CreateSpecialty(ctx context.Context, s *Specialty) error
	GetSpecialtyByName(ctx context.Context, name string) (*Specialty, error)
	ListSpecialties(ctx context.Context, limit, offset int) ([]Specialty, error)

	CreateDoctor(ctx context.Context, d *Doctor) error
	UpdateDoctor(ctx context.Context, d *Doctor) error
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)

	// Doctor directory
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)
	DoctorNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
	DoctorIDs(ctx context.Context) ([]uuid.UUID, error)
	AppendAppointment(ctx context.Context, doctorID, appointmentID uuid.UUID) error
	RemoveAppointment(ctx context.Context, doctorID, appointmentID uuid.UUID) error
	AppointmentIndex(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error)
	ReplaceAppointmentIndex(ctx context.Context, doctorID uuid.UUID, ids []uuid.UUID) error
}
