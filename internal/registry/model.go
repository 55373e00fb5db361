package registry

import (
	"time"

	"github.com/google/uuid"
)

type Specialty struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Doctor owns AppointmentIDs as a cache of the appointment store's doctor_id
// relation. The appointment store stays the source of truth.
type Doctor struct {
	ID             uuid.UUID   `json:"id"`
	Name           string      `json:"name"`
	SpecialtyID    uuid.UUID   `json:"specialtyId"`
	SpecialtyName  string      `json:"specialty,omitempty"`
	AppointmentIDs []uuid.UUID `json:"appointmentIds"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// DoctorPatch leaves nil fields untouched.
type DoctorPatch struct {
	Name      *string
	Specialty *string
}
