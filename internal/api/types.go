package api

import (
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/pagination"
	"github.com/hackgods/clinic-scheduling/internal/registry"
)

type CreateSpecialtyRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CreateDoctorRequest struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

type UpdateDoctorRequest struct {
	Name      *string `json:"name"`
	Specialty *string `json:"specialty"`
}

type CreateAppointmentRequest struct {
	DoctorID string `json:"doctorId"`
	When     string `json:"when"`
}

// AppointmentResponse carries warnings when the write succeeded but a
// secondary step did not.
type AppointmentResponse struct {
	*appointment.Appointment
	Warnings []string `json:"warnings,omitempty"`
}

type DeleteResponse struct {
	ID       uuid.UUID `json:"id"`
	Deleted  bool      `json:"deleted"`
	Warnings []string  `json:"warnings,omitempty"`
}

type DoctorDetailResponse struct {
	*registry.Doctor
	Available pagination.Page[appointment.Slot] `json:"availableAppointments"`
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}
