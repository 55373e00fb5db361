package appointment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusCanceled  Status = "canceled"
)

// ParseStatus accepts "confirmed" as a synonym of reserved and the
// "cancelled" spelling of canceled.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "available":
		return StatusAvailable, nil
	case "reserved", "confirmed":
		return StatusReserved, nil
	case "canceled", "cancelled":
		return StatusCanceled, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// Appointment is one doctor slot. PatientID is set on reservation and kept
// after cancellation.
type Appointment struct {
	ID        uuid.UUID  `json:"id"`
	DoctorID  uuid.UUID  `json:"doctorId"`
	PatientID *uuid.UUID `json:"patientId"`
	When      time.Time  `json:"when"`
	Hour      string     `json:"hour"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Slot is the doctor listing projection.
type Slot struct {
	ID     uuid.UUID `json:"id"`
	When   time.Time `json:"when"`
	Hour   string    `json:"hour"`
	Status Status    `json:"status"`
}

// PatientAppointment is the patient listing projection with the doctor name
// denormalized from the registry.
type PatientAppointment struct {
	ID         uuid.UUID `json:"id"`
	DoctorID   uuid.UUID `json:"doctorId"`
	DoctorName string    `json:"doctorName"`
	When       time.Time `json:"when"`
	Hour       string    `json:"hour"`
	Status     Status    `json:"status"`
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// Filter narrows List. Nil fields match everything.
type Filter struct {
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
	Status    *Status
}

func (a *Appointment) Slot() Slot {
	return Slot{ID: a.ID, When: a.When, Hour: a.Hour, Status: a.Status}
}

// HourOf is the display projection of when, "HH:MM" in UTC.
func HourOf(t time.Time) string {
	return t.UTC().Format("15:04")
}

var whenLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseWhen parses an ISO-8601 instant. Values without a zone are read as UTC.
// The result is truncated to the store's microsecond precision.
func ParseWhen(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range whenLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Truncate(time.Microsecond), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date-time %q", raw)
}
