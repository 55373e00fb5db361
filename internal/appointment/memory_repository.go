package appointment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps appointments in insertion order behind one mutex,
// which makes every guarded write atomic.
type MemoryRepository struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*Appointment
	order  []uuid.UUID
	events []EventLog
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID: make(map[uuid.UUID]*Appointment),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func clone(a *Appointment) *Appointment {
	out := *a
	if a.PatientID != nil {
		pid := *a.PatientID
		out.PatientID = &pid
	}
	return &out
}

func (r *MemoryRepository) slotTaken(doctorID uuid.UUID, at time.Time, except uuid.UUID) bool {
	for id, a := range r.byID {
		if id != except && a.DoctorID == doctorID && a.When.Equal(at) {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) Create(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slotTaken(a.DoctorID, a.When, uuid.Nil) {
		return ErrSlotExists
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := r.now()
	a.CreatedAt, a.UpdatedAt = now, now

	r.byID[a.ID] = clone(a)
	r.order = append(r.order, a.ID)
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return clone(a), nil
}

func (r *MemoryRepository) Update(_ context.Context, id uuid.UUID, c Changes) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if c.When != nil && r.slotTaken(stored.DoctorID, *c.When, id) {
		return nil, ErrSlotExists
	}

	if c.When != nil {
		stored.When = *c.When
		stored.Hour = HourOf(*c.When)
	}
	if c.Status != nil {
		stored.Status = *c.Status
	}
	if c.PatientID.Set {
		stored.PatientID = nil
		if c.PatientID.Value != nil {
			pid := *c.PatientID.Value
			stored.PatientID = &pid
		}
	}
	stored.UpdatedAt = r.now()
	return clone(stored), nil
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	delete(r.byID, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return a, nil
}

func (r *MemoryRepository) Reserve(_ context.Context, id, patientID uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok || a.Status != StatusAvailable || a.PatientID != nil {
		return nil, ErrSlotUnavailable
	}
	pid := patientID
	a.Status = StatusReserved
	a.PatientID = &pid
	a.UpdatedAt = r.now()
	return clone(a), nil
}

func (r *MemoryRepository) Cancel(_ context.Context, id, patientID uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok || a.Status != StatusReserved || a.PatientID == nil || *a.PatientID != patientID {
		return nil, ErrNotCancelable
	}
	a.Status = StatusCanceled
	a.UpdatedAt = r.now()
	return clone(a), nil
}

func (f Filter) matches(a *Appointment) bool {
	if f.DoctorID != nil && a.DoctorID != *f.DoctorID {
		return false
	}
	if f.PatientID != nil && (a.PatientID == nil || *a.PatientID != *f.PatientID) {
		return false
	}
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	return true
}

func (r *MemoryRepository) List(_ context.Context, f Filter, limit, offset int) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := []Appointment{}
	skipped := 0
	for _, id := range r.order {
		if len(result) >= limit {
			break
		}
		a := r.byID[id]
		if !f.matches(a) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		result = append(result, *clone(a))
	}
	return result, nil
}

func (r *MemoryRepository) IDsByDoctor(_ context.Context, doctorID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := []uuid.UUID{}
	for _, id := range r.order {
		if r.byID[id].DoctorID == doctorID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the event log.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]EventLog(nil), r.events...)
}
