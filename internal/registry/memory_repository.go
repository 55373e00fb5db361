package registry

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a process-local Repository for the memory store driver
// and tests.
type MemoryRepository struct {
	mu          sync.RWMutex
	specialties []*Specialty
	doctors     map[uuid.UUID]*Doctor
	doctorOrder []uuid.UUID
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{doctors: make(map[uuid.UUID]*Doctor)}
}

func (r *MemoryRepository) CreateSpecialty(_ context.Context, s *Specialty) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.specialties {
		if existing.Name == s.Name {
			return ErrSpecialtyExists
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now

	stored := *s
	r.specialties = append(r.specialties, &stored)
	return nil
}

func (r *MemoryRepository) GetSpecialtyByName(_ context.Context, name string) (*Specialty, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.specialties {
		if s.Name == name {
			out := *s
			return &out, nil
		}
	}
	return nil, ErrSpecialtyNotFound
}

func (r *MemoryRepository) ListSpecialties(_ context.Context, limit, offset int) ([]Specialty, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []Specialty{}
	for i := offset; i < len(r.specialties) && len(result) < limit; i++ {
		result = append(result, *r.specialties[i])
	}
	return result, nil
}

func (r *MemoryRepository) specialtyByID(id uuid.UUID) *Specialty {
	for _, s := range r.specialties {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (r *MemoryRepository) nameTaken(name string, except uuid.UUID) bool {
	for id, d := range r.doctors {
		if id != except && d.Name == name {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) CreateDoctor(_ context.Context, d *Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTaken(d.Name, uuid.Nil) {
		return ErrDoctorExists
	}
	if r.specialtyByID(d.SpecialtyID) == nil {
		return ErrSpecialtyNotFound
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.AppointmentIDs == nil {
		d.AppointmentIDs = []uuid.UUID{}
	}
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now

	stored := *d
	stored.AppointmentIDs = slices.Clone(d.AppointmentIDs)
	r.doctors[d.ID] = &stored
	r.doctorOrder = append(r.doctorOrder, d.ID)
	return nil
}

func (r *MemoryRepository) UpdateDoctor(_ context.Context, d *Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.doctors[d.ID]
	if !ok {
		return ErrDoctorNotFound
	}
	if r.nameTaken(d.Name, d.ID) {
		return ErrDoctorExists
	}
	if r.specialtyByID(d.SpecialtyID) == nil {
		return ErrSpecialtyNotFound
	}

	stored.Name = d.Name
	stored.SpecialtyID = d.SpecialtyID
	stored.UpdatedAt = time.Now().UTC()
	d.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *MemoryRepository) snapshot(d *Doctor) Doctor {
	out := *d
	out.AppointmentIDs = slices.Clone(d.AppointmentIDs)
	if s := r.specialtyByID(d.SpecialtyID); s != nil {
		out.SpecialtyName = s.Name
	}
	return out
}

func (r *MemoryRepository) GetDoctor(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	out := r.snapshot(d)
	return &out, nil
}

func (r *MemoryRepository) ListDoctors(_ context.Context) ([]Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Doctor, 0, len(r.doctors))
	for _, id := range r.doctorOrder {
		result = append(result, r.snapshot(r.doctors[id]))
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryRepository) DoctorExists(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.doctors[id]
	return ok, nil
}

func (r *MemoryRepository) DoctorNames(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if d, ok := r.doctors[id]; ok {
			names[id] = d.Name
		}
	}
	return names, nil
}

func (r *MemoryRepository) DoctorIDs(_ context.Context) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.doctorOrder), nil
}

func (r *MemoryRepository) AppendAppointment(_ context.Context, doctorID, appointmentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.doctors[doctorID]
	if !ok {
		return ErrDoctorNotFound
	}
	if !slices.Contains(d.AppointmentIDs, appointmentID) {
		d.AppointmentIDs = append(d.AppointmentIDs, appointmentID)
	}
	return nil
}

func (r *MemoryRepository) RemoveAppointment(_ context.Context, doctorID, appointmentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.doctors[doctorID]
	if !ok {
		return ErrDoctorNotFound
	}
	d.AppointmentIDs = slices.DeleteFunc(d.AppointmentIDs, func(id uuid.UUID) bool { return id == appointmentID })
	return nil
}

func (r *MemoryRepository) AppointmentIndex(_ context.Context, doctorID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.doctors[doctorID]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return slices.Clone(d.AppointmentIDs), nil
}

func (r *MemoryRepository) ReplaceAppointmentIndex(_ context.Context, doctorID uuid.UUID, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.doctors[doctorID]
	if !ok {
		return ErrDoctorNotFound
	}
	d.AppointmentIDs = slices.Clone(ids)
	if d.AppointmentIDs == nil {
		d.AppointmentIDs = []uuid.UUID{}
	}
	return nil
}
