package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/observability/metrics"
	"github.com/hackgods/clinic-scheduling/internal/pagination"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

type fakeDirectory struct {
	mu          sync.Mutex
	names       map[uuid.UUID]string
	order       []uuid.UUID
	index       map[uuid.UUID][]uuid.UUID
	failWrite   error
	failReplace error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		names: make(map[uuid.UUID]string),
		index: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (d *fakeDirectory) addDoctor(name string) uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := uuid.New()
	d.names[id] = name
	d.order = append(d.order, id)
	d.index[id] = []uuid.UUID{}
	return id
}

func (d *fakeDirectory) DoctorExists(_ context.Context, id uuid.UUID) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.names[id]
	return ok, nil
}

func (d *fakeDirectory) DoctorNames(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[uuid.UUID]string)
	for _, id := range ids {
		if n, ok := d.names[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

func (d *fakeDirectory) DoctorIDs(context.Context) ([]uuid.UUID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uuid.UUID(nil), d.order...), nil
}

func (d *fakeDirectory) AppendAppointment(_ context.Context, doctorID, appointmentID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWrite != nil {
		return d.failWrite
	}
	d.index[doctorID] = append(d.index[doctorID], appointmentID)
	return nil
}

func (d *fakeDirectory) RemoveAppointment(_ context.Context, doctorID, appointmentID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWrite != nil {
		return d.failWrite
	}
	kept := []uuid.UUID{}
	for _, id := range d.index[doctorID] {
		if id != appointmentID {
			kept = append(kept, id)
		}
	}
	d.index[doctorID] = kept
	return nil
}

func (d *fakeDirectory) AppointmentIndex(_ context.Context, doctorID uuid.UUID) ([]uuid.UUID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uuid.UUID(nil), d.index[doctorID]...), nil
}

func (d *fakeDirectory) ReplaceAppointmentIndex(_ context.Context, doctorID uuid.UUID, ids []uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failReplace != nil {
		return d.failReplace
	}
	d.index[doctorID] = append([]uuid.UUID{}, ids...)
	return nil
}

type busyLocker struct{}

func (busyLocker) WithSlotLock(context.Context, uuid.UUID, time.Time, func(context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

var (
	admin = auth.Identity{SubjectID: uuid.New(), Role: auth.RoleAdmin}
	slot  = "2024-03-01T10:00:00.000Z"
)

func patient() auth.Identity {
	return auth.Identity{SubjectID: uuid.New(), Role: auth.RolePatient}
}

type fixture struct {
	svc      *Service
	repo     *MemoryRepository
	dir      *fakeDirectory
	doctorID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := NewMemoryRepository()
	dir := newFakeDirectory()
	doctorID := dir.addDoctor("Dr. House")
	return &fixture{
		svc:      NewService(repo, dir, nil, nil, nil),
		repo:     repo,
		dir:      dir,
		doctorID: doctorID,
	}
}

func (f *fixture) create(t *testing.T, when string) *Appointment {
	t.Helper()
	a, err := f.svc.CreateAppointment(context.Background(), admin, f.doctorID, when)
	require.NoError(t, err)
	return a
}

func eventsOfType(events []EventLog, eventType string) []EventLog {
	var out []EventLog
	for _, ev := range events {
		if ev.EventType == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func TestCreateAppointment(t *testing.T) {
	f := newFixture(t)

	a := f.create(t, slot)

	assert.Equal(t, StatusAvailable, a.Status)
	assert.Nil(t, a.PatientID)
	assert.Equal(t, f.doctorID, a.DoctorID)
	assert.Equal(t, "10:00", a.Hour)
	assert.True(t, a.When.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))

	idx, err := f.dir.AppointmentIndex(context.Background(), f.doctorID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID}, idx)

	events := f.repo.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventAppointmentCreated, events[0].EventType)
}

func TestCreateAppointmentDuplicateSlot(t *testing.T) {
	f := newFixture(t)
	f.create(t, slot)

	_, err := f.svc.CreateAppointment(context.Background(), admin, f.doctorID, "2024-03-01T10:00:00Z")
	assert.ErrorIs(t, err, ErrSlotExists)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	ids, err := f.repo.IDsByDoctor(context.Background(), f.doctorID)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestCreateAppointmentSameInstantOtherDoctor(t *testing.T) {
	f := newFixture(t)
	other := f.dir.addDoctor("Dr. Wilson")
	f.create(t, slot)

	_, err := f.svc.CreateAppointment(context.Background(), admin, other, slot)
	assert.NoError(t, err)
}

func TestCreateAppointmentValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateAppointment(context.Background(), admin, uuid.Nil, "next tuesday")
	require.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, details := apperr.Messages(err)
	assert.Len(t, details, 2)
	assert.Empty(t, f.repo.Events())
}

func TestCreateAppointmentUnknownDoctor(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateAppointment(context.Background(), admin, uuid.New(), slot)
	assert.ErrorIs(t, err, ErrDoctorNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateAppointmentRequiresAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateAppointment(context.Background(), patient(), f.doctorID, slot)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestCreateAppointmentLockBusy(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.repo, f.dir, busyLocker{}, nil, nil)

	_, err := svc.CreateAppointment(context.Background(), admin, f.doctorID, slot)
	assert.ErrorIs(t, err, ErrSlotBusy)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreateAppointmentRepairsIndexAfterFailedAppend(t *testing.T) {
	f := newFixture(t)
	f.dir.failWrite = errors.New("registry down")

	a, err := f.svc.CreateAppointment(context.Background(), admin, f.doctorID, slot)
	require.NoError(t, err)

	idx, err := f.dir.AppointmentIndex(context.Background(), f.doctorID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID}, idx)
}

func TestCreateAppointmentReportsStaleIndex(t *testing.T) {
	f := newFixture(t)
	f.dir.failWrite = errors.New("registry down")
	f.dir.failReplace = errors.New("registry down")

	a, err := f.svc.CreateAppointment(context.Background(), admin, f.doctorID, slot)
	assert.ErrorIs(t, err, ErrDoctorIndexStale)
	require.NotNil(t, a)

	stored, err := f.repo.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, stored.Status)
}

func TestNoDoubleBookingUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, slot)

	const n = 64
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes []uuid.UUID
		misses    int
	)

	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := patient()
			<-start
			_, err := f.svc.Reserve(context.Background(), p, a.ID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes = append(successes, p.SubjectID)
			case errors.Is(err, apperr.ErrNotFound):
				misses++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Len(t, successes, 1)
	assert.Equal(t, n-1, misses)

	stored, err := f.repo.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReserved, stored.Status)
	require.NotNil(t, stored.PatientID)
	assert.Equal(t, successes[0], *stored.PatientID)
}

func TestReserveGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, slot)
	p := patient()

	_, err := f.svc.Reserve(ctx, p, a.ID)
	require.NoError(t, err)

	_, err = f.svc.Reserve(ctx, patient(), a.ID)
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	_, err = f.svc.Cancel(ctx, p, a.ID)
	require.NoError(t, err)

	_, err = f.svc.Reserve(ctx, patient(), a.ID)
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	_, err = f.svc.Reserve(ctx, p, uuid.New())
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestReserveRequiresPatient(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, slot)

	_, err := f.svc.Reserve(context.Background(), admin, a.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestCancelOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, slot)
	owner, other := patient(), patient()

	_, err := f.svc.Reserve(ctx, owner, a.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, other, a.ID)
	assert.ErrorIs(t, err, ErrNotCancelable)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	stored, err := f.repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReserved, stored.Status)
}

func TestCancelRequiresReservation(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, slot)

	_, err := f.svc.Cancel(context.Background(), patient(), a.ID)
	assert.ErrorIs(t, err, ErrNotCancelable)
}

func TestRoundTripKeepsPatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, slot)
	p := patient()

	_, err := f.svc.Reserve(ctx, p, a.ID)
	require.NoError(t, err)
	final, err := f.svc.Cancel(ctx, p, a.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusCanceled, final.Status)
	require.NotNil(t, final.PatientID)
	assert.Equal(t, p.SubjectID, *final.PatientID)
	assert.Equal(t, f.doctorID, final.DoctorID)

	types := []string{}
	for _, ev := range f.repo.Events() {
		types = append(types, ev.EventType)
	}
	assert.Equal(t, []string{EventAppointmentCreated, EventAppointmentReserved, EventAppointmentCanceled}, types)
}

func TestListByDoctorPagination(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		f.create(t, base.Add(time.Duration(i)*30*time.Minute).Format(time.RFC3339))
	}

	page, err := f.svc.ListByDoctor(context.Background(), admin, f.doctorID, pagination.New(2, 10, 100))
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 10, page.Limit)

	page, err = f.svc.ListByDoctor(context.Background(), admin, f.doctorID, pagination.New(3, 10, 100))
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}

func TestListByDoctorIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.create(t, slot)
	f.create(t, "2024-03-01T11:00:00Z")

	p := pagination.New(1, 10, 100)
	first, err := f.svc.ListByDoctor(context.Background(), admin, f.doctorID, p)
	require.NoError(t, err)
	second, err := f.svc.ListByDoctor(context.Background(), admin, f.doctorID, p)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAvailableByDoctorSkipsReserved(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, slot)
	b := f.create(t, "2024-03-01T11:00:00Z")

	_, err := f.svc.Reserve(context.Background(), patient(), a.ID)
	require.NoError(t, err)

	page, err := f.svc.AvailableByDoctor(context.Background(), f.doctorID, pagination.New(1, 10, 100))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, b.ID, page.Items[0].ID)
}

func TestListByPatientDenormalizesDoctorName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := patient()
	a := f.create(t, slot)
	f.create(t, "2024-03-01T11:00:00Z")

	_, err := f.svc.Reserve(ctx, p, a.ID)
	require.NoError(t, err)

	page, err := f.svc.ListByPatient(ctx, p, pagination.New(1, 10, 100))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Dr. House", page.Items[0].DoctorName)
	assert.Equal(t, StatusReserved, page.Items[0].Status)
}

func TestListCanceledByPatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := patient()
	a := f.create(t, slot)
	b := f.create(t, "2024-03-01T11:00:00Z")

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		_, err := f.svc.Reserve(ctx, p, id)
		require.NoError(t, err)
	}
	_, err := f.svc.Cancel(ctx, p, a.ID)
	require.NoError(t, err)

	params := pagination.New(1, 10, 100)

	page, err := f.svc.ListCanceledByPatient(ctx, p, uuid.Nil, params)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, a.ID, page.Items[0].ID)

	page, err = f.svc.ListCanceledByPatient(ctx, admin, p.SubjectID, params)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	_, err = f.svc.ListCanceledByPatient(ctx, patient(), p.SubjectID, params)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.ListCanceledByPatient(ctx, admin, uuid.Nil, params)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestUpdateAppointmentAppliesOnlySetFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, slot)
	p := patient()

	_, err := f.svc.Reserve(ctx, p, a.ID)
	require.NoError(t, err)

	updated, err := f.svc.UpdateAppointment(ctx, admin, a.ID, Patch{Status: Some("confirmed")})
	require.NoError(t, err)
	assert.Equal(t, StatusReserved, updated.Status)
	assert.True(t, updated.When.Equal(a.When))
	require.NotNil(t, updated.PatientID)
	assert.Equal(t, p.SubjectID, *updated.PatientID)

	updated, err = f.svc.UpdateAppointment(ctx, admin, a.ID, Patch{
		When:      Some("2024-03-02T14:30:00Z"),
		Status:    Some("available"),
		PatientID: Some[*uuid.UUID](nil),
	})
	require.NoError(t, err)
	assert.Equal(t, "14:30", updated.Hour)
	assert.Equal(t, StatusAvailable, updated.Status)
	assert.Nil(t, updated.PatientID)

	_, err = f.svc.Reserve(ctx, patient(), a.ID)
	assert.NoError(t, err)
}

// reserveBeforeUpdate lets a patient reservation commit between the admin
// reading the appointment and the update reaching the store.
type reserveBeforeUpdate struct {
	*MemoryRepository
	patientID uuid.UUID
}

func (r *reserveBeforeUpdate) Update(ctx context.Context, id uuid.UUID, c Changes) (*Appointment, error) {
	if _, err := r.MemoryRepository.Reserve(ctx, id, r.patientID); err != nil {
		return nil, err
	}
	return r.MemoryRepository.Update(ctx, id, c)
}

func TestUpdateAppointmentKeepsConcurrentReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, slot)
	p := patient()

	racing := &reserveBeforeUpdate{MemoryRepository: f.repo, patientID: p.SubjectID}
	svc := NewService(racing, f.dir, nil, nil, nil)

	updated, err := svc.UpdateAppointment(ctx, admin, a.ID, Patch{When: Some("2024-03-01T11:00:00Z")})
	require.NoError(t, err)
	assert.Equal(t, "11:00", updated.Hour)
	assert.Equal(t, StatusReserved, updated.Status)
	require.NotNil(t, updated.PatientID)
	assert.Equal(t, p.SubjectID, *updated.PatientID)

	stored, err := f.repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReserved, stored.Status)
	require.NotNil(t, stored.PatientID)
	assert.Equal(t, p.SubjectID, *stored.PatientID)
}

func TestUpdateAppointmentEmptyPatchReturnsCurrent(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, slot)

	got, err := f.svc.UpdateAppointment(context.Background(), admin, a.ID, Patch{})
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Empty(t, eventsOfType(f.repo.Events(), EventAppointmentUpdated))
}

func TestUpdateAppointmentErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, slot)
	f.create(t, "2024-03-01T11:00:00Z")

	_, err := f.svc.UpdateAppointment(ctx, admin, uuid.New(), Patch{Status: Some("canceled")})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	_, err = f.svc.UpdateAppointment(ctx, admin, a.ID, Patch{Status: Some(""), When: Some("soon")})
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, details := apperr.Messages(err)
	assert.Len(t, details, 2)

	_, err = f.svc.UpdateAppointment(ctx, admin, a.ID, Patch{When: Some("2024-03-01T11:00:00Z")})
	assert.ErrorIs(t, err, ErrSlotExists)

	_, err = f.svc.UpdateAppointment(ctx, patient(), a.ID, Patch{Status: Some("canceled")})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestDeleteAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, slot)
	b := f.create(t, "2024-03-01T11:00:00Z")

	require.NoError(t, f.svc.DeleteAppointment(ctx, admin, a.ID))

	_, err := f.repo.GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	idx, err := f.dir.AppointmentIndex(ctx, f.doctorID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID}, idx)

	assert.ErrorIs(t, f.svc.DeleteAppointment(ctx, admin, a.ID), ErrAppointmentNotFound)
}

func TestDeleteAppointmentReportsStaleIndex(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, slot)
	f.dir.failWrite = errors.New("registry down")
	f.dir.failReplace = errors.New("registry down")

	err := f.svc.DeleteAppointment(context.Background(), admin, a.ID)
	assert.ErrorIs(t, err, ErrDoctorIndexStale)

	_, err = f.repo.GetByID(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestReconcileDoctorIndexes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.dir.addDoctor("Dr. Wilson")
	a := f.create(t, slot)
	f.create(t, "2024-03-01T11:00:00Z")

	require.NoError(t, f.dir.ReplaceAppointmentIndex(ctx, f.doctorID, []uuid.UUID{a.ID, uuid.New()}))

	repaired, err := f.svc.ReconcileDoctorIndexes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	want, err := f.repo.IDsByDoctor(ctx, f.doctorID)
	require.NoError(t, err)
	got, err := f.dir.AppointmentIndex(ctx, f.doctorID)
	require.NoError(t, err)
	assert.ElementsMatch(t, want, got)

	otherIdx, err := f.dir.AppointmentIndex(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, otherIdx)

	repaired, err = f.svc.ReconcileDoctorIndexes(ctx)
	require.NoError(t, err)
	assert.Zero(t, repaired)
}

func TestSameSet(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	assert.True(t, sameSet(nil, []uuid.UUID{}))
	assert.True(t, sameSet([]uuid.UUID{a, b}, []uuid.UUID{b, a}))
	assert.False(t, sameSet([]uuid.UUID{a}, []uuid.UUID{a, b}))
	assert.False(t, sameSet([]uuid.UUID{a, b}, []uuid.UUID{a}))
}

func TestOutcome(t *testing.T) {
	cases := map[string]error{
		"ok":            nil,
		"index_stale":   ErrDoctorIndexStale,
		"invalid_input": apperr.Invalid("x"),
		"not_found":     ErrSlotUnavailable,
		"conflict":      ErrSlotExists,
		"forbidden":     apperr.New(apperr.ErrForbidden, "no"),
		"internal":      fmt.Errorf("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, outcome(err), want)
	}
}

func TestReadsAreObserved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, slot)

	reg := prometheus.NewRegistry()
	svc := NewService(f.repo, f.dir, nil, metrics.NewSchedulingMetrics(reg), nil)
	p := pagination.New(1, 10, 0)

	_, err := svc.GetAppointment(ctx, admin, a.ID)
	require.NoError(t, err)
	_, err = svc.GetAppointment(ctx, admin, uuid.New())
	require.ErrorIs(t, err, ErrAppointmentNotFound)
	_, err = svc.ListByDoctor(ctx, admin, f.doctorID, p)
	require.NoError(t, err)
	_, err = svc.ListByDoctor(ctx, patient(), f.doctorID, p)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.AvailableByDoctor(ctx, f.doctorID, p)
	require.NoError(t, err)
	_, err = svc.ListByPatient(ctx, patient(), p)
	require.NoError(t, err)
	_, err = svc.ListCanceledByPatient(ctx, admin, uuid.Nil, p)
	require.ErrorIs(t, err, apperr.ErrInvalidInput)

	expected := `
# HELP clinic_appointments_transitions_total Appointment lifecycle operations by outcome
# TYPE clinic_appointments_transitions_total counter
clinic_appointments_transitions_total{outcome="invalid_input",transition="list_canceled_by_patient"} 1
clinic_appointments_transitions_total{outcome="forbidden",transition="list_by_doctor"} 1
clinic_appointments_transitions_total{outcome="not_found",transition="get"} 1
clinic_appointments_transitions_total{outcome="ok",transition="available_by_doctor"} 1
clinic_appointments_transitions_total{outcome="ok",transition="get"} 1
clinic_appointments_transitions_total{outcome="ok",transition="list_by_doctor"} 1
clinic_appointments_transitions_total{outcome="ok",transition="list_by_patient"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "clinic_appointments_transitions_total"))
}
