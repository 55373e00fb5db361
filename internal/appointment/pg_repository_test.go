package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var appointmentRowColumns = []string{
	"id", "doctor_id", "patient_id", "starts_at", "hour", "status", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*PgRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return newPgRepositoryWithDB(mock), mock
}

func TestPgCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	doctorID := uuid.New()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), doctorID, pgxmock.AnyArg(), at, "10:00", "available").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	a := &Appointment{DoctorID: doctorID, When: at, Hour: "10:00", Status: StatusAvailable}
	require.NoError(t, repo.Create(context.Background(), a))
	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.Equal(t, now, a.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCreateDuplicateSlot(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: doctorSlotKey})

	err := repo.Create(context.Background(), &Appointment{DoctorID: uuid.New(), Status: StatusAvailable})
	assert.ErrorIs(t, err, ErrSlotExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCreateUnknownDoctor(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := repo.Create(context.Background(), &Appointment{DoctorID: uuid.New(), Status: StatusAvailable})
	assert.ErrorIs(t, err, ErrDoctorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgReserve(t *testing.T) {
	repo, mock := newMockRepo(t)
	id, doctorID, patientID := uuid.New(), uuid.New(), uuid.New()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id, patientID).
		WillReturnRows(pgxmock.NewRows(appointmentRowColumns).
			AddRow(id, doctorID, &patientID, at, "10:00", StatusReserved, now, now))

	a, err := repo.Reserve(context.Background(), id, patientID)
	require.NoError(t, err)
	assert.Equal(t, StatusReserved, a.Status)
	require.NotNil(t, a.PatientID)
	assert.Equal(t, patientID, *a.PatientID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgReserveGuardMiss(t *testing.T) {
	repo, mock := newMockRepo(t)
	id, patientID := uuid.New(), uuid.New()

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id, patientID).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Reserve(context.Background(), id, patientID)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCancelGuardMiss(t *testing.T) {
	repo, mock := newMockRepo(t)
	id, patientID := uuid.New(), uuid.New()

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id, patientID).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Cancel(context.Background(), id, patientID)
	assert.ErrorIs(t, err, ErrNotCancelable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUpdateCollision(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Now().UTC()

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: doctorSlotKey})

	_, err := repo.Update(context.Background(), uuid.New(), Changes{When: &at})
	assert.ErrorIs(t, err, ErrSlotExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUpdateWritesOnlySetFields(t *testing.T) {
	repo, mock := newMockRepo(t)
	id, doctorID, patientID := uuid.New(), uuid.New(), uuid.New()
	at := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	mock.ExpectQuery(`UPDATE appointments SET starts_at = \$2, hour = \$3, updated_at = now\(\) WHERE id = \$1 RETURNING`).
		WithArgs(id, at, "11:00").
		WillReturnRows(pgxmock.NewRows(appointmentRowColumns).
			AddRow(id, doctorID, &patientID, at, "11:00", StatusReserved, now, now))

	a, err := repo.Update(context.Background(), id, Changes{When: &at})
	require.NoError(t, err)
	assert.Equal(t, StatusReserved, a.Status)
	require.NotNil(t, a.PatientID)
	assert.Equal(t, patientID, *a.PatientID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUpdateClearsPatient(t *testing.T) {
	repo, mock := newMockRepo(t)
	id, doctorID := uuid.New(), uuid.New()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	status := StatusAvailable

	mock.ExpectQuery(`SET status = \$2, patient_id = \$3, updated_at = now\(\)`).
		WithArgs(id, "available", (*uuid.UUID)(nil)).
		WillReturnRows(pgxmock.NewRows(appointmentRowColumns).
			AddRow(id, doctorID, (*uuid.UUID)(nil), at, "10:00", StatusAvailable, now, now))

	a, err := repo.Update(context.Background(), id, Changes{Status: &status, PatientID: Some[*uuid.UUID](nil)})
	require.NoError(t, err)
	assert.Nil(t, a.PatientID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUpdateNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	status := StatusCanceled

	mock.ExpectQuery("UPDATE appointments").WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).WillReturnError(pgx.ErrNoRows)

	_, err := repo.Update(context.Background(), uuid.New(), Changes{Status: &status})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgListBuildsFilter(t *testing.T) {
	repo, mock := newMockRepo(t)
	id, doctorID := uuid.New(), uuid.New()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	status := StatusAvailable

	mock.ExpectQuery(`WHERE doctor_id = \$1 AND status = \$2 ORDER BY created_at, id LIMIT \$3 OFFSET \$4`).
		WithArgs(doctorID, "available", 10, 10).
		WillReturnRows(pgxmock.NewRows(appointmentRowColumns).
			AddRow(id, doctorID, (*uuid.UUID)(nil), at, "10:00", StatusAvailable, now, now))

	items, err := repo.List(context.Background(), Filter{DoctorID: &doctorID, Status: &status}, 10, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].PatientID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgListEmptyIsNotNil(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM appointments ORDER BY created_at, id").
		WithArgs(10, 0).
		WillReturnRows(pgxmock.NewRows(appointmentRowColumns))

	items, err := repo.List(context.Background(), Filter{}, 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgDeleteNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("DELETE FROM appointments").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Delete(context.Background(), id)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgInsertEvent(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec("INSERT INTO appointment_events").
		WithArgs(EventAppointmentReserved, &id, []byte(`{}`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.InsertEvent(context.Background(), EventLog{
		EventType:     EventAppointmentReserved,
		AppointmentID: &id,
		Payload:       []byte(`{}`),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
