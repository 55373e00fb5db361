package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

const doctorSlotKey = "appointments_doctor_slot_key"

const appointmentColumns = `id, doctor_id, patient_id, starts_at, hour, status, created_at, updated_at`

type PgRepository struct {
	db db.DBTX
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: pool}
}

func newPgRepositoryWithDB(conn db.DBTX) *PgRepository {
	return &PgRepository{db: conn}
}

// Helpers

func scanAppointment(row pgx.Row, notFound error) (*Appointment, error) {
	var a Appointment
	var patientID *uuid.UUID

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&patientID,
		&a.When,
		&a.Hour,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, notFound
		}
		return nil, err
	}

	a.PatientID = patientID
	a.When = a.When.UTC()
	return &a, nil
}

// Interface methods

func (r *PgRepository) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, starts_at, hour, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at
	`, a.ID, a.DoctorID, a.PatientID, a.When, a.Hour, string(a.Status)).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		switch {
		case db.IsUniqueViolation(err, doctorSlotKey):
			return ErrSlotExists
		case db.IsForeignKeyViolation(err):
			return ErrDoctorNotFound
		}
		return fmt.Errorf("insert appointment: %w", err)
	}

	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row, ErrAppointmentNotFound)
}

// Update writes only the fields present in c in one statement and returns
// the row as stored afterwards.
func (r *PgRepository) Update(ctx context.Context, id uuid.UUID, c Changes) (*Appointment, error) {
	args := []any{id}
	sets := []string{}

	if c.When != nil {
		args = append(args, *c.When, HourOf(*c.When))
		sets = append(sets, fmt.Sprintf("starts_at = $%d", len(args)-1), fmt.Sprintf("hour = $%d", len(args)))
	}
	if c.Status != nil {
		args = append(args, string(*c.Status))
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if c.PatientID.Set {
		args = append(args, c.PatientID.Value)
		sets = append(sets, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	sets = append(sets, "updated_at = now()")

	row := r.db.QueryRow(ctx, `UPDATE appointments SET `+strings.Join(sets, ", ")+
		` WHERE id = $1 RETURNING `+appointmentColumns, args...)
	a, err := scanAppointment(row, ErrAppointmentNotFound)
	if err != nil {
		if db.IsUniqueViolation(err, doctorSlotKey) {
			return nil, ErrSlotExists
		}
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	return a, nil
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		DELETE FROM appointments
		WHERE id = $1
		RETURNING `+appointmentColumns, id)
	return scanAppointment(row, ErrAppointmentNotFound)
}

// Reserve books the slot only if it is still available and unowned.
func (r *PgRepository) Reserve(ctx context.Context, id, patientID uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'reserved',
		    patient_id = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'available'
		  AND patient_id IS NULL
		RETURNING `+appointmentColumns, id, patientID)
	return scanAppointment(row, ErrSlotUnavailable)
}

// Cancel releases a reservation held by patientID. The patient stays recorded.
func (r *PgRepository) Cancel(ctx context.Context, id, patientID uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'canceled',
		    updated_at = now()
		WHERE id = $1
		  AND patient_id = $2
		  AND status = 'reserved'
		RETURNING `+appointmentColumns, id, patientID)
	return scanAppointment(row, ErrNotCancelable)
}

func (r *PgRepository) List(ctx context.Context, f Filter, limit, offset int) ([]Appointment, error) {
	var conds []string
	var args []any

	if f.DoctorID != nil {
		args = append(args, *f.DoctorID)
		conds = append(conds, fmt.Sprintf("doctor_id = $%d", len(args)))
	}
	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		conds = append(conds, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY created_at, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	result := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows, ErrAppointmentNotFound)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	return result, rows.Err()
}

func (r *PgRepository) IDsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY created_at, id
	`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list doctor appointment ids: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO appointment_events (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
