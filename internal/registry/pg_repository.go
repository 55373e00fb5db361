package registry

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

const (
	specialtiesNameKey = "specialties_name_key"
	doctorsNameKey     = "doctors_name_key"
)

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

func scanSpecialty(row pgx.Row) (*Specialty, error) {
	var s Specialty

	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Description,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrSpecialtyNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.SpecialtyID,
		&d.SpecialtyName,
		&d.AppointmentIDs,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	if d.AppointmentIDs == nil {
		d.AppointmentIDs = []uuid.UUID{}
	}
	return &d, nil
}

const doctorColumns = `
	d.id, d.name, d.specialty_id, s.name, d.appointment_ids, d.created_at, d.updated_at
	FROM doctors d
	JOIN specialties s ON s.id = d.specialty_id`

// Specialties

func (r *PgRepository) CreateSpecialty(ctx context.Context, s *Specialty) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO specialties (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING created_at, updated_at
	`, s.ID, s.Name, s.Description).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, specialtiesNameKey) {
			return ErrSpecialtyExists
		}
		return fmt.Errorf("insert specialty: %w", err)
	}

	return nil
}

func (r *PgRepository) GetSpecialtyByName(ctx context.Context, name string) (*Specialty, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM specialties
		WHERE name = $1
	`, name)
	return scanSpecialty(row)
}

func (r *PgRepository) ListSpecialties(ctx context.Context, limit, offset int) ([]Specialty, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM specialties
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list specialties: %w", err)
	}
	defer rows.Close()

	result := []Specialty{}
	for rows.Next() {
		s, err := scanSpecialty(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	return result, rows.Err()
}

// Doctors

func (r *PgRepository) CreateDoctor(ctx context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.AppointmentIDs == nil {
		d.AppointmentIDs = []uuid.UUID{}
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO doctors (id, name, specialty_id, appointment_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING created_at, updated_at
	`, d.ID, d.Name, d.SpecialtyID, d.AppointmentIDs).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		switch {
		case db.IsUniqueViolation(err, doctorsNameKey):
			return ErrDoctorExists
		case db.IsForeignKeyViolation(err):
			return ErrSpecialtyNotFound
		}
		return fmt.Errorf("insert doctor: %w", err)
	}

	return nil
}

func (r *PgRepository) UpdateDoctor(ctx context.Context, d *Doctor) error {
	err := r.db.QueryRow(ctx, `
		UPDATE doctors
		SET name = $2,
		    specialty_id = $3,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, d.ID, d.Name, d.SpecialtyID).Scan(&d.UpdatedAt)
	if err != nil {
		switch {
		case db.IsNotFound(err):
			return ErrDoctorNotFound
		case db.IsUniqueViolation(err, doctorsNameKey):
			return ErrDoctorExists
		case db.IsForeignKeyViolation(err):
			return ErrSpecialtyNotFound
		}
		return fmt.Errorf("update doctor: %w", err)
	}

	return nil
}

func (r *PgRepository) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `SELECT `+doctorColumns+`
		WHERE d.id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := r.db.Query(ctx, `SELECT `+doctorColumns+`
		ORDER BY d.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	result := []Doctor{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	return result, rows.Err()
}

// Doctor directory

func (r *PgRepository) DoctorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM doctors WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check doctor exists: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) DoctorNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	rows, err := r.db.Query(ctx, `SELECT id, name FROM doctors WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("load doctor names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}

	return names, rows.Err()
}

func (r *PgRepository) DoctorIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM doctors ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list doctor ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *PgRepository) AppendAppointment(ctx context.Context, doctorID, appointmentID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE doctors
		SET appointment_ids = array_append(array_remove(appointment_ids, $2), $2),
		    updated_at = now()
		WHERE id = $1
	`, doctorID, appointmentID)
	if err != nil {
		return fmt.Errorf("append doctor appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (r *PgRepository) RemoveAppointment(ctx context.Context, doctorID, appointmentID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE doctors
		SET appointment_ids = array_remove(appointment_ids, $2),
		    updated_at = now()
		WHERE id = $1
	`, doctorID, appointmentID)
	if err != nil {
		return fmt.Errorf("remove doctor appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (r *PgRepository) AppointmentIndex(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT appointment_ids FROM doctors WHERE id = $1`, doctorID).Scan(&ids)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("load doctor appointment index: %w", err)
	}
	return ids, nil
}

func (r *PgRepository) ReplaceAppointmentIndex(ctx context.Context, doctorID uuid.UUID, ids []uuid.UUID) error {
	if ids == nil {
		ids = []uuid.UUID{}
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE doctors
		SET appointment_ids = $2,
		    updated_at = now()
		WHERE id = $1
	`, doctorID, ids)
	if err != nil {
		return fmt.Errorf("replace doctor appointment index: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}
