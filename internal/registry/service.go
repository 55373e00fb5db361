package registry

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/pagination"
)

var tracer = otel.Tracer("clinic.internal.registry")

type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) CreateSpecialty(ctx context.Context, name, description string) (*Specialty, error) {
	ctx, span := tracer.Start(ctx, "registry.create_specialty")
	defer span.End()

	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)

	var verr apperr.ValidationError
	if name == "" {
		verr.Add("name must not be empty")
	}
	if description == "" {
		verr.Add("description must not be empty")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	sp := &Specialty{Name: name, Description: description}
	if err := s.repo.CreateSpecialty(ctx, sp); err != nil {
		span.RecordError(err)
		return nil, passOrInternal("create specialty", err)
	}

	s.logger.Info("specialty created", zap.String("specialty_id", sp.ID.String()), zap.String("name", sp.Name))
	return sp, nil
}

func (s *Service) ListSpecialties(ctx context.Context, p pagination.Params) ([]Specialty, error) {
	ctx, span := tracer.Start(ctx, "registry.list_specialties")
	defer span.End()

	items, err := s.repo.ListSpecialties(ctx, p.Limit, p.Offset())
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Internal("list specialties", err)
	}
	return items, nil
}

// CreateDoctor registers a doctor under an existing specialty, looked up by name.
func (s *Service) CreateDoctor(ctx context.Context, name, specialty string) (*Doctor, error) {
	ctx, span := tracer.Start(ctx, "registry.create_doctor")
	defer span.End()

	name = strings.TrimSpace(name)
	specialty = strings.TrimSpace(specialty)

	var verr apperr.ValidationError
	if name == "" {
		verr.Add("name must not be empty")
	}
	if specialty == "" {
		verr.Add("specialty must not be empty")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	sp, err := s.repo.GetSpecialtyByName(ctx, specialty)
	if err != nil {
		return nil, passOrInternal("load specialty", err)
	}

	d := &Doctor{Name: name, SpecialtyID: sp.ID, SpecialtyName: sp.Name}
	if err := s.repo.CreateDoctor(ctx, d); err != nil {
		span.RecordError(err)
		return nil, passOrInternal("create doctor", err)
	}

	span.SetAttributes(attribute.String("doctor.id", d.ID.String()))
	s.logger.Info("doctor created",
		zap.String("doctor_id", d.ID.String()),
		zap.String("name", d.Name),
		zap.String("specialty", sp.Name),
	)
	return d, nil
}

// UpdateDoctor applies the fields present in patch.
func (s *Service) UpdateDoctor(ctx context.Context, id uuid.UUID, patch DoctorPatch) (*Doctor, error) {
	ctx, span := tracer.Start(ctx, "registry.update_doctor")
	defer span.End()

	var verr apperr.ValidationError
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		verr.Add("name must not be empty")
	}
	if patch.Specialty != nil && strings.TrimSpace(*patch.Specialty) == "" {
		verr.Add("specialty must not be empty")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	d, err := s.repo.GetDoctor(ctx, id)
	if err != nil {
		return nil, passOrInternal("load doctor", err)
	}

	if patch.Name != nil {
		d.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Specialty != nil {
		sp, err := s.repo.GetSpecialtyByName(ctx, strings.TrimSpace(*patch.Specialty))
		if err != nil {
			return nil, passOrInternal("load specialty", err)
		}
		d.SpecialtyID = sp.ID
		d.SpecialtyName = sp.Name
	}

	if err := s.repo.UpdateDoctor(ctx, d); err != nil {
		span.RecordError(err)
		return nil, passOrInternal("update doctor", err)
	}

	s.logger.Info("doctor updated", zap.String("doctor_id", d.ID.String()))
	return d, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.repo.GetDoctor(ctx, id)
	if err != nil {
		return nil, passOrInternal("get doctor", err)
	}
	return d, nil
}

func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	ctx, span := tracer.Start(ctx, "registry.list_doctors")
	defer span.End()

	doctors, err := s.repo.ListDoctors(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Internal("list doctors", err)
	}
	return doctors, nil
}

// passOrInternal keeps taxonomy errors and hides everything else.
func passOrInternal(op string, err error) error {
	var kinded *apperr.Error
	if errors.As(err, &kinded) {
		return err
	}
	return apperr.Internal(op, err)
}
