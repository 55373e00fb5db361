package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logging"
	"github.com/hackgods/clinic-scheduling/internal/registry"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

// slotsPerDay half-hour slots starting at 08:00 UTC.
const slotsPerDay = 16

func main() {
	cfg, err := config.LoadDatabase()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	logger := logging.MustNew(cfg.Env, cfg.LogLevel)
	defer func() { _ = logger.Sync() }()
	logger.Info("seed starting")

	doctorCount := getInt("SEED_DOCTORS", 20)
	slotsPerDoctor := getInt("SEED_SLOTS_PER_DOCTOR", 24)
	patientTokens := getInt("SEED_PATIENT_TOKENS", 5)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolSettings{MaxConns: cfg.PostgresMaxConn})
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	registryRepo := registry.NewPgRepository(pool)
	registrySvc := registry.NewService(registryRepo, logger.Named("registry"))
	appointments := appointment.NewService(appointment.NewPgRepository(pool), registryRepo, nil, nil, logger.Named("appointment"))

	admin := auth.Identity{SubjectID: uuid.New(), Role: auth.RoleAdmin}

	if err := seedSpecialties(ctx, registrySvc, logger); err != nil {
		logger.Fatal("seed specialties", zap.Error(err))
	}

	doctors, err := seedDoctors(ctx, registrySvc, doctorCount, logger)
	if err != nil {
		logger.Fatal("seed doctors", zap.Error(err))
	}

	created, err := seedSlots(ctx, appointments, admin, doctors, slotsPerDoctor)
	if err != nil {
		logger.Fatal("seed slots", zap.Error(err))
	}
	logger.Info("seed complete",
		zap.Int("doctors", len(doctors)),
		zap.Int("appointments", created),
	)

	if cfg.JWTSecret == "" {
		logger.Info("JWT_SECRET not set, skipping tokens")
		return
	}
	printTokens(auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL), admin, patientTokens)
}

func seedSpecialties(ctx context.Context, svc *registry.Service, logger *zap.Logger) error {
	for _, name := range specialties {
		_, err := svc.CreateSpecialty(ctx, name, name+" consultations and follow-ups")
		if errors.Is(err, registry.ErrSpecialtyExists) {
			logger.Debug("specialty exists", zap.String("name", name))
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func seedDoctors(ctx context.Context, svc *registry.Service, count int, logger *zap.Logger) ([]uuid.UUID, error) {
	logger.Info("seeding doctors", zap.Int("count", count))

	ids := make([]uuid.UUID, 0, count)
	for attempts := 0; len(ids) < count && attempts < count*3; attempts++ {
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		d, err := svc.CreateDoctor(ctx, name, spec)
		if errors.Is(err, registry.ErrDoctorExists) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// seedSlots opens perDoctor slots for each doctor from tomorrow on. Slots
// that already exist are skipped so the seed can be rerun.
func seedSlots(ctx context.Context, svc *appointment.Service, admin auth.Identity, doctors []uuid.UUID, perDoctor int) (int, error) {
	day := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	first := day.Add(8 * time.Hour)

	created := 0
	for _, doctorID := range doctors {
		for k := 0; k < perDoctor; k++ {
			at := first.
				AddDate(0, 0, k/slotsPerDay).
				Add(time.Duration(k%slotsPerDay) * 30 * time.Minute)

			_, err := svc.CreateAppointment(ctx, admin, doctorID, at.Format(time.RFC3339))
			switch {
			case err == nil, errors.Is(err, appointment.ErrDoctorIndexStale):
				created++
			case errors.Is(err, appointment.ErrSlotExists):
			default:
				return created, err
			}
		}
	}
	return created, nil
}

func printTokens(tokens *auth.TokenManager, admin auth.Identity, patients int) {
	adminToken, err := tokens.Issue(admin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue admin token: %v\n", err)
		return
	}
	fmt.Printf("ADMIN_TOKEN=%s\n", adminToken)

	for i := 0; i < patients; i++ {
		id := auth.Identity{SubjectID: uuid.New(), Role: auth.RolePatient}
		token, err := tokens.Issue(id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue patient token: %v\n", err)
			return
		}
		fmt.Printf("PATIENT_TOKEN_%d=%s # %s\n", i+1, token, gofakeit.Email())
	}
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
