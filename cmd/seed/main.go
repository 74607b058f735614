package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-operations/internal/config"
	"github.com/hackgods/clinic-operations/internal/db"
	"github.com/hackgods/clinic-operations/internal/identity"
	"github.com/hackgods/clinic-operations/internal/logging"
)

var departments = []string{
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

type seeder struct {
	pool   *pgxpool.Pool
	faker  *gofakeit.Faker
	logger zerolog.Logger
}

func main() {
	cfg, err := config.Load()
	logger := logging.New("seed", cfg.Env, cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}
	logger.Info().Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	s := &seeder{pool: pool, faker: gofakeit.New(0), logger: logger}
	work := context.Background()

	steps := []struct {
		name  string
		count int
		fn    func(context.Context, int) error
	}{
		{"doctors", countFromEnv("SEED_DOCTORS", 20), s.seedDoctors},
		{"employees", countFromEnv("SEED_EMPLOYEES", 15), s.seedEmployees},
		{"staff", countFromEnv("SEED_STAFF", 10), s.seedStaff},
		{"patients", countFromEnv("SEED_PATIENTS", 2000), s.seedPatients},
	}
	for _, step := range steps {
		if err := step.fn(work, step.count); err != nil {
			logger.Fatal().Err(err).Str("table", step.name).Msg("seed failed")
		}
		logger.Info().Str("table", step.name).Int("rows", step.count).Msg("seeded")
	}

	logger.Info().Msg("seed complete")
}

func countFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

// seedDoctors leaves roughly a third of doctors unavailable so the fallback
// chain has something to skip.
func (s *seeder) seedDoctors(ctx context.Context, count int) error {
	return db.WithTx(ctx, s.pool, func(q db.Querier) error {
		for i := 0; i < count; i++ {
			dept := departments[s.faker.Number(0, len(departments)-1)]
			_, err := q.Exec(ctx, `
				INSERT INTO doctors (id, name, email, specialty, department, available, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, now(), now())
				ON CONFLICT DO NOTHING
			`, uuid.New(), "Dr. "+s.faker.Name(), s.faker.Email(), dept, dept, s.faker.Number(0, 2) > 0)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *seeder) seedEmployees(ctx context.Context, count int) error {
	roles := []string{"admin", "reception", "billing", "nurse"}
	return db.WithTx(ctx, s.pool, func(q db.Querier) error {
		for i := 0; i < count; i++ {
			status := identity.EmployeeActive
			if s.faker.Number(0, 4) == 0 {
				status = identity.EmployeeInactive
			}
			_, err := q.Exec(ctx, `
				INSERT INTO employees (id, name, email, role, status, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, now(), now())
				ON CONFLICT DO NOTHING
			`, uuid.New(), s.faker.Name(), s.faker.Email(), roles[s.faker.Number(0, len(roles)-1)], string(status))
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *seeder) seedStaff(ctx context.Context, count int) error {
	return db.WithTx(ctx, s.pool, func(q db.Querier) error {
		for i := 0; i < count; i++ {
			_, err := q.Exec(ctx, `
				INSERT INTO staff (id, name, email, department, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
				ON CONFLICT DO NOTHING
			`, uuid.New(), s.faker.Name(), s.faker.Email(), departments[s.faker.Number(0, len(departments)-1)])
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *seeder) seedPatients(ctx context.Context, count int) error {
	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		err := db.WithTx(ctx, s.pool, func(q db.Querier) error {
			for i := offset; i < end; i++ {
				_, err := q.Exec(ctx, `
					INSERT INTO patients (id, name, email, phone, kyc_status, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, now(), now())
					ON CONFLICT DO NOTHING
				`, uuid.New(), s.faker.Name(), s.faker.Email(), s.faker.Phone(), identity.KYCPending)
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		s.logger.Debug().Int("done", end).Int("total", count).Msg("patients batch")
	}
	return nil
}
