// Command seed fills a fresh database with an admin, a demo member with a measurement
// history, the next monthly competition and a few workouts. Running it twice is safe:
// existing accounts are kept and nothing else is created when data is already there.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/victornm/botm/internal/competition"
	"github.com/victornm/botm/internal/config"
	"github.com/victornm/botm/internal/domain"
	"github.com/victornm/botm/internal/errors"
	"github.com/victornm/botm/internal/event"
	"github.com/victornm/botm/internal/measurement"
	"github.com/victornm/botm/internal/member"
	"github.com/victornm/botm/internal/migrations"
	"github.com/victornm/botm/internal/server"
	"github.com/victornm/botm/internal/telemetry"
	"github.com/victornm/botm/internal/workout"
)

func main() {
	c := server.DefaultConfig()

	if err := config.LoadEnv(".env"); err != nil {
		log.Fatalf("Load env failed: %v", err)
	}

	p := os.Getenv("CONFIG_PATH")
	if p == "" {
		log.Fatalf("CONFIG_PATH not set")
	}
	if err := config.Load(p, &c); err != nil {
		log.Fatalf("Load config failed: %v", err)
	}

	logger, err := telemetry.NewLogger(os.Stdout, c.Log.Level, "text")
	if err != nil {
		log.Fatalf("Init logger failed: %v", err)
	}
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := run(ctx, c); err != nil {
		log.Fatalf("Seed failed: %v", err)
	}
}

func run(ctx context.Context, c server.Config) error {
	pg := c.Postgres
	db, err := pgxpool.New(ctx, fmt.Sprintf("postgres://%s:%s@%s/%s", pg.User, pg.Pass, pg.Addr, pg.Name))
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// Measurements are backdated, so every service reads the same movable clock.
	clock := time.Now()
	now := func() time.Time { return clock }

	eb := event.NewBus()
	defer eb.Stop()

	var (
		ms  = member.NewService(member.Config{Store: member.NewPostgresStore(db), EventBus: eb, BcryptCost: 10, Now: now})
		mms = measurement.NewService(measurement.Config{Store: measurement.NewPostgresStore(db), Now: now})
		cs  = competition.NewService(competition.Config{Store: competition.NewPostgresStore(db), EventBus: eb, Now: now})
		ws  = workout.NewService(workout.Config{Store: workout.NewPostgresStore(db), Now: now})
	)

	// Admin
	admin, err := ms.Register(ctx, member.RegisterRequest{
		Name:             "Admin User",
		Email:            "admin@nnsc.com",
		Password:         "admin123",
		Gender:           domain.GenderMale,
		Goals:            "Manage the gym community",
		TrainingDuration: "5 years",
		CurrentWeight:    decimal.NewFromInt(90),
	})
	switch {
	case errors.Is(err, errors.CodeAlreadyExists):
		slog.InfoContext(ctx, "seed: admin exists, skipping")
	case err != nil:
		return fmt.Errorf("create admin: %w", err)
	default:
		if err := ms.UpdateRole(ctx, member.UpdateRoleRequest{MemberID: admin.MemberID, Role: domain.RoleAdmin}); err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}
		slog.InfoContext(ctx, "seed: created admin", "email", admin.Email)
	}

	// Demo member, registered three months ago and measured monthly since.
	history := []struct {
		monthsAgo                                   int
		weight, chest, arms, waist, thighs, neck, g float64
	}{
		{3, 82.0, 98.0, 35.0, 85.0, 58.0, 38.0, 95.0},
		{2, 83.5, 100.0, 36.0, 83.0, 59.0, 38.5, 96.0},
		{1, 84.8, 102.0, 37.5, 81.0, 60.0, 39.0, 97.0},
		{0, 85.5, 104.0, 38.5, 79.0, 61.0, 39.5, 98.0},
	}

	start := time.Now()
	clock = start.AddDate(0, -history[0].monthsAgo, 0)

	first := history[0]
	m, err := ms.Register(ctx, member.RegisterRequest{
		Name:             "David Ajanaku",
		Email:            "test@nnsc.com",
		Password:         "password123",
		Gender:           domain.GenderMale,
		Goals:            "Build muscle mass and increase strength",
		TrainingDuration: "2 years",
		CurrentWeight:    decimal.NewFromFloat(first.weight),
		Chest:            nullDecimal(first.chest),
		Arms:             nullDecimal(first.arms),
		Waist:            nullDecimal(first.waist),
		Thighs:           nullDecimal(first.thighs),
		Neck:             nullDecimal(first.neck),
		Glutes:           nullDecimal(first.g),
	})
	switch {
	case errors.Is(err, errors.CodeAlreadyExists):
		slog.InfoContext(ctx, "seed: demo member exists, skipping measurements")
	case err != nil:
		return fmt.Errorf("create demo member: %w", err)
	default:
		for _, h := range history[1:] {
			clock = start.AddDate(0, -h.monthsAgo, 0)

			_, err := mms.AddMeasurement(ctx, measurement.AddMeasurementRequest{
				MemberID: m.MemberID,
				Weight:   decimal.NewFromFloat(h.weight),
				Chest:    nullDecimal(h.chest),
				Arms:     nullDecimal(h.arms),
				Waist:    nullDecimal(h.waist),
				Thighs:   nullDecimal(h.thighs),
				Neck:     nullDecimal(h.neck),
				Glutes:   nullDecimal(h.g),
			})
			if err != nil {
				return fmt.Errorf("add measurement: %w", err)
			}
		}
		slog.InfoContext(ctx, "seed: created demo member", "email", m.Email, "measurements", len(history))
	}

	clock = start

	counts, err := cs.Counts(ctx)
	if err != nil {
		return err
	}

	if counts.Upcoming == 0 {
		// Next month's competition, on the 1st at 10:00.
		date := time.Date(start.Year(), start.Month()+1, 1, 10, 0, 0, 0, start.Location())
		comp, err := cs.CreateCompetition(ctx, competition.CreateCompetitionRequest{
			Name: fmt.Sprintf("%s Body of the Month", date.Month()),
			Date: date,
		})
		if err != nil {
			return fmt.Errorf("create competition: %w", err)
		}
		slog.InfoContext(ctx, "seed: created competition", "name", comp.Name)
	}

	n, err := ws.CountWorkouts(ctx)
	if err != nil {
		return err
	}

	if n == 0 {
		for _, w := range workouts {
			if _, err := ws.CreateWorkout(ctx, w); err != nil {
				return fmt.Errorf("create workout %q: %w", w.Title, err)
			}
		}
		slog.InfoContext(ctx, "seed: created workouts", "count", len(workouts))
	}

	return nil
}

func nullDecimal(f float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(f))
}

var workouts = []workout.CreateWorkoutRequest{
	{
		Title:       "Chest Day Destroyer",
		Description: "Intense chest workout to build mass and strength",
		BodyPart:    domain.BodyPartChest,
		Difficulty:  domain.DifficultyIntermediate,
		Content: `1. Bench Press - 4 sets x 8-10 reps
2. Incline Dumbbell Press - 4 sets x 10-12 reps
3. Cable Flyes - 3 sets x 12-15 reps
4. Dips - 3 sets x 10-12 reps
5. Push-ups - 3 sets to failure`,
	},
	{
		Title:       "Leg Day Power",
		Description: "Build strong, powerful legs",
		BodyPart:    domain.BodyPartLegs,
		Difficulty:  domain.DifficultyAdvanced,
		Content: `1. Squats - 5 sets x 5 reps (heavy)
2. Romanian Deadlifts - 4 sets x 8-10 reps
3. Leg Press - 4 sets x 12-15 reps
4. Walking Lunges - 3 sets x 20 steps
5. Leg Curls - 3 sets x 12-15 reps
6. Calf Raises - 4 sets x 15-20 reps`,
	},
	{
		Title:       "Back & Biceps Blast",
		Description: "Complete back and biceps workout",
		BodyPart:    domain.BodyPartBack,
		Difficulty:  domain.DifficultyIntermediate,
		Content: `1. Deadlifts - 4 sets x 6-8 reps
2. Pull-ups - 4 sets x 8-10 reps
3. Barbell Rows - 4 sets x 10-12 reps
4. Lat Pulldowns - 3 sets x 12-15 reps
5. Barbell Curls - 3 sets x 10-12 reps
6. Hammer Curls - 3 sets x 12-15 reps`,
	},
}
