package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"

	"github.com/medisched/medisched/internal/config"
	"github.com/medisched/medisched/internal/domain/appointment"
	"github.com/medisched/medisched/pkg/database"
	"github.com/medisched/medisched/pkg/logger"
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

func main() {
	count := flag.Int("count", 500, "number of appointments to seed")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	if err := database.Migrate(db, zlog); err != nil {
		log.Fatalf("running migrations: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())
	repo := appointment.NewGormRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log.Printf("seeding %d appointments", *count)
	for i := 0; i < *count; i++ {
		if err := repo.Create(ctx, fakeAppointment()); err != nil {
			log.Fatalf("seeding appointment %d: %v", i, err)
		}
	}

	log.Println("seed complete")
}

func fakeAppointment() *appointment.Appointment {
	now := time.Now()

	// Mix of past and future so the stats and cleanup jobs have material.
	date := now.Add(time.Duration(gofakeit.Number(-60, 60)) * 24 * time.Hour).
		Add(time.Duration(gofakeit.Number(8, 17)) * time.Hour)

	status := appointment.StatusScheduled
	if date.Before(now) {
		past := []appointment.Status{
			appointment.StatusCompleted,
			appointment.StatusCancelled,
			appointment.StatusNoShow,
		}
		status = past[gofakeit.Number(0, len(past)-1)]
	} else if gofakeit.Bool() {
		status = appointment.StatusConfirmed
	}

	phone := gofakeit.Phone()
	reason := gofakeit.Sentence(6)

	return &appointment.Appointment{
		PatientName:     gofakeit.Name(),
		PatientEmail:    gofakeit.Email(),
		PatientPhone:    &phone,
		DoctorName:      "Dr. " + gofakeit.LastName(),
		Specialty:       specialties[gofakeit.Number(0, len(specialties)-1)],
		AppointmentDate: date,
		DurationMins:    []int{15, 30, 45, 60}[gofakeit.Number(0, 3)],
		Reason:          &reason,
		Status:          status,
	}
}
