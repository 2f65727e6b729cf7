package main

import (
	"context"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/service"
)

var seedTimezones = []string{
	"Europe/Berlin",
	"America/Chicago",
	"Asia/Kolkata",
	"Australia/Sydney",
}

var seedSpecialties = []string{
	"General Practice",
	"Cardiology",
	"Dermatology",
	"Pediatrics",
	"Neurology",
	"Orthopedics",
}

type seedOptions struct {
	clinics  int
	doctors  int
	patients int
	days     int
}

func seedCmd() *cobra.Command {
	var opts seedOptions
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with fake clinics, doctors, patients and schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if err := model.AutoMigrate(a.db.Gorm); err != nil {
				return err
			}
			return a.seed(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.clinics, "clinics", 2, "clinics to create")
	cmd.Flags().IntVar(&opts.doctors, "doctors", 5, "doctors per clinic")
	cmd.Flags().IntVar(&opts.patients, "patients", 50, "patients per clinic")
	cmd.Flags().IntVar(&opts.days, "days", 14, "days of slots to generate from today")
	return cmd
}

func (a *app) seed(ctx context.Context, opts seedOptions) error {
	a.log.Info().
		Int("clinics", opts.clinics).
		Int("doctors", opts.doctors).
		Int("patients", opts.patients).
		Msg("seed starting")

	for i := 0; i < opts.clinics; i++ {
		clinic := &model.Clinic{
			Name:     gofakeit.Company() + " Clinic",
			Timezone: seedTimezones[i%len(seedTimezones)],
		}
		if err := a.repos.Clinics.Create(ctx, clinic); err != nil {
			return err
		}

		for j := 0; j < opts.patients; j++ {
			p := &model.Patient{
				ClinicID: clinic.ID,
				FullName: gofakeit.Name(),
				Phone:    gofakeit.Phone(),
			}
			if err := a.repos.Patients.Create(ctx, p); err != nil {
				return err
			}
		}

		zone, err := calendar.LoadZone(clinic.Timezone)
		if err != nil {
			return err
		}
		from := zone.Today(time.Now())
		to := from.AddDays(opts.days - 1)

		for j := 0; j < opts.doctors; j++ {
			doctor := &model.Doctor{
				ClinicID:               clinic.ID,
				DisplayName:            "Dr. " + gofakeit.LastName(),
				Specialty:              seedSpecialties[gofakeit.Number(0, len(seedSpecialties)-1)],
				AppointmentDurationMin: 15,
				IsActive:               true,
				HasLicense:             true,
			}
			if err := a.repos.Doctors.Create(ctx, doctor); err != nil {
				return err
			}

			if _, err := a.svc.UpdateSchedule(ctx, clinic.ID, doctor.ID, seedSchedule(), nil); err != nil {
				return err
			}
			if opts.days > 0 {
				if _, err := a.svc.GenerateSlotsForRange(ctx, clinic.ID, doctor.ID, from.String(), to.String()); err != nil {
					return err
				}
			}
		}
	}

	a.log.Info().Msg("seed complete")
	return nil
}

// seedSchedule picks a random duration, a weekday morning shift and, for some
// doctors, a Saturday afternoon.
func seedSchedule() service.ScheduleChange {
	durations := []int{15, 20, 30}
	d := durations[gofakeit.Number(0, len(durations)-1)]

	ch := service.ScheduleChange{
		AppointmentDurationMin: &d,
		Templates: []service.ShiftTemplateChange{
			{Shift: string(model.ShiftMorning), Start: "08:00", End: "12:00"},
			{Shift: string(model.ShiftAfternoon), Start: "13:00", End: "17:00"},
		},
	}
	for day := time.Monday; day <= time.Friday; day++ {
		ch.Weekly = append(ch.Weekly, service.WeeklyShiftChange{
			DayOfWeek: int(day),
			Shift:     string(model.ShiftMorning),
			Enabled:   true,
		})
	}
	if gofakeit.Bool() {
		ch.Weekly = append(ch.Weekly, service.WeeklyShiftChange{
			DayOfWeek: int(time.Saturday),
			Shift:     string(model.ShiftAfternoon),
			Enabled:   true,
		})
	}
	return ch
}
