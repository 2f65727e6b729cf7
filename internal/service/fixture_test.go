package service

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/db"
	"github.com/Leganyst/clinic-scheduling/internal/lock"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	gdb    *gorm.DB
	repos  *repository.Repositories
	svc    *SchedulingService
	clinic *model.Clinic
	doctor *model.Doctor
	now    time.Time
}

// newFixture opens an in-memory database with one clinic in tz and one
// licensed doctor (15 minute consultations, nothing configured yet).
func newFixture(t *testing.T, tz string, now time.Time) *fixture {
	t.Helper()

	h, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(h.Close)
	if err := model.AutoMigrate(h.Gorm); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		gdb:   h.Gorm,
		repos: repository.New(h.Gorm),
		now:   now,
	}
	f.svc = NewSchedulingService(f.repos, lock.NewLocalLocker(), zerolog.Nop(),
		WithClock(func() time.Time { return f.now }),
		WithBatching(7, 1),
	)

	f.clinic = &model.Clinic{Name: gofakeit.Company(), Timezone: tz}
	if err := f.repos.Clinics.Create(f.ctx, f.clinic); err != nil {
		t.Fatalf("seed clinic: %v", err)
	}
	f.doctor = f.newDoctor(15)
	return f
}

func (f *fixture) newDoctor(duration int) *model.Doctor {
	f.t.Helper()
	d := &model.Doctor{
		ClinicID:               f.clinic.ID,
		DisplayName:            gofakeit.Name(),
		Specialty:              gofakeit.JobTitle(),
		AppointmentDurationMin: duration,
		IsActive:               true,
		HasLicense:             true,
	}
	if err := f.repos.Doctors.Create(f.ctx, d); err != nil {
		f.t.Fatalf("seed doctor: %v", err)
	}
	return d
}

func (f *fixture) newPatient() *model.Patient {
	f.t.Helper()
	p := &model.Patient{
		ClinicID: f.clinic.ID,
		FullName: gofakeit.Name(),
		Phone:    gofakeit.Phone(),
	}
	if err := f.repos.Patients.Create(f.ctx, p); err != nil {
		f.t.Fatalf("seed patient: %v", err)
	}
	return p
}

// configure applies a schedule change with no conflict resolution.
func (f *fixture) configure(change ScheduleChange) *ScheduleUpdateResult {
	f.t.Helper()
	res, err := f.svc.UpdateSchedule(f.ctx, f.clinic.ID, f.doctor.ID, change, nil)
	if err != nil {
		f.t.Fatalf("UpdateSchedule: %v", err)
	}
	return res
}

func (f *fixture) generate(from, to string) *GenerationResult {
	f.t.Helper()
	res, err := f.svc.GenerateSlotsForRange(f.ctx, f.clinic.ID, f.doctor.ID, from, to)
	if err != nil {
		f.t.Fatalf("GenerateSlotsForRange(%s, %s): %v", from, to, err)
	}
	return res
}

func (f *fixture) book(slotID uuid.UUID) *model.Appointment {
	f.t.Helper()
	p := f.newPatient()
	a, err := f.svc.BookAppointment(f.ctx, f.clinic.ID, f.doctor.ID, BookingRequest{PatientID: p.ID, SlotID: &slotID})
	if err != nil {
		f.t.Fatalf("BookAppointment: %v", err)
	}
	return a
}

func (f *fixture) slotsOn(date string) []model.Slot {
	f.t.Helper()
	d, err := calendar.ParseDate(date)
	if err != nil {
		f.t.Fatalf("parse date: %v", err)
	}
	var slots []model.Slot
	err = f.gdb.Where("doctor_id = ? AND date = ?", f.doctor.ID, model.StorageDate(d)).
		Order("starts_at ASC").
		Find(&slots).Error
	if err != nil {
		f.t.Fatalf("load slots: %v", err)
	}
	return slots
}

func (f *fixture) countSlots(statuses ...model.SlotStatus) int64 {
	f.t.Helper()
	q := f.gdb.Model(&model.Slot{}).Where("doctor_id = ?", f.doctor.ID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		f.t.Fatalf("count slots: %v", err)
	}
	return n
}

func (f *fixture) reloadDoctor() *model.Doctor {
	f.t.Helper()
	d, err := f.repos.Doctors.GetByID(f.ctx, f.doctor.ID)
	if err != nil {
		f.t.Fatalf("reload doctor: %v", err)
	}
	f.doctor = d
	return d
}

func (f *fixture) appointment(id uuid.UUID) *model.Appointment {
	f.t.Helper()
	var a model.Appointment
	if err := f.gdb.First(&a, "id = ?", id).Error; err != nil {
		f.t.Fatalf("load appointment: %v", err)
	}
	return &a
}

func (f *fixture) slot(id uuid.UUID) *model.Slot {
	f.t.Helper()
	var s model.Slot
	if err := f.gdb.First(&s, "id = ?", id).Error; err != nil {
		f.t.Fatalf("load slot: %v", err)
	}
	return &s
}

func intPtr(v int) *int { return &v }

func calendarDate(t *testing.T, s string) calendar.Date {
	t.Helper()
	d, err := calendar.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %s: %v", s, err)
	}
	return d
}

// morningOn enables MORNING start-end on the given weekdays.
func morningOn(duration int, start, end string, days ...time.Weekday) ScheduleChange {
	ch := ScheduleChange{
		AppointmentDurationMin: intPtr(duration),
		Templates:              []ShiftTemplateChange{{Shift: "MORNING", Start: start, End: end}},
	}
	for _, d := range days {
		ch.Weekly = append(ch.Weekly, WeeklyShiftChange{DayOfWeek: int(d), Shift: "MORNING", Enabled: true})
	}
	return ch
}

func mustZone(t *testing.T, name string) calendar.Zone {
	t.Helper()
	z, err := calendar.LoadZone(name)
	if err != nil {
		t.Fatalf("load zone %s: %v", name, err)
	}
	return z
}

// snapshotOf builds a snapshot from scratch without storage.
func snapshotOf(t *testing.T, zone calendar.Zone, change ScheduleChange) *ScheduleSnapshot {
	t.Helper()
	parsed, err := parseScheduleChange(change)
	if err != nil {
		t.Fatalf("parse change: %v", err)
	}
	base := &ScheduleSnapshot{
		DoctorID:     uuid.New(),
		ClinicID:     uuid.New(),
		Zone:         zone,
		CanHaveSlots: true,
	}
	return base.Apply(parsed)
}
