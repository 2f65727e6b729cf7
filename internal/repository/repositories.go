package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories bundles every repository over one gorm session, either the
// root connection or a transaction.
type Repositories struct {
	Clinics      ClinicRepository
	Doctors      DoctorRepository
	Patients     PatientRepository
	Schedules    ScheduleRepository
	Slots        SlotRepository
	Appointments AppointmentRepository
	Events       EventRepository

	db *gorm.DB
}

func New(db *gorm.DB) *Repositories {
	return &Repositories{
		Clinics:      NewGormClinicRepository(db),
		Doctors:      NewGormDoctorRepository(db),
		Patients:     NewGormPatientRepository(db),
		Schedules:    NewGormScheduleRepository(db),
		Slots:        NewGormSlotRepository(db),
		Appointments: NewGormAppointmentRepository(db),
		Events:       NewGormEventRepository(db),
		db:           db,
	}
}

// InTx runs fn inside a transaction. Called on a bundle that is already
// transactional it opens a savepoint, so fn can be retried on its own.
func (r *Repositories) InTx(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}
