package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
)

// doctors
type Doctor struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	ClinicID uuid.UUID `gorm:"type:uuid;not null;index"`

	DisplayName string `gorm:"type:varchar(255);not null"`
	Specialty   string `gorm:"type:varchar(255)"`

	// Длительность приёма, она же шаг сетки слотов.
	AppointmentDurationMin int `gorm:"not null"`

	IsActive   bool `gorm:"not null"`
	HasLicense bool `gorm:"not null"`

	// Момент, когда расписание впервые стало полностью заданным.
	ScheduleConfiguredAt *time.Time

	// Текущее окно генерации (локальные даты клиники, хранятся как полночь UTC).
	SlotsGeneratedFrom *datatypes.Date
	SlotsGeneratedTo   *datatypes.Date

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Clinic *Clinic `gorm:"foreignKey:ClinicID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (d *Doctor) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// GenerationWindow — записанное окно генерации, если оно есть.
func (d *Doctor) GenerationWindow() (from, to calendar.Date, ok bool) {
	if d.SlotsGeneratedFrom == nil || d.SlotsGeneratedTo == nil {
		return calendar.Date{}, calendar.Date{}, false
	}
	return CalendarDate(*d.SlotsGeneratedFrom), CalendarDate(*d.SlotsGeneratedTo), true
}

// CanHaveSlots — условие лицензии для генерации слотов.
func (d *Doctor) CanHaveSlots() bool {
	return d.IsActive && d.HasLicense
}

// StorageDate переводит локальную дату клиники в хранимый вид.
func StorageDate(d calendar.Date) datatypes.Date {
	return datatypes.Date(d.StorageTime())
}

// CalendarDate переводит хранимую дату обратно в календарную.
func CalendarDate(d datatypes.Date) calendar.Date {
	return calendar.DateFromStorage(time.Time(d))
}
