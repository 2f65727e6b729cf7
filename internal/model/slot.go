package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "AVAILABLE"
	SlotStatusBooked    SlotStatus = "BOOKED"
	SlotStatusBlocked   SlotStatus = "BLOCKED"
)

// slots — созданные слоты для записи, уникальны по (врач, момент начала).
type Slot struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	ClinicID uuid.UUID `gorm:"type:uuid;not null;index"`
	DoctorID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_slot_doctor_start,priority:1;index:idx_slot_doctor_date,priority:1"`

	// Локальная дата смены, из которой нарезан слот. Части ночной смены после
	// полуночи сохраняют дату её начала.
	Date datatypes.Date `gorm:"not null;index:idx_slot_doctor_date,priority:2"`

	StartsAt time.Time `gorm:"not null;uniqueIndex:idx_slot_doctor_start,priority:2"`
	EndsAt   time.Time `gorm:"not null"`

	ShiftName ShiftName  `gorm:"type:varchar(32);not null"`
	Status    SlotStatus `gorm:"type:varchar(16);not null;index"`

	// Обратная ссылка на запись; задана тогда и только тогда, когда Status = BOOKED.
	AppointmentID *uuid.UUID `gorm:"type:uuid;uniqueIndex"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Appointment *Appointment `gorm:"foreignKey:AppointmentID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (s *Slot) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
