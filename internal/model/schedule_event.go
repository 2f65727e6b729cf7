package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ScheduleEventType string

const (
	EventScheduleUpdated      ScheduleEventType = "schedule_updated"
	EventSlotsGenerated       ScheduleEventType = "slots_generated"
	EventSlotsRegenerated     ScheduleEventType = "slots_regenerated"
	EventSlotsDeleted         ScheduleEventType = "slots_deleted"
	EventTimeOffCreated       ScheduleEventType = "time_off_created"
	EventTimeOffDeleted       ScheduleEventType = "time_off_deleted"
	EventAppointmentCancelled ScheduleEventType = "appointment_cancelled"
)

// schedule_events — журнал изменений расписания, пишется в той же
// транзакции, что и само изменение.
type ScheduleEvent struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	EventType ScheduleEventType `gorm:"type:varchar(64);not null;index"`

	DoctorID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	AppointmentID *uuid.UUID `gorm:"type:uuid;index"`

	Details datatypes.JSON

	CreatedAt time.Time `gorm:"not null;index"`
}

func (e *ScheduleEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
