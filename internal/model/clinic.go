package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// clinics — корень арендатора; врач, пациент и слот принадлежат одной клинике.
type Clinic struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Name string `gorm:"type:varchar(255);not null"`

	// Имя IANA, например "Asia/Kolkata". Всё настенное время расписания — в этой зоне.
	Timezone string `gorm:"type:varchar(64);not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Doctors []Doctor `gorm:"foreignKey:ClinicID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (c *Clinic) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
