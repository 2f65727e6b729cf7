package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Название смены повторяющейся недели.
type ShiftName string

const (
	ShiftMorning   ShiftName = "MORNING"
	ShiftAfternoon ShiftName = "AFTERNOON"
)

// KnownShifts — все допустимые смены. Новые смены добавляются сюда.
var KnownShifts = []ShiftName{ShiftMorning, ShiftAfternoon}

func ParseShiftName(s string) (ShiftName, error) {
	name := ShiftName(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range KnownShifts {
		if name == known {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown shift %q", s)
}

// shift_templates — настенные начало и конец на (врач, смена).
// End < Start — смена через полночь.
type ShiftTemplate struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	DoctorID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_shift_template_doctor_shift,priority:1"`
	ShiftName ShiftName `gorm:"type:varchar(32);not null;uniqueIndex:idx_shift_template_doctor_shift,priority:2"`

	StartTime string `gorm:"type:varchar(5);not null"` // HH:MM
	EndTime   string `gorm:"type:varchar(5);not null"` // HH:MM

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (s *ShiftTemplate) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// weekly_shifts — какие смены работают в какой день недели. Нет строки — выключено.
type WeeklyShift struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	DoctorID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_weekly_shift_doctor_day_shift,priority:1"`
	DayOfWeek int       `gorm:"not null;uniqueIndex:idx_weekly_shift_doctor_day_shift,priority:2"` // 0=Sunday … 6=Saturday
	ShiftName ShiftName `gorm:"type:varchar(32);not null;uniqueIndex:idx_weekly_shift_doctor_day_shift,priority:3"`

	IsEnabled bool `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (w *WeeklyShift) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

type TimeOffType string

const (
	TimeOffBreak    TimeOffType = "BREAK"
	TimeOffVacation TimeOffType = "VACATION"
	TimeOffOther    TimeOffType = "OTHER"
)

func ParseTimeOffType(s string) (TimeOffType, error) {
	switch t := TimeOffType(strings.ToUpper(strings.TrimSpace(s))); t {
	case TimeOffBreak, TimeOffVacation, TimeOffOther:
		return t, nil
	case "":
		return TimeOffOther, nil
	default:
		return "", fmt.Errorf("unknown time-off type %q", s)
	}
}

// time_offs — включительный интервал локальных дат без слотов.
type TimeOff struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	DoctorID uuid.UUID `gorm:"type:uuid;not null;index"`

	StartDate datatypes.Date `gorm:"not null;index"`
	EndDate   datatypes.Date `gorm:"not null;index"`

	Type   TimeOffType `gorm:"type:varchar(16);not null"`
	Reason string      `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (t *TimeOff) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
