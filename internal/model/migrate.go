package model

import "gorm.io/gorm"

// AutoMigrate создаёт или обновляет все таблицы ядра расписания.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Clinic{},
		&Doctor{},
		&Patient{},
		&ShiftTemplate{},
		&WeeklyShift{},
		&TimeOff{},
		&Appointment{},
		&Slot{},
		&ScheduleEvent{},
	)
}
