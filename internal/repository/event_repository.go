package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type EventRepository interface {
	Record(ctx context.Context, eventType model.ScheduleEventType, doctorID uuid.UUID, appointmentID *uuid.UUID, details any) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit int) ([]model.ScheduleEvent, error)
}

type GormEventRepository struct {
	db *gorm.DB
}

func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) Record(
	ctx context.Context,
	eventType model.ScheduleEventType,
	doctorID uuid.UUID,
	appointmentID *uuid.UUID,
	details any,
) error {
	var payload datatypes.JSON
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return err
		}
		payload = datatypes.JSON(raw)
	}

	event := model.ScheduleEvent{
		EventType:     eventType,
		DoctorID:      doctorID,
		AppointmentID: appointmentID,
		Details:       payload,
	}
	return r.db.WithContext(ctx).Create(&event).Error
}

func (r *GormEventRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit int) ([]model.ScheduleEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []model.ScheduleEvent
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
