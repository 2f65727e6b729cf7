package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type AppointmentRepository interface {
	// Создать новую запись на приём.
	Create(ctx context.Context, appointment *model.Appointment) error
	// Получить запись по ID в рамках клиники.
	GetInClinic(ctx context.Context, clinicID, id uuid.UUID) (*model.Appointment, error)
	// Отменить активную запись; false, если запись уже не BOOKED.
	Cancel(ctx context.Context, id uuid.UUID, cancelledAt time.Time, reason string) (bool, error)
	// Перенести активную запись на новое время.
	Move(ctx context.Context, id uuid.UUID, startsAt, endsAt time.Time) error
	// Будущие активные записи врача (starts_at >= from) с пациентом.
	ListFutureBooked(ctx context.Context, doctorID uuid.UUID, from time.Time) ([]model.Appointment, error)
}

type GormAppointmentRepository struct {
	db *gorm.DB
}

func NewGormAppointmentRepository(db *gorm.DB) *GormAppointmentRepository {
	return &GormAppointmentRepository{db: db}
}

func (r *GormAppointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	return r.db.WithContext(ctx).Create(appointment).Error
}

func (r *GormAppointmentRepository) GetInClinic(ctx context.Context, clinicID, id uuid.UUID) (*model.Appointment, error) {
	var a model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Patient").
		First(&a, "id = ? AND clinic_id = ?", id, clinicID).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormAppointmentRepository) Cancel(
	ctx context.Context,
	id uuid.UUID,
	cancelledAt time.Time,
	reason string,
) (bool, error) {
	update := map[string]any{
		"status":        model.AppointmentStatusCancelled,
		"cancelled_at":  cancelledAt.UTC(),
		"cancel_reason": reason,
	}
	res := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("id = ? AND status = ?", id, model.AppointmentStatusBooked).
		Updates(update)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormAppointmentRepository) Move(ctx context.Context, id uuid.UUID, startsAt, endsAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"starts_at": startsAt.UTC(),
			"ends_at":   endsAt.UTC(),
		}).
		Error
}

func (r *GormAppointmentRepository) ListFutureBooked(ctx context.Context, doctorID uuid.UUID, from time.Time) ([]model.Appointment, error) {
	var appointments []model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Patient").
		Where("doctor_id = ?", doctorID).
		Where("status = ?", model.AppointmentStatusBooked).
		Where("starts_at >= ?", from.UTC()).
		Order("starts_at ASC, id ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}
