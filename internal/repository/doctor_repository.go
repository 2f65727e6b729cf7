package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type DoctorRepository interface {
	// Врач вместе с клиникой; чужая клиника даёт ErrRecordNotFound.
	GetInClinic(ctx context.Context, clinicID, doctorID uuid.UUID) (*model.Doctor, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
	Create(ctx context.Context, doctor *model.Doctor) error
	UpdateDuration(ctx context.Context, id uuid.UUID, minutes int) error
	// Проставить schedule_configured_at, если он ещё пуст.
	StampConfigured(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	SetGenerationWindow(ctx context.Context, id uuid.UUID, from, to calendar.Date) error
	// Врачи с записанным окном генерации (для фоновой перегенерации).
	ListWithWindow(ctx context.Context, clinicID *uuid.UUID) ([]model.Doctor, error)
}

type GormDoctorRepository struct {
	db *gorm.DB
}

func NewGormDoctorRepository(db *gorm.DB) *GormDoctorRepository {
	return &GormDoctorRepository{db: db}
}

func (r *GormDoctorRepository) GetInClinic(ctx context.Context, clinicID, doctorID uuid.UUID) (*model.Doctor, error) {
	var d model.Doctor
	err := r.db.WithContext(ctx).
		Preload("Clinic").
		First(&d, "id = ? AND clinic_id = ?", doctorID, clinicID).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *GormDoctorRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	var d model.Doctor
	if err := r.db.WithContext(ctx).Preload("Clinic").First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *GormDoctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	return r.db.WithContext(ctx).Create(doctor).Error
}

func (r *GormDoctorRepository) UpdateDuration(ctx context.Context, id uuid.UUID, minutes int) error {
	return r.db.WithContext(ctx).
		Model(&model.Doctor{}).
		Where("id = ?", id).
		Update("appointment_duration_min", minutes).
		Error
}

func (r *GormDoctorRepository) StampConfigured(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Doctor{}).
		Where("id = ? AND schedule_configured_at IS NULL", id).
		Update("schedule_configured_at", at.UTC())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormDoctorRepository) SetGenerationWindow(ctx context.Context, id uuid.UUID, from, to calendar.Date) error {
	return r.db.WithContext(ctx).
		Model(&model.Doctor{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"slots_generated_from": model.StorageDate(from),
			"slots_generated_to":   model.StorageDate(to),
		}).
		Error
}

func (r *GormDoctorRepository) ListWithWindow(ctx context.Context, clinicID *uuid.UUID) ([]model.Doctor, error) {
	q := r.db.WithContext(ctx).
		Preload("Clinic").
		Where("slots_generated_to IS NOT NULL").
		Where("schedule_configured_at IS NOT NULL")
	if clinicID != nil {
		q = q.Where("clinic_id = ?", *clinicID)
	}

	var doctors []model.Doctor
	if err := q.Order("clinic_id ASC, id ASC").Find(&doctors).Error; err != nil {
		return nil, err
	}
	return doctors, nil
}
