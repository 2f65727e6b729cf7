package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type ClinicRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
	Create(ctx context.Context, clinic *model.Clinic) error
	List(ctx context.Context, limit, offset int) ([]model.Clinic, int64, error)
}

type GormClinicRepository struct {
	db *gorm.DB
}

func NewGormClinicRepository(db *gorm.DB) *GormClinicRepository {
	return &GormClinicRepository{db: db}
}

func (r *GormClinicRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	var c model.Clinic
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormClinicRepository) Create(ctx context.Context, clinic *model.Clinic) error {
	return r.db.WithContext(ctx).Create(clinic).Error
}

func (r *GormClinicRepository) List(ctx context.Context, limit, offset int) ([]model.Clinic, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Clinic{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var clinics []model.Clinic
	if err := q.Order("name ASC").Limit(limit).Offset(offset).Find(&clinics).Error; err != nil {
		return nil, 0, err
	}
	return clinics, total, nil
}
