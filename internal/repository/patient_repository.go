package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type PatientRepository interface {
	GetByID(ctx context.Context, clinicID, id uuid.UUID) (*model.Patient, error)
	FindByPhone(ctx context.Context, clinicID uuid.UUID, phone string) (*model.Patient, error)
	Create(ctx context.Context, patient *model.Patient) error
}

type GormPatientRepository struct {
	db *gorm.DB
}

func NewGormPatientRepository(db *gorm.DB) *GormPatientRepository {
	return &GormPatientRepository{db: db}
}

func (r *GormPatientRepository) GetByID(ctx context.Context, clinicID, id uuid.UUID) (*model.Patient, error) {
	var p model.Patient
	if err := r.db.WithContext(ctx).First(&p, "id = ? AND clinic_id = ?", id, clinicID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormPatientRepository) FindByPhone(ctx context.Context, clinicID uuid.UUID, phone string) (*model.Patient, error) {
	n := model.NormalizePhone(phone)
	if n == "" {
		return nil, gorm.ErrRecordNotFound
	}

	var p model.Patient
	// Try normalized first, then raw (rows imported before normalization).
	q := r.db.WithContext(ctx).Model(&model.Patient{}).
		Where("clinic_id = ?", clinicID).
		Where("phone = ?", n)
	if raw := strings.TrimSpace(phone); raw != n {
		q = r.db.WithContext(ctx).Model(&model.Patient{}).
			Where("clinic_id = ?", clinicID).
			Where("phone = ? OR phone = ?", n, raw)
	}
	if err := q.First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormPatientRepository) Create(ctx context.Context, patient *model.Patient) error {
	return r.db.WithContext(ctx).Create(patient).Error
}
