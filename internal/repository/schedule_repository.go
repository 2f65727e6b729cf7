package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type ScheduleRepository interface {
	ListTemplates(ctx context.Context, doctorID uuid.UUID) ([]model.ShiftTemplate, error)
	ListWeekly(ctx context.Context, doctorID uuid.UUID) ([]model.WeeklyShift, error)
	// Перезаписать шаблон смены (doctor, shift).
	UpsertTemplate(ctx context.Context, tpl *model.ShiftTemplate) error
	// Перезаписать флаг (doctor, day, shift).
	UpsertWeekly(ctx context.Context, ws *model.WeeklyShift) error

	CreateTimeOff(ctx context.Context, off *model.TimeOff) error
	GetTimeOff(ctx context.Context, doctorID, id uuid.UUID) (*model.TimeOff, error)
	DeleteTimeOff(ctx context.Context, id uuid.UUID) error
	ListTimeOff(ctx context.Context, doctorID uuid.UUID) ([]model.TimeOff, error)
	// Отпуска, пересекающие [from, to].
	ListTimeOffOverlapping(ctx context.Context, doctorID uuid.UUID, from, to calendar.Date) ([]model.TimeOff, error)
}

type GormScheduleRepository struct {
	db *gorm.DB
}

func NewGormScheduleRepository(db *gorm.DB) *GormScheduleRepository {
	return &GormScheduleRepository{db: db}
}

func (r *GormScheduleRepository) ListTemplates(ctx context.Context, doctorID uuid.UUID) ([]model.ShiftTemplate, error) {
	var templates []model.ShiftTemplate
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("start_time ASC, shift_name ASC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *GormScheduleRepository) ListWeekly(ctx context.Context, doctorID uuid.UUID) ([]model.WeeklyShift, error) {
	var weekly []model.WeeklyShift
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("day_of_week ASC, shift_name ASC").
		Find(&weekly).Error
	if err != nil {
		return nil, err
	}
	return weekly, nil
}

func (r *GormScheduleRepository) UpsertTemplate(ctx context.Context, tpl *model.ShiftTemplate) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "doctor_id"}, {Name: "shift_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"start_time", "end_time", "updated_at"}),
		}).
		Create(tpl).Error
}

func (r *GormScheduleRepository) UpsertWeekly(ctx context.Context, ws *model.WeeklyShift) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "doctor_id"}, {Name: "day_of_week"}, {Name: "shift_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_enabled", "updated_at"}),
		}).
		Create(ws).Error
}

func (r *GormScheduleRepository) CreateTimeOff(ctx context.Context, off *model.TimeOff) error {
	return r.db.WithContext(ctx).Create(off).Error
}

func (r *GormScheduleRepository) GetTimeOff(ctx context.Context, doctorID, id uuid.UUID) (*model.TimeOff, error) {
	var off model.TimeOff
	if err := r.db.WithContext(ctx).First(&off, "id = ? AND doctor_id = ?", id, doctorID).Error; err != nil {
		return nil, err
	}
	return &off, nil
}

func (r *GormScheduleRepository) DeleteTimeOff(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.TimeOff{}, "id = ?", id).Error
}

func (r *GormScheduleRepository) ListTimeOff(ctx context.Context, doctorID uuid.UUID) ([]model.TimeOff, error) {
	var offs []model.TimeOff
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("start_date ASC").
		Find(&offs).Error
	if err != nil {
		return nil, err
	}
	return offs, nil
}

func (r *GormScheduleRepository) ListTimeOffOverlapping(
	ctx context.Context,
	doctorID uuid.UUID,
	from, to calendar.Date,
) ([]model.TimeOff, error) {
	var offs []model.TimeOff
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Where("start_date <= ? AND end_date >= ?", model.StorageDate(to), model.StorageDate(from)).
		Order("start_date ASC").
		Find(&offs).Error
	if err != nil {
		return nil, err
	}
	return offs, nil
}
