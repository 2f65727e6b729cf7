package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type SlotRepository interface {
	// Вставить пачку слотов, пропуская уже существующие (doctor_id, starts_at).
	InsertIgnoreDuplicates(ctx context.Context, slots []model.Slot) (int64, error)
	// Найти слот по ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	// Слот врача, начинающийся ровно в startsAt.
	FindByStart(ctx context.Context, doctorID uuid.UUID, startsAt time.Time) (*model.Slot, error)
	// Занять свободный слот; false, если слот уже не AVAILABLE.
	MarkBooked(ctx context.Context, slotID, appointmentID uuid.UUID) (bool, error)
	// Освободить слот записи; nil, если слот с записью не связан.
	ReleaseByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Slot, error)
	// Сменить статус слота from -> to; false, если текущий статус не from.
	TransitionStatus(ctx context.Context, slotID uuid.UUID, from, to model.SlotStatus) (bool, error)
	// Удалить свободные слоты по датам [from, to].
	DeleteAvailableInDates(ctx context.Context, doctorID uuid.UUID, from, to calendar.Date) (int64, error)
	// Удалить свободные слоты по датам [from, to], начинающиеся не раньше notBefore.
	DeleteAvailableStartingFrom(ctx context.Context, doctorID uuid.UUID, from, to calendar.Date, notBefore time.Time) (int64, error)
	// Удалить все слоты по датам [from, to].
	DeleteInDates(ctx context.Context, doctorID uuid.UUID, from, to calendar.Date) (int64, error)
	// Слоты по датам [from, to] в заданных статусах, с записью и пациентом.
	ListInDates(ctx context.Context, doctorID uuid.UUID, from, to calendar.Date, statuses ...model.SlotStatus) ([]model.Slot, error)
	// Свободные слоты за дату, начинающиеся не раньше notBefore.
	ListAvailable(ctx context.Context, doctorID uuid.UUID, date calendar.Date, notBefore time.Time) ([]model.Slot, error)
	// Все слоты по датам с пагинацией.
	ListRange(ctx context.Context, doctorID uuid.UUID, from, to calendar.Date, limit, offset int) ([]model.Slot, int64, error)
	// Количество слотов по статусам.
	CountByStatus(ctx context.Context, doctorID uuid.UUID, from, to calendar.Date) (map[model.SlotStatus]int64, error)
}

type GormSlotRepository struct {
	db *gorm.DB
}

func NewGormSlotRepository(db *gorm.DB) *GormSlotRepository {
	return &GormSlotRepository{db: db}
}

func (r *GormSlotRepository) InsertIgnoreDuplicates(ctx context.Context, slots []model.Slot) (int64, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "doctor_id"}, {Name: "starts_at"}},
			DoNothing: true,
		}).
		Create(&slots)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *GormSlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	var slot model.Slot
	if err := r.db.WithContext(ctx).First(&slot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *GormSlotRepository) FindByStart(ctx context.Context, doctorID uuid.UUID, startsAt time.Time) (*model.Slot, error) {
	var slot model.Slot
	err := r.db.WithContext(ctx).
		First(&slot, "doctor_id = ? AND starts_at = ?", doctorID, startsAt.UTC()).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *GormSlotRepository) MarkBooked(ctx context.Context, slotID, appointmentID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("id = ? AND status = ?", slotID, model.SlotStatusAvailable).
		Updates(map[string]any{
			"status":         model.SlotStatusBooked,
			"appointment_id": appointmentID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormSlotRepository) ReleaseByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Slot, error) {
	var slot model.Slot
	tx := r.db.WithContext(ctx).Where("appointment_id = ?", appointmentID).Limit(1).Find(&slot)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, nil
	}

	err := r.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("id = ?", slot.ID).
		Updates(map[string]any{
			"status":         model.SlotStatusAvailable,
			"appointment_id": nil,
		}).Error
	if err != nil {
		return nil, err
	}

	slot.Status = model.SlotStatusAvailable
	slot.AppointmentID = nil
	return &slot, nil
}

func (r *GormSlotRepository) TransitionStatus(ctx context.Context, slotID uuid.UUID, from, to model.SlotStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("id = ? AND status = ?", slotID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormSlotRepository) DeleteAvailableInDates(ctx context.Context, doctorID uuid.UUID, from, to calendar.Date) (int64, error) {
	res := r.inDates(ctx, doctorID, from, to).
		Where("status = ?", model.SlotStatusAvailable).
		Delete(&model.Slot{})
	return res.RowsAffected, res.Error
}

func (r *GormSlotRepository) DeleteAvailableStartingFrom(
	ctx context.Context,
	doctorID uuid.UUID,
	from, to calendar.Date,
	notBefore time.Time,
) (int64, error) {
	res := r.inDates(ctx, doctorID, from, to).
		Where("status = ?", model.SlotStatusAvailable).
		Where("starts_at >= ?", notBefore.UTC()).
		Delete(&model.Slot{})
	return res.RowsAffected, res.Error
}

func (r *GormSlotRepository) DeleteInDates(ctx context.Context, doctorID uuid.UUID, from, to calendar.Date) (int64, error) {
	res := r.inDates(ctx, doctorID, from, to).Delete(&model.Slot{})
	return res.RowsAffected, res.Error
}

func (r *GormSlotRepository) ListInDates(
	ctx context.Context,
	doctorID uuid.UUID,
	from, to calendar.Date,
	statuses ...model.SlotStatus,
) ([]model.Slot, error) {
	q := r.inDates(ctx, doctorID, from, to).
		Preload("Appointment").
		Preload("Appointment.Patient")
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}

	var slots []model.Slot
	if err := q.Order("starts_at ASC").Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *GormSlotRepository) ListAvailable(
	ctx context.Context,
	doctorID uuid.UUID,
	date calendar.Date,
	notBefore time.Time,
) ([]model.Slot, error) {
	var slots []model.Slot
	err := r.inDates(ctx, doctorID, date, date).
		Where("status = ?", model.SlotStatusAvailable).
		Where("starts_at >= ?", notBefore.UTC()).
		Order("starts_at ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *GormSlotRepository) ListRange(
	ctx context.Context,
	doctorID uuid.UUID,
	from, to calendar.Date,
	limit, offset int,
) ([]model.Slot, int64, error) {
	q := r.inDates(ctx, doctorID, from, to)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	var slots []model.Slot
	if err := q.Preload("Appointment").Order("starts_at ASC").Find(&slots).Error; err != nil {
		return nil, 0, err
	}
	return slots, total, nil
}

func (r *GormSlotRepository) CountByStatus(
	ctx context.Context,
	doctorID uuid.UUID,
	from, to calendar.Date,
) (map[model.SlotStatus]int64, error) {
	var rows []struct {
		Status model.SlotStatus
		Count  int64
	}
	err := r.inDates(ctx, doctorID, from, to).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.SlotStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *GormSlotRepository) inDates(ctx context.Context, doctorID uuid.UUID, from, to calendar.Date) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("doctor_id = ?", doctorID).
		Where("date >= ? AND date <= ?", model.StorageDate(from), model.StorageDate(to))
}
