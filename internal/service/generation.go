package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

type GenerationResult struct {
	SlotsCreated int64  `json:"slots_created"`
	SlotsSkipped int64  `json:"slots_skipped"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
}

type GenerationRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type DeleteRangeResult struct {
	DeletedCount       int64        `json:"deleted_count"`
	BookedAppointments []BookedSlot `json:"booked_appointments"`
}

type ForceDeleteResult struct {
	DeletedSlots          int64       `json:"deleted_slots"`
	CancelledAppointments []uuid.UUID `json:"cancelled_appointments"`
}

// BookedSlot — занятый слот, мешающий удалению.
type BookedSlot struct {
	SlotID        uuid.UUID  `json:"slot_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	PatientID     *uuid.UUID `json:"patient_id,omitempty"`
	PatientName   string     `json:"patient_name,omitempty"`
	PatientPhone  string     `json:"patient_phone,omitempty"`
	Date          string     `json:"date"`
	Label         string     `json:"label"`
}

func (s *SchedulingService) IsScheduleFullyConfigured(ctx context.Context, doctorID uuid.UUID) (bool, error) {
	doctor, err := s.repos.Doctors.GetByID(ctx, doctorID)
	if err != nil {
		return false, storeErr(err, "doctor")
	}
	dc, err := withZone(doctor)
	if err != nil {
		return false, err
	}
	snap, err := s.loadSnapshot(ctx, s.repos, dc.doctor, dc.zone)
	if err != nil {
		return false, err
	}
	return snap.IsFullyConfigured(), nil
}

// GetSlotGenerationRange возвращает nil, если слоты ещё ни разу не генерировались.
func (s *SchedulingService) GetSlotGenerationRange(ctx context.Context, doctorID uuid.UUID) (*GenerationRange, error) {
	doctor, err := s.repos.Doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, storeErr(err, "doctor")
	}
	from, to, ok := doctor.GenerationWindow()
	if !ok {
		return nil, nil
	}
	return &GenerationRange{From: from.String(), To: to.String()}, nil
}

// GenerateSlotsForRange создаёт слоты на [startDate, endDate] и расширяет
// записанное окно генерации до этого диапазона.
func (s *SchedulingService) GenerateSlotsForRange(
	ctx context.Context,
	clinicID, doctorID uuid.UUID,
	startDate, endDate string,
) (*GenerationResult, error) {
	rng, err := parseDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	if days := rng.From.DaysUntil(rng.To) + 1; days > MaxGenerationDays {
		return nil, badRequest("range of %d days exceeds %d", days, MaxGenerationDays)
	}

	var res *GenerationResult
	err = s.repos.InTx(ctx, func(tx *repository.Repositories) error {
		dc, err := s.loadDoctor(ctx, tx, clinicID, doctorID)
		if err != nil {
			return err
		}
		snap, err := s.loadSnapshot(ctx, tx, dc.doctor, dc.zone)
		if err != nil {
			return err
		}
		if !snap.IsFullyConfigured() {
			return badRequest("doctor schedule is not fully configured")
		}

		mr, err := s.materialize(ctx, tx, snap, rng.From, rng.To, time.Time{})
		if err != nil {
			return err
		}
		if _, err := s.recordRange(ctx, tx, dc.doctor, rng.From, rng.To); err != nil {
			return err
		}

		err = tx.Events.Record(ctx, model.EventSlotsGenerated, doctorID, nil, map[string]any{
			"from":    rng.From.String(),
			"to":      rng.To.String(),
			"created": mr.Created,
			"skipped": mr.Skipped,
		})
		if err != nil {
			return storeErr(err, "schedule event")
		}

		res = &GenerationResult{
			SlotsCreated: mr.Created,
			SlotsSkipped: mr.Skipped,
			StartDate:    rng.From.String(),
			EndDate:      rng.To.String(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("doctor_id", doctorID.String()).
		Str("from", res.StartDate).
		Str("to", res.EndDate).
		Int64("created", res.SlotsCreated).
		Int64("skipped", res.SlotsSkipped).
		Msg("slots generated")
	return res, nil
}

// recordRange сохраняет объединение текущего окна и [from, to] и при первом
// вызове проставляет schedule_configured_at.
func (s *SchedulingService) recordRange(
	ctx context.Context,
	repos *repository.Repositories,
	doctor *model.Doctor,
	from, to calendar.Date,
) (DateRange, error) {
	window := DateRange{From: from, To: to}
	if curFrom, curTo, ok := doctor.GenerationWindow(); ok {
		if curFrom.Before(window.From) {
			window.From = curFrom
		}
		if curTo.After(window.To) {
			window.To = curTo
		}
	}

	if err := repos.Doctors.SetGenerationWindow(ctx, doctor.ID, window.From, window.To); err != nil {
		return DateRange{}, storeErr(err, "generation window")
	}
	if _, err := repos.Doctors.StampConfigured(ctx, doctor.ID, s.now()); err != nil {
		return DateRange{}, storeErr(err, "schedule configured")
	}

	wf, wt := model.StorageDate(window.From), model.StorageDate(window.To)
	doctor.SlotsGeneratedFrom, doctor.SlotsGeneratedTo = &wf, &wt
	return window, nil
}

// DeleteSlotsForDateRange удаляет только AVAILABLE слоты; занятые остаются
// на месте и попадают в ответ.
func (s *SchedulingService) DeleteSlotsForDateRange(
	ctx context.Context,
	clinicID, doctorID uuid.UUID,
	startDate, endDate string,
) (*DeleteRangeResult, error) {
	rng, err := parseDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	res := &DeleteRangeResult{BookedAppointments: []BookedSlot{}}
	err = s.repos.InTx(ctx, func(tx *repository.Repositories) error {
		dc, err := s.loadDoctor(ctx, tx, clinicID, doctorID)
		if err != nil {
			return err
		}

		res.DeletedCount, err = tx.Slots.DeleteAvailableInDates(ctx, doctorID, rng.From, rng.To)
		if err != nil {
			return storeErr(err, "slots")
		}
		booked, err := tx.Slots.ListInDates(ctx, doctorID, rng.From, rng.To, model.SlotStatusBooked)
		if err != nil {
			return storeErr(err, "booked slots")
		}
		res.BookedAppointments = bookedSlots(booked, dc.zone)

		return recordDeletion(ctx, tx, doctorID, rng, res.DeletedCount, 0, false)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ForceDeleteSlotsForDateRange отменяет записи в диапазоне и удаляет все
// слоты в нём независимо от статуса.
func (s *SchedulingService) ForceDeleteSlotsForDateRange(
	ctx context.Context,
	clinicID, doctorID uuid.UUID,
	startDate, endDate string,
	reason string,
) (*ForceDeleteResult, error) {
	rng, err := parseDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "slots removed by clinic"
	}

	res := &ForceDeleteResult{CancelledAppointments: []uuid.UUID{}}
	err = s.repos.InTx(ctx, func(tx *repository.Repositories) error {
		if _, err := s.loadDoctor(ctx, tx, clinicID, doctorID); err != nil {
			return err
		}

		res.CancelledAppointments, err = s.cancelBookedInDates(ctx, tx, doctorID, rng, reason)
		if err != nil {
			return err
		}
		res.DeletedSlots, err = tx.Slots.DeleteInDates(ctx, doctorID, rng.From, rng.To)
		if err != nil {
			return storeErr(err, "slots")
		}

		return recordDeletion(ctx, tx, doctorID, rng, res.DeletedSlots, len(res.CancelledAppointments), true)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("doctor_id", doctorID.String()).
		Int64("deleted", res.DeletedSlots).
		Int("cancelled", len(res.CancelledAppointments)).
		Msg("slots force-deleted")
	return res, nil
}

// cancelBookedInDates отменяет записи, занимающие BOOKED слоты с датой из rng,
// и освобождает слоты.
func (s *SchedulingService) cancelBookedInDates(
	ctx context.Context,
	tx *repository.Repositories,
	doctorID uuid.UUID,
	rng DateRange,
	reason string,
) ([]uuid.UUID, error) {
	booked, err := tx.Slots.ListInDates(ctx, doctorID, rng.From, rng.To, model.SlotStatusBooked)
	if err != nil {
		return nil, storeErr(err, "booked slots")
	}

	cancelled := make([]uuid.UUID, 0, len(booked))
	for _, slot := range booked {
		if slot.AppointmentID == nil {
			continue
		}
		if err := s.cancelAndRelease(ctx, tx, doctorID, *slot.AppointmentID, reason); err != nil {
			return nil, err
		}
		cancelled = append(cancelled, *slot.AppointmentID)
	}
	return cancelled, nil
}

// cancelAndRelease — единственное место, где движок отменяет запись:
// статус CANCELLED, слот снова AVAILABLE, событие в журнале.
func (s *SchedulingService) cancelAndRelease(
	ctx context.Context,
	tx *repository.Repositories,
	doctorID, appointmentID uuid.UUID,
	reason string,
) error {
	ok, err := tx.Appointments.Cancel(ctx, appointmentID, s.now(), reason)
	if err != nil {
		return storeErr(err, "appointment")
	}
	if !ok {
		return conflict("appointment %s is not active", appointmentID)
	}
	if _, err := tx.Slots.ReleaseByAppointment(ctx, appointmentID); err != nil {
		return storeErr(err, "slot")
	}

	err = tx.Events.Record(ctx, model.EventAppointmentCancelled, doctorID, &appointmentID, map[string]any{
		"reason": reason,
	})
	return storeErr(err, "schedule event")
}

func recordDeletion(ctx context.Context, tx *repository.Repositories, doctorID uuid.UUID, rng DateRange, deleted int64, cancelled int, forced bool) error {
	err := tx.Events.Record(ctx, model.EventSlotsDeleted, doctorID, nil, map[string]any{
		"from":      rng.From.String(),
		"to":        rng.To.String(),
		"deleted":   deleted,
		"cancelled": cancelled,
		"forced":    forced,
	})
	return storeErr(err, "schedule event")
}

func bookedSlots(slots []model.Slot, zone calendar.Zone) []BookedSlot {
	out := make([]BookedSlot, 0, len(slots))
	for _, slot := range slots {
		b := BookedSlot{
			SlotID:        slot.ID,
			AppointmentID: slot.AppointmentID,
			Date:          model.CalendarDate(slot.Date).String(),
			Label:         slotLabel(slot, zone),
		}
		if a := slot.Appointment; a != nil {
			pid := a.PatientID
			b.PatientID = &pid
			if a.Patient != nil {
				b.PatientName = a.Patient.FullName
				b.PatientPhone = a.Patient.Phone
			}
		}
		out = append(out, b)
	}
	return out
}

func slotLabel(slot model.Slot, zone calendar.Zone) string {
	return calendar.FormatSlotLabel(calendar.TimeRange{Start: slot.StartsAt, End: slot.EndsAt}, zone.Location(), "")
}
