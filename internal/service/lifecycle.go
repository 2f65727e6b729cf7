package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/db"
	"github.com/Leganyst/clinic-scheduling/internal/lock"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

// BookingRequest — выбор слота по ID либо по локальным дате и времени клиники.
type BookingRequest struct {
	PatientID uuid.UUID  `json:"patient_id"`
	SlotID    *uuid.UUID `json:"slot_id,omitempty"`
	Date      string     `json:"date,omitempty"` // YYYY-MM-DD
	Time      string     `json:"time,omitempty"` // HH:MM
}

type CancellationResult struct {
	Appointment  *model.Appointment `json:"appointment"`
	ReleasedSlot *model.Slot        `json:"released_slot,omitempty"`
}

// BookSlot переводит AVAILABLE слот в BOOKED за записью appointmentID.
func (s *SchedulingService) BookSlot(ctx context.Context, slotID, appointmentID uuid.UUID) error {
	return s.withSlotLock(ctx, slotID, func(ctx context.Context) error {
		return s.repos.InTx(ctx, func(tx *repository.Repositories) error {
			if _, err := tx.Slots.GetByID(ctx, slotID); err != nil {
				return storeErr(err, "slot")
			}
			return bookSlot(ctx, tx, slotID, appointmentID)
		})
	})
}

func bookSlot(ctx context.Context, tx *repository.Repositories, slotID, appointmentID uuid.UUID) error {
	ok, err := tx.Slots.MarkBooked(ctx, slotID, appointmentID)
	if err != nil {
		return storeErr(err, "slot")
	}
	if !ok {
		return conflict("slot %s is not available", slotID)
	}
	return nil
}

// ReleaseSlot освобождает слот записи appointmentID. nil, если слот с записью
// не связан.
func (s *SchedulingService) ReleaseSlot(ctx context.Context, appointmentID uuid.UUID) (*model.Slot, error) {
	slot, err := s.repos.Slots.ReleaseByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, storeErr(err, "slot")
	}
	return slot, nil
}

// FindSlotByTime возвращает nil, если у врача нет слота, начинающегося в startsAt.
func (s *SchedulingService) FindSlotByTime(ctx context.Context, doctorID uuid.UUID, startsAt time.Time) (*model.Slot, error) {
	slot, err := s.repos.Slots.FindByStart(ctx, doctorID, startsAt)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, storeErr(err, "slot")
	}
	return slot, nil
}

// BookAppointment создаёт запись и занимает её слот в одной транзакции.
func (s *SchedulingService) BookAppointment(
	ctx context.Context,
	clinicID, doctorID uuid.UUID,
	req BookingRequest,
) (*model.Appointment, error) {
	if req.PatientID == uuid.Nil {
		return nil, badRequest("patient_id is required")
	}

	dc, err := s.loadDoctor(ctx, s.repos, clinicID, doctorID)
	if err != nil {
		return nil, err
	}
	slot, err := s.resolveSlot(ctx, dc, req)
	if err != nil {
		return nil, err
	}
	if ok, reason := validateSlotForBooking(slot, doctorID, s.now()); !ok {
		if slot.Status != model.SlotStatusAvailable {
			return nil, conflict("%s", reason)
		}
		return nil, badRequest("%s", reason)
	}

	var appointment *model.Appointment
	err = s.withSlotLock(ctx, slot.ID, func(ctx context.Context) error {
		return s.repos.InTx(ctx, func(tx *repository.Repositories) error {
			if _, err := tx.Patients.GetByID(ctx, clinicID, req.PatientID); err != nil {
				return storeErr(err, "patient")
			}

			a := &model.Appointment{
				ClinicID:  clinicID,
				DoctorID:  doctorID,
				PatientID: req.PatientID,
				StartsAt:  slot.StartsAt,
				EndsAt:    slot.EndsAt,
				Status:    model.AppointmentStatusBooked,
			}
			if err := tx.Appointments.Create(ctx, a); err != nil {
				return storeErr(err, "appointment")
			}
			if err := bookSlot(ctx, tx, slot.ID, a.ID); err != nil {
				return err
			}
			appointment = a
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("doctor_id", doctorID.String()).
		Str("slot_id", slot.ID.String()).
		Str("appointment_id", appointment.ID.String()).
		Msg("appointment booked")
	return appointment, nil
}

func (s *SchedulingService) resolveSlot(ctx context.Context, dc *doctorContext, req BookingRequest) (*model.Slot, error) {
	if req.SlotID != nil {
		slot, err := s.repos.Slots.GetByID(ctx, *req.SlotID)
		if err != nil {
			return nil, storeErr(err, "slot")
		}
		return slot, nil
	}

	if req.Date == "" || req.Time == "" {
		return nil, badRequest("either slot_id or date and time are required")
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	clock, err := calendar.ParseClock(req.Time)
	if err != nil {
		return nil, badRequest("time: %v", err)
	}

	slot, err := s.FindSlotByTime(ctx, dc.doctor.ID, dc.zone.ToUTC(date, clock))
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, notFound("slot")
	}
	return slot, nil
}

// validateSlotForBooking возвращает false и причину, если слот нельзя занять
// новой записью к doctorID.
func validateSlotForBooking(slot *model.Slot, doctorID uuid.UUID, now time.Time) (bool, string) {
	if slot == nil {
		return false, "slot is missing"
	}
	if _, err := calendar.NewTimeRange(slot.StartsAt, slot.EndsAt); err != nil {
		return false, "invalid slot time range"
	}
	if slot.Status != model.SlotStatusAvailable {
		return false, "slot is not available"
	}
	if doctorID != uuid.Nil && slot.DoctorID != doctorID {
		return false, "slot doctor mismatch"
	}
	if slot.StartsAt.Before(now) {
		return false, "slot is in the past"
	}
	return true, ""
}

// CancelAppointment отменяет активную запись и освобождает её слот.
func (s *SchedulingService) CancelAppointment(
	ctx context.Context,
	clinicID, appointmentID uuid.UUID,
	reason string,
) (*CancellationResult, error) {
	if reason == "" {
		reason = "cancelled"
	}

	res := &CancellationResult{}
	err := s.repos.InTx(ctx, func(tx *repository.Repositories) error {
		a, err := tx.Appointments.GetInClinic(ctx, clinicID, appointmentID)
		if err != nil {
			return storeErr(err, "appointment")
		}

		ok, err := tx.Appointments.Cancel(ctx, a.ID, s.now(), reason)
		if err != nil {
			return storeErr(err, "appointment")
		}
		if !ok {
			return conflict("appointment %s is %s", a.ID, a.Status)
		}
		res.ReleasedSlot, err = tx.Slots.ReleaseByAppointment(ctx, a.ID)
		if err != nil {
			return storeErr(err, "slot")
		}

		err = tx.Events.Record(ctx, model.EventAppointmentCancelled, a.DoctorID, &a.ID, map[string]any{
			"reason": reason,
		})
		if err != nil {
			return storeErr(err, "schedule event")
		}

		res.Appointment, err = tx.Appointments.GetInClinic(ctx, clinicID, appointmentID)
		return storeErr(err, "appointment")
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RescheduleAppointment переносит активную запись на newSlotID: старый слот
// освобождается, новый занимается в той же транзакции.
func (s *SchedulingService) RescheduleAppointment(
	ctx context.Context,
	clinicID, appointmentID, newSlotID uuid.UUID,
) (*model.Appointment, error) {
	newSlot, err := s.repos.Slots.GetByID(ctx, newSlotID)
	if err != nil {
		return nil, storeErr(err, "slot")
	}

	var moved *model.Appointment
	err = s.withSlotLock(ctx, newSlotID, func(ctx context.Context) error {
		return s.repos.InTx(ctx, func(tx *repository.Repositories) error {
			a, err := tx.Appointments.GetInClinic(ctx, clinicID, appointmentID)
			if err != nil {
				return storeErr(err, "appointment")
			}
			if a.Status != model.AppointmentStatusBooked {
				return conflict("appointment %s is %s", a.ID, a.Status)
			}
			if ok, reason := validateSlotForBooking(newSlot, a.DoctorID, s.now()); !ok {
				if newSlot.Status != model.SlotStatusAvailable {
					return conflict("%s", reason)
				}
				return badRequest("%s", reason)
			}

			if _, err := tx.Slots.ReleaseByAppointment(ctx, a.ID); err != nil {
				return storeErr(err, "slot")
			}
			if err := bookSlot(ctx, tx, newSlot.ID, a.ID); err != nil {
				return err
			}
			if err := tx.Appointments.Move(ctx, a.ID, newSlot.StartsAt, newSlot.EndsAt); err != nil {
				return storeErr(err, "appointment")
			}

			moved, err = tx.Appointments.GetInClinic(ctx, clinicID, appointmentID)
			return storeErr(err, "appointment")
		})
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// BlockSlot закрывает AVAILABLE слот для записи.
func (s *SchedulingService) BlockSlot(ctx context.Context, clinicID, doctorID, slotID uuid.UUID) (*model.Slot, error) {
	return s.transitionSlot(ctx, clinicID, doctorID, slotID, model.SlotStatusAvailable, model.SlotStatusBlocked)
}

func (s *SchedulingService) UnblockSlot(ctx context.Context, clinicID, doctorID, slotID uuid.UUID) (*model.Slot, error) {
	return s.transitionSlot(ctx, clinicID, doctorID, slotID, model.SlotStatusBlocked, model.SlotStatusAvailable)
}

func (s *SchedulingService) transitionSlot(
	ctx context.Context,
	clinicID, doctorID, slotID uuid.UUID,
	from, to model.SlotStatus,
) (*model.Slot, error) {
	var slot *model.Slot
	err := s.withSlotLock(ctx, slotID, func(ctx context.Context) error {
		return s.repos.InTx(ctx, func(tx *repository.Repositories) error {
			if _, err := s.loadDoctor(ctx, tx, clinicID, doctorID); err != nil {
				return err
			}
			current, err := tx.Slots.GetByID(ctx, slotID)
			if err != nil {
				return storeErr(err, "slot")
			}
			if current.DoctorID != doctorID {
				return notFound("slot")
			}

			ok, err := tx.Slots.TransitionStatus(ctx, slotID, from, to)
			if err != nil {
				return storeErr(err, "slot")
			}
			if !ok {
				return conflict("slot %s is %s, expected %s", slotID, current.Status, from)
			}
			current.Status = to
			slot = current
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return slot, nil
}

func (s *SchedulingService) withSlotLock(ctx context.Context, slotID uuid.UUID, fn func(ctx context.Context) error) error {
	err := s.locker.WithSlotLock(ctx, slotID, fn)
	if errors.Is(err, lock.ErrLockNotAcquired) {
		return conflict("slot %s is being booked concurrently", slotID)
	}
	return err
}
