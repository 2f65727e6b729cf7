package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

type TimeOffInput struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Type      string `json:"type,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type TimeOffView struct {
	ID        uuid.UUID         `json:"id"`
	StartDate string            `json:"start_date"`
	EndDate   string            `json:"end_date"`
	Type      model.TimeOffType `json:"type"`
	Reason    string            `json:"reason,omitempty"`
}

type TimeOffResult struct {
	TimeOff               TimeOffView `json:"time_off"`
	DeletedSlots          int64       `json:"deleted_slots"`
	CancelledAppointments []uuid.UUID `json:"cancelled_appointments"`
}

type TimeOffDeletion struct {
	Rematerialized MaterializeResult `json:"rematerialized"`
	From           string            `json:"from,omitempty"`
	To             string            `json:"to,omitempty"`
}

func timeOffView(off *model.TimeOff) TimeOffView {
	return TimeOffView{
		ID:        off.ID,
		StartDate: model.CalendarDate(off.StartDate).String(),
		EndDate:   model.CalendarDate(off.EndDate).String(),
		Type:      off.Type,
		Reason:    off.Reason,
	}
}

// CreateTimeOff удаляет AVAILABLE слоты интервала и сохраняет отсутствие.
// Интервалы одного врача не пересекаются. Занятые слоты в интервале отклоняют
// вызов, если не задан force; с force записи отменяются и удаляются все слоты.
func (s *SchedulingService) CreateTimeOff(
	ctx context.Context,
	clinicID, doctorID uuid.UUID,
	in TimeOffInput,
	force bool,
) (*TimeOffResult, error) {
	rng, err := parseDateRange(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	kind, err := model.ParseTimeOffType(in.Type)
	if err != nil {
		return nil, badRequest("%v", err)
	}

	res := &TimeOffResult{CancelledAppointments: []uuid.UUID{}}
	err = s.repos.InTx(ctx, func(tx *repository.Repositories) error {
		dc, err := s.loadDoctor(ctx, tx, clinicID, doctorID)
		if err != nil {
			return err
		}
		existing, err := tx.Schedules.ListTimeOffOverlapping(ctx, doctorID, rng.From, rng.To)
		if err != nil {
			return storeErr(err, "time off")
		}
		if len(existing) > 0 {
			e := existing[0]
			return conflict("time off overlaps %s..%s",
				model.CalendarDate(e.StartDate), model.CalendarDate(e.EndDate))
		}

		res.DeletedSlots, err = tx.Slots.DeleteAvailableInDates(ctx, doctorID, rng.From, rng.To)
		if err != nil {
			return storeErr(err, "slots")
		}
		booked, err := tx.Slots.ListInDates(ctx, doctorID, rng.From, rng.To, model.SlotStatusBooked)
		if err != nil {
			return storeErr(err, "booked slots")
		}

		if len(booked) > 0 {
			if !force {
				return &ConflictError{
					Message: "time off overlaps booked appointments",
					Booked:  bookedSlots(booked, dc.zone),
				}
			}
			reason := "doctor time off"
			if in.Reason != "" {
				reason = in.Reason
			}
			res.CancelledAppointments, err = s.cancelBookedInDates(ctx, tx, doctorID, rng, reason)
			if err != nil {
				return err
			}
			n, err := tx.Slots.DeleteInDates(ctx, doctorID, rng.From, rng.To)
			if err != nil {
				return storeErr(err, "slots")
			}
			res.DeletedSlots += n
		}

		off := &model.TimeOff{
			DoctorID:  doctorID,
			StartDate: model.StorageDate(rng.From),
			EndDate:   model.StorageDate(rng.To),
			Type:      kind,
			Reason:    in.Reason,
		}
		if err := tx.Schedules.CreateTimeOff(ctx, off); err != nil {
			return storeErr(err, "time off")
		}
		res.TimeOff = timeOffView(off)

		err = tx.Events.Record(ctx, model.EventTimeOffCreated, doctorID, nil, map[string]any{
			"time_off_id": off.ID,
			"from":        rng.From.String(),
			"to":          rng.To.String(),
			"deleted":     res.DeletedSlots,
			"cancelled":   res.CancelledAppointments,
			"forced":      force,
		})
		return storeErr(err, "schedule event")
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteTimeOff удаляет интервал и заново создаёт слоты освободившихся дат
// внутри записанного окна, не раньше вчерашнего дня (ради ночных смен).
func (s *SchedulingService) DeleteTimeOff(ctx context.Context, clinicID, doctorID, timeOffID uuid.UUID) (*TimeOffDeletion, error) {
	res := &TimeOffDeletion{}
	err := s.repos.InTx(ctx, func(tx *repository.Repositories) error {
		dc, err := s.loadDoctor(ctx, tx, clinicID, doctorID)
		if err != nil {
			return err
		}
		off, err := tx.Schedules.GetTimeOff(ctx, doctorID, timeOffID)
		if err != nil {
			return storeErr(err, "time off")
		}
		if err := tx.Schedules.DeleteTimeOff(ctx, off.ID); err != nil {
			return storeErr(err, "time off")
		}

		freed := DateRange{From: model.CalendarDate(off.StartDate), To: model.CalendarDate(off.EndDate)}
		if wFrom, wTo, ok := dc.doctor.GenerationWindow(); ok {
			from, to := freed.From, freed.To
			// ночная смена вчерашнего дня может заходить в будущее
			if yesterday := s.today(dc.zone).AddDays(-1); from.Before(yesterday) {
				from = yesterday
			}
			if from.Before(wFrom) {
				from = wFrom
			}
			if to.After(wTo) {
				to = wTo
			}

			if !to.Before(from) {
				snap, err := s.loadSnapshot(ctx, tx, dc.doctor, dc.zone)
				if err != nil {
					return err
				}
				res.Rematerialized, err = s.materialize(ctx, tx, snap, from, to, s.now())
				if err != nil {
					return err
				}
				res.From, res.To = from.String(), to.String()
			}
		}

		err = tx.Events.Record(ctx, model.EventTimeOffDeleted, doctorID, nil, map[string]any{
			"time_off_id": off.ID,
			"from":        freed.From.String(),
			"to":          freed.To.String(),
			"created":     res.Rematerialized.Created,
		})
		return storeErr(err, "schedule event")
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SchedulingService) ListTimeOff(ctx context.Context, clinicID, doctorID uuid.UUID) ([]TimeOffView, error) {
	if _, err := s.loadDoctor(ctx, s.repos, clinicID, doctorID); err != nil {
		return nil, err
	}
	offs, err := s.repos.Schedules.ListTimeOff(ctx, doctorID)
	if err != nil {
		return nil, storeErr(err, "time off")
	}

	out := make([]TimeOffView, 0, len(offs))
	for i := range offs {
		out = append(out, timeOffView(&offs[i]))
	}
	return out, nil
}
