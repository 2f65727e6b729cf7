package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

const (
	SkipNoGenerationRange   = "no generation range recorded; generate slots for a range first"
	SkipGenerationRangePast = "generation range ends before today"
)

// ConflictResolution — согласие на отмену конфликтующих записей при изменении
// расписания. Пустой AppointmentIDs означает все.
type ConflictResolution struct {
	CancelConflicts bool        `json:"cancel_conflicts"`
	AppointmentIDs  []uuid.UUID `json:"appointment_ids,omitempty"`
	Reason          string      `json:"reason,omitempty"`
}

type RegenerationResult struct {
	DeletedAvailable      int64       `json:"deleted_available"`
	Created               int64       `json:"created"`
	CancelledAppointments []uuid.UUID `json:"cancelled_appointments"`
	Skipped               bool        `json:"skipped"`
	SkipReason            string      `json:"skip_reason,omitempty"`
	From                  string      `json:"from,omitempty"`
	To                    string      `json:"to,omitempty"`
}

type ScheduleUpdateResult struct {
	Configured            bool                  `json:"configured"`
	FirstConfiguration    bool                  `json:"first_configuration"`
	CancelledAppointments []uuid.UUID           `json:"cancelled_appointments"`
	Remaining             []ImpactedAppointment `json:"remaining_conflicts"`
	Regeneration          *RegenerationResult   `json:"regeneration,omitempty"`
}

// UpdateSchedule проверяет изменение, разбирает конфликты с записями,
// сохраняет конфигурацию и перегенерирует слоты в записанном окне.
// Всё в одной транзакции.
func (s *SchedulingService) UpdateSchedule(
	ctx context.Context,
	clinicID, doctorID uuid.UUID,
	change ScheduleChange,
	resolution *ConflictResolution,
) (*ScheduleUpdateResult, error) {
	parsed, err := parseScheduleChange(change)
	if err != nil {
		return nil, err
	}
	if parsed.empty() {
		return nil, badRequest("schedule change is empty")
	}

	res := &ScheduleUpdateResult{CancelledAppointments: []uuid.UUID{}, Remaining: []ImpactedAppointment{}}
	err = s.repos.InTx(ctx, func(tx *repository.Repositories) error {
		dc, err := s.loadDoctor(ctx, tx, clinicID, doctorID)
		if err != nil {
			return err
		}
		current, err := s.loadSnapshot(ctx, tx, dc.doctor, dc.zone)
		if err != nil {
			return err
		}
		merged := current.Apply(parsed)

		now := s.now()
		appointments, err := tx.Appointments.ListFutureBooked(ctx, doctorID, now)
		if err != nil {
			return storeErr(err, "appointments")
		}
		impacted := analyzeConflicts(merged, appointments, now)

		if len(impacted) > 0 {
			if resolution == nil || !resolution.CancelConflicts {
				return &ConflictError{
					Message:  "schedule change conflicts with booked appointments",
					Impacted: impacted,
				}
			}
			res.CancelledAppointments, res.Remaining, err = s.resolveConflicts(ctx, tx, doctorID, impacted, resolution)
			if err != nil {
				return err
			}
		}

		if err := persistChange(ctx, tx, doctorID, parsed); err != nil {
			return err
		}

		wasConfigured := current.IsFullyConfigured()
		res.Configured = merged.IsFullyConfigured()
		res.FirstConfiguration = res.Configured && !wasConfigured && dc.doctor.ScheduleConfiguredAt == nil

		if res.Configured {
			if _, err := tx.Doctors.StampConfigured(ctx, doctorID, now); err != nil {
				return storeErr(err, "schedule configured")
			}
		}

		// Первая настройка слоты не создаёт, генерация — отдельный шаг.
		if !res.FirstConfiguration && (wasConfigured || res.Configured) {
			res.Regeneration, err = s.regenerateInWindow(ctx, tx, merged, dc)
			if err != nil {
				return err
			}
		}

		err = tx.Events.Record(ctx, model.EventScheduleUpdated, doctorID, nil, map[string]any{
			"change":              change,
			"configured":          res.Configured,
			"first_configuration": res.FirstConfiguration,
			"cancelled":           res.CancelledAppointments,
		})
		return storeErr(err, "schedule event")
	})
	if err != nil {
		return nil, err
	}

	ev := s.log.Info().
		Str("doctor_id", doctorID.String()).
		Bool("configured", res.Configured).
		Bool("first_configuration", res.FirstConfiguration).
		Int("cancelled", len(res.CancelledAppointments))
	if r := res.Regeneration; r != nil {
		ev = ev.Int64("deleted", r.DeletedAvailable).Int64("created", r.Created).Bool("skipped", r.Skipped)
	}
	ev.Msg("schedule updated")
	return res, nil
}

func (s *SchedulingService) resolveConflicts(
	ctx context.Context,
	tx *repository.Repositories,
	doctorID uuid.UUID,
	impacted []ImpactedAppointment,
	resolution *ConflictResolution,
) (cancelled []uuid.UUID, remaining []ImpactedAppointment, err error) {
	conflicting := make(map[uuid.UUID]bool, len(impacted))
	for _, ia := range impacted {
		conflicting[ia.AppointmentID] = true
	}
	named := make(map[uuid.UUID]bool, len(resolution.AppointmentIDs))
	for _, id := range resolution.AppointmentIDs {
		if !conflicting[id] {
			return nil, nil, badRequest("appointment %s is not among the conflicts", id)
		}
		named[id] = true
	}

	reason := resolution.Reason
	if reason == "" {
		reason = "doctor schedule changed"
	}

	cancelled = []uuid.UUID{}
	remaining = []ImpactedAppointment{}
	for _, ia := range impacted {
		if len(named) > 0 && !named[ia.AppointmentID] {
			remaining = append(remaining, ia)
			continue
		}
		if err := s.cancelAndRelease(ctx, tx, doctorID, ia.AppointmentID, reason); err != nil {
			return nil, nil, err
		}
		cancelled = append(cancelled, ia.AppointmentID)
	}
	return cancelled, remaining, nil
}

func persistChange(ctx context.Context, tx *repository.Repositories, doctorID uuid.UUID, ch *parsedChange) error {
	if ch.duration != nil {
		if err := tx.Doctors.UpdateDuration(ctx, doctorID, *ch.duration); err != nil {
			return storeErr(err, "doctor")
		}
	}
	for _, name := range model.KnownShifts {
		w, ok := ch.templates[name]
		if !ok {
			continue
		}
		tpl := &model.ShiftTemplate{
			DoctorID:  doctorID,
			ShiftName: name,
			StartTime: w.Start.String(),
			EndTime:   w.End.String(),
		}
		if err := tx.Schedules.UpsertTemplate(ctx, tpl); err != nil {
			return storeErr(err, "shift template")
		}
	}
	for _, f := range ch.weekly {
		ws := &model.WeeklyShift{
			DoctorID:  doctorID,
			DayOfWeek: f.day,
			ShiftName: f.shift,
			IsEnabled: f.enabled,
		}
		if err := tx.Schedules.UpsertWeekly(ctx, ws); err != nil {
			return storeErr(err, "weekly shift")
		}
	}
	return nil
}

// RegenerateSlotsAfterScheduleChange пересобирает AVAILABLE слоты от сегодня
// до конца записанного окна. С cancelImpacted сначала отменяются записи,
// которые больше не укладываются в расписание.
func (s *SchedulingService) RegenerateSlotsAfterScheduleChange(
	ctx context.Context,
	clinicID, doctorID uuid.UUID,
	cancelImpacted bool,
) (*RegenerationResult, error) {
	var res *RegenerationResult
	err := s.repos.InTx(ctx, func(tx *repository.Repositories) error {
		dc, err := s.loadDoctor(ctx, tx, clinicID, doctorID)
		if err != nil {
			return err
		}
		snap, err := s.loadSnapshot(ctx, tx, dc.doctor, dc.zone)
		if err != nil {
			return err
		}

		var cancelled []uuid.UUID
		if cancelImpacted {
			now := s.now()
			appointments, err := tx.Appointments.ListFutureBooked(ctx, doctorID, now)
			if err != nil {
				return storeErr(err, "appointments")
			}
			impacted := analyzeConflicts(snap, appointments, now)
			cancelled, _, err = s.resolveConflicts(ctx, tx, doctorID, impacted, &ConflictResolution{
				CancelConflicts: true,
				Reason:          "slots regenerated after schedule change",
			})
			if err != nil {
				return err
			}
		}

		res, err = s.regenerateInWindow(ctx, tx, snap, dc)
		if err != nil {
			return err
		}
		if cancelled != nil {
			res.CancelledAppointments = cancelled
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("doctor_id", doctorID.String()).
		Int64("deleted", res.DeletedAvailable).
		Int64("created", res.Created).
		Int("cancelled", len(res.CancelledAppointments)).
		Bool("skipped", res.Skipped).
		Str("skip_reason", res.SkipReason).
		Msg("slots regenerated")
	return res, nil
}

// regenerateInWindow удаляет ещё не начавшиеся AVAILABLE слоты на
// [max(today, from), to] и создаёт их заново. Если окно начинается раньше
// сегодняшнего дня, проход захватывает вчера: хвост ночной смены после
// полуночи тоже пересобирается. BOOKED и BLOCKED слоты не трогаются.
func (s *SchedulingService) regenerateInWindow(
	ctx context.Context,
	tx *repository.Repositories,
	snap *ScheduleSnapshot,
	dc *doctorContext,
) (*RegenerationResult, error) {
	res := &RegenerationResult{CancelledAppointments: []uuid.UUID{}}

	from, to, ok := dc.doctor.GenerationWindow()
	if !ok {
		res.Skipped, res.SkipReason = true, SkipNoGenerationRange
		return res, nil
	}
	today := s.today(dc.zone)
	if to.Before(today) {
		res.Skipped, res.SkipReason = true, SkipGenerationRangePast
		return res, nil
	}
	passFrom := from
	if from.Before(today) {
		from, passFrom = today, today.AddDays(-1)
	}
	res.From, res.To = from.String(), to.String()

	now := s.now()
	var err error
	res.DeletedAvailable, err = tx.Slots.DeleteAvailableStartingFrom(ctx, dc.doctor.ID, passFrom, to, now)
	if err != nil {
		return nil, storeErr(err, "slots")
	}
	mr, err := s.materialize(ctx, tx, snap, passFrom, to, now)
	if err != nil {
		return nil, err
	}
	res.Created = mr.Created

	err = tx.Events.Record(ctx, model.EventSlotsRegenerated, dc.doctor.ID, nil, map[string]any{
		"from":    res.From,
		"to":      res.To,
		"deleted": res.DeletedAvailable,
		"created": res.Created,
		"skipped": mr.Skipped,
	})
	if err != nil {
		return nil, storeErr(err, "schedule event")
	}
	return res, nil
}
