package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
)

type SlotView struct {
	ID         uuid.UUID        `json:"id"`
	DoctorID   uuid.UUID        `json:"doctor_id"`
	Date       string           `json:"date"`
	StartsAt   time.Time        `json:"starts_at"`
	EndsAt     time.Time        `json:"ends_at"`
	LocalStart string           `json:"local_start"`
	LocalEnd   string           `json:"local_end"`
	ShiftName  model.ShiftName  `json:"shift"`
	Status     model.SlotStatus `json:"status"`
	Label      string           `json:"label"`

	Appointment *AppointmentView `json:"appointment,omitempty"`
}

type AppointmentView struct {
	ID           uuid.UUID               `json:"id"`
	PatientID    uuid.UUID               `json:"patient_id"`
	PatientName  string                  `json:"patient_name,omitempty"`
	PatientPhone string                  `json:"patient_phone,omitempty"`
	Status       model.AppointmentStatus `json:"status"`
}

type SlotStats struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Total     int64  `json:"total"`
	Available int64  `json:"available"`
	Booked    int64  `json:"booked"`
	Blocked   int64  `json:"blocked"`
}

type ShiftView struct {
	Shift     model.ShiftName `json:"shift"`
	Start     string          `json:"start"`
	End       string          `json:"end"`
	Overnight bool            `json:"overnight"`
	Days      []int           `json:"enabled_days"`
}

type ScheduleView struct {
	DoctorID               uuid.UUID        `json:"doctor_id"`
	Timezone               string           `json:"timezone"`
	AppointmentDurationMin int              `json:"appointment_duration_min"`
	FullyConfigured        bool             `json:"fully_configured"`
	ConfiguredAt           *time.Time       `json:"configured_at,omitempty"`
	GenerationRange        *GenerationRange `json:"generation_range,omitempty"`
	Shifts                 []ShiftView      `json:"shifts"`
	TimeOff                []TimeOffView    `json:"time_off"`
}

type ScheduleEventView struct {
	ID            uuid.UUID               `json:"id"`
	Type          model.ScheduleEventType `json:"type"`
	AppointmentID *uuid.UUID              `json:"appointment_id,omitempty"`
	Details       datatypes.JSON          `json:"details,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
}

func slotView(slot model.Slot, zone calendar.Zone) SlotView {
	v := SlotView{
		ID:         slot.ID,
		DoctorID:   slot.DoctorID,
		Date:       model.CalendarDate(slot.Date).String(),
		StartsAt:   slot.StartsAt.UTC(),
		EndsAt:     slot.EndsAt.UTC(),
		LocalStart: zone.ClockOf(slot.StartsAt).String(),
		LocalEnd:   zone.ClockOf(slot.EndsAt).String(),
		ShiftName:  slot.ShiftName,
		Status:     slot.Status,
		Label:      slotLabel(slot, zone),
	}
	if a := slot.Appointment; a != nil {
		v.Appointment = &AppointmentView{
			ID:        a.ID,
			PatientID: a.PatientID,
			Status:    a.Status,
		}
		if a.Patient != nil {
			v.Appointment.PatientName = a.Patient.FullName
			v.Appointment.PatientPhone = a.Patient.Phone
		}
	}
	return v
}

func slotViews(slots []model.Slot, zone calendar.Zone) []SlotView {
	out := make([]SlotView, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slotView(slot, zone))
	}
	return out
}

// GetAvailableSlots — свободные слоты на локальную дату клиники, без уже
// начавшихся.
func (s *SchedulingService) GetAvailableSlots(ctx context.Context, clinicID, doctorID uuid.UUID, date string) ([]SlotView, error) {
	d, err := parseDate("date", date)
	if err != nil {
		return nil, err
	}
	dc, err := s.loadDoctor(ctx, s.repos, clinicID, doctorID)
	if err != nil {
		return nil, err
	}

	slots, err := s.repos.Slots.ListAvailable(ctx, doctorID, d, s.now())
	if err != nil {
		return nil, storeErr(err, "slots")
	}
	return slotViews(slots, dc.zone), nil
}

// GetSlotsForDate — все слоты даты с данными записей.
func (s *SchedulingService) GetSlotsForDate(ctx context.Context, clinicID, doctorID uuid.UUID, date string) ([]SlotView, error) {
	d, err := parseDate("date", date)
	if err != nil {
		return nil, err
	}
	dc, err := s.loadDoctor(ctx, s.repos, clinicID, doctorID)
	if err != nil {
		return nil, err
	}

	slots, err := s.repos.Slots.ListInDates(ctx, doctorID, d, d)
	if err != nil {
		return nil, storeErr(err, "slots")
	}
	return slotViews(slots, dc.zone), nil
}

func (s *SchedulingService) GetSlotsForRange(
	ctx context.Context,
	clinicID, doctorID uuid.UUID,
	startDate, endDate string,
	page, pageSize int,
) (calendar.Page[SlotView], error) {
	rng, err := parseDateRange(startDate, endDate)
	if err != nil {
		return calendar.Page[SlotView]{}, err
	}
	dc, err := s.loadDoctor(ctx, s.repos, clinicID, doctorID)
	if err != nil {
		return calendar.Page[SlotView]{}, err
	}

	page, pageSize, offset := calendar.NormalizePage(page, pageSize)
	slots, total, err := s.repos.Slots.ListRange(ctx, doctorID, rng.From, rng.To, pageSize, offset)
	if err != nil {
		return calendar.Page[SlotView]{}, storeErr(err, "slots")
	}
	return calendar.NewPage(slotViews(slots, dc.zone), page, pageSize, total), nil
}

func (s *SchedulingService) GetSlotStats(ctx context.Context, clinicID, doctorID uuid.UUID, startDate, endDate string) (*SlotStats, error) {
	rng, err := parseDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadDoctor(ctx, s.repos, clinicID, doctorID); err != nil {
		return nil, err
	}

	counts, err := s.repos.Slots.CountByStatus(ctx, doctorID, rng.From, rng.To)
	if err != nil {
		return nil, storeErr(err, "slots")
	}

	stats := &SlotStats{
		From:      rng.From.String(),
		To:        rng.To.String(),
		Available: counts[model.SlotStatusAvailable],
		Booked:    counts[model.SlotStatusBooked],
		Blocked:   counts[model.SlotStatusBlocked],
	}
	stats.Total = stats.Available + stats.Booked + stats.Blocked
	return stats, nil
}

// GetSchedule — текущая повторяющаяся конфигурация врача.
func (s *SchedulingService) GetSchedule(ctx context.Context, clinicID, doctorID uuid.UUID) (*ScheduleView, error) {
	dc, err := s.loadDoctor(ctx, s.repos, clinicID, doctorID)
	if err != nil {
		return nil, err
	}
	snap, err := s.loadSnapshot(ctx, s.repos, dc.doctor, dc.zone)
	if err != nil {
		return nil, err
	}

	view := &ScheduleView{
		DoctorID:               doctorID,
		Timezone:               dc.zone.Name(),
		AppointmentDurationMin: snap.DurationMin,
		FullyConfigured:        snap.IsFullyConfigured(),
		ConfiguredAt:           snap.ConfiguredAt,
		Shifts:                 []ShiftView{},
		TimeOff:                []TimeOffView{},
	}
	if w := snap.Window; w != nil {
		view.GenerationRange = &GenerationRange{From: w.From.String(), To: w.To.String()}
	}

	for _, shift := range snap.Shifts() {
		tpl, _ := snap.Template(shift)
		sv := ShiftView{
			Shift:     shift,
			Start:     tpl.Start.String(),
			End:       tpl.End.String(),
			Overnight: tpl.Overnight(),
			Days:      []int{},
		}
		for day := time.Sunday; day <= time.Saturday; day++ {
			if snap.Enabled(day, shift) {
				sv.Days = append(sv.Days, int(day))
			}
		}
		view.Shifts = append(view.Shifts, sv)
	}

	offs, err := s.repos.Schedules.ListTimeOff(ctx, doctorID)
	if err != nil {
		return nil, storeErr(err, "time off")
	}
	for i := range offs {
		view.TimeOff = append(view.TimeOff, timeOffView(&offs[i]))
	}
	return view, nil
}

// ListScheduleEvents — последние события расписания врача, новые первыми.
func (s *SchedulingService) ListScheduleEvents(ctx context.Context, clinicID, doctorID uuid.UUID, limit int) ([]ScheduleEventView, error) {
	if limit < 0 || limit > calendar.MaxPageSize {
		return nil, badRequest("limit must be between 0 and %d", calendar.MaxPageSize)
	}
	if _, err := s.loadDoctor(ctx, s.repos, clinicID, doctorID); err != nil {
		return nil, err
	}

	events, err := s.repos.Events.ListByDoctor(ctx, doctorID, limit)
	if err != nil {
		return nil, storeErr(err, "schedule events")
	}
	out := make([]ScheduleEventView, 0, len(events))
	for _, e := range events {
		out = append(out, ScheduleEventView{
			ID:            e.ID,
			Type:          e.EventType,
			AppointmentID: e.AppointmentID,
			Details:       e.Details,
			CreatedAt:     e.CreatedAt.UTC(),
		})
	}
	return out, nil
}
