package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

type ConflictReason string

const (
	ReasonTimeOutsideShift ConflictReason = "TIME_OUTSIDE_SHIFT"
	ReasonShiftDisabled    ConflictReason = "SHIFT_DISABLED"
	ReasonDurationMismatch ConflictReason = "DURATION_MISMATCH"
)

// ImpactedAppointment — будущая запись, которую предложенное расписание оставит без слота.
type ImpactedAppointment struct {
	AppointmentID uuid.UUID      `json:"appointment_id"`
	PatientID     uuid.UUID      `json:"patient_id"`
	PatientName   string         `json:"patient_name"`
	PatientPhone  string         `json:"patient_phone"`
	StartsAt      time.Time      `json:"starts_at"`
	EndsAt        time.Time      `json:"ends_at"`
	LocalDate     string         `json:"local_date"`
	LocalTime     string         `json:"local_time"`
	Label         string         `json:"label"`
	Reason        ConflictReason `json:"reason"`
}

type ImpactReport struct {
	ImpactedAppointments []ImpactedAppointment `json:"impacted_appointments"`
	TotalImpacted        int                   `json:"total_impacted"`
	HasConflicts         bool                  `json:"has_conflicts"`
}

func newImpactReport(impacted []ImpactedAppointment) *ImpactReport {
	if impacted == nil {
		impacted = []ImpactedAppointment{}
	}
	return &ImpactReport{
		ImpactedAppointments: impacted,
		TotalImpacted:        len(impacted),
		HasConflicts:         len(impacted) > 0,
	}
}

// shiftHit — одно из попаданий момента в смену: дата начала смены и смещение
// в минутах от полуночи этой даты.
type shiftHit struct {
	shift  model.ShiftName
	origin calendar.Date
	offset int
	start  int
	end    int
}

// onSlotBoundary: с попадания начинается слот длиной dur, и он заканчивается
// внутри смены.
func (h shiftHit) onSlotBoundary(dur int) bool {
	return dur > 0 && (h.offset-h.start)%dur == 0 && h.offset+dur <= h.end
}

// ClassifyAppointment возвращает причину, по которой запись не укладывается
// в snap, или "", если она по-прежнему стоит на границе слота.
func ClassifyAppointment(snap *ScheduleSnapshot, startsAt time.Time) ConflictReason {
	date := snap.Zone.DateOf(startsAt)
	minute := int(snap.Zone.ClockOf(startsAt))

	var hits []shiftHit
	for _, shift := range snap.Shifts() {
		tpl, _ := snap.Template(shift)
		start, end := tpl.Bounds()
		if minute >= start && minute < end {
			hits = append(hits, shiftHit{shift: shift, origin: date, offset: minute, start: start, end: end})
		}
		// хвост вчерашней ночной смены
		if spill := minute + calendar.MinutesPerDay; end > calendar.MinutesPerDay && spill >= start && spill < end {
			hits = append(hits, shiftHit{shift: shift, origin: date.AddDays(-1), offset: spill, start: start, end: end})
		}
	}
	if len(hits) == 0 {
		return ReasonTimeOutsideShift
	}

	enabled := false
	for _, h := range hits {
		if !snap.Enabled(h.origin.Weekday(), h.shift) {
			continue
		}
		enabled = true
		if h.onSlotBoundary(snap.DurationMin) {
			return ""
		}
	}
	if !enabled {
		return ReasonShiftDisabled
	}
	return ReasonDurationMismatch
}

// analyzeConflicts классифицирует записи относительно snap, порядок сохраняется.
func analyzeConflicts(snap *ScheduleSnapshot, appointments []model.Appointment, now time.Time) []ImpactedAppointment {
	var out []ImpactedAppointment
	for _, a := range appointments {
		if a.Status != model.AppointmentStatusBooked || a.StartsAt.Before(now) {
			continue
		}
		reason := ClassifyAppointment(snap, a.StartsAt)
		if reason == "" {
			continue
		}

		ia := ImpactedAppointment{
			AppointmentID: a.ID,
			PatientID:     a.PatientID,
			StartsAt:      a.StartsAt.UTC(),
			EndsAt:        a.EndsAt.UTC(),
			LocalDate:     snap.Zone.DateOf(a.StartsAt).String(),
			LocalTime:     snap.Zone.ClockOf(a.StartsAt).String(),
			Label:         calendar.FormatSlotLabel(calendar.TimeRange{Start: a.StartsAt, End: a.EndsAt}, snap.Zone.Location(), ""),
			Reason:        reason,
		}
		if a.Patient != nil {
			ia.PatientName = a.Patient.FullName
			ia.PatientPhone = a.Patient.Phone
		}
		out = append(out, ia)
	}
	return out
}

// GetImpactedAppointments — предпросмотр записей, которые затронет изменение
// расписания. Ничего не пишет.
func (s *SchedulingService) GetImpactedAppointments(
	ctx context.Context,
	clinicID, doctorID uuid.UUID,
	change ScheduleChange,
) (*ImpactReport, error) {
	parsed, err := parseScheduleChange(change)
	if err != nil {
		return nil, err
	}

	dc, err := s.loadDoctor(ctx, s.repos, clinicID, doctorID)
	if err != nil {
		return nil, err
	}
	impacted, err := s.impactedBy(ctx, s.repos, dc, parsed)
	if err != nil {
		return nil, err
	}
	return newImpactReport(impacted), nil
}

func (s *SchedulingService) impactedBy(
	ctx context.Context,
	repos *repository.Repositories,
	dc *doctorContext,
	change *parsedChange,
) ([]ImpactedAppointment, error) {
	current, err := s.loadSnapshot(ctx, repos, dc.doctor, dc.zone)
	if err != nil {
		return nil, err
	}
	now := s.now()
	appointments, err := repos.Appointments.ListFutureBooked(ctx, dc.doctor.ID, now)
	if err != nil {
		return nil, storeErr(err, "appointments")
	}
	return analyzeConflicts(current.Apply(change), appointments, now), nil
}
