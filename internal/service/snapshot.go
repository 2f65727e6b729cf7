package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

const (
	MinAppointmentDuration = 5
	MaxAppointmentDuration = 8 * 60
)

// ShiftWindow — настенное время шаблона смены. End <= Start — смена через полночь.
type ShiftWindow struct {
	Start calendar.Clock
	End   calendar.Clock
}

// Bounds — границы в минутах от полуночи дня начала.
func (w ShiftWindow) Bounds() (start, end int) {
	start, end = int(w.Start), int(w.End)
	if end <= start {
		end += calendar.MinutesPerDay
	}
	return start, end
}

func (w ShiftWindow) Overnight() bool {
	return w.End <= w.Start
}

type DateRange struct {
	From calendar.Date
	To   calendar.Date
}

func (r DateRange) Contains(d calendar.Date) bool {
	return d.Between(r.From, r.To)
}

// ScheduleSnapshot — повторяющаяся конфигурация врача, читается один раз на
// операцию. Apply возвращает новый снимок, исходный не меняется.
type ScheduleSnapshot struct {
	DoctorID     uuid.UUID
	ClinicID     uuid.UUID
	Zone         calendar.Zone
	DurationMin  int
	CanHaveSlots bool
	ConfiguredAt *time.Time
	Window       *DateRange

	templates map[model.ShiftName]ShiftWindow
	weekly    [7]map[model.ShiftName]bool
	timeOff   []DateRange
}

// loadSnapshot читает сохранённую конфигурацию. Шаблон с нечитаемым временем
// пишется в лог и пропускается, слотов по его смене не будет.
func (s *SchedulingService) loadSnapshot(ctx context.Context, repos *repository.Repositories, doctor *model.Doctor, zone calendar.Zone) (*ScheduleSnapshot, error) {
	templates, err := repos.Schedules.ListTemplates(ctx, doctor.ID)
	if err != nil {
		return nil, storeErr(err, "shift templates")
	}
	weekly, err := repos.Schedules.ListWeekly(ctx, doctor.ID)
	if err != nil {
		return nil, storeErr(err, "weekly shifts")
	}
	offs, err := repos.Schedules.ListTimeOff(ctx, doctor.ID)
	if err != nil {
		return nil, storeErr(err, "time off")
	}

	snap := &ScheduleSnapshot{
		DoctorID:     doctor.ID,
		ClinicID:     doctor.ClinicID,
		Zone:         zone,
		DurationMin:  doctor.AppointmentDurationMin,
		CanHaveSlots: doctor.CanHaveSlots(),
		ConfiguredAt: doctor.ScheduleConfiguredAt,
		templates:    make(map[model.ShiftName]ShiftWindow, len(templates)),
	}
	if from, to, ok := doctor.GenerationWindow(); ok {
		snap.Window = &DateRange{From: from, To: to}
	}

	for _, tpl := range templates {
		start, err := calendar.ParseClock(tpl.StartTime)
		if err == nil {
			var end calendar.Clock
			if end, err = calendar.ParseClock(tpl.EndTime); err == nil {
				snap.templates[tpl.ShiftName] = ShiftWindow{Start: start, End: end}
				continue
			}
		}
		s.log.Error().Err(err).
			Str("doctor_id", doctor.ID.String()).
			Str("shift", string(tpl.ShiftName)).
			Str("start_time", tpl.StartTime).
			Str("end_time", tpl.EndTime).
			Msg("stored shift template is invalid, shift skipped")
	}
	for _, ws := range weekly {
		if ws.DayOfWeek < 0 || ws.DayOfWeek > 6 {
			continue
		}
		if snap.weekly[ws.DayOfWeek] == nil {
			snap.weekly[ws.DayOfWeek] = make(map[model.ShiftName]bool)
		}
		snap.weekly[ws.DayOfWeek][ws.ShiftName] = ws.IsEnabled
	}
	for _, off := range offs {
		snap.timeOff = append(snap.timeOff, DateRange{
			From: model.CalendarDate(off.StartDate),
			To:   model.CalendarDate(off.EndDate),
		})
	}
	return snap, nil
}

// IsFullyConfigured: длительность > 0, есть шаблон и включённая смена на день недели.
func (s *ScheduleSnapshot) IsFullyConfigured() bool {
	if s.DurationMin <= 0 || len(s.templates) == 0 {
		return false
	}
	for _, day := range s.weekly {
		for _, enabled := range day {
			if enabled {
				return true
			}
		}
	}
	return false
}

func (s *ScheduleSnapshot) Template(shift model.ShiftName) (ShiftWindow, bool) {
	w, ok := s.templates[shift]
	return w, ok
}

func (s *ScheduleSnapshot) Enabled(day time.Weekday, shift model.ShiftName) bool {
	return s.weekly[int(day)][shift]
}

// Shifts — смены с шаблоном в порядке KnownShifts.
func (s *ScheduleSnapshot) Shifts() []model.ShiftName {
	out := make([]model.ShiftName, 0, len(s.templates))
	for _, name := range model.KnownShifts {
		if _, ok := s.templates[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (s *ScheduleSnapshot) OnTimeOff(d calendar.Date) bool {
	for _, r := range s.timeOff {
		if r.Contains(d) {
			return true
		}
	}
	return false
}

func (s *ScheduleSnapshot) TimeOff() []DateRange {
	return append([]DateRange(nil), s.timeOff...)
}

// Apply накладывает проверенное изменение на снимок.
func (s *ScheduleSnapshot) Apply(ch *parsedChange) *ScheduleSnapshot {
	next := *s
	next.templates = make(map[model.ShiftName]ShiftWindow, len(s.templates)+len(ch.templates))
	for k, v := range s.templates {
		next.templates[k] = v
	}
	for k, v := range ch.templates {
		next.templates[k] = v
	}

	for day := range s.weekly {
		next.weekly[day] = make(map[model.ShiftName]bool, len(s.weekly[day]))
		for k, v := range s.weekly[day] {
			next.weekly[day][k] = v
		}
	}
	for _, f := range ch.weekly {
		next.weekly[f.day][f.shift] = f.enabled
	}

	if ch.duration != nil {
		next.DurationMin = *ch.duration
	}
	next.timeOff = s.TimeOff()
	return &next
}

// ScheduleChange — частичное изменение повторяющейся конфигурации.
type ScheduleChange struct {
	AppointmentDurationMin *int                  `json:"appointment_duration_min,omitempty"`
	Templates              []ShiftTemplateChange `json:"templates,omitempty"`
	Weekly                 []WeeklyShiftChange   `json:"weekly,omitempty"`
}

type ShiftTemplateChange struct {
	Shift string `json:"shift"`
	Start string `json:"start"` // HH:MM
	End   string `json:"end"`   // HH:MM
}

type WeeklyShiftChange struct {
	DayOfWeek int    `json:"day_of_week"` // 0=Sunday
	Shift     string `json:"shift"`
	Enabled   bool   `json:"enabled"`
}

type weeklyFlag struct {
	day     int
	shift   model.ShiftName
	enabled bool
}

type parsedChange struct {
	duration  *int
	templates map[model.ShiftName]ShiftWindow
	weekly    []weeklyFlag
}

func (p *parsedChange) empty() bool {
	return p.duration == nil && len(p.templates) == 0 && len(p.weekly) == 0
}

func parseScheduleChange(ch ScheduleChange) (*parsedChange, error) {
	out := &parsedChange{templates: make(map[model.ShiftName]ShiftWindow)}

	if ch.AppointmentDurationMin != nil {
		d := *ch.AppointmentDurationMin
		if d < MinAppointmentDuration || d > MaxAppointmentDuration {
			return nil, badRequest("appointment duration must be between %d and %d minutes, got %d",
				MinAppointmentDuration, MaxAppointmentDuration, d)
		}
		out.duration = &d
	}

	for _, t := range ch.Templates {
		name, err := model.ParseShiftName(t.Shift)
		if err != nil {
			return nil, badRequest("%v", err)
		}
		start, err := calendar.ParseClock(t.Start)
		if err != nil {
			return nil, badRequest("%s start: %v", name, err)
		}
		end, err := calendar.ParseClock(t.End)
		if err != nil {
			return nil, badRequest("%s end: %v", name, err)
		}
		out.templates[name] = ShiftWindow{Start: start, End: end}
	}

	for _, w := range ch.Weekly {
		if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
			return nil, badRequest("day_of_week must be in [0,6], got %d", w.DayOfWeek)
		}
		name, err := model.ParseShiftName(w.Shift)
		if err != nil {
			return nil, badRequest("%v", err)
		}
		out.weekly = append(out.weekly, weeklyFlag{day: w.DayOfWeek, shift: name, enabled: w.Enabled})
	}
	return out, nil
}
