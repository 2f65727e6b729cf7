package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/lock"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

const (
	defaultBatchSize    = 500
	defaultBatchRetries = 3

	// Предел одного явного запроса генерации.
	MaxGenerationDays = 366
)

// SchedulingService — движок генерации слотов и согласованности расписания.
type SchedulingService struct {
	repos  *repository.Repositories
	locker lock.Locker
	log    zerolog.Logger

	now          func() time.Time
	batchSize    int
	batchRetries int
}

type Option func(*SchedulingService)

func WithClock(now func() time.Time) Option {
	return func(s *SchedulingService) { s.now = now }
}

func WithBatching(size, retries int) Option {
	return func(s *SchedulingService) {
		if size > 0 {
			s.batchSize = size
		}
		if retries >= 0 {
			s.batchRetries = retries
		}
	}
}

func NewSchedulingService(
	repos *repository.Repositories,
	locker lock.Locker,
	log zerolog.Logger,
	opts ...Option,
) *SchedulingService {
	s := &SchedulingService{
		repos:        repos,
		locker:       locker,
		log:          log.With().Str("component", "scheduling").Logger(),
		now:          time.Now,
		batchSize:    defaultBatchSize,
		batchRetries: defaultBatchRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		s.locker = lock.NewLocalLocker()
	}
	return s
}

// doctorContext — то, с чего начинается каждая операция: врач в рамках
// клиники и часовой пояс клиники.
type doctorContext struct {
	doctor *model.Doctor
	zone   calendar.Zone
}

func (s *SchedulingService) loadDoctor(ctx context.Context, repos *repository.Repositories, clinicID, doctorID uuid.UUID) (*doctorContext, error) {
	doctor, err := repos.Doctors.GetInClinic(ctx, clinicID, doctorID)
	if err != nil {
		return nil, storeErr(err, "doctor")
	}
	return withZone(doctor)
}

func withZone(doctor *model.Doctor) (*doctorContext, error) {
	if doctor.Clinic == nil {
		return nil, notFound("clinic")
	}
	zone, err := calendar.LoadZone(doctor.Clinic.Timezone)
	if err != nil {
		return nil, fmt.Errorf("clinic %s: %w", doctor.ClinicID, err)
	}
	return &doctorContext{doctor: doctor, zone: zone}, nil
}

func (s *SchedulingService) today(zone calendar.Zone) calendar.Date {
	return zone.Today(s.now())
}

func parseDateRange(startDate, endDate string) (DateRange, error) {
	from, err := calendar.ParseDate(startDate)
	if err != nil {
		return DateRange{}, badRequest("start date: %v", err)
	}
	to, err := calendar.ParseDate(endDate)
	if err != nil {
		return DateRange{}, badRequest("end date: %v", err)
	}
	if to.Before(from) {
		return DateRange{}, badRequest("start date %s is after end date %s", from, to)
	}
	return DateRange{From: from, To: to}, nil
}

func parseDate(field, value string) (calendar.Date, error) {
	d, err := calendar.ParseDate(value)
	if err != nil {
		return calendar.Date{}, badRequest("%s: %v", field, err)
	}
	return d, nil
}
