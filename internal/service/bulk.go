package service

import (
	"context"

	"github.com/google/uuid"
)

type BulkRegenerationResult struct {
	Doctors     int   `json:"doctors"`
	Regenerated int   `json:"regenerated"`
	Skipped     int   `json:"skipped"`
	Failed      int   `json:"failed"`
	Created     int64 `json:"created"`
}

// RegenerateAll — перегенерация слотов у всех врачей с записанным окном
// (опционально только одной клиники), по одному врачу за раз. Ошибка врача
// логируется и учитывается, проход идёт дальше, пока жив контекст.
func (s *SchedulingService) RegenerateAll(ctx context.Context, clinicID *uuid.UUID) (*BulkRegenerationResult, error) {
	doctors, err := s.repos.Doctors.ListWithWindow(ctx, clinicID)
	if err != nil {
		return nil, storeErr(err, "doctors")
	}

	res := &BulkRegenerationResult{Doctors: len(doctors)}
	for _, d := range doctors {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		r, err := s.RegenerateSlotsAfterScheduleChange(ctx, d.ClinicID, d.ID, false)
		if err != nil {
			res.Failed++
			s.log.Error().Err(err).
				Str("clinic_id", d.ClinicID.String()).
				Str("doctor_id", d.ID.String()).
				Msg("bulk regeneration failed for doctor")
			continue
		}
		if r.Skipped {
			res.Skipped++
			continue
		}
		res.Regenerated++
		res.Created += r.Created
	}

	s.log.Info().
		Int("doctors", res.Doctors).
		Int("regenerated", res.Regenerated).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("bulk regeneration finished")
	return res, nil
}
