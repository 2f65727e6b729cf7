package service

import (
	"context"
	"sort"
	"time"

	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

type MaterializeResult struct {
	Created int64 `json:"created"`
	Skipped int64 `json:"skipped"`
}

// ExpandSlots разворачивает повторяющееся расписание в AVAILABLE слоты на
// [from, to], не трогая хранилище. Слоты после полуночи сохраняют в Slot.Date
// дату начала смены.
func ExpandSlots(snap *ScheduleSnapshot, from, to calendar.Date) []model.Slot {
	if !snap.CanHaveSlots || !snap.IsFullyConfigured() || to.Before(from) {
		return nil
	}

	dur := snap.DurationMin
	shifts := snap.Shifts()
	seen := make(map[time.Time]struct{})

	var slots []model.Slot
	for d := from; !d.After(to); d = d.AddDays(1) {
		if snap.OnTimeOff(d) {
			continue
		}
		weekday := d.Weekday()
		for _, shift := range shifts {
			if !snap.Enabled(weekday, shift) {
				continue
			}
			tpl, _ := snap.Template(shift)
			start, end := tpl.Bounds()

			for cursor := start; cursor+dur <= end; cursor += dur {
				startsAt := snap.Zone.ToUTCMinutes(d, cursor)
				endsAt := snap.Zone.ToUTCMinutes(d, cursor+dur)
				// переход на летнее время: позиции схлопываются в один момент
				if !endsAt.After(startsAt) {
					continue
				}
				if _, dup := seen[startsAt]; dup {
					continue
				}
				seen[startsAt] = struct{}{}

				slots = append(slots, model.Slot{
					ClinicID:  snap.ClinicID,
					DoctorID:  snap.DoctorID,
					Date:      model.StorageDate(d),
					StartsAt:  startsAt,
					EndsAt:    endsAt,
					ShiftName: shift,
					Status:    model.SlotStatusAvailable,
				})
			}
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].StartsAt.Before(slots[j].StartsAt) })
	return slots
}

// materialize разворачивает и сохраняет слоты на [from, to]. Кандидаты,
// пересекающие BOOKED или BLOCKED слот, и уже существующие начала
// пропускаются. Ненулевой notBefore отбрасывает кандидатов, начинающихся раньше.
func (s *SchedulingService) materialize(
	ctx context.Context,
	repos *repository.Repositories,
	snap *ScheduleSnapshot,
	from, to calendar.Date,
	notBefore time.Time,
) (MaterializeResult, error) {
	candidates := startingFrom(ExpandSlots(snap, from, to), notBefore)
	if len(candidates) == 0 {
		return MaterializeResult{}, nil
	}

	occupied, err := repos.Slots.ListInDates(ctx, snap.DoctorID, from.AddDays(-1), to.AddDays(1),
		model.SlotStatusBooked, model.SlotStatusBlocked)
	if err != nil {
		return MaterializeResult{}, storeErr(err, "occupied slots")
	}

	fresh, overlapping := withoutOverlaps(candidates, occupied)
	created, err := s.persistSlots(ctx, repos, fresh)
	if err != nil {
		return MaterializeResult{Created: created}, err
	}

	return MaterializeResult{
		Created: created,
		Skipped: int64(len(fresh)) - created + int64(overlapping),
	}, nil
}

// startingFrom оставляет слоты, начинающиеся не раньше t; нулевой t оставляет все.
func startingFrom(slots []model.Slot, t time.Time) []model.Slot {
	if t.IsZero() {
		return slots
	}
	out := slots[:0]
	for _, sl := range slots {
		if !sl.StartsAt.Before(t) {
			out = append(out, sl)
		}
	}
	return out
}

// withoutOverlaps отбрасывает кандидатов, пересекающих занятый слот. Оба
// входа отсортированы по началу.
func withoutOverlaps(candidates, occupied []model.Slot) ([]model.Slot, int) {
	if len(occupied) == 0 {
		return candidates, 0
	}

	ranges := make([]calendar.TimeRange, len(occupied))
	for i, o := range occupied {
		ranges[i] = calendar.TimeRange{Start: o.StartsAt, End: o.EndsAt}
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start.Before(ranges[j].Start) })

	out := candidates[:0:0]
	skipped := 0
	for _, c := range candidates {
		tr := calendar.TimeRange{Start: c.StartsAt, End: c.EndsAt}
		// достать кандидата могут только слоты, начавшиеся не раньше чем за сутки
		lo := sort.Search(len(ranges), func(i int) bool {
			return !ranges[i].Start.Before(tr.Start.Add(-24 * time.Hour))
		})
		hi := sort.Search(len(ranges), func(i int) bool {
			return !ranges[i].Start.Before(tr.End)
		})
		if hit, _ := calendar.HasOverlap(tr, ranges[lo:hi], false); hit {
			skipped++
			continue
		}
		out = append(out, c)
	}
	return out, skipped
}

// persistSlots пишет слоты пачками. Каждая пачка идёт в своём savepoint и
// повторяется при ошибке; дубликаты пропускает сама вставка.
func (s *SchedulingService) persistSlots(ctx context.Context, repos *repository.Repositories, slots []model.Slot) (int64, error) {
	var created int64
	for batch, start := 0, 0; start < len(slots); batch, start = batch+1, start+s.batchSize {
		end := start + s.batchSize
		if end > len(slots) {
			end = len(slots)
		}
		chunk := slots[start:end]

		var (
			n   int64
			err error
		)
		for attempt := 0; attempt <= s.batchRetries; attempt++ {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return created, ctxErr
			}
			err = repos.InTx(ctx, func(tx *repository.Repositories) error {
				var insertErr error
				n, insertErr = tx.Slots.InsertIgnoreDuplicates(ctx, chunk)
				return insertErr
			})
			if err == nil {
				break
			}
			s.log.Warn().Err(err).
				Int("batch", batch).
				Int("attempt", attempt+1).
				Int("size", len(chunk)).
				Msg("slot batch insert failed")
		}
		if err != nil {
			return created, &BatchError{Batch: batch, Created: created, Err: err}
		}
		created += n
	}
	return created, nil
}
