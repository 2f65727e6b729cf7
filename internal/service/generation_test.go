package service

import (
	"errors"
	"testing"
	"time"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

func TestGetSlotGenerationRange(t *testing.T) {
	f := newFixture(t, "Asia/Kolkata", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	rng, err := f.svc.GetSlotGenerationRange(f.ctx, f.doctor.ID)
	if err != nil || rng != nil {
		t.Fatalf("expected no range before generation, got %+v %v", rng, err)
	}

	f.configure(morningOn(15, "09:00", "10:00", time.Monday))
	f.generate("2024-03-11", "2024-03-17")
	f.generate("2024-03-04", "2024-03-05")

	rng, err = f.svc.GetSlotGenerationRange(f.ctx, f.doctor.ID)
	if err != nil {
		t.Fatalf("GetSlotGenerationRange: %v", err)
	}
	if rng == nil || rng.From != "2024-03-04" || rng.To != "2024-03-17" {
		t.Fatalf("expected union 2024-03-04..2024-03-17, got %+v", rng)
	}
}

func TestDeleteSlotsForDateRange_KeepsBooked(t *testing.T) {
	f, slots := newBookableFixture(t)
	a := f.book(slots[2].ID)

	res, err := f.svc.DeleteSlotsForDateRange(f.ctx, f.clinic.ID, f.doctor.ID, "2024-03-11", "2024-03-11")
	if err != nil {
		t.Fatalf("DeleteSlotsForDateRange: %v", err)
	}
	if res.DeletedCount != 3 {
		t.Fatalf("expected 3 deleted, got %d", res.DeletedCount)
	}
	if len(res.BookedAppointments) != 1 {
		t.Fatalf("expected 1 booked slot reported, got %d", len(res.BookedAppointments))
	}
	b := res.BookedAppointments[0]
	if b.SlotID != slots[2].ID || b.AppointmentID == nil || *b.AppointmentID != a.ID {
		t.Fatalf("unexpected booked slot %+v", b)
	}
	if b.PatientID == nil || *b.PatientID != a.PatientID || b.PatientPhone == "" || b.Date != "2024-03-11" {
		t.Fatalf("booked slot must carry patient contact, got %+v", b)
	}
	if n := f.countSlots(); n != 1 {
		t.Fatalf("only the booked slot must remain, got %d", n)
	}
}

func TestForceDeleteSlotsForDateRange_CancelsAndDeletes(t *testing.T) {
	f, slots := newBookableFixture(t)
	a1 := f.book(slots[0].ID)
	a2 := f.book(slots[3].ID)
	if _, err := f.svc.BlockSlot(f.ctx, f.clinic.ID, f.doctor.ID, slots[1].ID); err != nil {
		t.Fatalf("BlockSlot: %v", err)
	}

	res, err := f.svc.ForceDeleteSlotsForDateRange(f.ctx, f.clinic.ID, f.doctor.ID, "2024-03-11", "2024-03-11", "clinic closed")
	if err != nil {
		t.Fatalf("ForceDeleteSlotsForDateRange: %v", err)
	}
	if res.DeletedSlots != 4 {
		t.Fatalf("expected every slot deleted, got %d", res.DeletedSlots)
	}
	if len(res.CancelledAppointments) != 2 {
		t.Fatalf("expected 2 cancelled appointments, got %v", res.CancelledAppointments)
	}
	for _, a := range []*model.Appointment{a1, a2} {
		got := f.appointment(a.ID)
		if got.Status != model.AppointmentStatusCancelled || got.CancelledAt == nil || got.CancelReason != "clinic closed" {
			t.Fatalf("appointment %s not cancelled: %+v", a.ID, got)
		}
	}
	if n := f.countSlots(); n != 0 {
		t.Fatalf("expected no slots left, got %d", n)
	}

	var events int64
	f.gdb.Model(&model.ScheduleEvent{}).Where("event_type = ?", model.EventAppointmentCancelled).Count(&events)
	if events != 2 {
		t.Fatalf("expected 2 cancellation events, got %d", events)
	}
}

func TestDeleteSlotsForDateRange_Validation(t *testing.T) {
	f := newFixture(t, "Asia/Kolkata", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	if _, err := f.svc.DeleteSlotsForDateRange(f.ctx, f.clinic.ID, f.doctor.ID, "2024-03-12", "2024-03-11"); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("reversed range must be rejected, got %v", err)
	}
	if _, err := f.svc.ForceDeleteSlotsForDateRange(f.ctx, f.clinic.ID, f.doctor.ID, "11.03.2024", "2024-03-11", ""); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("bad date must be rejected, got %v", err)
	}
}
