package service

import (
	"reflect"
	"testing"
	"time"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

func TestGetAvailableSlots_SkipsStartedAndBooked(t *testing.T) {
	f, slots := newBookableFixture(t)
	f.book(slots[3].ID)

	// 09:10 in Kolkata
	f.now = time.Date(2024, 3, 11, 3, 40, 0, 0, time.UTC)

	got, err := f.svc.GetAvailableSlots(f.ctx, f.clinic.ID, f.doctor.ID, "2024-03-11")
	if err != nil {
		t.Fatalf("GetAvailableSlots: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 available slots, got %d", len(got))
	}
	if got[0].LocalStart != "09:15" || got[1].LocalStart != "09:30" {
		t.Fatalf("unexpected slots %s, %s", got[0].LocalStart, got[1].LocalStart)
	}
	if got[0].Date != "2024-03-11" || got[0].Label == "" {
		t.Fatalf("slot view incomplete: %+v", got[0])
	}
}

func TestGetSlotsForDate_IncludesAppointment(t *testing.T) {
	f, slots := newBookableFixture(t)
	a := f.book(slots[0].ID)

	got, err := f.svc.GetSlotsForDate(f.ctx, f.clinic.ID, f.doctor.ID, "2024-03-11")
	if err != nil {
		t.Fatalf("GetSlotsForDate: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(got))
	}
	if got[0].Status != model.SlotStatusBooked || got[0].Appointment == nil || got[0].Appointment.ID != a.ID {
		t.Fatalf("first slot must carry its appointment: %+v", got[0])
	}
	if got[0].Appointment.PatientName == "" {
		t.Fatalf("appointment view must include patient name")
	}
	if got[1].Appointment != nil {
		t.Fatalf("available slot must not carry an appointment")
	}
}

func TestGetSlotsForRange_Paging(t *testing.T) {
	f := newFixture(t, "Asia/Kolkata", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	f.configure(morningOn(15, "09:00", "10:00", time.Monday))
	f.generate("2024-03-11", "2024-03-18")

	page, err := f.svc.GetSlotsForRange(f.ctx, f.clinic.ID, f.doctor.ID, "2024-03-11", "2024-03-18", 2, 3)
	if err != nil {
		t.Fatalf("GetSlotsForRange: %v", err)
	}
	if page.Total != 8 || len(page.Items) != 3 || page.Page != 2 || page.PageSize != 3 {
		t.Fatalf("unexpected page %+v", page)
	}
	if !page.HasNext || !page.HasPrev {
		t.Fatalf("middle page must have both neighbours")
	}
	if page.Items[0].LocalStart != "09:45" || page.Items[1].Date != "2024-03-18" {
		t.Fatalf("unexpected ordering %+v", page.Items)
	}

	last, err := f.svc.GetSlotsForRange(f.ctx, f.clinic.ID, f.doctor.ID, "2024-03-11", "2024-03-18", 3, 3)
	if err != nil {
		t.Fatalf("GetSlotsForRange: %v", err)
	}
	if len(last.Items) != 2 || last.HasNext {
		t.Fatalf("unexpected last page %+v", last)
	}
}

func TestGetSlotStats(t *testing.T) {
	f, slots := newBookableFixture(t)
	f.book(slots[0].ID)
	if _, err := f.svc.BlockSlot(f.ctx, f.clinic.ID, f.doctor.ID, slots[1].ID); err != nil {
		t.Fatalf("BlockSlot: %v", err)
	}

	stats, err := f.svc.GetSlotStats(f.ctx, f.clinic.ID, f.doctor.ID, "2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatalf("GetSlotStats: %v", err)
	}
	want := SlotStats{From: "2024-03-01", To: "2024-03-31", Total: 4, Available: 2, Booked: 1, Blocked: 1}
	if *stats != want {
		t.Fatalf("stats = %+v, want %+v", *stats, want)
	}
}

func TestGetSchedule(t *testing.T) {
	f := newFixture(t, "Asia/Kolkata", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	change := morningOn(20, "09:00", "13:00", time.Monday, time.Wednesday)
	change.Templates = append(change.Templates, ShiftTemplateChange{Shift: "AFTERNOON", Start: "20:00", End: "02:00"})
	change.Weekly = append(change.Weekly, WeeklyShiftChange{DayOfWeek: int(time.Friday), Shift: "AFTERNOON", Enabled: true})
	f.configure(change)

	view, err := f.svc.GetSchedule(f.ctx, f.clinic.ID, f.doctor.ID)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if view.Timezone != "Asia/Kolkata" || view.AppointmentDurationMin != 20 || !view.FullyConfigured {
		t.Fatalf("unexpected schedule header %+v", view)
	}
	if view.GenerationRange != nil {
		t.Fatalf("nothing generated yet, got %+v", view.GenerationRange)
	}
	if len(view.Shifts) != 2 {
		t.Fatalf("expected 2 shifts, got %d", len(view.Shifts))
	}

	morning, afternoon := view.Shifts[0], view.Shifts[1]
	if morning.Shift != model.ShiftMorning || !reflect.DeepEqual(morning.Days, []int{1, 3}) || morning.Overnight {
		t.Fatalf("unexpected morning %+v", morning)
	}
	if afternoon.Start != "20:00" || afternoon.End != "02:00" || !afternoon.Overnight || !reflect.DeepEqual(afternoon.Days, []int{5}) {
		t.Fatalf("unexpected afternoon %+v", afternoon)
	}
}
