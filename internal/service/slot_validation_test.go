package service

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/clinic-scheduling/internal/model"
)

var validationNow = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

func TestValidateSlotForBooking_OK(t *testing.T) {
	doctorID := uuid.New()

	slot := &model.Slot{
		DoctorID: doctorID,
		StartsAt: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC),
		Status:   model.SlotStatusAvailable,
	}

	ok, reason := validateSlotForBooking(slot, doctorID, validationNow)
	if !ok {
		t.Fatalf("expected valid, got reason=%q", reason)
	}
	if reason != "" {
		t.Fatalf("expected empty reason, got %q", reason)
	}
}

func TestValidateSlotForBooking_InvalidRange(t *testing.T) {
	slot := &model.Slot{
		DoctorID: uuid.New(),
		StartsAt: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		Status:   model.SlotStatusAvailable,
	}

	ok, reason := validateSlotForBooking(slot, uuid.Nil, validationNow)
	if ok {
		t.Fatalf("expected invalid")
	}
	if reason != "invalid slot time range" {
		t.Fatalf("expected reason %q, got %q", "invalid slot time range", reason)
	}
}

func TestValidateSlotForBooking_NotAvailable(t *testing.T) {
	for _, status := range []model.SlotStatus{model.SlotStatusBooked, model.SlotStatusBlocked} {
		slot := &model.Slot{
			DoctorID: uuid.New(),
			StartsAt: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
			EndsAt:   time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC),
			Status:   status,
		}

		ok, reason := validateSlotForBooking(slot, uuid.Nil, validationNow)
		if ok {
			t.Fatalf("expected invalid for %s", status)
		}
		if reason != "slot is not available" {
			t.Fatalf("expected reason %q, got %q", "slot is not available", reason)
		}
	}
}

func TestValidateSlotForBooking_DoctorMismatch(t *testing.T) {
	slot := &model.Slot{
		DoctorID: uuid.New(),
		StartsAt: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC),
		Status:   model.SlotStatusAvailable,
	}

	ok, reason := validateSlotForBooking(slot, uuid.New(), validationNow)
	if ok {
		t.Fatalf("expected invalid")
	}
	if reason != "slot doctor mismatch" {
		t.Fatalf("expected reason %q, got %q", "slot doctor mismatch", reason)
	}
}

func TestValidateSlotForBooking_InThePast(t *testing.T) {
	slot := &model.Slot{
		DoctorID: uuid.New(),
		StartsAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC),
		Status:   model.SlotStatusAvailable,
	}

	ok, reason := validateSlotForBooking(slot, uuid.Nil, validationNow)
	if ok {
		t.Fatalf("expected invalid")
	}
	if reason != "slot is in the past" {
		t.Fatalf("expected reason %q, got %q", "slot is in the past", reason)
	}
}

func TestValidateSlotForBooking_Nil(t *testing.T) {
	if ok, reason := validateSlotForBooking(nil, uuid.Nil, validationNow); ok || reason != "slot is missing" {
		t.Fatalf("expected missing slot to be invalid, got %v %q", ok, reason)
	}
}
