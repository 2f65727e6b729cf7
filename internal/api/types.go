package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/service"
)

type UpdateScheduleRequest struct {
	service.ScheduleChange
	Resolution *service.ConflictResolution `json:"resolution,omitempty"`
}

type DateRangeRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type ForceDeleteRequest struct {
	DateRangeRequest
	Reason string `json:"reason,omitempty"`
}

type RegenerateRequest struct {
	CancelImpacted bool `json:"cancel_impacted"`
}

type CreateTimeOffRequest struct {
	service.TimeOffInput
	Force bool `json:"force"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason,omitempty"`
}

type RescheduleRequest struct {
	SlotID uuid.UUID `json:"slot_id"`
}

type ConfiguredResponse struct {
	DoctorID        uuid.UUID `json:"doctor_id"`
	FullyConfigured bool      `json:"fully_configured"`
}

type GenerationRangeResponse struct {
	DoctorID uuid.UUID                `json:"doctor_id"`
	Range    *service.GenerationRange `json:"generation_range"`
}

type AppointmentResponse struct {
	ID           uuid.UUID  `json:"id"`
	DoctorID     uuid.UUID  `json:"doctor_id"`
	PatientID    uuid.UUID  `json:"patient_id"`
	StartsAt     time.Time  `json:"starts_at"`
	EndsAt       time.Time  `json:"ends_at"`
	Status       string     `json:"status"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty"`
}

type SlotResponse struct {
	ID            uuid.UUID  `json:"id"`
	DoctorID      uuid.UUID  `json:"doctor_id"`
	Date          string     `json:"date"`
	StartsAt      time.Time  `json:"starts_at"`
	EndsAt        time.Time  `json:"ends_at"`
	Shift         string     `json:"shift"`
	Status        string     `json:"status"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
}

type CancelResponse struct {
	Appointment  AppointmentResponse `json:"appointment"`
	ReleasedSlot *SlotResponse       `json:"released_slot,omitempty"`
}

func toAppointmentResponse(a *model.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		DoctorID:     a.DoctorID,
		PatientID:    a.PatientID,
		StartsAt:     a.StartsAt.UTC(),
		EndsAt:       a.EndsAt.UTC(),
		Status:       string(a.Status),
		CancelledAt:  a.CancelledAt,
		CancelReason: a.CancelReason,
	}
}

func toSlotResponse(s *model.Slot) *SlotResponse {
	if s == nil {
		return nil
	}
	return &SlotResponse{
		ID:            s.ID,
		DoctorID:      s.DoctorID,
		Date:          model.CalendarDate(s.Date).String(),
		StartsAt:      s.StartsAt.UTC(),
		EndsAt:        s.EndsAt.UTC(),
		Shift:         string(s.ShiftName),
		Status:        string(s.Status),
		AppointmentID: s.AppointmentID,
	}
}
