package api

import (
	"net/http"
	"strconv"

	"github.com/Leganyst/clinic-scheduling/internal/service"
)

func getScheduleHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, doctorID, ok := doctorScope(w, r)
		if !ok {
			return
		}
		view, err := svc.GetSchedule(r.Context(), clinicID, doctorID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func scheduleConfiguredHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, doctorID, ok := doctorScope(w, r)
		if !ok {
			return
		}
		// the schedule view is clinic-scoped, the bare check is not
		view, err := svc.GetSchedule(r.Context(), clinicID, doctorID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ConfiguredResponse{DoctorID: doctorID, FullyConfigured: view.FullyConfigured})
	}
}

func updateScheduleHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, doctorID, ok := doctorScope(w, r)
		if !ok {
			return
		}
		var req UpdateScheduleRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := svc.UpdateSchedule(r.Context(), clinicID, doctorID, req.ScheduleChange, req.Resolution)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func scheduleImpactHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, doctorID, ok := doctorScope(w, r)
		if !ok {
			return
		}
		var change service.ScheduleChange
		if !decodeJSON(w, r, &change) {
			return
		}
		report, err := svc.GetImpactedAppointments(r.Context(), clinicID, doctorID, change)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func scheduleEventsHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, doctorID, ok := doctorScope(w, r)
		if !ok {
			return
		}
		limit, err := intQuery(r.URL.Query().Get("limit"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		events, err := svc.ListScheduleEvents(r.Context(), clinicID, doctorID, limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}

func generateSlotsHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, doctorID, ok := doctorScope(w, r)
		if !ok {
			return
		}
		var req DateRangeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := svc.GenerateSlotsForRange(r.Context(), clinicID, doctorID, req.StartDate, req.EndDate)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func generationRangeHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, doctorID, ok := doctorScope(w, r)
		if !ok {
			return
		}
		view, err := svc.GetSchedule(r.Context(), clinicID, doctorID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, GenerationRangeResponse{DoctorID: doctorID, Range: view.GenerationRange})
	}
}

func regenerateSlotsHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, doctorID, ok := doctorScope(w, r)
		if !ok {
			return
		}
		var req RegenerateRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := svc.RegenerateSlotsAfterScheduleChange(r.Context(), clinicID, doctorID, req.CancelImpacted)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func deleteRangeHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, doctorID, ok := doctorScope(w, r)
		if !ok {
			return
		}
		var req DateRangeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := svc.DeleteSlotsForDateRange(r.Context(), clinicID, doctorID, req.StartDate, req.EndDate)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func forceDeleteRangeHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, doctorID, ok := doctorScope(w, r)
		if !ok {
			return
		}
		var req ForceDeleteRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := svc.ForceDeleteSlotsForDateRange(r.Context(), clinicID, doctorID, req.StartDate, req.EndDate, req.Reason)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func availableSlotsHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, doctorID, ok := doctorScope(w, r)
		if !ok {
			return
		}
		slots, err := svc.GetAvailableSlots(r.Context(), clinicID, doctorID, r.URL.Query().Get("date"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, slots)
	}
}

func slotsForDateHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, doctorID, ok := doctorScope(w, r)
		if !ok {
			return
		}
		slots, err := svc.GetSlotsForDate(r.Context(), clinicID, doctorID, r.URL.Query().Get("date"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, slots)
	}
}

func slotsForRangeHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, doctorID, ok := doctorScope(w, r)
		if !ok {
			return
		}
		q := r.URL.Query()
		page, err := intQuery(q.Get("page"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_page", "page must be an integer")
			return
		}
		pageSize, err := intQuery(q.Get("page_size"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_page_size", "page_size must be an integer")
			return
		}

		res, err := svc.GetSlotsForRange(r.Context(), clinicID, doctorID, q.Get("from"), q.Get("to"), page, pageSize)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func slotStatsHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, doctorID, ok := doctorScope(w, r)
		if !ok {
			return
		}
		q := r.URL.Query()
		stats, err := svc.GetSlotStats(r.Context(), clinicID, doctorID, q.Get("from"), q.Get("to"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func blockSlotHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, doctorID, ok := doctorScope(w, r)
		if !ok {
			return
		}
		slotID, ok := uuidParam(w, r, "slotID")
		if !ok {
			return
		}
		slot, err := svc.BlockSlot(r.Context(), clinicID, doctorID, slotID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

func unblockSlotHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, doctorID, ok := doctorScope(w, r)
		if !ok {
			return
		}
		slotID, ok := uuidParam(w, r, "slotID")
		if !ok {
			return
		}
		slot, err := svc.UnblockSlot(r.Context(), clinicID, doctorID, slotID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

func listTimeOffHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, doctorID, ok := doctorScope(w, r)
		if !ok {
			return
		}
		offs, err := svc.ListTimeOff(r.Context(), clinicID, doctorID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, offs)
	}
}

func createTimeOffHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, doctorID, ok := doctorScope(w, r)
		if !ok {
			return
		}
		var req CreateTimeOffRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := svc.CreateTimeOff(r.Context(), clinicID, doctorID, req.TimeOffInput, req.Force)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func deleteTimeOffHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, doctorID, ok := doctorScope(w, r)
		if !ok {
			return
		}
		timeOffID, ok := uuidParam(w, r, "timeOffID")
		if !ok {
			return
		}
		res, err := svc.DeleteTimeOff(r.Context(), clinicID, doctorID, timeOffID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func bookAppointmentHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, doctorID, ok := doctorScope(w, r)
		if !ok {
			return
		}
		var req service.BookingRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		appt, err := svc.BookAppointment(r.Context(), clinicID, doctorID, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, _, ok := doctorScope(w, r)
		if !ok {
			return
		}
		appointmentID, ok := uuidParam(w, r, "appointmentID")
		if !ok {
			return
		}
		var req CancelAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := svc.CancelAppointment(r.Context(), clinicID, appointmentID, req.Reason)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, CancelResponse{
			Appointment:  toAppointmentResponse(res.Appointment),
			ReleasedSlot: toSlotResponse(res.ReleasedSlot),
		})
	}
}

func rescheduleAppointmentHandler(svc *service.SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, _, ok := doctorScope(w, r)
		if !ok {
			return
		}
		appointmentID, ok := uuidParam(w, r, "appointmentID")
		if !ok {
			return
		}
		var req RescheduleRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		appt, err := svc.RescheduleAppointment(r.Context(), clinicID, appointmentID, req.SlotID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func intQuery(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
