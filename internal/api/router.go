package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Leganyst/clinic-scheduling/internal/service"
)

type RouterConfig struct {
	Service *service.SchedulingService
	DB      Pinger
	Redis   redis.UniversalClient // nil when locks are in-process
	Log     zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.DB, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	svc := cfg.Service
	r.Route("/clinics/{clinicID}/doctors/{doctorID}", func(r chi.Router) {
		r.Get("/schedule", getScheduleHandler(svc))
		r.Get("/schedule/configured", scheduleConfiguredHandler(svc))
		r.Put("/schedule", updateScheduleHandler(svc))
		r.Post("/schedule/impact", scheduleImpactHandler(svc))
		r.Get("/schedule/events", scheduleEventsHandler(svc))

		r.Post("/slots/generate", generateSlotsHandler(svc))
		r.Get("/slots/generation-range", generationRangeHandler(svc))
		r.Post("/slots/regenerate", regenerateSlotsHandler(svc))
		r.Post("/slots/delete-range", deleteRangeHandler(svc))
		r.Post("/slots/force-delete-range", forceDeleteRangeHandler(svc))
		r.Get("/slots/available", availableSlotsHandler(svc))
		r.Get("/slots", slotsForDateHandler(svc))
		r.Get("/slots/range", slotsForRangeHandler(svc))
		r.Get("/slots/stats", slotStatsHandler(svc))
		r.Post("/slots/{slotID}/block", blockSlotHandler(svc))
		r.Post("/slots/{slotID}/unblock", unblockSlotHandler(svc))

		r.Get("/time-off", listTimeOffHandler(svc))
		r.Post("/time-off", createTimeOffHandler(svc))
		r.Delete("/time-off/{timeOffID}", deleteTimeOffHandler(svc))

		r.Post("/appointments", bookAppointmentHandler(svc))
		r.Post("/appointments/{appointmentID}/cancel", cancelAppointmentHandler(svc))
		r.Post("/appointments/{appointmentID}/reschedule", rescheduleAppointmentHandler(svc))
	})

	return r
}
