package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Leganyst/clinic-scheduling/internal/db"
	"github.com/Leganyst/clinic-scheduling/internal/lock"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
	"github.com/Leganyst/clinic-scheduling/internal/service"
)

type testServer struct {
	t       *testing.T
	gdb     *gorm.DB
	handler http.Handler
	clinic  *model.Clinic
	doctor  *model.Doctor
	patient *model.Patient
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	h, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(h.Close)
	if err := model.AutoMigrate(h.Gorm); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repos := repository.New(h.Gorm)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	svc := service.NewSchedulingService(repos, lock.NewLocalLocker(), zerolog.Nop(),
		service.WithClock(func() time.Time { return now }))

	s := &testServer{t: t, gdb: h.Gorm}
	s.clinic = &model.Clinic{Name: gofakeit.Company(), Timezone: "Asia/Kolkata"}
	if err := repos.Clinics.Create(ctx, s.clinic); err != nil {
		t.Fatalf("seed clinic: %v", err)
	}
	s.doctor = &model.Doctor{
		ClinicID:               s.clinic.ID,
		DisplayName:            gofakeit.Name(),
		AppointmentDurationMin: 15,
		IsActive:               true,
		HasLicense:             true,
	}
	if err := repos.Doctors.Create(ctx, s.doctor); err != nil {
		t.Fatalf("seed doctor: %v", err)
	}
	s.patient = &model.Patient{ClinicID: s.clinic.ID, FullName: gofakeit.Name(), Phone: gofakeit.Phone()}
	if err := repos.Patients.Create(ctx, s.patient); err != nil {
		t.Fatalf("seed patient: %v", err)
	}

	s.handler = NewRouter(RouterConfig{
		Service: svc,
		DB:      h,
		Log:     zerolog.Nop(),
		Env:     "test",
		Version: "test",
	})
	return s
}

func (s *testServer) doctorPath(suffix string) string {
	return "/clinics/" + s.clinic.ID.String() + "/doctors/" + s.doctor.ID.String() + suffix
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body=%s)", err, rec.Body.String())
	}
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/health/live", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("live: status %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("request id header missing")
	}

	rec = s.do(http.MethodGet, "/health/ready", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ready: status %d", rec.Code)
	}
	ready := decode[ReadinessResponse](t, rec)
	if ready.Status != "ok" || ready.Dependencies["database"] != "ok" {
		t.Fatalf("unexpected readiness %+v", ready)
	}
	if _, ok := ready.Dependencies["redis"]; ok {
		t.Fatalf("redis must not be reported when not configured")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-42" {
		t.Fatalf("X-Request-ID = %q, want req-42", got)
	}
}

func TestScheduleLifecycle(t *testing.T) {
	s := newTestServer(t)

	change := UpdateScheduleRequest{ScheduleChange: service.ScheduleChange{
		AppointmentDurationMin: intPtr(15),
		Templates:              []service.ShiftTemplateChange{{Shift: "MORNING", Start: "09:00", End: "10:00"}},
		Weekly:                 []service.WeeklyShiftChange{{DayOfWeek: int(time.Monday), Shift: "MORNING", Enabled: true}},
	}}
	rec := s.do(http.MethodPut, s.doctorPath("/schedule"), change)
	if rec.Code != http.StatusOK {
		t.Fatalf("update schedule: status %d body=%s", rec.Code, rec.Body.String())
	}
	if upd := decode[service.ScheduleUpdateResult](t, rec); !upd.FirstConfiguration {
		t.Fatalf("expected first configuration, got %+v", upd)
	}

	rec = s.do(http.MethodGet, s.doctorPath("/schedule/configured"), nil)
	if cfg := decode[ConfiguredResponse](t, rec); !cfg.FullyConfigured {
		t.Fatalf("schedule must be configured")
	}

	rec = s.do(http.MethodPost, s.doctorPath("/slots/generate"), DateRangeRequest{StartDate: "2024-03-11", EndDate: "2024-03-11"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate: status %d body=%s", rec.Code, rec.Body.String())
	}
	if gen := decode[service.GenerationResult](t, rec); gen.SlotsCreated != 4 {
		t.Fatalf("expected 4 slots, got %+v", gen)
	}

	rec = s.do(http.MethodGet, s.doctorPath("/slots/available?date=2024-03-11"), nil)
	slots := decode[[]service.SlotView](t, rec)
	if len(slots) != 4 {
		t.Fatalf("expected 4 available slots, got %d", len(slots))
	}

	rec = s.do(http.MethodPost, s.doctorPath("/appointments"), service.BookingRequest{PatientID: s.patient.ID, SlotID: &slots[1].ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("book: status %d body=%s", rec.Code, rec.Body.String())
	}
	appt := decode[AppointmentResponse](t, rec)

	rec = s.do(http.MethodPost, s.doctorPath("/appointments"), service.BookingRequest{PatientID: s.patient.ID, SlotID: &slots[1].ID})
	if rec.Code != http.StatusConflict {
		t.Fatalf("double booking: status %d", rec.Code)
	}

	// 30 minute grid orphans the 09:15 booking
	rec = s.do(http.MethodPut, s.doctorPath("/schedule"), UpdateScheduleRequest{
		ScheduleChange: service.ScheduleChange{AppointmentDurationMin: intPtr(30)},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("conflicting update: status %d", rec.Code)
	}
	errResp := decode[ErrorResponse](t, rec)
	if len(errResp.Impacted) != 1 || errResp.Impacted[0].AppointmentID != appt.ID {
		t.Fatalf("conflict must list the appointment, got %+v", errResp)
	}

	rec = s.do(http.MethodPost, s.doctorPath("/appointments/"+appt.ID.String()+"/cancel"), CancelAppointmentRequest{Reason: "patient request"})
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: status %d body=%s", rec.Code, rec.Body.String())
	}
	cancelled := decode[CancelResponse](t, rec)
	if cancelled.Appointment.Status != "CANCELLED" || cancelled.ReleasedSlot == nil || cancelled.ReleasedSlot.Status != "AVAILABLE" {
		t.Fatalf("unexpected cancel response %+v", cancelled)
	}

	rec = s.do(http.MethodGet, s.doctorPath("/slots/stats?from=2024-03-11&to=2024-03-11"), nil)
	if stats := decode[service.SlotStats](t, rec); stats.Available != 4 || stats.Booked != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"bad clinic id", http.MethodGet, "/clinics/nope/doctors/" + s.doctor.ID.String() + "/schedule", nil, http.StatusBadRequest},
		{"unknown doctor", http.MethodGet, "/clinics/" + s.clinic.ID.String() + "/doctors/" + uuid.NewString() + "/schedule", nil, http.StatusNotFound},
		{"reversed range", http.MethodPost, s.doctorPath("/slots/delete-range"), DateRangeRequest{StartDate: "2024-03-12", EndDate: "2024-03-11"}, http.StatusBadRequest},
		{"not configured", http.MethodPost, s.doctorPath("/slots/generate"), DateRangeRequest{StartDate: "2024-03-11", EndDate: "2024-03-11"}, http.StatusBadRequest},
		{"missing date", http.MethodGet, s.doctorPath("/slots?date="), nil, http.StatusBadRequest},
		{"bad page", http.MethodGet, s.doctorPath("/slots/range?from=2024-03-01&to=2024-03-02&page=x"), nil, http.StatusBadRequest},
		{"unknown slot", http.MethodPost, s.doctorPath("/slots/" + uuid.NewString() + "/block"), nil, http.StatusNotFound},
		{"unknown time off", http.MethodDelete, s.doctorPath("/time-off/" + uuid.NewString()), nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(tc.method, tc.path, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (body=%s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodPut, s.doctorPath("/schedule"), bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: status %d", rec.Code)
	}
}

func TestTimeOffRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, s.doctorPath("/time-off"), CreateTimeOffRequest{
		TimeOffInput: service.TimeOffInput{StartDate: "2024-03-11", EndDate: "2024-03-15", Type: "VACATION"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create time off: status %d body=%s", rec.Code, rec.Body.String())
	}
	created := decode[service.TimeOffResult](t, rec)

	rec = s.do(http.MethodGet, s.doctorPath("/time-off"), nil)
	if offs := decode[[]service.TimeOffView](t, rec); len(offs) != 1 || offs[0].ID != created.TimeOff.ID {
		t.Fatalf("unexpected time off list %+v", offs)
	}

	rec = s.do(http.MethodDelete, s.doctorPath("/time-off/"+created.TimeOff.ID.String()), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete time off: status %d", rec.Code)
	}
}

func intPtr(v int) *int { return &v }

func TestGenerate_BatchFailureIsRetryable(t *testing.T) {
	s := newTestServer(t)

	change := UpdateScheduleRequest{ScheduleChange: service.ScheduleChange{
		AppointmentDurationMin: intPtr(15),
		Templates:              []service.ShiftTemplateChange{{Shift: "MORNING", Start: "09:00", End: "10:00"}},
		Weekly:                 []service.WeeklyShiftChange{{DayOfWeek: int(time.Monday), Shift: "MORNING", Enabled: true}},
	}}
	if rec := s.do(http.MethodPut, s.doctorPath("/schedule"), change); rec.Code != http.StatusOK {
		t.Fatalf("update schedule: status %d body=%s", rec.Code, rec.Body.String())
	}

	failing := true
	err := s.gdb.Callback().Create().Before("gorm:create").Register("test:fail_slot_inserts", func(tx *gorm.DB) {
		if failing && tx.Statement.Table == "slots" {
			_ = tx.AddError(errors.New("disk full"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	body := DateRangeRequest{StartDate: "2024-03-11", EndDate: "2024-03-11"}
	rec := s.do(http.MethodPost, s.doctorPath("/slots/generate"), body)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 (body=%s)", rec.Code, rec.Body.String())
	}
	if e := decode[ErrorResponse](t, rec); e.Error != "batch_failed" {
		t.Fatalf("unexpected error body %+v", e)
	}

	failing = false
	rec = s.do(http.MethodPost, s.doctorPath("/slots/generate"), body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("retry: status %d body=%s", rec.Code, rec.Body.String())
	}
	if gen := decode[service.GenerationResult](t, rec); gen.SlotsCreated != 4 {
		t.Fatalf("expected 4 slots on retry, got %+v", gen)
	}
}

func TestScheduleEvents(t *testing.T) {
	s := newTestServer(t)

	change := UpdateScheduleRequest{ScheduleChange: service.ScheduleChange{
		AppointmentDurationMin: intPtr(15),
		Templates:              []service.ShiftTemplateChange{{Shift: "MORNING", Start: "09:00", End: "10:00"}},
		Weekly:                 []service.WeeklyShiftChange{{DayOfWeek: int(time.Monday), Shift: "MORNING", Enabled: true}},
	}}
	s.do(http.MethodPut, s.doctorPath("/schedule"), change)
	s.do(http.MethodPost, s.doctorPath("/slots/generate"), DateRangeRequest{StartDate: "2024-03-11", EndDate: "2024-03-11"})

	rec := s.do(http.MethodGet, s.doctorPath("/schedule/events"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("events: status %d body=%s", rec.Code, rec.Body.String())
	}
	events := decode[[]service.ScheduleEventView](t, rec)
	seen := map[string]bool{}
	for _, e := range events {
		seen[string(e.Type)] = true
	}
	if len(events) != 2 || !seen["schedule_updated"] || !seen["slots_generated"] {
		t.Fatalf("unexpected events %+v", events)
	}

	rec = s.do(http.MethodGet, s.doctorPath("/schedule/events?limit=1"), nil)
	if got := decode[[]service.ScheduleEventView](t, rec); len(got) != 1 {
		t.Fatalf("limit=1 returned %d events", len(got))
	}
	if rec := s.do(http.MethodGet, s.doctorPath("/schedule/events?limit=100000"), nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized limit: status %d", rec.Code)
	}
}
