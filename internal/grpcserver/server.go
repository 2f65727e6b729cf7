package grpcserver

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/service"
)

// Server exposes the slot engine to the appointment collaborator.
type Server struct {
	svc *service.SchedulingService
}

func NewServer(svc *service.SchedulingService) *Server {
	return &Server{svc: svc}
}

// New builds a grpc.Server with the slot service, health and reflection.
func New(svc *service.SchedulingService, log zerolog.Logger) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(log)))
	RegisterSlotServiceServer(srv, NewServer(svc))

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	return srv, hs
}

func (s *Server) IsScheduleFullyConfigured(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	doctorID, err := uuidField(in, "doctor_id")
	if err != nil {
		return nil, err
	}
	ok, err := s.svc.IsScheduleFullyConfigured(ctx, doctorID)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"doctor_id": doctorID.String(), "fully_configured": ok})
}

func (s *Server) GetSlotGenerationRange(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	doctorID, err := uuidField(in, "doctor_id")
	if err != nil {
		return nil, err
	}
	rng, err := s.svc.GetSlotGenerationRange(ctx, doctorID)
	if err != nil {
		return nil, toStatus(err)
	}
	out := map[string]any{"doctor_id": doctorID.String(), "generation_range": nil}
	if rng != nil {
		out["generation_range"] = map[string]any{"from": rng.From, "to": rng.To}
	}
	return newStruct(out)
}

func (s *Server) BookSlot(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	slotID, err := uuidField(in, "slot_id")
	if err != nil {
		return nil, err
	}
	appointmentID, err := uuidField(in, "appointment_id")
	if err != nil {
		return nil, err
	}
	if err := s.svc.BookSlot(ctx, slotID, appointmentID); err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"slot_id": slotID.String(), "booked": true})
}

func (s *Server) ReleaseSlot(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	appointmentID, err := uuidField(in, "appointment_id")
	if err != nil {
		return nil, err
	}
	slot, err := s.svc.ReleaseSlot(ctx, appointmentID)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"released": slot != nil, "slot": slotValue(slot)})
}

func (s *Server) FindSlotByTime(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	doctorID, err := uuidField(in, "doctor_id")
	if err != nil {
		return nil, err
	}
	raw := in.GetFields()["starts_at"].GetStringValue()
	startsAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "starts_at must be RFC 3339, got %q", raw)
	}
	slot, err := s.svc.FindSlotByTime(ctx, doctorID, startsAt)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"found": slot != nil, "slot": slotValue(slot)})
}

func (s *Server) GetAvailableSlots(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	clinicID, err := uuidField(in, "clinic_id")
	if err != nil {
		return nil, err
	}
	doctorID, err := uuidField(in, "doctor_id")
	if err != nil {
		return nil, err
	}
	slots, err := s.svc.GetAvailableSlots(ctx, clinicID, doctorID, in.GetFields()["date"].GetStringValue())
	if err != nil {
		return nil, toStatus(err)
	}

	items := make([]any, 0, len(slots))
	for _, v := range slots {
		items = append(items, map[string]any{
			"id":          v.ID.String(),
			"date":        v.Date,
			"starts_at":   v.StartsAt.Format(time.RFC3339),
			"ends_at":     v.EndsAt.Format(time.RFC3339),
			"local_start": v.LocalStart,
			"local_end":   v.LocalEnd,
			"shift":       string(v.ShiftName),
			"label":       v.Label,
		})
	}
	return newStruct(map[string]any{"slots": items})
}

func slotValue(slot *model.Slot) any {
	if slot == nil {
		return nil
	}
	v := map[string]any{
		"id":        slot.ID.String(),
		"doctor_id": slot.DoctorID.String(),
		"date":      model.CalendarDate(slot.Date).String(),
		"starts_at": slot.StartsAt.UTC().Format(time.RFC3339),
		"ends_at":   slot.EndsAt.UTC().Format(time.RFC3339),
		"shift":     string(slot.ShiftName),
		"status":    string(slot.Status),
	}
	if slot.AppointmentID != nil {
		v["appointment_id"] = slot.AppointmentID.String()
	}
	return v
}

func uuidField(in *structpb.Struct, name string) (uuid.UUID, error) {
	raw := in.GetFields()[name].GetStringValue()
	if raw == "" {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "%s must be a valid UUID", name)
	}
	return id, nil
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrBadRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrConflict):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Errorf(codes.Internal, "%v", err)
	}
}

func loggingInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		ev := log.Info()
		if code == codes.Internal || code == codes.Unknown {
			ev = log.Error().Err(err)
		}
		ev.Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("duration", time.Since(start)).
			Msg("grpc request")
		return resp, err
	}
}
