package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Messages on this boundary are google.protobuf.Struct, so the descriptor is
// written by hand in the shape protoc-gen-go-grpc would emit.
const ServiceName = "clinic.scheduling.v1.SlotService"

const (
	MethodIsScheduleFullyConfigured = "IsScheduleFullyConfigured"
	MethodGetSlotGenerationRange    = "GetSlotGenerationRange"
	MethodBookSlot                  = "BookSlot"
	MethodReleaseSlot               = "ReleaseSlot"
	MethodFindSlotByTime            = "FindSlotByTime"
	MethodGetAvailableSlots         = "GetAvailableSlots"
)

// SlotServiceServer — серверная часть внутреннего API слотов.
type SlotServiceServer interface {
	IsScheduleFullyConfigured(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSlotGenerationRange(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BookSlot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReleaseSlot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FindSlotByTime(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAvailableSlots(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(SlotServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SlotServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SlotServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var SlotServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SlotServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodIsScheduleFullyConfigured, SlotServiceServer.IsScheduleFullyConfigured),
		unaryMethod(MethodGetSlotGenerationRange, SlotServiceServer.GetSlotGenerationRange),
		unaryMethod(MethodBookSlot, SlotServiceServer.BookSlot),
		unaryMethod(MethodReleaseSlot, SlotServiceServer.ReleaseSlot),
		unaryMethod(MethodFindSlotByTime, SlotServiceServer.FindSlotByTime),
		unaryMethod(MethodGetAvailableSlots, SlotServiceServer.GetAvailableSlots),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clinic/scheduling/v1/slot_service.proto",
}

func RegisterSlotServiceServer(s grpc.ServiceRegistrar, srv SlotServiceServer) {
	s.RegisterService(&SlotServiceDesc, srv)
}

// SlotServiceClient calls the service over any client connection.
type SlotServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSlotServiceClient(cc grpc.ClientConnInterface) *SlotServiceClient {
	return &SlotServiceClient{cc: cc}
}

func (c *SlotServiceClient) Call(ctx context.Context, method string, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
