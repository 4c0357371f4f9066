package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "clinicsched.v1.SchedulingService"

// SchedulingServiceServer is the server side of clinicsched.v1.SchedulingService. Requests and
// responses travel as google.protobuf.Struct so any gRPC client can call it without generated
// stubs.
type SchedulingServiceServer interface {
	CreateWorker(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListWorkers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CreateLocation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListLocations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

	CreateSchedule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateSchedule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteSchedule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListSchedule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ValidateSchedule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

	CreateAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListAppointments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ValidateAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	NextAppointmentNumber(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(srv SchedulingServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func methodDesc(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SchedulingServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SchedulingServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var SchedulingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SchedulingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc("CreateWorker", SchedulingServiceServer.CreateWorker),
		methodDesc("ListWorkers", SchedulingServiceServer.ListWorkers),
		methodDesc("CreateLocation", SchedulingServiceServer.CreateLocation),
		methodDesc("ListLocations", SchedulingServiceServer.ListLocations),
		methodDesc("CreateSchedule", SchedulingServiceServer.CreateSchedule),
		methodDesc("UpdateSchedule", SchedulingServiceServer.UpdateSchedule),
		methodDesc("DeleteSchedule", SchedulingServiceServer.DeleteSchedule),
		methodDesc("ListSchedule", SchedulingServiceServer.ListSchedule),
		methodDesc("ValidateSchedule", SchedulingServiceServer.ValidateSchedule),
		methodDesc("CreateAppointment", SchedulingServiceServer.CreateAppointment),
		methodDesc("UpdateAppointment", SchedulingServiceServer.UpdateAppointment),
		methodDesc("DeleteAppointment", SchedulingServiceServer.DeleteAppointment),
		methodDesc("ListAppointments", SchedulingServiceServer.ListAppointments),
		methodDesc("ValidateAppointment", SchedulingServiceServer.ValidateAppointment),
		methodDesc("NextAppointmentNumber", SchedulingServiceServer.NextAppointmentNumber),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clinicsched/v1/scheduling.proto",
}

func RegisterSchedulingServiceServer(s grpc.ServiceRegistrar, srv SchedulingServiceServer) {
	s.RegisterService(&SchedulingServiceDesc, srv)
}
