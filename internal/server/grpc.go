package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	JobsServiceName      = "lantern.v1.Jobs"
	getJobFullMethod     = "/lantern.v1.Jobs/GetJob"
	processJobFullMethod = "/lantern.v1.Jobs/ProcessJob"
)

// JobsServer is the server API for the lantern.v1.Jobs service. Requests carry
// the job id; responses are the JSON shape of the job or extraction result.
type JobsServer interface {
	GetJob(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ProcessJob(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

var jobsServiceDesc = grpc.ServiceDesc{
	ServiceName: JobsServiceName,
	HandlerType: (*JobsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetJob", Handler: getJobHandler},
		{MethodName: "ProcessJob", Handler: processJobHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lantern/v1/jobs.proto",
}

// RegisterJobsServer registers srv on s.
func RegisterJobsServer(s grpc.ServiceRegistrar, srv JobsServer) {
	s.RegisterService(&jobsServiceDesc, srv)
}

func getJobHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JobsServer).GetJob(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getJobFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(JobsServer).GetJob(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func processJobHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JobsServer).ProcessJob(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: processJobFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(JobsServer).ProcessJob(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// JobsClient calls the lantern.v1.Jobs service.
type JobsClient struct {
	cc grpc.ClientConnInterface
}

func NewJobsClient(cc grpc.ClientConnInterface) *JobsClient {
	return &JobsClient{cc: cc}
}

func (c *JobsClient) GetJob(ctx context.Context, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getJobFullMethod, wrapperspb.String(id), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *JobsClient) ProcessJob(ctx context.Context, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, processJobFullMethod, wrapperspb.String(id), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// NewGRPCServer builds a server with the Jobs and health services plus reflection.
// The overall health status starts SERVING; lantern.ocr is left to UpdateOCRHealth.
func NewGRPCServer(jobs JobsServer, logger *slog.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	RegisterJobsServer(grpcServer, jobs)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(OCRHealthService, healthpb.HealthCheckResponse_UNKNOWN)

	// Reflection for grpcurl
	reflection.Register(grpcServer)
	return grpcServer, healthServer
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("rpc",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}
