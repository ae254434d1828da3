package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// The Monitor service speaks protobuf Struct messages, so it needs no
// generated code:
//
//	service Monitor {
//	  rpc Refresh(google.protobuf.Struct) returns (google.protobuf.Struct);    // {department_id?}
//	  rpc GetPrinter(google.protobuf.Struct) returns (google.protobuf.Struct); // {printer_id}
//	  rpc SetLimiter(google.protobuf.Struct) returns (google.protobuf.Struct); // {department_id?, rate, burst}
//	}
const (
	ServiceName = "printwatch.v1.Monitor"

	MethodRefresh    = "/" + ServiceName + "/Refresh"
	MethodGetPrinter = "/" + ServiceName + "/GetPrinter"
	MethodSetLimiter = "/" + ServiceName + "/SetLimiter"
)

type MonitorServiceServer interface {
	Refresh(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPrinter(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetLimiter(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(MonitorServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MonitorServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(MonitorServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var MonitorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MonitorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Refresh", Handler: unaryHandler(MethodRefresh, MonitorServiceServer.Refresh)},
		{MethodName: "GetPrinter", Handler: unaryHandler(MethodGetPrinter, MonitorServiceServer.GetPrinter)},
		{MethodName: "SetLimiter", Handler: unaryHandler(MethodSetLimiter, MonitorServiceServer.SetLimiter)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "printwatch/v1/monitor.proto",
}

func RegisterMonitorServiceServer(s grpc.ServiceRegistrar, srv MonitorServiceServer) {
	s.RegisterService(&MonitorServiceDesc, srv)
}

type MonitorClient struct {
	cc grpc.ClientConnInterface
}

func NewMonitorClient(cc grpc.ClientConnInterface) *MonitorClient {
	return &MonitorClient{cc: cc}
}

func (c *MonitorClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MonitorClient) Refresh(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodRefresh, in, opts...)
}

func (c *MonitorClient) GetPrinter(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetPrinter, in, opts...)
}

func (c *MonitorClient) SetLimiter(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSetLimiter, in, opts...)
}
