package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// CaveServiceName is the fully qualified gRPC service name.
const CaveServiceName = "cave.v1.CaveService"

// Messages are google.protobuf.Struct values so clients in any language can
// use the service without generated stubs.

// CaveServiceServer is the server API for the cave service.
type CaveServiceServer interface {
	ListLevels(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitIntent(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Undo(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reset(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SaveGame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LoadGame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EndSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedCaveServiceServer answers every method with codes.Unimplemented.
type UnimplementedCaveServiceServer struct{}

func (UnimplementedCaveServiceServer) ListLevels(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListLevels not implemented")
}
func (UnimplementedCaveServiceServer) StartSession(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method StartSession not implemented")
}
func (UnimplementedCaveServiceServer) SubmitIntent(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SubmitIntent not implemented")
}
func (UnimplementedCaveServiceServer) Undo(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Undo not implemented")
}
func (UnimplementedCaveServiceServer) Reset(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Reset not implemented")
}
func (UnimplementedCaveServiceServer) GetState(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetState not implemented")
}
func (UnimplementedCaveServiceServer) SaveGame(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SaveGame not implemented")
}
func (UnimplementedCaveServiceServer) LoadGame(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method LoadGame not implemented")
}
func (UnimplementedCaveServiceServer) EndSession(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method EndSession not implemented")
}

// RegisterCaveServiceServer registers srv with s.
func RegisterCaveServiceServer(s grpc.ServiceRegistrar, srv CaveServiceServer) {
	s.RegisterService(&CaveServiceDesc, srv)
}

type caveMethod func(CaveServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler adapts one service method to the grpc.MethodDesc handler
// signature.
func unaryHandler(name string, call caveMethod) grpc.MethodDesc {
	fullMethod := "/" + CaveServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CaveServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CaveServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// CaveServiceDesc describes the cave service for grpc.Server.
var CaveServiceDesc = grpc.ServiceDesc{
	ServiceName: CaveServiceName,
	HandlerType: (*CaveServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("ListLevels", CaveServiceServer.ListLevels),
		unaryHandler("StartSession", CaveServiceServer.StartSession),
		unaryHandler("SubmitIntent", CaveServiceServer.SubmitIntent),
		unaryHandler("Undo", CaveServiceServer.Undo),
		unaryHandler("Reset", CaveServiceServer.Reset),
		unaryHandler("GetState", CaveServiceServer.GetState),
		unaryHandler("SaveGame", CaveServiceServer.SaveGame),
		unaryHandler("LoadGame", CaveServiceServer.LoadGame),
		unaryHandler("EndSession", CaveServiceServer.EndSession),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cave/v1/cave.proto",
}

// CaveServiceClient is the client API for the cave service.
type CaveServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewCaveServiceClient wraps a client connection.
func NewCaveServiceClient(cc grpc.ClientConnInterface) *CaveServiceClient {
	return &CaveServiceClient{cc: cc}
}

func (c *CaveServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+CaveServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CaveServiceClient) ListLevels(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListLevels", in, opts...)
}

func (c *CaveServiceClient) StartSession(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "StartSession", in, opts...)
}

func (c *CaveServiceClient) SubmitIntent(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "SubmitIntent", in, opts...)
}

func (c *CaveServiceClient) Undo(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Undo", in, opts...)
}

func (c *CaveServiceClient) Reset(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Reset", in, opts...)
}

func (c *CaveServiceClient) GetState(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetState", in, opts...)
}

func (c *CaveServiceClient) SaveGame(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "SaveGame", in, opts...)
}

func (c *CaveServiceClient) LoadGame(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "LoadGame", in, opts...)
}

func (c *CaveServiceClient) EndSession(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "EndSession", in, opts...)
}
