package grpcexecutor

import (
	"context"

	"github.com/DuHerb/code-squad/cmd/code-squad/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const executeMethod = "/codesquad.Executor/Execute"

// ExecutorServer is the server API for the codesquad.Executor service
type ExecutorServer interface {
	Execute(context.Context, *model.Request) (*model.Response, error)
}

// ExecutorClient is the client API for the codesquad.Executor service
type ExecutorClient interface {
	Execute(ctx context.Context, in *model.Request, opts ...grpc.CallOption) (*model.Response, error)
}

type executorClient struct {
	cc grpc.ClientConnInterface
}

// NewExecutorClient creates client over the connection, messages are JSON encoded
func NewExecutorClient(cc grpc.ClientConnInterface) ExecutorClient {
	return &executorClient{cc}
}

func (c *executorClient) Execute(ctx context.Context, in *model.Request, opts ...grpc.CallOption) (*model.Response, error) {
	out := new(model.Response)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, executeMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// UnimplementedExecutorServer can be embedded to have forward compatible implementations
type UnimplementedExecutorServer struct{}

func (UnimplementedExecutorServer) Execute(context.Context, *model.Request) (*model.Response, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Execute not implemented")
}

// RegisterExecutorServer registers the executor service on s
func RegisterExecutorServer(s grpc.ServiceRegistrar, srv ExecutorServer) {
	s.RegisterService(&ExecutorServiceDesc, srv)
}

func executeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(model.Request)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExecutorServer).Execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: executeMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExecutorServer).Execute(ctx, req.(*model.Request))
	}
	return interceptor(ctx, in, info, handler)
}

// ExecutorServiceDesc is the grpc.ServiceDesc for the codesquad.Executor service
var ExecutorServiceDesc = grpc.ServiceDesc{
	ServiceName: "codesquad.Executor",
	HandlerType: (*ExecutorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Execute",
			Handler:    executeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "codesquad",
}
