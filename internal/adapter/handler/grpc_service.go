package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const InventoryServiceName = "pantry.v1.InventoryService"

// InventoryServer is the gRPC surface of the synchronizer. Requests and
// responses travel as google.protobuf.Struct.
type InventoryServer interface {
	Refresh(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AddItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RemoveItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(InventoryServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

var InventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: InventoryServiceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Refresh", Handler: unaryHandler("Refresh", InventoryServer.Refresh)},
		{MethodName: "AddItem", Handler: unaryHandler("AddItem", InventoryServer.AddItem)},
		{MethodName: "RemoveItem", Handler: unaryHandler("RemoveItem", InventoryServer.RemoveItem)},
		{MethodName: "DeleteAccount", Handler: unaryHandler("DeleteAccount", InventoryServer.DeleteAccount)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pantry/v1/inventory.proto",
}

func RegisterInventoryServer(s grpc.ServiceRegistrar, srv InventoryServer) {
	s.RegisterService(&InventoryServiceDesc, srv)
}

func unaryHandler(method string, call unaryMethod) grpc.MethodHandler {
	fullMethod := "/" + InventoryServiceName + "/" + method

	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InventoryServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(InventoryServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// InventoryClient calls InventoryService over a client connection.
type InventoryClient struct {
	cc grpc.ClientConnInterface
}

func NewInventoryClient(cc grpc.ClientConnInterface) *InventoryClient {
	return &InventoryClient{cc: cc}
}

func (c *InventoryClient) Refresh(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Refresh", req, opts...)
}

func (c *InventoryClient) AddItem(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "AddItem", req, opts...)
}

func (c *InventoryClient) RemoveItem(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "RemoveItem", req, opts...)
}

func (c *InventoryClient) DeleteAccount(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "DeleteAccount", req, opts...)
}

func (c *InventoryClient) invoke(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+InventoryServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
