package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName: полное имя gRPC-сервиса жизненного цикла заказов.
const ServiceName = "restbucks.v1.OrderLifecycle"

const (
	methodFindOrdersByStatus = "FindOrdersByStatus"
	methodMarkPaid           = "MarkPaid"
	methodMarkInPreparation  = "MarkInPreparation"
	methodMarkPrepared       = "MarkPrepared"
	methodMarkTaken          = "MarkTaken"
	methodGetOrder           = "GetOrder"
)

// OrderLifecycleServer описывает методы gRPC-сервиса.
// Запросы несут одну строку (статус или идентификатор заказа), а ответы
// JSON-подобную структуру заказа.
type OrderLifecycleServer interface {
	FindOrdersByStatus(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	MarkPaid(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	MarkInPreparation(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	MarkPrepared(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	MarkTaken(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetOrder(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

// RegisterOrderLifecycleServer регистрирует реализацию на gRPC-сервере.
func RegisterOrderLifecycleServer(s grpc.ServiceRegistrar, srv OrderLifecycleServer) {
	s.RegisterService(&orderLifecycleServiceDesc, srv)
}

type unaryMethod func(OrderLifecycleServer, context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(wrapperspb.StringValue)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(OrderLifecycleServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(server, ctx, req.(*wrapperspb.StringValue))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var orderLifecycleServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderLifecycleServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(methodFindOrdersByStatus, OrderLifecycleServer.FindOrdersByStatus),
		unaryHandler(methodMarkPaid, OrderLifecycleServer.MarkPaid),
		unaryHandler(methodMarkInPreparation, OrderLifecycleServer.MarkInPreparation),
		unaryHandler(methodMarkPrepared, OrderLifecycleServer.MarkPrepared),
		unaryHandler(methodMarkTaken, OrderLifecycleServer.MarkTaken),
		unaryHandler(methodGetOrder, OrderLifecycleServer.GetOrder),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: descriptorPath,
}

// OrderLifecycleClient: клиент сервиса поверх grpc.ClientConnInterface.
type OrderLifecycleClient struct {
	cc grpc.ClientConnInterface
}

// NewOrderLifecycleClient создаёт клиента.
func NewOrderLifecycleClient(cc grpc.ClientConnInterface) *OrderLifecycleClient {
	return &OrderLifecycleClient{cc: cc}
}

func (c *OrderLifecycleClient) invoke(ctx context.Context, method, arg string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, wrapperspb.String(arg), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderLifecycleClient) FindOrdersByStatus(ctx context.Context, status string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodFindOrdersByStatus, status, opts...)
}

func (c *OrderLifecycleClient) MarkPaid(ctx context.Context, orderID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodMarkPaid, orderID, opts...)
}

func (c *OrderLifecycleClient) MarkInPreparation(ctx context.Context, orderID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodMarkInPreparation, orderID, opts...)
}

func (c *OrderLifecycleClient) MarkPrepared(ctx context.Context, orderID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodMarkPrepared, orderID, opts...)
}

func (c *OrderLifecycleClient) MarkTaken(ctx context.Context, orderID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodMarkTaken, orderID, opts...)
}

func (c *OrderLifecycleClient) GetOrder(ctx context.Context, orderID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetOrder, orderID, opts...)
}
