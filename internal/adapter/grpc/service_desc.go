package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "investdash.v1.PortfolioService"

// PortfolioServiceServer is the server API for the portfolio service.
// Every method exchanges google.protobuf.Struct messages.
type PortfolioServiceServer interface {
	ListPositions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PortfolioOverview(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EarningsTimeseries(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Sell(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateTransaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTransaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTransactions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateTransaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteTransaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(PortfolioServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler adapts a server method to grpc.MethodDesc, running the interceptor chain
func unaryHandler(name string, method unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return method(srv.(PortfolioServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return method(srv.(PortfolioServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// PortfolioServiceDesc describes the portfolio service for grpc.Server registration
var PortfolioServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PortfolioServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("ListPositions", PortfolioServiceServer.ListPositions),
		unaryHandler("PortfolioOverview", PortfolioServiceServer.PortfolioOverview),
		unaryHandler("EarningsTimeseries", PortfolioServiceServer.EarningsTimeseries),
		unaryHandler("Sell", PortfolioServiceServer.Sell),
		unaryHandler("CreateTransaction", PortfolioServiceServer.CreateTransaction),
		unaryHandler("GetTransaction", PortfolioServiceServer.GetTransaction),
		unaryHandler("ListTransactions", PortfolioServiceServer.ListTransactions),
		unaryHandler("UpdateTransaction", PortfolioServiceServer.UpdateTransaction),
		unaryHandler("DeleteTransaction", PortfolioServiceServer.DeleteTransaction),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "investdash/v1/portfolio.proto",
}

// RegisterPortfolioServiceServer registers srv on s
func RegisterPortfolioServiceServer(s grpc.ServiceRegistrar, srv PortfolioServiceServer) {
	s.RegisterService(&PortfolioServiceDesc, srv)
}
