package modelclient

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// serviceName is the gRPC service path both client and server register
// against. There is no .proto file behind this — protoc codegen is out of
// reach here, so the wire messages are structpb.Struct (a complete,
// hand-maintained proto.Message shipped by the protobuf module) and the
// service is wired up with a literal grpc.ServiceDesc, the same mechanism
// generated *_grpc.pb.go files produce.
const serviceName = "mondrian.modelclient.ModelService"

// Server is implemented by whatever runs the actual model inference; the
// gRPC plumbing below only needs this one method.
type Server interface {
	Call(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Call",
			Handler:    callHandler,
		},
	},
	Metadata: "pkg/modelclient/service.go",
}

// RegisterServer wires impl onto s using serviceDesc, the hand-rolled
// equivalent of a generated RegisterModelServiceServer function.
func RegisterServer(s *grpc.Server, impl Server) {
	s.RegisterService(&serviceDesc, impl)
}

func callHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Call"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).Call(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
