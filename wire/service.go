package wire

import (
	"context"

	"google.golang.org/grpc"
)

const (
	serviceName  = "tracedeck.Console"
	methodListen = "Listen"

	// DefaultAddr is the default Listen endpoint, per spec.md §6.
	DefaultAddr = "[::1]:50051"
)

// ListenHandler is implemented by the subscriber-side Listen RPC handler
// (listenServer in subscriber/server.go).
type ListenHandler interface {
	Listen(*ListenRequest, ListenServerStream) error
}

// ListenServerStream is the server-side handle for an in-flight Listen call.
type ListenServerStream interface {
	Send(*ListenResponse) error
	grpc.ServerStream
}

type listenServerStream struct{ grpc.ServerStream }

func (x *listenServerStream) Send(m *ListenResponse) error { return x.ServerStream.SendMsg(m) }

func consoleListenHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(ListenRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(ListenHandler).Listen(req, &listenServerStream{stream})
}

// ServiceDesc is the hand-built descriptor for the single server-streaming
// Listen RPC described in spec.md §6. There is no .proto/protoc step behind
// it — see the package doc comment in value.go.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ListenHandler)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    methodListen,
			Handler:       consoleListenHandler,
			ServerStreams: true,
		},
	},
	Metadata: "tracedeck/wire",
}

// RegisterListenServer registers srv on s as the Console service's Listen
// handler.
func RegisterListenServer(s *grpc.Server, srv ListenHandler) {
	s.RegisterService(&ServiceDesc, srv)
}

// ListenClientStream is the client-side handle for an in-flight Listen call.
type ListenClientStream interface {
	Recv() (*ListenResponse, error)
	grpc.ClientStream
}

type listenClientStream struct{ grpc.ClientStream }

func (x *listenClientStream) Recv() (*ListenResponse, error) {
	m := new(ListenResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Listen opens a Listen call against cc and returns a stream of
// ListenResponse. No replay is performed server-side — the stream only
// carries messages whose ingress occurs after the subscriber's registration
// entry is drained (spec.md §4.2).
func Listen(ctx context.Context, cc grpc.ClientConnInterface, req *ListenRequest) (ListenClientStream, error) {
	stream, err := cc.NewStream(
		ctx,
		&ServiceDesc.Streams[0],
		"/"+serviceName+"/"+methodListen,
		grpc.CallContentSubtype(codecName),
	)
	if err != nil {
		return nil, err
	}
	x := &listenClientStream{stream}
	if err := x.ClientStream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
