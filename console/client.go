package console

import (
	"context"
	"fmt"

	"github.com/tracedeck/tracedeck/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Dial connects to a subscriber's Listen endpoint. The transport is plain
// HTTP/2 cleartext (spec.md §6 specifies no transport auth/encryption as a
// Non-goal), so insecure.NewCredentials is always used.
func Dial(ctx context.Context, addr string) (*grpc.ClientConn, error) {
	cc, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return cc, nil
}

// Attach opens a Listen call over an existing connection.
func Attach(ctx context.Context, cc grpc.ClientConnInterface) (wire.ListenClientStream, error) {
	stream, err := wire.Listen(ctx, cc, &wire.ListenRequest{})
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	return stream, nil
}
