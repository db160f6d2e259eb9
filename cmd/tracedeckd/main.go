// Command tracedeckd runs a standalone subscriber process: it starts a
// Listen server on -addr and emits a small synthetic span/event workload so
// a console has something to attach to.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tracedeck/tracedeck/subscriber"
	"github.com/tracedeck/tracedeck/wire"
)

func main() {
	addr := flag.String("addr", wire.DefaultAddr, "listen address")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tracedeckd: listen: %v\n", err)
		os.Exit(1)
	}

	sub := subscriber.New(subscriber.WithLogger(logger))

	serveErr := make(chan error, 1)
	go func() { serveErr <- sub.Serve(ln) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runWorkload(ctx, sub.Layer)

	logger.Info("tracedeckd listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
		logger.Info("tracedeckd: received signal, shutting down")
	case err := <-serveErr:
		logger.Error("tracedeckd: serve error", "err", err)
		os.Exit(1)
	}

	sub.GracefulStop()
}

// runWorkload emits a small repeating span tree so an attached console has
// a continuous stream to observe.
func runWorkload(ctx context.Context, layer *subscriber.Layer) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			spanCtx, span := layer.StartSpan(ctx, "handle_request", []wire.Value{
				wire.StringValue("route", "/demo"),
			}, subscriber.AsRoot())
			layer.Event(spanCtx, "request_started")
			span.Record(wire.Int64Value("status", 200))
			layer.Event(spanCtx, "request_completed")
			span.End()
		}
	}
}
