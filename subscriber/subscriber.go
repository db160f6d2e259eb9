package subscriber

import (
	"log/slog"
	"net"
	"os"

	"github.com/tracedeck/tracedeck/wire"
	"google.golang.org/grpc"
)

// Subscriber wires a Registry, an Aggregator, and a Layer to a gRPC server
// exposing the Listen RPC. It is the embeddable half of tracedeck —
// application code calls Layer methods; zero or more console processes
// attach over Listen.
type Subscriber struct {
	Registry   *Registry
	Aggregator *Aggregator
	Layer      *Layer

	logger     *slog.Logger
	grpcServer *grpc.Server
}

// Option configures a Subscriber at construction time.
type Option func(*config)

type config struct {
	logger     *slog.Logger
	serverOpts []grpc.ServerOption
}

// WithLogger overrides the default stderr text logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithServerOptions passes additional grpc.ServerOption values through to
// the underlying grpc.NewServer call.
func WithServerOptions(opts ...grpc.ServerOption) Option {
	return func(c *config) { c.serverOpts = append(c.serverOpts, opts...) }
}

// New constructs a Subscriber ready to Serve.
func New(opts ...Option) *Subscriber {
	cfg := config{logger: slog.New(slog.NewTextHandler(os.Stderr, nil))}
	for _, o := range opts {
		o(&cfg)
	}

	reg := NewRegistry()
	agg := NewAggregator(cfg.logger)
	layer := NewLayer(reg, agg)

	gs := grpc.NewServer(cfg.serverOpts...)
	wire.RegisterListenServer(gs, &listenServer{aggregator: agg, logger: cfg.logger})

	return &Subscriber{
		Registry:   reg,
		Aggregator: agg,
		Layer:      layer,
		logger:     cfg.logger,
		grpcServer: gs,
	}
}

// Serve blocks, accepting Listen connections on ln until the server stops.
func (s *Subscriber) Serve(ln net.Listener) error {
	return s.grpcServer.Serve(ln)
}

// GracefulStop stops accepting new connections and waits for in-flight
// Listen streams to drain.
func (s *Subscriber) GracefulStop() {
	s.grpcServer.GracefulStop()
	s.Aggregator.Close()
}

// Stop immediately terminates the server and all in-flight streams.
func (s *Subscriber) Stop() {
	s.grpcServer.Stop()
	s.Aggregator.Close()
}
