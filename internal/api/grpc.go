package api

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger is the dependency the health probe checks.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// GRPCHealth serves grpc.health.v1.Health. The status follows the result
// of the latest ping.
type GRPCHealth struct {
	port     int
	server   *grpc.Server
	health   *health.Server
	pinger   Pinger
	interval time.Duration
	logger   *zerolog.Logger
}

// NewGRPCHealth creates the health server. It reports NOT_SERVING until
// the first successful probe.
func NewGRPCHealth(port int, pinger Pinger, interval time.Duration, logger *zerolog.Logger) *GRPCHealth {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &GRPCHealth{
		port:     port,
		server:   srv,
		health:   hs,
		pinger:   pinger,
		interval: interval,
		logger:   logger,
	}
}

// Probe pings once and updates the serving status.
func (g *GRPCHealth) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := g.pinger.PingContext(ctx); err != nil {
		g.logger.Warn().Err(err).Msg("health probe failed")
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus("", status)
	return status
}

// Run probes every interval until ctx is done.
func (g *GRPCHealth) Run(ctx context.Context) {
	g.Probe(ctx)
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Probe(ctx)
		}
	}
}

// Check answers a health check in-process.
func (g *GRPCHealth) Check(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := g.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Serve listens on the configured port until Stop.
func (g *GRPCHealth) Serve() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", g.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	g.logger.Info().Int("port", g.port).Msg("gRPC health listening")
	return g.server.Serve(lis)
}

// Stop shuts the server down, marking it NOT_SERVING first.
func (g *GRPCHealth) Stop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}
