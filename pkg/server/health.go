package server

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/salahayoub/distdash/pkg/logging"
	"github.com/salahayoub/distdash/pkg/nodes"
)

// HealthReporter projects node status onto the standard gRPC health
// service. Each node id is a service; "" is the overall status.
type HealthReporter struct {
	ctrl   Controller
	health *health.Server
	logger *logging.Logger
}

// NewHealthReporter creates a reporter and applies the current node status.
func NewHealthReporter(ctrl Controller, logger *logging.Logger) *HealthReporter {
	if logger == nil {
		logger = logging.Discard()
	}
	h := &HealthReporter{
		ctrl:   ctrl,
		health: health.NewServer(),
		logger: logger,
	}
	h.Update()
	return h
}

// Health returns the underlying health service.
func (h *HealthReporter) Health() healthpb.HealthServer {
	return h.health
}

// Update sets every service from the current node list.
func (h *HealthReporter) Update() {
	list := h.ctrl.State().Nodes
	overall := healthpb.HealthCheckResponse_SERVING
	for _, n := range list {
		status := servingStatus(n.Status)
		if status != healthpb.HealthCheckResponse_SERVING {
			overall = healthpb.HealthCheckResponse_NOT_SERVING
		}
		h.health.SetServingStatus(n.ID, status)
	}
	h.health.SetServingStatus("", overall)
}

// Run applies every dashboard change until ctx is canceled.
func (h *HealthReporter) Run(ctx context.Context) {
	updates, cancel := h.ctrl.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			h.Update()
		}
	}
}

// Serve listens on addr and serves the health service until ctx is canceled.
func (h *HealthReporter) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, h.health)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go h.Run(runCtx)

	go func() {
		<-ctx.Done()
		h.health.Shutdown()
		srv.GracefulStop()
	}()

	h.logger.Infof("Starting gRPC health service on %s", listener.Addr())
	if err := srv.Serve(listener); err != nil {
		return fmt.Errorf("serve grpc: %w", err)
	}
	return nil
}

func servingStatus(s nodes.Status) healthpb.HealthCheckResponse_ServingStatus {
	if s == nodes.StatusOnline {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
