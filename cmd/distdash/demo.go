package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/salahayoub/distdash/pkg/logging"
	"github.com/salahayoub/distdash/pkg/simbackend"
)

func newDemoBackendCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "demo-backend",
		Short: "Run a local stand-in for the distributed database API",
		Long: `Run an in-memory backend with one sqlite database per node. It serves the
same endpoints as the real API under /api/v1, so the dashboard can run with
--backend-url http://localhost:8000/api/v1.`,
		Args: cobra.NoArgs,
		RunE: c.runDemoBackend,
	}
}

func (c *cli) runDemoBackend(cmd *cobra.Command, _ []string) error {
	logger := logging.New(os.Stderr, c.cfg.Level()).Named("demo")

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	store, err := simbackend.Open(ctx, time.Now)
	if err != nil {
		return fmt.Errorf("open demo databases: %w", err)
	}
	logger.Infof("Seeded Quito, Guayaquil and Cuenca databases")

	srv := simbackend.NewServer(store,
		simbackend.WithLogger(logger),
		simbackend.WithDelay(c.cfg.ReplicationDelay),
	)
	runErr := srv.ListenAndServe(ctx, c.cfg.DemoAddr)

	if code := gracefulShutdown(logger, shutdownStep{name: "demo databases", close: store.Close}); code != 0 && runErr == nil {
		runErr = fmt.Errorf("shutdown completed with errors")
	}
	return runErr
}
