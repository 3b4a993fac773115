package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/salahayoub/distdash/pkg/logging"
	"github.com/salahayoub/distdash/pkg/server"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP and WebSocket",
		Long: `Serve the dashboard state and actions over a JSON API, push state snapshots
over WebSocket at /ws and, when --grpc-addr is set, report node status through
the standard gRPC health service.`,
		Args: cobra.NoArgs,
		RunE: c.runServe,
	}
}

func (c *cli) runServe(cmd *cobra.Command, _ []string) error {
	logger := logging.New(os.Stderr, c.cfg.Level())

	journal, err := c.openJournal(logger)
	if err != nil {
		return err
	}
	ctrl := c.newController(logger, journal)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	errCh := make(chan error, 2)
	pending := 1
	go func() {
		errCh <- server.New(ctrl, logger.Named("http")).ListenAndServe(ctx, c.cfg.HTTPAddr)
	}()
	if c.cfg.GRPCAddr != "" {
		pending++
		health := server.NewHealthReporter(ctrl, logger.Named("grpc"))
		go func() {
			errCh <- health.Serve(ctx, c.cfg.GRPCAddr)
		}()
	}

	// The first failure stops the other listener too.
	var runErr error
	for ; pending > 0; pending-- {
		if err := <-errCh; err != nil && runErr == nil {
			runErr = err
			stop()
		}
	}
	logger.Infof("Listeners stopped, releasing resources...")

	steps := []shutdownStep{{name: "dashboard", close: func() error { ctrl.Close(); return nil }}}
	if journal != nil {
		steps = append(steps, shutdownStep{name: "operation journal", close: journal.Close})
	}
	if code := gracefulShutdown(logger, steps...); code != 0 && runErr == nil {
		runErr = fmt.Errorf("shutdown completed with errors")
	}
	return runErr
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
