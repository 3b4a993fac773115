// Package main provides the distdash CLI: the terminal dashboard, the control
// server, the operation history and a demo backend.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/salahayoub/distdash/pkg/backend"
	"github.com/salahayoub/distdash/pkg/config"
	"github.com/salahayoub/distdash/pkg/dashboard"
	"github.com/salahayoub/distdash/pkg/logging"
	"github.com/salahayoub/distdash/pkg/storage"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// cli holds what PersistentPreRunE resolved for the running command.
type cli struct {
	v   *viper.Viper
	cfg *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "distdash",
		Short: "Dashboard for a fragmented and replicated database",
		Long: `distdash drives the fragmentation and replication endpoints of a three-node
distributed database (Quito, Guayaquil, Cuenca) and shows the results.

Settings come from flags, DISTDASH_* environment variables, a .env file and
an optional config file, in that order of precedence.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.load,
	}
	config.SetupFlags(root)

	root.AddCommand(
		newTUICmd(c),
		newServeCmd(c),
		newHistoryCmd(c),
		newDemoBackendCmd(c),
		newVersionCmd(),
	)
	return root
}

// load resolves the configuration once flags are parsed.
func (c *cli) load(cmd *cobra.Command, _ []string) error {
	config.Init(c.v, ".env")
	if err := config.BindFlags(c.v, cmd); err != nil {
		return err
	}
	cfg, err := config.Load(c.v)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	c.cfg = cfg
	return nil
}

// openJournal opens the configured history file, or returns nil when it is
// disabled.
func (c *cli) openJournal(logger *logging.Logger) (*storage.JournalStore, error) {
	if c.cfg.HistoryPath == "" {
		return nil, nil
	}
	j, err := storage.OpenJournal(c.cfg.HistoryPath, time.Now())
	if err != nil {
		return nil, err
	}
	logger.Infof("Opened operation journal at %s (session %d)", j.Path(), j.Session())
	return j, nil
}

// newController builds the dashboard against the configured backend.
func (c *cli) newController(logger *logging.Logger, journal *storage.JournalStore) *dashboard.Controller {
	client := backend.NewHTTPClient(c.cfg.BackendURL, backend.WithTimeout(c.cfg.RequestTimeout))
	opts := []dashboard.Option{
		dashboard.WithLogger(logger.Named("dashboard")),
		dashboard.WithSimulateSync(c.cfg.SimulateSync),
	}
	if journal != nil {
		opts = append(opts, dashboard.WithJournal(journal))
	}
	logger.Infof("Using backend %s", client.BaseURL())
	return dashboard.New(client, opts...)
}

// shutdownStep is one resource released on exit.
type shutdownStep struct {
	name  string
	close func() error
}

// gracefulShutdown releases every step in order and logs each outcome.
// Returns 0 on success, 1 if any step failed.
func gracefulShutdown(logger *logging.Logger, steps ...shutdownStep) int {
	exitCode := 0
	for _, s := range steps {
		logger.Infof("Closing %s...", s.name)
		if err := s.close(); err != nil {
			logger.Errorf("Error closing %s: %v", s.name, err)
			exitCode = 1
			continue
		}
		logger.Infof("%s closed", s.name)
	}
	if exitCode == 0 {
		logger.Infof("Graceful shutdown completed successfully")
	} else {
		logger.Warnf("Graceful shutdown completed with errors")
	}
	return exitCode
}
