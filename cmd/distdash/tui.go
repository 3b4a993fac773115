package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/salahayoub/distdash/pkg/logging"
	"github.com/salahayoub/distdash/pkg/tui"
)

func newTUICmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal dashboard",
		Long: `Run the interactive dashboard. Diagnostics go to the log file while the
dashboard owns the terminal.`,
		Args: cobra.NoArgs,
		RunE: c.runTUI,
	}
}

func (c *cli) runTUI(cmd *cobra.Command, _ []string) error {
	logFile, err := os.OpenFile(c.cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", c.cfg.LogFile, err)
	}
	defer logFile.Close()
	logger := logging.New(logFile, c.cfg.Level())
	logger.Infof("Starting TUI dashboard mode...")

	journal, err := c.openJournal(logger)
	if err != nil {
		return err
	}

	ctrl := c.newController(logger, journal)
	app := tui.NewApp(ctrl)

	// Run blocks until the user quits or a signal arrives.
	runErr := app.Run()
	if runErr != nil {
		logger.Errorf("TUI error: %v", runErr)
	}

	steps := []shutdownStep{{name: "dashboard", close: func() error { ctrl.Close(); return nil }}}
	if journal != nil {
		steps = append(steps, shutdownStep{name: "operation journal", close: journal.Close})
	}
	if code := gracefulShutdown(logger, steps...); code != 0 && runErr == nil {
		runErr = fmt.Errorf("shutdown completed with errors, see %s", c.cfg.LogFile)
	}
	return runErr
}
