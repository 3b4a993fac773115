package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/salahayoub/distdash/pkg/logging"
	"github.com/salahayoub/distdash/pkg/oplog"
	"github.com/salahayoub/distdash/pkg/storage"
)

var errNoHistory = errors.New("no history file configured; set --history-path or DISTDASH_HISTORY_PATH")

func newHistoryCmd(c *cli) *cobra.Command {
	var (
		limit   int
		oneline bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled operations",
		Long:  `Display the operations recorded by earlier dashboard runs, newest first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.HistoryPath == "" {
				return errNoHistory
			}
			journal, err := c.openJournal(logging.Discard())
			if err != nil {
				return err
			}
			defer journal.Close()

			records, err := journal.Recent(limit)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			printHistory(cmd.OutOrStdout(), records, oneline)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "n", "n", 20, "Limit the number of operations to show (0 shows all)")
	cmd.Flags().BoolVar(&oneline, "oneline", false, "Show each operation on a single line")
	return cmd
}

func printHistory(w io.Writer, records []storage.Record, oneline bool) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No operations recorded yet")
		return
	}

	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	faint := color.New(color.Faint)

	var session int64
	for i, rec := range records {
		if !oneline && (i == 0 || rec.Session != session) {
			if i > 0 {
				fmt.Fprintln(w)
			}
			faint.Fprintf(w, "session %s\n", time.Unix(0, rec.Session).Format("2006-01-02 15:04:05"))
		}
		session = rec.Session

		status := yellow
		if rec.Status == oplog.StatusCompleted {
			status = green
		}

		if oneline {
			yellow.Fprintf(w, "%s ", rec.Timestamp.Format("15:04:05"))
			status.Fprintf(w, "[%s] ", rec.Status)
			fmt.Fprintf(w, "%s: %s\n", rec.Category, rec.Description)
			continue
		}

		yellow.Fprintf(w, "#%d ", rec.ID)
		cyan.Fprintf(w, "%s ", rec.Category)
		status.Fprintf(w, "[%s]\n", rec.Status)
		fmt.Fprintf(w, "Date:   %s\n", rec.Timestamp.Format("Mon Jan 2 15:04:05 2006"))
		if rec.CompletedAt != nil {
			fmt.Fprintf(w, "Done:   %s\n", rec.CompletedAt.Format("15:04:05"))
		}
		fmt.Fprintf(w, "\n    %s\n", rec.Description)
		for _, line := range strings.Split(rec.Detail, "\n") {
			if line != "" {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}
}
