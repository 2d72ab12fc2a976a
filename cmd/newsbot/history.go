package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"newsbot/internal/audit"
)

func historyCmd() *cobra.Command {
	var (
		limit int
		since time.Duration
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent pipeline runs from the run journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cfg.Audit.Enabled {
				return fmt.Errorf("run journal disabled; set audit.enabled or AUDIT_DB_PATH")
			}

			j, err := audit.Open(cfg.Audit.DBPath, logger)
			if err != nil {
				return err
			}
			defer j.Close()

			ctx := context.Background()
			runs, err := j.Recent(ctx, limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FINISHED\tPLATFORM\tWORKSPACE\tCHANNEL\tMESSAGE\tCODE\tURLS\tSUMMARIES\tSTATUS")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					r.FinishedAt.Format(time.DateTime),
					r.Key.Platform, r.Key.Workspace, r.Channel, r.Key.MessageID,
					r.Code, r.URLs, r.Summaries, r.Status,
				)
			}
			tw.Flush()

			if since > 0 {
				counts, err := j.CountByStatus(ctx, time.Now().Add(-since))
				if err != nil {
					return err
				}
				statuses := make([]string, 0, len(counts))
				for s := range counts {
					statuses = append(statuses, s)
				}
				sort.Strings(statuses)
				fmt.Printf("\nOutcomes in the last %s:\n", since)
				for _, s := range statuses {
					fmt.Printf("  %-32s %d\n", s, counts[s])
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().DurationVar(&since, "since", 0, "also aggregate outcomes over this window (e.g. 24h)")
	return cmd
}
