// # cmd/coffeegraph/history.go
package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"coffeegraph/internal/data/history"

	"github.com/spf13/cobra"
)

func newHistoryCmd(root *rootFlags) *cobra.Command {
	var limit int
	var project string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent builds recorded in the history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root.configPath)
			if err != nil {
				return err
			}
			if project == "" {
				project = cfg.History.Project
			}

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.Recent(cmd.Context(), project, limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No builds recorded.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tSTATUS\tFILES\tNODES\tEDGES\tDURATION\tERROR")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
					r.StartedAt.Local().Format(time.DateTime),
					r.Status, r.Files, r.Nodes, r.Edges,
					r.Duration.Round(time.Millisecond), r.Error,
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of builds to show")
	cmd.Flags().StringVar(&project, "project", "", "Project name (default history.project)")
	return cmd
}
