package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// historyCommand lists past pack runs from the run-history store (spec
// §6 ADDED "fpgapack history").
func (c *CLI) historyCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past pack runs",
		Long:  `History lists Run records recorded by previous pack invocations, most recent first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := newRunStore()
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer runs.Close()

			records, err := runs.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			if len(records) == 0 {
				printInfo("No runs recorded yet")
				return nil
			}

			if limit > 0 && limit < len(records) {
				records = records[:limit]
			}

			for _, run := range records {
				status := StyleSuccess.Render(run.Outcome)
				if run.Outcome != "ok" {
					status = StyleWarning.Render(run.Outcome)
				}
				fmt.Printf("%s  %s  %s  clusters=%d  duration=%s\n",
					run.ID[:8],
					run.StartedAt.Format("2006-01-02 15:04:05"),
					status,
					run.Stats.ClustersFinalized,
					run.Stats.Duration,
				)
				if run.Error != "" {
					printDetail("error: %s", run.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "show at most N runs (0 for all)")
	return cmd
}
