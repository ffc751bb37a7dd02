package cli

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs",
	Long: `Lists the append-only pipeline run log, newest first.
Use --limit 0 to list every recorded run.`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "number of runs to show (0 for all)")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, _ []string) error {
	svc, err := build(cmd, nil)
	if err != nil {
		return err
	}
	defer closeServices(svc)
	if svc.RunLog == nil {
		return errors.New("run log not configured")
	}

	runs, err := svc.RunLog.Recent(cmd.Context(), runsLimit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	for _, run := range runs {
		cmd.Printf("%s  %s  %-9s  %4d records  %s\n",
			run.ID, run.StartedAt.Local().Format(time.DateTime), run.Status, run.TotalRecords,
			run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
		if !verbose {
			continue
		}
		keys := make([]string, 0, len(run.Sources))
		for key := range run.Sources {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			cmd.Printf("    %s\n", formatResult(run.Sources[key]))
		}
	}
	return nil
}
