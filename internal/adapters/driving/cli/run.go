package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driving"
)

// isTerminal reports whether w is an interactive terminal.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	svc, err := build(cmd, func(res domain.SourceResult) {
		if isTerminal(out) {
			// Clear the live status line.
			fmt.Fprint(out, "\r\033[K")
		}
		fmt.Fprintln(out, formatResult(res))
	})
	if err != nil {
		return err
	}
	defer closeServices(svc)

	done := make(chan struct{})
	if isTerminal(out) {
		go watchProgress(out, svc.Pipeline, enabledKeys(svc.Sources), done)
	}

	run, err := svc.Pipeline.Run(cmd.Context())
	close(done)
	if run != nil {
		printSummary(cmd, run)
	}
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}
	return nil
}

// watchProgress redraws a one-line status until done is closed.
func watchProgress(out io.Writer, pipeline driving.Pipeline, keys []string, done <-chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			finished := 0
			var active []string
			for _, key := range keys {
				res, ok := pipeline.Status(key)
				if !ok {
					continue
				}
				if terminal(res.State) {
					finished++
				} else if res.State != domain.StateIdle {
					active = append(active, fmt.Sprintf("%s (%s)", key, res.State))
				}
			}
			fmt.Fprintf(out, "\r\033[KRunning... %d/%d sources finished %s", finished, len(keys), strings.Join(active, ", "))
		}
	}
}

func terminal(state domain.SourceState) bool {
	switch state {
	case domain.StateStored, domain.StateSkipped, domain.StateCancelled,
		domain.StateFetchFailed, domain.StateParseFailed:
		return true
	default:
		return false
	}
}

func enabledKeys(sources []domain.SourceConfig) []string {
	keys := make([]string, 0, len(sources))
	for _, src := range sources {
		if src.Enabled {
			keys = append(keys, src.Key)
		}
	}
	return keys
}

// formatResult renders a finished source as one progress line.
func formatResult(res domain.SourceResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-13s", res.SourceKey, res.State)
	switch res.State {
	case domain.StateSkipped, domain.StateCancelled:
	default:
		fmt.Fprintf(&b, " parsed=%d inserted=%d updated=%d dropped=%d duplicates=%d",
			res.Parsed, res.Inserted, res.Updated, res.Dropped, res.Duplicates)
	}

	var notes []string
	if res.CacheHit {
		notes = append(notes, "cache")
	}
	if res.UsedStale {
		notes = append(notes, "stale")
	}
	if res.UsedCurated {
		notes = append(notes, "curated")
	}
	if len(notes) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(notes, ","))
	}
	if res.Error != "" {
		fmt.Fprintf(&b, " error(%s): %s", res.ErrorClass, res.Error)
	}
	return b.String()
}

func printSummary(cmd *cobra.Command, run *domain.PipelineRun) {
	stored, skipped, failed := 0, 0, len(run.Failed())
	for _, res := range run.Sources {
		switch res.State {
		case domain.StateStored:
			stored++
		case domain.StateSkipped:
			skipped++
		}
	}
	cmd.Printf("\nRun %s %s in %s\n", run.ID, run.Status, run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	cmd.Printf("Sources: %d stored, %d skipped, %d with errors\n", stored, skipped, failed)
	cmd.Printf("Records stored: %d\n", run.TotalRecords)
}
