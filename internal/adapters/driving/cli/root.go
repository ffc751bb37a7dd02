package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
	"github.com/custodia-labs/intel-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/intel-ingest/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Options are the global flags passed to the Builder.
type Options struct {
	ConfigPath string
	Verbose    bool

	// Workers overrides the configured worker count when positive.
	Workers int

	// Progress receives each finished source during a run.
	Progress driving.ProgressFunc
}

// Services are the driving ports the commands use.
type Services struct {
	Pipeline driving.Pipeline
	RunLog   driving.RunLog

	// Sources are the configured sources, enabled or not.
	Sources []domain.SourceConfig

	// ConfigPath is the resolved configuration file location.
	ConfigPath string

	// Close releases the stores. May be nil.
	Close func() error
}

// Builder wires the services for a command invocation.
type Builder func(ctx context.Context, opts Options) (*Services, error)

var (
	builder Builder

	configPath string
	verbose    bool
	workers    int
)

var rootCmd = &cobra.Command{
	Use:   "intel-ingest",
	Short: "Ingest external startup intelligence",
	Long: `intel-ingest pulls startup failure narratives, layoff events, funding
rounds, product launches and hiring indices from external sources,
normalises them and stores them for downstream use.

Run without arguments to execute one ingestion batch. Each source prints
one progress line when it finishes, followed by a run summary.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	RunE: runPipeline,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.intel-ingest/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 0, "sources processed concurrently (overrides config)")
}

// SetBuilder registers the function that wires services.
func SetBuilder(b Builder) {
	builder = b
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// build wires services for cmd. The caller must call closeServices.
func build(cmd *cobra.Command, progress driving.ProgressFunc) (*Services, error) {
	if builder == nil {
		return nil, errors.New("services not configured")
	}
	return builder(cmd.Context(), Options{
		ConfigPath: configPath,
		Verbose:    verbose,
		Workers:    workers,
		Progress:   progress,
	})
}

func closeServices(svc *Services) {
	if svc == nil || svc.Close == nil {
		return
	}
	if err := svc.Close(); err != nil {
		logger.Warn("closing stores: %v", err)
	}
}
