// Command hpafem parses hp-AFEM iteration logs and mesh snapshots, stores
// runs in SQLite and prints the derived convergence indicators.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Batmanabcdefg/hp-afem/internal/config"
	"github.com/Batmanabcdefg/hp-afem/internal/fsutil"
	"github.com/Batmanabcdefg/hp-afem/internal/monitoring"
	"github.com/Batmanabcdefg/hp-afem/internal/timeutil"
)

// app carries the state shared by all subcommands.
type app struct {
	// Global flags
	configPath string
	dbPath     string
	verbose    bool

	cfg    *config.AnalysisConfig
	fs     fsutil.FileSystem
	clock  timeutil.Clock
	logger *zap.Logger
}

func newApp() *app {
	return &app{
		cfg:   &config.AnalysisConfig{},
		fs:    fsutil.OSFileSystem{},
		clock: timeutil.RealClock{},
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "hpafem",
		Short: "Inspect hp-AFEM iteration logs and mesh snapshots",
		Long: `hpafem decodes the iteration logs and mesh snapshots written by the
hp-AFEM solver, derives the convergence series, and keeps runs in a
SQLite store for later comparison.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.configPath != "" {
				cfg, err := config.LoadAnalysisConfig(a.configPath)
				if err != nil {
					return err
				}
				a.cfg = cfg
			}
			if a.logger == nil {
				zcfg := zap.NewProductionConfig()
				if a.verbose {
					zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
				}
				logger, err := zcfg.Build()
				if err != nil {
					return fmt.Errorf("failed to initialize logger: %w", err)
				}
				a.logger = logger
			}
			sugar := a.logger.Sugar()
			monitoring.SetLogger(sugar.Infof)
			monitoring.SetDebugLogger(sugar.Debugf)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "analysis config file (.json)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "trace store path (overrides db_path)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newTraceCmd(a),
		newMeshCmd(a),
		newIngestCmd(a),
		newRunsCmd(a),
		newExportCmd(a),
		newDeleteCmd(a),
		newProgressionCmd(a),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
