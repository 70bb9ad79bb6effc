package main

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Batmanabcdefg/hp-afem/internal/analysis"
	"github.com/Batmanabcdefg/hp-afem/internal/basis"
	"github.com/Batmanabcdefg/hp-afem/internal/db"
	"github.com/Batmanabcdefg/hp-afem/internal/loader"
	"github.com/Batmanabcdefg/hp-afem/internal/monitoring"
	"github.com/Batmanabcdefg/hp-afem/internal/refsol"
	"github.com/Batmanabcdefg/hp-afem/internal/security"
	"github.com/Batmanabcdefg/hp-afem/internal/trace"
	"github.com/Batmanabcdefg/hp-afem/internal/version"
)

func (a *app) loadOptions() loader.Options {
	return loader.Options{Trace: a.cfg.TraceOptions(), Workers: a.cfg.GetWorkers()}
}

func (a *app) loadTraces(ctx context.Context, args []string) ([]loader.Loaded, error) {
	paths, err := loader.ExpandPaths(a.fs, args)
	if err != nil {
		return nil, err
	}
	return loader.LoadTraces(ctx, a.fs, paths, a.loadOptions())
}

func (a *app) openDB() (*db.DB, error) {
	path := a.dbPath
	if path == "" {
		path = a.cfg.GetDBPath()
	}
	store, err := db.NewDB(path)
	if err != nil {
		return nil, err
	}
	store.SetClock(a.clock)
	return store, nil
}

func newTraceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "trace <log>...",
		Short: "Summarize iteration logs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := a.loadTraces(cmd.Context(), args)
			if err != nil {
				return err
			}
			reports := make([]traceReport, 0, len(loaded))
			for _, l := range loaded {
				reports = append(reports, newTraceReport(l.Path, l.Trace))
			}
			return writeJSON(cmd.OutOrStdout(), reports)
		},
	}
}

type meshReport struct {
	Path        string    `json:"path"`
	Settings    string    `json:"settings"`
	Vertices    int       `json:"vertices"`
	Triangles   int       `json:"triangles"`
	MinDegree   int       `json:"min_degree"`
	MaxDegree   int       `json:"max_degree"`
	TotalDim    int       `json:"total_dim"`
	ErrorRatio  *float64  `json:"error_ratio"`
	Reference   string    `json:"reference_solution,omitempty"`
	VertexError *float64  `json:"max_vertex_error,omitempty"`
	PointErrors []float64 `json:"point_errors,omitempty"`
}

func newMeshCmd(a *app) *cobra.Command {
	var (
		eval       bool
		resolution int
	)
	cmd := &cobra.Command{
		Use:   "mesh <snapshot>",
		Short: "Describe a mesh snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loader.LoadSnapshot(a.fs, args[0])
			if err != nil {
				return err
			}
			lo, hi := s.DegreeRange()
			r := meshReport{
				Path:       args[0],
				Settings:   s.Caps.String(),
				Vertices:   len(s.Vertices),
				Triangles:  len(s.Triangles),
				MinDegree:  lo,
				MaxDegree:  hi,
				TotalDim:   s.TotalDim(),
				ErrorRatio: num(s.ErrorRatio()),
				Reference:  s.ReferenceSolution,
			}
			if eval {
				u, err := s.ReferenceEvaluator(refsol.Compiler)
				if err != nil {
					return err
				}
				if s.Caps.LinSol {
					worst := 0.0
					for _, v := range s.Vertices {
						worst = math.Max(worst, math.Abs(v.Value-u(v.X, v.Y)))
					}
					r.VertexError = num(worst)
				}
				if dir := a.cfg.GetBasesDir(); dir != "" && s.Caps.Sol {
					set, err := basis.ReadSet(a.fs, dir)
					if err != nil {
						return err
					}
					errs, err := basis.MaxPointError(set, s, u, resolution)
					if err != nil {
						return err
					}
					r.PointErrors = errs
				}
			}
			return writeJSON(cmd.OutOrStdout(), r)
		},
	}
	cmd.Flags().BoolVar(&eval, "eval", false, "compare the solution against the reference solution")
	cmd.Flags().IntVar(&resolution, "resolution", 4, "reference lattice resolution for basis evaluation")
	return cmd
}

func newIngestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <log>...",
		Short: "Parse iteration logs and store them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := a.loadTraces(cmd.Context(), args)
			if err != nil {
				return err
			}
			store, err := a.openDB()
			if err != nil {
				return err
			}
			defer store.Close()

			for _, l := range loaded {
				id, err := store.SaveTrace(cmd.Context(), l.Path, l.Trace)
				if err != nil {
					return fmt.Errorf("%s: %w", l.Path, err)
				}
				monitoring.Logf("stored %s as run %s (%d records)", l.Path, id, l.Trace.Len())
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, l.Path)
			}
			return nil
		},
	}
}

func newRunsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openDB()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSOURCE\tRECORDS\tINGESTED")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.ID, r.Source, r.Records, r.IngestedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Write a stored run back out as an iteration log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openDB()
			if err != nil {
				return err
			}
			defer store.Close()

			info, err := store.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			t, err := store.LoadTrace(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if outDir == "" {
				return trace.Encode(cmd.OutOrStdout(), t)
			}

			var buf strings.Builder
			if err := trace.Encode(&buf, t); err != nil {
				return err
			}
			name := security.SanitizeFilename(strings.TrimSuffix(filepath.Base(info.Source), filepath.Ext(info.Source))) + ".log"
			path, err := security.ResolveWithinDirectory(outDir, name)
			if err != nil {
				return err
			}
			if err := a.fs.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "directory to write the log into instead of stdout")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>...",
		Short: "Remove stored runs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openDB()
			if err != nil {
				return err
			}
			defer store.Close()

			for _, id := range args {
				if err := store.DeleteRun(cmd.Context(), id); err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
				monitoring.Logf("deleted run %s", id)
			}
			return nil
		},
	}
}

func newProgressionCmd(a *app) *cobra.Command {
	var outers []int
	cmd := &cobra.Command{
		Use:   "progression <log>",
		Short: "Compute per-iteration progression indicators from a log and its snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loader.LoadTrace(a.fs, args[0], a.cfg.TraceOptions())
			if err != nil {
				return err
			}
			src := &loader.SnapshotLoader{
				FS:      a.fs,
				Dir:     a.cfg.GetSnapshotDir(),
				Pattern: a.cfg.GetSnapshotPattern(),
			}
			points, err := analysis.Progression(t, src, outers...)
			if err != nil {
				return err
			}
			rows := make([]progressionRow, 0, len(points))
			for _, p := range points {
				rows = append(rows, newProgressionRow(p))
			}
			return writeJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().IntSliceVar(&outers, "outer", nil, "outer iterations to report (default: all)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
