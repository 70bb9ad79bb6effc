// Package loader reads iteration logs and mesh snapshots through an
// fsutil.FileSystem, parsing batches of logs concurrently.
package loader

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Batmanabcdefg/hp-afem/internal/fsutil"
	"github.com/Batmanabcdefg/hp-afem/internal/mesh"
	"github.com/Batmanabcdefg/hp-afem/internal/monitoring"
	"github.com/Batmanabcdefg/hp-afem/internal/security"
	"github.com/Batmanabcdefg/hp-afem/internal/trace"
)

// DefaultWorkers bounds concurrent parses when Options.Workers is unset.
const DefaultWorkers = 4

// Options configures LoadTraces.
type Options struct {
	Trace   trace.Options
	Workers int
}

// Normalize fills unset fields with defaults.
func (o Options) Normalize() Options {
	if o.Workers < 1 {
		o.Workers = DefaultWorkers
	}
	return o
}

// Loaded pairs a parsed trace with the path it came from.
type Loaded struct {
	Path  string
	Trace *trace.RunTrace
}

// LoadTraces parses every path with at most opts.Workers parses in flight.
// Results keep the order of paths. The first failure cancels the remaining
// parses and is returned annotated with its path.
func LoadTraces(ctx context.Context, fsys fsutil.FileSystem, paths []string, opts Options) ([]Loaded, error) {
	opts = opts.Normalize()
	out := make([]Loaded, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := LoadTrace(fsys, path, opts.Trace)
			if err != nil {
				return err
			}
			out[i] = Loaded{Path: path, Trace: t}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadTrace parses a single log.
func LoadTrace(fsys fsutil.FileSystem, path string, opts trace.Options) (*trace.RunTrace, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()

	t, err := trace.Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	monitoring.Debugf("loader: parsed %s: %d records", path, t.Len())
	return t, nil
}

// ExpandPaths replaces every argument containing glob metacharacters with
// its sorted matches. A pattern without matches is an error.
func ExpandPaths(fsys fsutil.FileSystem, args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[") {
			out = append(out, arg)
			continue
		}
		matches, err := fsys.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to expand %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", arg)
		}
		out = append(out, matches...)
	}
	return out, nil
}

// SnapshotLoader resolves the snapshot written for an iteration by
// formatting Pattern with the outer index, inner index and DOF count, and
// reading it from Dir.
type SnapshotLoader struct {
	FS      fsutil.FileSystem
	Dir     string
	Pattern string
}

// Path returns the snapshot path for an iteration, kept inside Dir.
func (l *SnapshotLoader) Path(outer, inner, dofs int) (string, error) {
	return security.ResolveWithinDirectory(l.Dir, fmt.Sprintf(l.Pattern, outer, inner, dofs))
}

// Snapshot reads and decodes the snapshot of an iteration.
func (l *SnapshotLoader) Snapshot(outer, inner, dofs int) (*mesh.Snapshot, error) {
	path, err := l.Path(outer, inner, dofs)
	if err != nil {
		return nil, err
	}
	return LoadSnapshot(l.FS, path)
}

// LoadSnapshot decodes the snapshot at path.
func LoadSnapshot(fsys fsutil.FileSystem, path string) (*mesh.Snapshot, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	s, err := mesh.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
