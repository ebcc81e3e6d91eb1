// Package aggregate provides the demo fan-in task: per-artist play counts
// over one ISO week of streams. Its output is salted, so editing this
// package's fingerprint or any upstream day of streams resolves to a fresh
// artifact path.
package aggregate

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/aaroncwhite/salted/internal/config"
	"github.com/aaroncwhite/salted/internal/registry"
	"github.com/aaroncwhite/salted/internal/salt"
	"github.com/aaroncwhite/salted/internal/target"
	"github.com/aaroncwhite/salted/internal/task"
	"github.com/aaroncwhite/salted/modules/streams"
)

// Kind is the task kind registered for pipeline files.
const Kind = "aggregate_artists"

// fingerprint is the task's logic identity. Bump it whenever the
// aggregation changes.
const fingerprint = "aggregate_artists@1: per-artist play counts over one ISO week"

// Module registers the aggregate_artists kind.
type Module struct{}

// Register implements registry.Module.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(Kind, New)
}

// Task counts plays per artist across a week of streams.
type Task struct {
	week    string
	dataDir string
	opts    salt.Options

	requires []task.Node
}

// New constructs an aggregate task from pipeline config.
func New(ws registry.Workspace, cfg *config.TaskConfig, opts salt.Options) (task.Runnable, error) {
	week, err := cfg.StringParam("week")
	if err != nil {
		return nil, err
	}
	return NewTask(ws.DataDir, week, opts)
}

// NewTask constructs an aggregate task for the given ISO week. Requirements
// are materialized eagerly, one streams task per day in date order, so the
// requirement enumeration is deterministic.
func NewTask(dataDir, week string, opts salt.Options) (*Task, error) {
	dates, err := parseISOWeek(week)
	if err != nil {
		return nil, err
	}

	t := &Task{week: week, dataDir: dataDir, opts: opts}
	for _, date := range dates {
		st, err := streams.NewTask(dataDir, date)
		if err != nil {
			return nil, err
		}
		t.requires = append(t.requires, st)
	}
	return t, nil
}

func (t *Task) ID() string          { return Kind + "." + t.week }
func (t *Task) Fingerprint() string { return fingerprint }

func (t *Task) Params() []task.Param {
	return []task.Param{
		{Name: "week", Value: cty.StringVal(t.week), Significant: true},
	}
}

func (t *Task) Requires() []task.Node { return t.requires }

// Output resolves the salted artifact path for this week's aggregation.
func (t *Task) Output() (target.Target, error) {
	pattern := filepath.ToSlash(filepath.Join(t.dataDir, "artist_streams_{param.week}-{salt}.tsv"))
	return salt.Target(t, target.LocalConstructor, pattern, t.opts)
}

// Run reads every day's streams and writes sorted per-artist counts.
func (t *Task) Run(ctx context.Context) error {
	counts := make(map[string]int)

	for _, req := range t.requires {
		st := req.(*streams.Task)
		in, err := st.Output()
		if err != nil {
			return err
		}
		if err := countArtists(in, counts); err != nil {
			return fmt.Errorf("failed to aggregate '%s': %w", in.Path(), err)
		}
	}

	artists := make([]string, 0, len(counts))
	for artist := range counts {
		artists = append(artists, artist)
	}
	sort.Strings(artists)

	out, err := t.Output()
	if err != nil {
		return err
	}
	w, err := out.OpenWrite()
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err := fmt.Fprintln(w, "artist\tcount"); err != nil {
		return err
	}
	for _, artist := range artists {
		if _, err := fmt.Fprintf(w, "%s\t%d\n", artist, counts[artist]); err != nil {
			return err
		}
	}
	return w.Close()
}

// countArtists tallies the artist column of one streams artifact.
func countArtists(in target.Target, counts map[string]int) error {
	r, err := in.OpenRead()
	if err != nil {
		return err
	}
	defer r.Close()

	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		if first {
			first = false // header row
			continue
		}
		fields := strings.SplitN(scanner.Text(), "\t", 2)
		if len(fields) < 1 || fields[0] == "" {
			continue
		}
		counts[fields[0]]++
	}
	return scanner.Err()
}
