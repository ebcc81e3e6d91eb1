// Package streams provides the demo leaf task: a day of synthetic listen
// events. Real deployments would replace this with an external data source;
// its output is deliberately unsalted so the pipeline shows both naming
// schemes side by side.
package streams

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"path/filepath"
	"sort"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/aaroncwhite/salted/internal/config"
	"github.com/aaroncwhite/salted/internal/registry"
	"github.com/aaroncwhite/salted/internal/salt"
	"github.com/aaroncwhite/salted/internal/target"
	"github.com/aaroncwhite/salted/internal/task"
)

// Kind is the task kind registered for pipeline files.
const Kind = "streams"

// fingerprint is the task's logic identity. Bump it whenever the generated
// rows change shape or content.
const fingerprint = "streams@1: synthetic artist/track listen events per day"

// DateLayout is the expected format of the date parameter.
const DateLayout = "2006-01-02"

// eventsPerDay is the number of synthetic rows generated per date.
const eventsPerDay = 50

var artists = map[string][]string{
	"Scott":  {"Python on my mind", "Snake charmer blues"},
	"Sally":  {"What I like about R", "Vectorized heart"},
	"Dmitri": {"Goroutine groove", "Channel surfing"},
}

// Module registers the streams kind.
type Module struct{}

// Register implements registry.Module.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(Kind, New)
}

// Task generates one day of listen events.
type Task struct {
	date    string
	dataDir string
}

// New constructs a streams task from pipeline config.
func New(ws registry.Workspace, cfg *config.TaskConfig, _ salt.Options) (task.Runnable, error) {
	date, err := cfg.StringParam("date")
	if err != nil {
		return nil, err
	}
	return NewTask(ws.DataDir, date)
}

// NewTask constructs a streams task directly, for use by downstream tasks
// that require per-day streams.
func NewTask(dataDir, date string) (*Task, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date '%s': %w", date, err)
	}
	return &Task{date: date, dataDir: dataDir}, nil
}

// Date returns the day this task covers.
func (t *Task) Date() string { return t.date }

func (t *Task) ID() string          { return Kind + "." + t.date }
func (t *Task) Fingerprint() string { return fingerprint }

func (t *Task) Params() []task.Param {
	return []task.Param{
		{Name: "date", Value: cty.StringVal(t.date), Significant: true},
	}
}

func (t *Task) Requires() []task.Node { return nil }

// Output is an unsalted local target; the path is fully determined by the
// date parameter, mirroring an externally partitioned data drop.
func (t *Task) Output() (target.Target, error) {
	return target.NewLocal(filepath.Join(t.dataDir, "streams", t.date+".tsv")), nil
}

// Run writes the synthetic events. Generation is seeded by the date so the
// same day always produces identical rows.
func (t *Task) Run(ctx context.Context) error {
	out, err := t.Output()
	if err != nil {
		return err
	}
	w, err := out.OpenWrite()
	if err != nil {
		return err
	}
	defer w.Close()

	names := make([]string, 0, len(artists))
	for name := range artists {
		names = append(names, name)
	}
	// Map iteration order is random; sort for reproducible rows.
	sort.Strings(names)

	rng := rand.New(rand.NewSource(seedFor(t.date)))
	if _, err := fmt.Fprintln(w, "artist\ttrack"); err != nil {
		return err
	}
	for i := 0; i < eventsPerDay; i++ {
		artist := names[rng.Intn(len(names))]
		tracks := artists[artist]
		track := tracks[rng.Intn(len(tracks))]
		if _, err := fmt.Fprintf(w, "%s\t%s\n", artist, track); err != nil {
			return err
		}
	}
	return w.Close()
}

// seedFor derives a stable PRNG seed from the date string.
func seedFor(date string) int64 {
	h := fnv.New64a()
	h.Write([]byte(date))
	return int64(h.Sum64())
}
