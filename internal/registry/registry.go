// Package registry maps task kinds declared in pipeline files to the Go
// factories that construct runnable task instances.
package registry

import (
	"fmt"
	"sort"

	"github.com/aaroncwhite/salted/internal/config"
	"github.com/aaroncwhite/salted/internal/salt"
	"github.com/aaroncwhite/salted/internal/task"
)

// Workspace provides construction-time context shared by all tasks of a run.
type Workspace struct {
	// DataDir is the directory all task outputs live under.
	DataDir string
}

// Factory builds a runnable task instance from its pipeline config and the
// resolved node-level salt options.
type Factory func(ws Workspace, cfg *config.TaskConfig, opts salt.Options) (task.Runnable, error)

// Module is the interface all task modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the registered task kinds for a single application instance.
type Registry struct {
	kinds map[string]Factory
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{kinds: make(map[string]Factory)}
}

// RegisterKind registers a factory for a task kind. Registering the same
// kind twice is a programmer error and panics.
func (r *Registry) RegisterKind(kind string, f Factory) {
	if _, exists := r.kinds[kind]; exists {
		panic(fmt.Sprintf("task kind '%s' registered twice", kind))
	}
	r.kinds[kind] = f
}

// Kinds returns the registered kind names in sorted order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build constructs the root task instances requested by the model, in
// declaration order. An unknown kind is a fatal configuration error.
func (r *Registry) Build(ws Workspace, model *config.Model) ([]task.Runnable, error) {
	roots := make([]task.Runnable, 0, len(model.Tasks))
	for _, tc := range model.Tasks {
		factory, ok := r.kinds[tc.Kind]
		if !ok {
			return nil, fmt.Errorf("unknown task kind '%s' (registered: %v)", tc.Kind, r.Kinds())
		}
		t, err := factory(ws, tc, tc.Options(model.Salt))
		if err != nil {
			return nil, fmt.Errorf("failed to construct task '%s.%s': %w", tc.Kind, tc.Name, err)
		}
		roots = append(roots, t)
	}
	return roots, nil
}
