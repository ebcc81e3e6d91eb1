// Package config holds the format-agnostic pipeline model. Loaders (HCL
// today) translate their syntax into this model; everything downstream of
// the loader is syntax-blind.
package config

import (
	"context"

	"github.com/zclconf/go-cty/cty"

	"github.com/aaroncwhite/salted/internal/salt"
)

// Model is a fully loaded pipeline definition.
type Model struct {
	// Salt holds the pipeline-wide salting defaults.
	Salt salt.Options
	// Tasks are the root task instances requested by the pipeline, in
	// declaration order.
	Tasks []*TaskConfig
}

// TaskConfig is the format-agnostic representation of a `task` block: one
// requested instance of a registered task kind.
type TaskConfig struct {
	// Kind names the registered task type that supplies logic, requirements
	// and parameter significance.
	Kind string
	// Name distinguishes instances of the same kind within a pipeline.
	Name string
	// Params maps parameter names to their evaluated values. Which of these
	// are significant is decided by the kind, not the pipeline author.
	Params map[string]cty.Value
	// Salt overrides the pipeline-wide salting defaults for this task, if
	// the block declared any.
	Salt *salt.Options
}

// Options resolves the effective salt options for this task.
func (t *TaskConfig) Options(defaults salt.Options) salt.Options {
	if t.Salt != nil {
		return *t.Salt
	}
	return defaults
}

// Loader loads pipeline definitions from one or more paths into the model.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Model, error)
}
