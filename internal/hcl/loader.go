// Package hcl loads pipeline definitions written in HCL and translates them
// into the format-agnostic config model.
package hcl

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/aaroncwhite/salted/internal/config"
	"github.com/aaroncwhite/salted/internal/ctxlog"
	"github.com/aaroncwhite/salted/internal/fsutil"
	"github.com/aaroncwhite/salted/internal/salt"
)

// pipelineSchema is the HCL-specific shape of a pipeline file.
type pipelineSchema struct {
	Salt  *saltSchema  `hcl:"salt,block"`
	Tasks []taskSchema `hcl:"task,block"`
}

// taskSchema is the HCL-specific shape of a `task "kind" "name"` block.
type taskSchema struct {
	Kind   string         `hcl:"kind,label"`
	Name   string         `hcl:"name,label"`
	Params hcl.Expression `hcl:"params,optional"`
	Salt   *saltSchema    `hcl:"salt,block"`
}

// saltSchema is the HCL-specific shape of a `salt` block. All attributes are
// optional; unset ones inherit from the enclosing scope.
type saltSchema struct {
	Enabled    *bool `hcl:"enabled,optional"`
	Length     *int  `hcl:"length,optional"`
	Parameters *bool `hcl:"parameters,optional"`
}

// Loader parses .hcl pipeline files into the config model.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a new HCL pipeline loader.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// Load reads every .hcl file reachable from the given paths (files or
// directories, searched recursively) and merges them into a single model.
// Files are merged in sorted path order so the result is independent of
// directory iteration order.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := l.discover(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered pipeline files.", "count", len(files))

	// First pass: parse and decode every file, so the pipeline-wide salt
	// defaults are final before any task block is translated.
	schemas := make([]*pipelineSchema, 0, len(files))
	defaults := salt.DefaultOptions()
	sawSaltBlock := false

	for _, file := range files {
		hclFile, diags := l.parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse '%s': %s", file, diags.Error())
		}

		var schema pipelineSchema
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &schema); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode '%s': %s", file, diags.Error())
		}

		if schema.Salt != nil {
			if sawSaltBlock {
				return nil, fmt.Errorf("duplicate top-level salt block in '%s'", file)
			}
			sawSaltBlock = true
			defaults = applySaltSchema(salt.DefaultOptions(), schema.Salt)
		}
		schemas = append(schemas, &schema)
	}

	// Second pass: translate task blocks against the final defaults.
	model := &config.Model{Salt: defaults}
	for i, schema := range schemas {
		for j := range schema.Tasks {
			ts := &schema.Tasks[j]
			tc, err := l.translateTask(ts, defaults)
			if err != nil {
				return nil, fmt.Errorf("invalid task '%s.%s' in '%s': %w", ts.Kind, ts.Name, files[i], err)
			}
			model.Tasks = append(model.Tasks, tc)
		}
		logger.Debug("Loaded pipeline file.", "file", files[i], "tasks", len(schema.Tasks))
	}

	return model, nil
}

// discover expands the given paths into a sorted list of .hcl files.
func (l *Loader) discover(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to access pipeline path '%s': %w", path, err)
		}
		if info.IsDir() {
			found, err := fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, fmt.Errorf("failed to scan pipeline directory '%s': %w", path, err)
			}
			files = append(files, found...)
		} else {
			files = append(files, path)
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl pipeline files found under %v", paths)
	}
	return files, nil
}

// translateTask converts the HCL-specific task schema into the agnostic model.
func (l *Loader) translateTask(ts *taskSchema, defaults salt.Options) (*config.TaskConfig, error) {
	tc := &config.TaskConfig{
		Kind:   ts.Kind,
		Name:   ts.Name,
		Params: make(map[string]cty.Value),
	}

	if ts.Params != nil {
		val, diags := ts.Params.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to evaluate params: %s", diags.Error())
		}
		if !val.IsNull() {
			if !val.Type().IsObjectType() && !val.Type().IsMapType() {
				return nil, fmt.Errorf("params must be an object, got %s", val.Type().FriendlyName())
			}
			it := val.ElementIterator()
			for it.Next() {
				k, v := it.Element()
				tc.Params[k.AsString()] = v
			}
		}
	}

	if ts.Salt != nil {
		opts := applySaltSchema(defaults, ts.Salt)
		tc.Salt = &opts
	}

	return tc, nil
}

// applySaltSchema overlays the set attributes of a salt block onto base options.
func applySaltSchema(base salt.Options, s *saltSchema) salt.Options {
	if s.Enabled != nil {
		base.Enabled = *s.Enabled
	}
	if s.Length != nil {
		base.Length = *s.Length
	}
	if s.Parameters != nil {
		base.Parameters = *s.Parameters
	}
	return base
}
