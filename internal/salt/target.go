package salt

import (
	"regexp"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/aaroncwhite/salted/internal/target"
	"github.com/aaroncwhite/salted/internal/task"
)

// placeholderPattern matches {name}-style placeholders in file patterns.
var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// Target resolves a salted output path for the node and constructs a target
// there. The pattern must contain a {salt} placeholder (reserved); {id} and
// {param.<name>} resolve against the node. Construction performs no I/O and
// does not require the underlying resource to exist.
//
// Example:
//
//	salt.Target(node, target.LocalConstructor, "data/model-{salt}.json", opts)
//	salt.Target(node, target.LocalConstructor, "data/streams_{param.week}-{salt}.tsv", opts)
func Target(node task.Node, construct target.Constructor, pattern string, opts Options) (target.Target, error) {
	path, err := Path(node, pattern, opts)
	if err != nil {
		return nil, err
	}
	return construct(path), nil
}

// Path resolves a file pattern against the node without constructing a
// target. The same node (same logic, same significant parameters, same
// lineage) always yields the same path.
func Path(node task.Node, pattern string, opts Options) (string, error) {
	opts, err := opts.normalize()
	if err != nil {
		return "", err
	}

	saltValue, err := saltFor(node, opts)
	if err != nil {
		return "", err
	}

	params := make(map[string]string, len(node.Params()))
	for _, p := range node.Params() {
		params[p.Name] = pathValue(p.Value)
	}

	var firstErr error
	resolved := placeholderPattern.ReplaceAllStringFunc(pattern, func(m string) string {
		key := m[1 : len(m)-1]
		switch {
		case key == "salt":
			return saltValue
		case key == "id":
			return node.ID()
		case strings.HasPrefix(key, "param."):
			if v, ok := params[strings.TrimPrefix(key, "param.")]; ok {
				return v
			}
		}
		if firstErr == nil {
			firstErr = &TemplateError{Pattern: pattern, Placeholder: key}
		}
		return m
	})
	if firstErr != nil {
		return "", firstErr
	}
	return resolved, nil
}

// saltFor produces the substitution for the {salt} placeholder: a truncated
// version digest, or the node ID when salting is disabled, optionally
// prefixed with the node's significant parameters.
func saltFor(node task.Node, opts Options) (string, error) {
	var value string
	if opts.Enabled {
		d, err := Digest(node)
		if err != nil {
			return "", err
		}
		value = d[:opts.Length]
	} else {
		value = node.ID()
	}

	if opts.Parameters {
		sig := task.SignificantParams(node)
		sort.SliceStable(sig, func(i, j int) bool { return sig[i].Name < sig[j].Name })
		parts := make([]string, 0, len(sig))
		for _, p := range sig {
			parts = append(parts, p.Name+"="+pathValue(p.Value))
		}
		if len(parts) > 0 {
			value = strings.Join(parts, "_") + "-" + value
		}
	}
	return value, nil
}

// pathValue renders a parameter value for use inside a file path: strings
// verbatim, everything else in its canonical JSON form, with path
// separators made safe.
func pathValue(v cty.Value) string {
	var s string
	if v.Type() == cty.String && !v.IsNull() && v.IsKnown() {
		s = v.AsString()
	} else if c, err := CanonicalValue(v); err == nil {
		s = c
	} else {
		s = "unknown"
	}
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, `\`, "-")
	return s
}
