// Package task defines the contract between the versioning core and the
// task graph engine. A task node exposes exactly the three capabilities the
// digest needs (requirements, parameters, logic fingerprint); execution
// concerns live in the Runnable extension.
package task

import (
	"context"

	"github.com/zclconf/go-cty/cty"

	"github.com/aaroncwhite/salted/internal/target"
)

// Param is a named value attached to a task node. Only significant
// parameters participate in the node's version digest; insignificant ones
// exist for configuration and must not affect output identity.
type Param struct {
	Name        string
	Value       cty.Value
	Significant bool
}

// Node is a vertex in the task dependency graph. Implementations must be
// immutable for the purposes of hashing: parameters, fingerprint, and
// requirements may not change between digest computation and output
// resolution within one execution.
type Node interface {
	// ID uniquely identifies this node within a pipeline. Two nodes with
	// the same ID are treated as the same task identity.
	ID() string

	// Fingerprint returns a stable textual representation of the node's
	// logic. Any behavioral change to the task must change this string;
	// an empty fingerprint makes the node's identity undefined.
	Fingerprint() string

	// Params returns the node's parameters in a deterministic order.
	Params() []Param

	// Requires returns the node's upstream requirements. The enumeration
	// order is load-bearing for the version digest and must be stable and
	// reproducible across calls.
	Requires() []Node
}

// Runnable is a Node the executor can schedule.
type Runnable interface {
	Node

	// Output resolves the node's declared output target. Resolution must
	// perform no I/O and must not require the artifact to exist.
	Output() (target.Target, error)

	// Run produces the node's output. Only called when the output target
	// does not already exist.
	Run(ctx context.Context) error
}

// SignificantParams returns the node's significant parameters, preserving
// the node's declared order.
func SignificantParams(n Node) []Param {
	var sig []Param
	for _, p := range n.Params() {
		if p.Significant {
			sig = append(sig, p)
		}
	}
	return sig
}
