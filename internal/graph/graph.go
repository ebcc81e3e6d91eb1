// Package graph builds the executable dependency graph for a run. It walks
// each root task's requirements recursively, merging nodes that share a task
// identity, and validates the result is acyclic before anything executes.
package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/aaroncwhite/salted/internal/ctxlog"
	"github.com/aaroncwhite/salted/internal/task"
)

// NodeState tracks a node's progress through the executor.
type NodeState int32

const (
	Pending NodeState = iota
	Running
	Done
	Failed
)

// Node is a single schedulable vertex in the graph.
type Node struct {
	ID   string
	Task task.Runnable

	// Deps are the nodes this node depends on, keyed by ID.
	Deps map[string]*Node
	// Dependents are the nodes that depend on this node, keyed by ID.
	Dependents map[string]*Node

	// State is the node's execution state, read and written atomically.
	State atomic.Int32
	// Error holds the failure cause once State is Failed.
	Error error
	// UpToDate is set when the node was skipped because its output target
	// already existed.
	UpToDate bool

	depCount atomic.Int32
	skipOnce sync.Once
}

// DepCount returns the node's remaining unmet dependency count.
func (n *Node) DepCount() *atomic.Int32 {
	return &n.depCount
}

// SkipOnce runs fn at most once for this node, used when marking it skipped.
func (n *Node) SkipOnce(fn func()) {
	n.skipOnce.Do(fn)
}

// Graph is the executable dependency graph of one run.
type Graph struct {
	Nodes map[string]*Node
}

// Build walks the requirements of every root task and constructs a validated
// graph. Nodes are keyed by task ID: requirements reached through multiple
// paths merge into a single node. Every requirement must itself be runnable.
func Build(ctx context.Context, roots []task.Runnable) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	g := &Graph{Nodes: make(map[string]*Node)}

	var walk func(t task.Runnable) (*Node, error)
	walk = func(t task.Runnable) (*Node, error) {
		id := t.ID()
		if existing, ok := g.Nodes[id]; ok {
			return existing, nil
		}
		node := &Node{
			ID:         id,
			Task:       t,
			Deps:       make(map[string]*Node),
			Dependents: make(map[string]*Node),
		}
		g.Nodes[id] = node

		for _, req := range t.Requires() {
			runnable, ok := req.(task.Runnable)
			if !ok {
				return nil, fmt.Errorf("requirement '%s' of task '%s' is not runnable", req.ID(), id)
			}
			dep, err := walk(runnable)
			if err != nil {
				return nil, err
			}
			if dep.ID == id {
				return nil, fmt.Errorf("task '%s' requires itself", id)
			}
			node.Deps[dep.ID] = dep
			dep.Dependents[id] = node
		}
		return node, nil
	}

	for _, root := range roots {
		if _, err := walk(root); err != nil {
			return nil, err
		}
	}
	logger.Debug("Graph nodes created.", "count", len(g.Nodes))

	if err := g.detectCycles(); err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}

	for _, node := range g.Nodes {
		node.depCount.Store(int32(len(node.Deps)))
	}
	logger.Debug("Graph construction successful.")
	return g, nil
}

// SortedIDs returns all node IDs in sorted order, for deterministic reports.
func (g *Graph) SortedIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// detectCycles checks the graph for any cycles using depth-first search with
// three sets of nodes: permanently visited, on the current recursion stack,
// and unvisited.
func (g *Graph) detectCycles() error {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *Node) error
	visit = func(n *Node) error {
		if permanent[n.ID] {
			return nil
		}
		if temporary[n.ID] {
			return fmt.Errorf("cycle detected involving node '%s'", n.ID)
		}

		temporary[n.ID] = true
		for _, dependent := range n.Dependents {
			if err := visit(dependent); err != nil {
				return err
			}
		}
		delete(temporary, n.ID)
		permanent[n.ID] = true
		return nil
	}

	for _, n := range g.Nodes {
		if !permanent[n.ID] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}
