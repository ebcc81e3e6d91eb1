// Package executor runs a dependency graph with a pool of workers. A node
// becomes ready when all of its dependencies are done; a node whose output
// target already exists is skipped as up to date, which is what salted
// target paths buy: staleness is a plain existence check.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aaroncwhite/salted/internal/ctxlog"
	"github.com/aaroncwhite/salted/internal/graph"
	"github.com/aaroncwhite/salted/internal/target"
	"github.com/aaroncwhite/salted/internal/task"
)

// Recorder receives a notification for every artifact a run produces.
type Recorder interface {
	Record(ctx context.Context, t task.Runnable, tgt target.Target) error
}

// Executor schedules graph nodes across a fixed worker pool.
type Executor struct {
	graph      *graph.Graph
	numWorkers int
	recorder   Recorder

	wg sync.WaitGroup
}

// New creates an executor for the given graph. recorder may be nil.
func New(g *graph.Graph, numWorkers int, recorder Recorder) *Executor {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Executor{graph: g, numWorkers: numWorkers, recorder: recorder}
}

// Run executes the entire graph concurrently and returns an error if any
// node fails. It respects the cancellation signal from the provided context.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	readyChan := make(chan *graph.Node, len(e.graph.Nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rootNodeCount := 0
	for _, node := range e.graph.Nodes {
		if node.DepCount().Load() == 0 {
			readyChan <- node
			rootNodeCount++
		}
	}
	logger.Debug("Found all root nodes.", "count", rootNodeCount)

	e.wg.Add(len(e.graph.Nodes))

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(runCtx, readyChan, cancel, i)
	}

	e.wg.Wait()
	close(readyChan)

	var failedNodes []string
	var rootCauseError error
	for _, id := range e.graph.SortedIDs() {
		node := e.graph.Nodes[id]
		if graph.NodeState(node.State.Load()) != graph.Failed {
			continue
		}
		logger.Error("Node failed execution.", "nodeID", node.ID, "error", node.Error)
		// A "skipped" error is a symptom, not a cause.
		if node.Error != nil && !strings.HasPrefix(node.Error.Error(), "skipped") && !errors.Is(node.Error, context.Canceled) {
			failedNodes = append(failedNodes, node.ID)
			if rootCauseError == nil {
				rootCauseError = node.Error
			}
		}
	}

	if rootCauseError != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failedNodes, ", "), rootCauseError)
	}
	return nil
}

// skipDependents recursively marks all downstream nodes as failed and
// decrements the WaitGroup.
func (e *Executor) skipDependents(ctx context.Context, node *graph.Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		dep := dependent
		dep.SkipOnce(func() {
			logger.Warn("Skipping dependent node due to upstream failure.", "nodeID", dep.ID, "dependency", node.ID)
			dep.State.Store(int32(graph.Failed))
			dep.Error = fmt.Errorf("skipped due to upstream failure of '%s'", node.ID)
			e.wg.Done()
			e.skipDependents(ctx, dep)
		})
	}
}

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *graph.Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)

	for node := range readyChan {
		workerLogger := logger.With("workerID", workerID, "nodeID", node.ID)

		if ctx.Err() != nil {
			node.SkipOnce(func() {
				workerLogger.Warn("Context canceled, skipping node execution.")
				node.State.Store(int32(graph.Failed))
				node.Error = ctx.Err()
				e.wg.Done()
				// Dependents will never see their dep counters reach zero;
				// release them here or wg.Wait blocks forever.
				e.skipDependents(ctx, node)
			})
			continue
		}

		node.State.Store(int32(graph.Running))
		err := e.executeNode(ctx, node, workerLogger)
		if err != nil {
			workerLogger.Error("Node execution failed.", "error", err)
			node.State.Store(int32(graph.Failed))
			node.Error = err
			cancel()
			e.skipDependents(ctx, node)
			e.wg.Done()
			continue
		}

		node.State.Store(int32(graph.Done))

		for _, dependent := range node.Dependents {
			if dependent.DepCount().Add(-1) == 0 {
				readyChan <- dependent
			}
		}
		e.wg.Done()
	}
}

// executeNode runs one node: resolve its output, short-circuit if the
// artifact already exists, otherwise run the task and verify it produced
// its output.
func (e *Executor) executeNode(ctx context.Context, node *graph.Node, logger *slog.Logger) error {
	out, err := node.Task.Output()
	if err != nil {
		return fmt.Errorf("failed to resolve output target: %w", err)
	}

	if out.Exists() {
		node.UpToDate = true
		logger.Info("Output up to date, skipping run.", "target", out.Path())
		return nil
	}

	logger.Info("Running task.", "target", out.Path())
	if err := node.Task.Run(ctx); err != nil {
		return fmt.Errorf("task run failed: %w", err)
	}

	if !out.Exists() {
		return fmt.Errorf("task completed without producing its output '%s'", out.Path())
	}

	if e.recorder != nil {
		if err := e.recorder.Record(ctx, node.Task, out); err != nil {
			return fmt.Errorf("failed to record provenance: %w", err)
		}
	}
	logger.Debug("Task completed.", "target", out.Path())
	return nil
}
