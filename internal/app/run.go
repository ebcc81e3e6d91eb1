package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aaroncwhite/salted/internal/ctxlog"
	"github.com/aaroncwhite/salted/internal/executor"
	"github.com/aaroncwhite/salted/internal/graph"
	"github.com/aaroncwhite/salted/internal/provenance"
	"github.com/aaroncwhite/salted/internal/registry"
	"github.com/aaroncwhite/salted/internal/salt"
)

// Run executes the loaded pipeline: construct tasks, build the graph,
// resolve every node's version and target, then (unless dry-running) hand
// the graph to the executor.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	ws := registry.Workspace{DataDir: a.cfg.DataDir}
	roots, err := a.registry.Build(ws, a.model)
	if err != nil {
		return fmt.Errorf("failed to construct tasks: %w", err)
	}

	g, err := graph.Build(ctx, roots)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "node_count", len(g.Nodes))

	// Resolve every node's version and output up front. Any identity or
	// template defect aborts here, before a single task runs.
	hasher := salt.NewHasher()
	for _, id := range g.SortedIDs() {
		node := g.Nodes[id]
		version, err := hasher.Digest(node.Task)
		if err != nil {
			return fmt.Errorf("failed to version task '%s': %w", id, err)
		}
		out, err := node.Task.Output()
		if err != nil {
			return fmt.Errorf("failed to resolve output for task '%s': %w", id, err)
		}
		a.logger.Info("Resolved task version.", "taskID", id, "version", version, "target", out.Path())

		if a.cfg.DryRun {
			fmt.Fprintf(a.outW, "%s\n  version: %s\n  target:  %s\n", id, version, out.Path())
		}
	}

	if a.cfg.DryRun {
		a.logger.Info("Dry run requested, skipping execution.")
		return nil
	}

	if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	recorder, err := provenance.NewRecorder(filepath.Join(a.cfg.DataDir, ".provenance.yaml"))
	if err != nil {
		return fmt.Errorf("failed to open provenance ledger: %w", err)
	}
	a.logger.Info("Starting execution.", "runID", recorder.RunID(), "workers", a.cfg.WorkerCount)

	exec := executor.New(g, a.cfg.WorkerCount, recorder)
	if err := exec.Run(ctx); err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("Execution finished.")
	return nil
}
