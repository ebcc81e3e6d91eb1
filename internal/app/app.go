// Package app wires the pipeline loader, task registry, graph builder, and
// executor into one runnable application instance.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aaroncwhite/salted/internal/config"
	"github.com/aaroncwhite/salted/internal/ctxlog"
	"github.com/aaroncwhite/salted/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	cfg      *Config
	logger   *slog.Logger
	registry *registry.Registry
	model    *config.Model
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and registry.
// Failure to load the pipeline is a fatal startup error and panics; the
// CLI entrypoint recovers it into a clean exit.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	model, err := loader.Load(ctx, cfg.PipelinePath)
	if err != nil {
		panic(fmt.Errorf("failed to load pipeline: %w", err))
	}
	logger.Debug("Pipeline loaded.", "tasks", len(model.Tasks))

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("Task modules registered.", "kinds", reg.Kinds())

	return &App{
		outW:     outW,
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		model:    model,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded pipeline model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}
