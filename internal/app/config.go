package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// PipelinePath is a single .hcl file or a directory of .hcl files.
	PipelinePath string
	// DataDir is the directory all task outputs and the provenance ledger
	// live under.
	DataDir string

	LogFormat   string
	LogLevel    string
	WorkerCount int
	// DryRun resolves versions and target paths and prints the plan
	// without executing anything.
	DryRun bool
}

// NewConfig validates and defaults an application config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 4
	}
	return &cfg, nil
}
