// Package provenance maintains a run ledger next to the data directory:
// every artifact a run produces is recorded with its task identity, version
// digest, and a BLAKE3 content checksum. The ledger is purely informational;
// scheduling never consults it.
package provenance

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/aaroncwhite/salted/internal/ctxlog"
	"github.com/aaroncwhite/salted/internal/salt"
	"github.com/aaroncwhite/salted/internal/target"
	"github.com/aaroncwhite/salted/internal/task"
)

// manifestVersion guards against reading ledgers written by a future format.
const manifestVersion = 1

// Manifest is the on-disk ledger format.
type Manifest struct {
	Version int     `yaml:"version"`
	Entries []Entry `yaml:"entries"`
}

// Entry records one produced artifact.
type Entry struct {
	RunID       string `yaml:"run_id"`
	TaskID      string `yaml:"task_id"`
	Fingerprint string `yaml:"fingerprint"`
	TaskVersion string `yaml:"task_version"`
	Path        string `yaml:"path"`
	ContentHash string `yaml:"content_hash"`
	CompletedAt string `yaml:"completed_at"`
}

// Recorder appends entries to a manifest file. Safe for concurrent use.
type Recorder struct {
	path  string
	runID string
	now   func() time.Time

	mu       sync.Mutex
	manifest *Manifest
}

// NewRecorder opens (or initializes) the manifest at path and assigns a
// fresh run ID for all entries recorded through this instance.
func NewRecorder(path string) (*Recorder, error) {
	manifest, err := load(path)
	if err != nil {
		return nil, err
	}
	return &Recorder{
		path:     path,
		runID:    uuid.NewString(),
		now:      time.Now,
		manifest: manifest,
	}, nil
}

// RunID returns the identifier stamped on every entry of this recorder.
func (r *Recorder) RunID() string {
	return r.runID
}

// Record hashes the produced artifact and appends a ledger entry. Implements
// the executor's Recorder interface.
func (r *Recorder) Record(ctx context.Context, t task.Runnable, tgt target.Target) error {
	logger := ctxlog.FromContext(ctx)

	version, err := salt.Digest(t)
	if err != nil {
		return fmt.Errorf("failed to compute version digest for '%s': %w", t.ID(), err)
	}

	contentHash, err := HashFile(tgt.Path())
	if err != nil {
		return fmt.Errorf("failed to hash artifact '%s': %w", tgt.Path(), err)
	}

	entry := Entry{
		RunID:       r.runID,
		TaskID:      t.ID(),
		Fingerprint: t.Fingerprint(),
		TaskVersion: version,
		Path:        tgt.Path(),
		ContentHash: contentHash,
		CompletedAt: r.now().UTC().Format(time.RFC3339),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifest.Entries = append(r.manifest.Entries, entry)
	if err := r.flush(); err != nil {
		return err
	}
	logger.Debug("Recorded provenance entry.", "taskID", entry.TaskID, "version", version)
	return nil
}

// Verify re-hashes every recorded artifact that still exists and returns a
// mismatch error per drifted file.
func (r *Recorder) Verify() []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var problems []error
	for _, entry := range r.manifest.Entries {
		if _, err := os.Stat(entry.Path); os.IsNotExist(err) {
			continue
		}
		actual, err := HashFile(entry.Path)
		if err != nil {
			problems = append(problems, fmt.Errorf("failed to hash '%s': %w", entry.Path, err))
			continue
		}
		if actual != entry.ContentHash {
			problems = append(problems, fmt.Errorf(
				"content hash mismatch for '%s': expected %s, got %s", entry.Path, entry.ContentHash, actual))
		}
	}
	return problems
}

// Entries returns a copy of the current ledger entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.manifest.Entries))
	copy(out, r.manifest.Entries)
	return out
}

// flush writes the manifest to disk. Caller holds r.mu.
func (r *Recorder) flush() error {
	data, err := yaml.Marshal(r.manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal provenance manifest: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write provenance manifest: %w", err)
	}
	return nil
}

// load reads an existing manifest, or returns an empty one if none exists.
func load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Manifest{Version: manifestVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read provenance manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse provenance manifest: %w", err)
	}
	if manifest.Version != manifestVersion {
		return nil, fmt.Errorf("unsupported provenance manifest version: %d", manifest.Version)
	}
	return &manifest, nil
}

// HashFile computes the BLAKE3 hash of a file.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}
