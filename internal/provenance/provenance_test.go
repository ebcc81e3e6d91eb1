package provenance

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/aaroncwhite/salted/internal/target"
	"github.com/aaroncwhite/salted/internal/task"
)

// ledgerTask is a minimal runnable whose digest inputs are fixed.
type ledgerTask struct {
	id   string
	path string
}

func (t *ledgerTask) ID() string          { return t.id }
func (t *ledgerTask) Fingerprint() string { return "ledger@1" }

func (t *ledgerTask) Params() []task.Param {
	return []task.Param{
		{Name: "date", Value: cty.StringVal("2018-03-07"), Significant: true},
	}
}

func (t *ledgerTask) Requires() []task.Node          { return nil }
func (t *ledgerTask) Output() (target.Target, error) { return target.NewLocal(t.path), nil }
func (t *ledgerTask) Run(ctx context.Context) error  { return nil }

func writeArtifact(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRecorder_RecordsAndPersists(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, ".provenance.yaml")
	artifact := writeArtifact(t, dir, "out.tsv", "artist\tcount\n")

	rec, err := NewRecorder(manifestPath)
	require.NoError(t, err)

	tsk := &ledgerTask{id: "agg.2018-W10", path: artifact}
	require.NoError(t, rec.Record(context.Background(), tsk, target.NewLocal(artifact)))

	entries := rec.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "agg.2018-W10", entries[0].TaskID)
	assert.Equal(t, "ledger@1", entries[0].Fingerprint)
	assert.Equal(t, rec.RunID(), entries[0].RunID)
	assert.Equal(t, artifact, entries[0].Path)
	assert.Len(t, entries[0].TaskVersion, 64)
	assert.Len(t, entries[0].ContentHash, 64)
	assert.NotEmpty(t, entries[0].CompletedAt)

	// The manifest is flushed on every record.
	_, err = os.Stat(manifestPath)
	require.NoError(t, err)
}

func TestRecorder_AppendsAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, ".provenance.yaml")
	artifact := writeArtifact(t, dir, "out.tsv", "data\n")
	tsk := &ledgerTask{id: "t1", path: artifact}

	first, err := NewRecorder(manifestPath)
	require.NoError(t, err)
	require.NoError(t, first.Record(context.Background(), tsk, target.NewLocal(artifact)))

	// A second recorder reloads the existing ledger and keeps appending
	// under a fresh run ID.
	second, err := NewRecorder(manifestPath)
	require.NoError(t, err)
	require.NoError(t, second.Record(context.Background(), tsk, target.NewLocal(artifact)))

	entries := second.Entries()
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0].RunID, entries[1].RunID)
	assert.Equal(t, entries[0].TaskVersion, entries[1].TaskVersion)
	assert.Equal(t, entries[0].ContentHash, entries[1].ContentHash)
}

func TestRecorder_VerifyDetectsDrift(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, ".provenance.yaml")
	artifact := writeArtifact(t, dir, "out.tsv", "original\n")
	tsk := &ledgerTask{id: "t1", path: artifact}

	rec, err := NewRecorder(manifestPath)
	require.NoError(t, err)
	require.NoError(t, rec.Record(context.Background(), tsk, target.NewLocal(artifact)))
	require.Empty(t, rec.Verify())

	// Tampering with the artifact must surface as a hash mismatch.
	require.NoError(t, os.WriteFile(artifact, []byte("tampered\n"), 0o644))
	problems := rec.Verify()
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Error(), "content hash mismatch")

	// A deleted artifact is not drift; its history simply remains.
	require.NoError(t, os.Remove(artifact))
	assert.Empty(t, rec.Verify())
}

func TestNewRecorder_RejectsUnknownManifestVersion(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, ".provenance.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte("version: 99\nentries: []\n"), 0o644))

	_, err := NewRecorder(manifestPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provenance manifest version")
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	a := writeArtifact(t, dir, "a.txt", "hello\n")
	b := writeArtifact(t, dir, "b.txt", "hello\n")
	c := writeArtifact(t, dir, "c.txt", "world\n")

	ha, err := HashFile(a)
	require.NoError(t, err)
	hb, err := HashFile(b)
	require.NoError(t, err)
	hc, err := HashFile(c)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.NotEqual(t, ha, hc)

	_, err = HashFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
