package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/aaroncwhite/salted/internal/config"
	"github.com/aaroncwhite/salted/internal/salt"
)

// writePipeline writes HCL sources into a temp dir and returns its path.
func writePipeline(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
	return dir
}

func TestLoader_SingleFile(t *testing.T) {
	dir := writePipeline(t, map[string]string{
		"main.hcl": `
salt {
  enabled = true
  length  = 8
}

task "aggregate_artists" "week10" {
  params = {
    week = "2018-W10"
  }
}
`,
	})

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, salt.Options{Enabled: true, Length: 8}, model.Salt)
	require.Len(t, model.Tasks, 1)

	want := &config.TaskConfig{
		Kind:   "aggregate_artists",
		Name:   "week10",
		Params: map[string]cty.Value{"week": cty.StringVal("2018-W10")},
	}
	if diff := cmp.Diff(want, model.Tasks[0], cmp.Comparer(func(a, b cty.Value) bool {
		return a.RawEquals(b)
	})); diff != "" {
		t.Errorf("task config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_TaskLevelSaltOverride(t *testing.T) {
	dir := writePipeline(t, map[string]string{
		"main.hcl": `
salt {
  length = 4
}

task "train_digits" "default" {
  params = {
    c      = 100
    gamma  = 1
    kernel = "rbf"
  }
  salt {
    length = 10
  }
}

task "streams" "plain" {
  params = {
    date = "2018-03-07"
  }
}
`,
	})

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, model.Tasks, 2)

	train := model.Tasks[0]
	require.NotNil(t, train.Salt)
	assert.Equal(t, 10, train.Salt.Length)
	assert.True(t, train.Salt.Enabled, "override inherits unset attributes from defaults")
	assert.Equal(t, 10, train.Options(model.Salt).Length)

	// Typed params survive: numbers stay numbers, strings stay strings.
	assert.True(t, train.Params["c"].RawEquals(cty.NumberIntVal(100)))
	assert.True(t, train.Params["kernel"].RawEquals(cty.StringVal("rbf")))

	streams := model.Tasks[1]
	assert.Nil(t, streams.Salt)
	assert.Equal(t, 4, streams.Options(model.Salt).Length)
}

func TestLoader_MergesDirectoryInSortedOrder(t *testing.T) {
	dir := writePipeline(t, map[string]string{
		"b_second.hcl": `task "streams" "b" { params = { date = "2018-03-08" } }`,
		"a_first.hcl":  `task "streams" "a" { params = { date = "2018-03-07" } }`,
	})

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, model.Tasks, 2)
	assert.Equal(t, "a", model.Tasks[0].Name)
	assert.Equal(t, "b", model.Tasks[1].Name)
}

func TestLoader_Errors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		_, err := NewLoader().Load(context.Background(), "does/not/exist")
		assert.Error(t, err)
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := NewLoader().Load(context.Background(), t.TempDir())
		assert.Error(t, err)
	})

	t.Run("duplicate salt block", func(t *testing.T) {
		dir := writePipeline(t, map[string]string{
			"a.hcl": `salt { length = 4 }`,
			"b.hcl": `salt { length = 6 }`,
		})
		_, err := NewLoader().Load(context.Background(), dir)
		assert.ErrorContains(t, err, "duplicate top-level salt block")
	})

	t.Run("params must be an object", func(t *testing.T) {
		dir := writePipeline(t, map[string]string{
			"a.hcl": `task "streams" "x" { params = "nope" }`,
		})
		_, err := NewLoader().Load(context.Background(), dir)
		assert.ErrorContains(t, err, "params must be an object")
	})

	t.Run("syntax error", func(t *testing.T) {
		dir := writePipeline(t, map[string]string{
			"a.hcl": `task "streams" {`,
		})
		_, err := NewLoader().Load(context.Background(), dir)
		assert.Error(t, err)
	})
}
