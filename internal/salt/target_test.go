package salt

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/aaroncwhite/salted/internal/target"
	"github.com/aaroncwhite/salted/internal/task"
)

func TestPath_TruncationStability(t *testing.T) {
	n := parentNode(leafNode("2018-03-07"))
	d, err := Digest(n)
	require.NoError(t, err)

	p, err := Path(n, "out-{salt}.csv", Options{Enabled: true, Length: 8})
	require.NoError(t, err)
	assert.Equal(t, "out-"+d[:8]+".csv", p)
}

func TestPath_ScenarioSixCharSalt(t *testing.T) {
	n := parentNode(leafNode("2018-03-07"))

	p, err := Path(n, "out-{salt}.csv", Options{Enabled: true, Length: 6})
	require.NoError(t, err)
	assert.Equal(t, "out-"+parentDigest[:6]+".csv", p)
}

func TestPath_LengthEdgeCases(t *testing.T) {
	n := leafNode("2018-03-07")

	t.Run("zero length falls back to default", func(t *testing.T) {
		p, err := Path(n, "{salt}", Options{Enabled: true})
		require.NoError(t, err)
		assert.Equal(t, leafDigest[:DefaultLength], p)
	})

	t.Run("oversized length truncates to full digest", func(t *testing.T) {
		p, err := Path(n, "{salt}", Options{Enabled: true, Length: 4096})
		require.NoError(t, err)
		assert.Equal(t, leafDigest, p)
	})

	t.Run("negative length is rejected", func(t *testing.T) {
		_, err := Path(n, "{salt}", Options{Enabled: true, Length: -1})
		var optErr *OptionsError
		require.ErrorAs(t, err, &optErr)
	})
}

func TestPath_SaltingDisabledFallsBackToID(t *testing.T) {
	n := leafNode("2018-03-07")

	p, err := Path(n, "data/{salt}.tsv", Options{Enabled: false})
	require.NoError(t, err)
	assert.Equal(t, "data/leaf.tsv", p)
}

func TestPath_ParameterFoldingIsCosmetic(t *testing.T) {
	n := leafNode("2018-03-07")

	plain, err := Path(n, "{salt}", Options{Enabled: true, Length: 6})
	require.NoError(t, err)

	folded, err := Path(n, "{salt}", Options{Enabled: true, Length: 6, Parameters: true})
	require.NoError(t, err)

	assert.Equal(t, "date=2018-03-07-"+leafDigest[:6], folded)
	assert.Contains(t, folded, plain, "folding params must not change the digest prefix")
}

func TestPath_NodeAttributePlaceholders(t *testing.T) {
	n := leafNode("2018-03-07")

	p, err := Path(n, "streams_{param.date}_{id}-{salt}.tsv", Options{Enabled: true, Length: 6})
	require.NoError(t, err)
	assert.Equal(t, "streams_2018-03-07_leaf-"+leafDigest[:6]+".tsv", p)
}

func TestPath_UnresolvablePlaceholder(t *testing.T) {
	n := leafNode("2018-03-07")

	_, err := Path(n, "out-{param.nope}-{salt}.csv", DefaultOptions())
	require.Error(t, err)

	var tmplErr *TemplateError
	require.ErrorAs(t, err, &tmplErr)
	assert.Equal(t, "param.nope", tmplErr.Placeholder)
}

func TestPath_PathSeparatorsInValuesAreSanitized(t *testing.T) {
	n := &fakeNode{id: "n", fingerprint: "F", params: []task.Param{
		{Name: "interval", Value: cty.StringVal("2018-03-05/2018-03-11"), Significant: true},
	}}

	p, err := Path(n, "agg_{param.interval}-{salt}.tsv", DefaultOptions())
	require.NoError(t, err)
	assert.NotContains(t, p, "/")
}

func TestTarget_ConstructsWithoutIO(t *testing.T) {
	n := parentNode(leafNode("2018-03-07"))
	dir := t.TempDir()

	tgt, err := Target(n, target.LocalConstructor, dir+"/out-{salt}.csv", Options{Enabled: true, Length: 6})
	require.NoError(t, err)
	require.NotNil(t, tgt)

	assert.False(t, tgt.Exists())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "constructing a target must not create files")
}

func TestPath_DigestErrorsPropagate(t *testing.T) {
	a := &fakeNode{id: "a", fingerprint: "A"}
	b := &fakeNode{id: "b", fingerprint: "B", requires: []task.Node{a}}
	a.requires = []task.Node{b}

	_, err := Path(a, "{salt}", DefaultOptions())
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
}
