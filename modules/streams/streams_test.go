package streams

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask_ValidatesDate(t *testing.T) {
	_, err := NewTask(t.TempDir(), "07-03-2018")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date")

	tsk, err := NewTask(t.TempDir(), "2018-03-07")
	require.NoError(t, err)
	assert.Equal(t, "streams.2018-03-07", tsk.ID())
	assert.Equal(t, "2018-03-07", tsk.Date())
}

func TestTask_OutputIsUnsalted(t *testing.T) {
	dir := t.TempDir()
	tsk, err := NewTask(dir, "2018-03-07")
	require.NoError(t, err)

	out, err := tsk.Output()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "streams", "2018-03-07.tsv"), out.Path())
}

func TestTask_RunWritesDeterministicRows(t *testing.T) {
	read := func(t *testing.T) []string {
		t.Helper()
		dir := t.TempDir()
		tsk, err := NewTask(dir, "2018-03-07")
		require.NoError(t, err)
		require.NoError(t, tsk.Run(context.Background()))

		out, err := tsk.Output()
		require.NoError(t, err)
		f, err := os.Open(out.Path())
		require.NoError(t, err)
		defer f.Close()

		var lines []string
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		require.NoError(t, scanner.Err())
		return lines
	}

	first := read(t)
	second := read(t)
	assert.Equal(t, first, second, "same date must generate identical rows")

	require.Len(t, first, eventsPerDay+1)
	assert.Equal(t, "artist\ttrack", first[0])
	for _, line := range first[1:] {
		fields := strings.Split(line, "\t")
		require.Len(t, fields, 2)
		assert.Contains(t, artists, fields[0])
		assert.Contains(t, artists[fields[0]], fields[1])
	}
}

func TestTask_DifferentDatesDiffer(t *testing.T) {
	dir := t.TempDir()

	run := func(date string) string {
		tsk, err := NewTask(dir, date)
		require.NoError(t, err)
		require.NoError(t, tsk.Run(context.Background()))
		out, err := tsk.Output()
		require.NoError(t, err)
		data, err := os.ReadFile(out.Path())
		require.NoError(t, err)
		return string(data)
	}

	assert.NotEqual(t, run("2018-03-07"), run("2018-03-08"))
}
