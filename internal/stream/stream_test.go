package stream

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/finsent/internal/models"
)

type rec struct {
	N    int    `json:"n"`
	Text string `json:"text"`
}

func writeRecords(t *testing.T, path string, n int) {
	t.Helper()
	w, err := Create(path)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.NoError(t, w.Encode(rec{N: i, Text: fmt.Sprintf("record %d <b>&</b> %x", i, i*7919)}))
	}
	require.NoError(t, w.Commit())
}

func TestRoundTrip(t *testing.T) {
	for _, name := range []string{"plain.jsonl", "packed.jsonl.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			writeRecords(t, path, 50)

			got, c, err := ReadAll[rec](path)
			require.NoError(t, err)
			assert.Equal(t, 50, c.Read)
			assert.Equal(t, 0, c.Malformed)
			require.Len(t, got, 50)
			for i, r := range got {
				assert.Equal(t, i, r.N)
			}
			assert.Equal(t, "record 3 <b>&</b> 5ccd", got[3].Text)
		})
	}
}

func TestEach_SkipsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixed.jsonl")
	content := "{\"n\":1}\nnot json\n\n{\"n\":2}\n{\"n\":3}"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, c, err := ReadAll[rec](path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Read, "final line without newline is still complete")
	assert.Equal(t, 1, c.Malformed)
	assert.Len(t, got, 3)
}

func TestEach_TruncatedGzip(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "full.jsonl.gz")
	writeRecords(t, full, 5000)

	data, err := os.ReadFile(full)
	require.NoError(t, err)
	cut := filepath.Join(dir, "cut.jsonl.gz")
	require.NoError(t, os.WriteFile(cut, data[:len(data)/2], 0o644))

	got, c, err := ReadAll[rec](cut)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrIOFailure)
	assert.True(t, c.Truncated)
	assert.Less(t, c.Read, 5000)
	assert.Equal(t, 0, c.Malformed, "partial trailing line must not be surfaced")
	for i, r := range got {
		assert.Equal(t, i, r.N)
	}
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.Error(t, err)
}

func TestOpen_NotGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.jsonl.gz")
	require.NoError(t, os.WriteFile(path, []byte("{\"n\":1}\n"), 0o644))
	_, err := Open(path)
	assert.ErrorIs(t, err, models.ErrIOFailure)
}

func TestWriter_AbortLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl.gz")
	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Encode(rec{N: 1}))
	w.Abort()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriter_NoFinalNameBeforeCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Encode(rec{N: 1}))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	require.NoError(t, w.Commit())
	_, statErr = os.Stat(path)
	assert.NoError(t, statErr)
	assert.Equal(t, 1, w.Written())
}

func TestWriteLine_Verbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lines.jsonl")
	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteLine([]byte(`{"b":1,"a":2}`)))
	require.NoError(t, w.Commit())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"b\":1,\"a\":2}\n", string(data))
}
