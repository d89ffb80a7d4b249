package snapshot

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seiscode/cp-ppsd/pkg/seismic"
	"github.com/seiscode/cp-ppsd/pkg/spectral"
)

// fakeAccumulator wraps a prepared snapshot for writer tests.
type fakeAccumulator struct {
	snap *spectral.Snapshot
}

func (f *fakeAccumulator) Add(*seismic.Trace) error      { return nil }
func (f *fakeAccumulator) WindowCount() int              { return f.snap.WindowCount() }
func (f *fakeAccumulator) Snapshot() *spectral.Snapshot  { return f.snap }
func (f *fakeAccumulator) Fold(*spectral.Snapshot) error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestWriter_RefusesEmptyAccumulator(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writer := NewWriter(dir, "", nil, discardLogger())

	acc := &fakeAccumulator{snap: makeSnapshot(artifactID, 0)}

	path, written, err := writer.Write(acc, "/data/day001.mseed")

	require.NoError(t, err)
	assert.False(t, written)
	assert.Empty(t, path)

	entries, err := os.ReadDir(dir)

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriter_DefaultNameEmbedsSourceStem(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writer := NewWriter(dir, "", nil, discardLogger())

	acc := &fakeAccumulator{snap: makeSnapshot(artifactID, 3)}

	path, written, err := writer.Write(acc, "/data/day001.mseed")

	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, filepath.Join(dir, "PPSD_day001"+Extension), path)

	restored, err := Load(path, NewLZ4Codec())

	require.NoError(t, err)
	assert.Equal(t, 3, restored.WindowCount())
}

func TestWriter_PatternUsesDataTimestamps(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writer := NewWriter(dir, "{network}-{station}_{start_datetime}_{end_datetime}"+Extension, nil, discardLogger())
	writer.now = func() time.Time { return time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC) }

	snap := makeSnapshot(artifactID, 2)
	snap.DataStart = time.Date(2025, 2, 3, 4, 5, 0, 0, time.UTC)
	snap.DataEnd = time.Date(2025, 2, 4, 4, 5, 0, 0, time.UTC)

	path, written, err := writer.Write(&fakeAccumulator{snap: snap}, "src.mseed")

	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, "BJ-DAX_202502030405_202502040405"+Extension, filepath.Base(path))
}

func TestWriter_SameChannelDifferentSourcesStayUnique(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writer := NewWriter(dir, "", nil, discardLogger())

	acc := &fakeAccumulator{snap: makeSnapshot(artifactID, 1)}

	first, _, err := writer.Write(acc, "/data/day001.mseed")

	require.NoError(t, err)

	second, _, err := writer.Write(acc, "/data/day002.mseed")

	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
