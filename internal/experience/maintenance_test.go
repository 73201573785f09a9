package experience

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/chessgraph/experience/internal/graph"
)

func sampleV1() []RecordV1 {
	return []RecordV1{
		{Key: 0xAAAA, Move: graph.EncodeMove(12, 28, 0), Value: 30, Depth: 20},
		{Key: 0xBBBB, Move: graph.EncodeMove(52, 36, 0), Value: -5, Depth: 12},
	}
}

func TestMergeLeavesSourcesAlone(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := Config{Fs: fs, Logger: zerolog.Nop()}

	src := newTestStore(fs)
	addSampleEvidence(src)
	require.True(t, src.Save("/data/a.exp", true, false))
	writeV1File(t, fs, "/data/old.exp", sampleV1())
	before, err := afero.ReadFile(fs, "/data/old.exp")
	require.NoError(t, err)

	reports, err := Merge(cfg, "/data/merged.exp", "/data/a.exp", "/data/old.exp", "/data/missing.exp")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, 1, reports[1].Version)

	after, err := afero.ReadFile(fs, "/data/old.exp")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	exists, err := afero.Exists(fs, "/data/old.exp.bak")
	require.NoError(t, err)
	assert.False(t, exists)

	merged := newTestStore(fs)
	require.True(t, merged.Load("/data/merged.exp", true))
	assert.Equal(t, CurrentVersion, merged.LastLoad().Version)
	for _, r := range sampleV1() {
		assert.NotNil(t, merged.Probe(r.Key).Find(r.Move))
	}
	assert.NotNil(t, merged.Probe(0x1111).Find(graph.EncodeMove(12, 28, 0)))
}

func TestMergeWithNothingReadable(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := Merge(Config{Fs: fs, Logger: zerolog.Nop()}, "/data/merged.exp", "/data/missing.exp")
	assert.ErrorIs(t, err, ErrNothingLoaded)
}

func TestFileStatsDoesNotRewrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeV1File(t, fs, testFile, sampleV1())
	before, err := afero.ReadFile(fs, testFile)
	require.NoError(t, err)

	report, err := FileStats(Config{Fs: fs, Logger: zerolog.Nop()}, testFile)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Version)
	assert.Equal(t, 2, report.NewMoves)

	after, err := afero.ReadFile(fs, testFile)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDefragUpgradesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeV1File(t, fs, testFile, sampleV1())

	report, err := Defrag(Config{Fs: fs, Logger: zerolog.Nop()}, testFile)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Version)

	data, err := afero.ReadFile(fs, testFile)
	require.NoError(t, err)
	require.Greater(t, len(data), len(SignatureV2))
	assert.Equal(t, SignatureV2, string(data[:len(SignatureV2)]))
	assert.Len(t, data, len(SignatureV2)+2*RecordSize)
}
