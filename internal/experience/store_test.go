package experience

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/chessgraph/experience/internal/graph"
)

const testFile = "/data/test.exp"

func newTestStore(fs afero.Fs) *Store {
	return New(Config{Fs: fs, Logger: zerolog.Nop()})
}

// snapshot returns every chain keyed by position, in chain order.
func snapshot(s *Store) map[graph.Key][]Record {
	out := make(map[graph.Key][]Record)
	s.Range(func(head *Node) bool {
		for n := head; n != nil; n = n.Next() {
			out[n.Key] = append(out[n.Key], n.Record)
		}
		return true
	})
	return out
}

func addSampleEvidence(s *Store) {
	s.AddPV(0x1111, graph.EncodeMove(12, 28, 0), 35, 18)
	s.AddMultiPV(0x1111, graph.EncodeMove(11, 27, 0), 20, 18)
	s.AddMultiPV(0x1111, graph.EncodeMove(6, 21, 0), 28, 16)
	s.AddPV(0x2222, graph.EncodeMove(52, 36, 0), -12, 17)
	s.AddPV(0x3333, graph.EncodeMove(1, 18, 0), 5, 9)
}

func writeV1File(t *testing.T, fs afero.Fs, path string, recs []RecordV1) {
	t.Helper()
	data := []byte(SignatureV1)
	var buf [RecordSize]byte
	for i := range recs {
		recs[i].Encode(buf[:])
		data = append(data, buf[:]...)
	}
	require.NoError(t, afero.WriteFile(fs, path, data, 0o644))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newTestStore(fs)
	addSampleEvidence(s)
	s.AddPV(0x4444, graph.EncodeMove(8, 16, 0), 1, 2) // too shallow to persist
	require.True(t, s.Save(testFile, true, false))
	assert.False(t, s.HasNewExperience())

	loaded := newTestStore(fs)
	require.True(t, loaded.Load(testFile, true))

	want := snapshot(s)
	delete(want, 0x4444)
	assert.Equal(t, want, snapshot(loaded))
	assert.Equal(t, 3, loaded.Positions())
	assert.Equal(t, 5, loaded.Moves())

	report := loaded.LastLoad()
	assert.Equal(t, 5, report.Records)
	assert.Equal(t, 3, report.NewPositions)
	assert.Equal(t, CurrentVersion, report.Version)
	assert.NotEmpty(t, report.LoadID)
}

func TestIncrementalSaveAppends(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newTestStore(fs)
	s.AddPV(0x1111, graph.EncodeMove(12, 28, 0), 35, 18)
	require.True(t, s.Save(testFile, false, false))
	s.AddPV(0x1111, graph.EncodeMove(12, 28, 0), 45, 18)
	s.AddMultiPV(0x2222, graph.EncodeMove(52, 36, 0), 5, 12)
	require.True(t, s.Save(testFile, false, false))

	info, err := fs.Stat(testFile)
	require.NoError(t, err)
	assert.Equal(t, int64(len(SignatureV2)+3*RecordSize), info.Size())

	loaded := newTestStore(fs)
	require.True(t, loaded.Load(testFile, true))
	assert.Equal(t, 1, loaded.LastLoad().Duplicates)
	assert.InDelta(t, 33.33, loaded.LastLoad().Fragmentation(), 0.01)

	head := loaded.Probe(0x1111)
	require.NotNil(t, head)
	assert.Equal(t, graph.Value(40), head.Value)
	assert.Equal(t, uint16(2), head.Count)
}

func TestSaveWithoutEvidenceIsNoop(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newTestStore(fs)
	assert.True(t, s.Save(testFile, false, false))
	assert.True(t, s.Save(testFile, true, false))

	exists, err := afero.Exists(fs, testFile)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLoadRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"unknown signature", []byte("this is not an experience file at all, honest")},
		{"ragged size", append([]byte(SignatureV2), make([]byte, RecordSize+5)...)},
		{"truncated signature", []byte(SignatureV2[:12])},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, testFile, tt.data, 0o644))

			s := newTestStore(fs)
			assert.False(t, s.Load(testFile, true))
			assert.Zero(t, s.Positions())
		})
	}
}

func TestFailedLoadKeepsStore(t *testing.T) {
	bad := map[string][]byte{
		"/bad/unknown.exp": []byte("this is not an experience file at all, honest"),
		"/bad/ragged.exp":  append([]byte(SignatureV2), make([]byte, 2*RecordSize+7)...),
		"/bad/v1.exp":      append([]byte(SignatureV1), make([]byte, RecordSize-1)...),
	}
	fs := afero.NewMemMapFs()
	good := newTestStore(fs)
	addSampleEvidence(good)
	require.True(t, good.Save(testFile, true, false))
	for path, data := range bad {
		require.NoError(t, afero.WriteFile(fs, path, data, 0o644))
	}

	s := newTestStore(fs)
	require.True(t, s.Load(testFile, true))
	s.AddPV(0x7777, graph.EncodeMove(12, 28, 0), 15, 12)
	before := snapshot(s)
	report := s.LastLoad()

	for path := range bad {
		t.Run(path, func(t *testing.T) {
			assert.False(t, s.Load(path, true))
			assert.Equal(t, before, snapshot(s))
			assert.Equal(t, report, s.LastLoad())
			assert.True(t, s.HasNewExperience())
		})
	}
}

// gatedFs blocks the first read past a file header until release is
// closed. reading is closed once the loader is parked there. Later opens
// are not gated.
type gatedFs struct {
	afero.Fs
	once    sync.Once
	reading chan struct{}
	release chan struct{}
}

func newGatedFs(base afero.Fs) *gatedFs {
	return &gatedFs{Fs: base, reading: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedFs) Open(name string) (afero.File, error) {
	f, err := g.Fs.Open(name)
	if err != nil {
		return nil, err
	}
	return &gatedFile{File: f, g: g}, nil
}

type gatedFile struct {
	afero.File
	g     *gatedFs
	reads int
}

func (f *gatedFile) Read(p []byte) (int, error) {
	f.reads++
	if f.reads == 2 {
		f.g.once.Do(func() {
			close(f.g.reading)
			<-f.g.release
		})
	}
	return f.File.Read(p)
}

func TestCancelLoadWhileDecoding(t *testing.T) {
	base := afero.NewMemMapFs()
	good := newTestStore(base)
	addSampleEvidence(good)
	require.True(t, good.Save(testFile, true, false))

	g := newGatedFs(base)
	s := newTestStore(g)
	s.AddPV(0x7777, graph.EncodeMove(12, 28, 0), 15, 12)
	before := snapshot(s)

	require.True(t, s.Load(testFile, false))
	<-g.reading
	assert.True(t, s.IsLoading())

	cancelled := make(chan struct{})
	go func() {
		s.CancelLoad()
		close(cancelled)
	}()
	require.Eventually(t, s.abort.Load, time.Second, time.Millisecond)
	close(g.release)
	<-cancelled

	assert.False(t, s.WaitForLoadFinished())
	assert.False(t, s.IsLoading())
	assert.Equal(t, before, snapshot(s))

	// the store stays usable
	require.True(t, s.Load(testFile, true))
	assert.Equal(t, 4, s.Positions())
}

func TestCancelLoadBeforeLinking(t *testing.T) {
	fs := afero.NewMemMapFs()
	good := newTestStore(fs)
	addSampleEvidence(good)
	require.True(t, good.Save(testFile, true, false))

	s := newTestStore(fs)
	before := snapshot(s)

	// a reader holding the index keeps the loader from linking
	s.mu.RLock()
	require.True(t, s.Load(testFile, false))
	cancelled := make(chan struct{})
	go func() {
		s.CancelLoad()
		close(cancelled)
	}()
	require.Eventually(t, func() bool {
		select {
		case <-cancelled:
			return true
		default:
			return s.abort.Load()
		}
	}, time.Second, time.Millisecond)
	s.mu.RUnlock()
	<-cancelled

	assert.False(t, s.WaitForLoadFinished())
	assert.Equal(t, before, snapshot(s))
	assert.Zero(t, s.Moves())
}

func TestLoadLinksInBatches(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := newTestStore(fs)
	n := 2*linkBatch + 10
	for i := range n {
		src.AddPV(graph.Key(i/3+1), graph.Move(i%3+1), graph.Value(i%50), 10)
	}
	require.True(t, src.Save(testFile, true, false))

	s := newTestStore(fs)
	require.True(t, s.Load(testFile, true))
	report := s.LastLoad()
	assert.Equal(t, n, report.Records)
	assert.Equal(t, src.Positions(), report.NewPositions)
	assert.Equal(t, n, report.NewMoves)
	assert.Equal(t, snapshot(src), snapshot(s))
}

func TestLoadMissingFile(t *testing.T) {
	s := newTestStore(afero.NewMemMapFs())
	assert.False(t, s.Load("/nope.exp", true))
	assert.False(t, s.IsLoading())
}

func TestLoadSignatureOnly(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, testFile, []byte(SignatureV2), 0o644))

	s := newTestStore(fs)
	assert.True(t, s.Load(testFile, true))
	assert.Zero(t, s.Positions())
}

func TestLoadInBackground(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newTestStore(fs)
	addSampleEvidence(s)
	require.True(t, s.Save(testFile, true, false))

	loaded := newTestStore(fs)
	assert.True(t, loaded.Load(testFile, false))
	assert.True(t, loaded.WaitForLoadFinished())
	assert.Equal(t, 3, loaded.Positions())
}

func TestV1FileIsUpgraded(t *testing.T) {
	fs := afero.NewMemMapFs()
	v1 := []RecordV1{
		{Key: 0xAAAA, Move: graph.EncodeMove(12, 28, 0), Value: 30, Depth: 20},
		{Key: 0xAAAA, Move: graph.EncodeMove(11, 27, 0), Value: 10, Depth: 20},
		{Key: 0xBBBB, Move: graph.EncodeMove(52, 36, 0), Value: -5, Depth: 12},
	}
	writeV1File(t, fs, testFile, v1)

	s := newTestStore(fs)
	require.True(t, s.Load(testFile, true))
	assert.Equal(t, 1, s.LastLoad().Version)

	data, err := afero.ReadFile(fs, testFile)
	require.NoError(t, err)
	require.Greater(t, len(data), len(SignatureV2))
	assert.Equal(t, SignatureV2, string(data[:len(SignatureV2)]))
	assert.Len(t, data, len(SignatureV2)+3*RecordSize)

	bak, err := afero.ReadFile(fs, testFile+".bak")
	require.NoError(t, err)
	assert.Equal(t, SignatureV1, string(bak[:len(SignatureV1)]))

	reloaded := newTestStore(fs)
	require.True(t, reloaded.Load(testFile, true))
	assert.Equal(t, CurrentVersion, reloaded.LastLoad().Version)
	for _, r := range v1 {
		n := reloaded.Probe(r.Key).Find(r.Move)
		require.NotNil(t, n)
		assert.Equal(t, r.Upgrade(), n.Record)
	}
}

func TestIncrementalSaveRefusesOldFormat(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeV1File(t, fs, testFile, []RecordV1{{Key: 1, Move: 1, Value: 1, Depth: 10}})

	s := newTestStore(fs)
	s.AddPV(2, graph.EncodeMove(12, 28, 0), 10, 10)
	assert.False(t, s.Save(testFile, false, false))
}

// failingWriteFs opens files for writing with a handle whose writes fail.
type failingWriteFs struct {
	afero.Fs
}

func (f failingWriteFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	file, err := f.Fs.OpenFile(name, flag, perm)
	if err != nil || flag&(os.O_WRONLY|os.O_RDWR) == 0 {
		return file, err
	}
	return failingFile{file}, nil
}

type failingFile struct {
	afero.File
}

func (failingFile) Write([]byte) (int, error) {
	return 0, errors.New("no space left on device")
}

func TestFailedSaveRestoresBackup(t *testing.T) {
	base := afero.NewMemMapFs()
	good := newTestStore(base)
	addSampleEvidence(good)
	require.True(t, good.Save(testFile, true, false))
	original, err := afero.ReadFile(base, testFile)
	require.NoError(t, err)

	s := newTestStore(failingWriteFs{base})
	require.True(t, s.Load(testFile, true))
	s.AddPV(0x9999, graph.EncodeMove(12, 28, 0), 1, 20)
	assert.False(t, s.Save(testFile, true, false))
	assert.True(t, s.HasNewExperience(), "evidence kept after failed save")

	restored, err := afero.ReadFile(base, testFile)
	require.NoError(t, err)
	assert.Equal(t, original, restored)

	exists, err := afero.Exists(base, testFile+".bak")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFullSaveRescalesCounts(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newTestStore(fs)
	counts := []uint16{60000, 1000, 300, 1}
	for i, c := range counts {
		n := &s.index.Alloc(1)[0]
		n.Record = Record{Key: 0x5555, Move: graph.Move(i + 1), Value: 10, Depth: 20, Count: c}
		s.index.Link(n)
	}
	// an unscaled chain is left alone
	s.AddPV(0x6666, 1, 10, 20)

	require.True(t, s.Save(testFile, true, false))

	loaded := newTestStore(fs)
	require.True(t, loaded.Load(testFile, true))

	scale := 1 + 60000/128
	head := loaded.Probe(0x5555)
	for i, c := range counts {
		n := head.Find(graph.Move(i + 1))
		require.NotNil(t, n)
		assert.Equal(t, uint16(max(int(c)/scale, 1)), n.Count)
		assert.LessOrEqual(t, n.Count, uint16(128))
	}
	assert.Equal(t, uint16(1), loaded.Probe(0x6666).Count)
}

func TestFullSaveKeepsChainOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newTestStore(fs)
	for _, r := range []Record{
		{Key: 0x5555, Move: 1, Value: 3, Depth: 20, Count: 6},
		{Key: 0x5555, Move: 2, Value: 2, Depth: 20, Count: 9},
		{Key: 0x5555, Move: 3, Value: -100, Depth: 20, Count: 300},
	} {
		n := &s.index.Alloc(1)[0]
		n.Record = r
		s.index.Link(n)
	}
	require.Equal(t, graph.Move(2), s.Probe(0x5555).Move)

	require.True(t, s.Save(testFile, true, false))

	// counts become 2, 3 and 100, which puts move 1 ahead of move 2
	loaded := newTestStore(fs)
	require.True(t, loaded.Load(testFile, true))
	for _, st := range []*Store{s, loaded} {
		head := st.Probe(0x5555)
		require.NotNil(t, head)
		assert.Equal(t, graph.Move(1), head.Move)
		for n := head; n.Next() != nil; n = n.Next() {
			assert.GreaterOrEqual(t, n.Compare(&n.Next().Record), 0, "move %d before move %d", n.Move, n.Next().Move)
		}
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(afero.NewMemMapFs())
	addSampleEvidence(s)
	s.Clear()

	assert.Zero(t, s.Positions())
	assert.Zero(t, s.Moves())
	assert.False(t, s.HasNewExperience())
	assert.Nil(t, s.Probe(0x1111))
}
