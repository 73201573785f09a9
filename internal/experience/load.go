package experience

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Load reads path into the store on a background goroutine. Any load already
// in flight is cancelled first. With wait set, Load blocks and returns the
// load result; otherwise it returns true once the loader has started.
//
// A file written in an older schema is rewritten in the current schema by
// the loader itself once it has been read. Stores created with
// Config.NoUpgrade leave their inputs alone.
func (s *Store) Load(path string, wait bool) bool {
	s.CancelLoad()

	s.loadMu.Lock()
	s.loading = true
	s.loadMu.Unlock()
	s.loadOK.Store(false)

	go s.runLoad(path, uuid.NewString())

	if wait {
		return s.WaitForLoadFinished()
	}
	return true
}

// WaitForLoadFinished blocks until no load is in flight and returns the
// result of the last one.
func (s *Store) WaitForLoadFinished() bool {
	s.loadMu.Lock()
	for s.loading {
		s.loadCond.Wait()
	}
	s.loadMu.Unlock()
	return s.loadOK.Load()
}

// IsLoading reports whether a background load is in flight.
func (s *Store) IsLoading() bool {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.loading
}

// CancelLoad asks the running loader to stop and waits for it.
func (s *Store) CancelLoad() {
	s.abort.Store(true)
	s.WaitForLoadFinished()
	s.abort.Store(false)
}

func (s *Store) runLoad(path, loadID string) {
	log := s.log.With().Str("load_id", loadID).Str("file", path).Logger()

	report, err := s.loadFile(path, loadID)
	ok := err == nil
	switch {
	case errors.Is(err, ErrLoadCancelled):
		log.Info().Msg("experience load cancelled")
	case err != nil:
		log.Warn().Err(err).Msg("experience load failed")
	default:
		log.Info().
			Int("records", report.Records).
			Int("new_positions", report.NewPositions).
			Int("new_moves", report.NewMoves).
			Int("duplicates", report.Duplicates).
			Str("fragmentation", fmt.Sprintf("%.2f%%", report.Fragmentation())).
			Int("version", report.Version).
			Msg("experience loaded")
	}

	if ok && s.upgrade && report.Version != CurrentVersion {
		log.Info().Int("from_version", report.Version).Int("to_version", CurrentVersion).
			Msg("upgrading experience file")
		if !s.Save(path, true, true) {
			log.Warn().Msg("experience upgrade failed, file left in old format")
		}
	}

	s.loadMu.Lock()
	if ok {
		s.report = report
	}
	s.loadOK.Store(ok)
	s.loading = false
	s.loadCond.Broadcast()
	s.loadMu.Unlock()
}

// linkBatch is how many records are linked per hold of the store lock.
const linkBatch = 4096

// loadFile decodes every record of path into a fresh arena, then links the
// arena into the index in batches so probes can run in between. Format
// errors are found while decoding and leave the store unchanged. A cancel
// seen between batches keeps the batches already linked.
func (s *Store) loadFile(path, loadID string) (LoadReport, error) {
	report := LoadReport{LoadID: loadID, File: path}

	f, err := s.fs.Open(path)
	if err != nil {
		return report, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return report, fmt.Errorf("stat: %w", err)
	}
	size := info.Size()
	if size == 0 {
		return report, ErrEmpty
	}

	header := make([]byte, maxSignatureLen)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return report, fmt.Errorf("read header: %w", err)
	}
	rd, count, err := identify(header[:n], size)
	if err != nil {
		return report, err
	}
	report.Version = rd.Version()

	if _, err := f.Seek(int64(len(rd.Signature())), io.SeekStart); err != nil {
		return report, fmt.Errorf("seek past signature: %w", err)
	}

	nodes := make([]Node, count)
	br := bufio.NewReaderSize(f, 64*1024)
	var buf [RecordSize]byte
	for i := range nodes {
		if s.abort.Load() {
			return report, ErrLoadCancelled
		}
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return report, fmt.Errorf("%w: record %d of %d: %v", ErrCorrupt, i, count, err)
		}
		nodes[i].Record = rd.Decode(buf[:])
	}

	for start := 0; start < len(nodes); start += linkBatch {
		end := min(start+linkBatch, len(nodes))

		s.mu.Lock()
		if s.abort.Load() {
			s.mu.Unlock()
			return report, ErrLoadCancelled
		}
		if start == 0 {
			s.index.Adopt(nodes)
		}
		positions, moves := s.index.Len(), s.index.Moves()
		for i := start; i < end; i++ {
			if !s.index.Link(&nodes[i]) {
				report.Duplicates++
			}
		}
		report.NewPositions += s.index.Len() - positions
		report.NewMoves += s.index.Moves() - moves
		s.mu.Unlock()
	}

	report.Records = len(nodes)
	return report, nil
}
