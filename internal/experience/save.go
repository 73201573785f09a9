package experience

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

// Save writes experience to path and reports success.
//
// With saveAll unset only evidence added since the last save is appended.
// With saveAll set the whole store is written: the existing file is first
// renamed to path+".bak" and restored if the write fails. Counts are
// rescaled per chain before writing and records shallower than the
// configured minimum depth are skipped. Unless skipLoadWait is set, a full
// save waits for any background load first.
//
// Staged evidence is cleared after a successful save.
func (s *Store) Save(path string, saveAll, skipLoadWait bool) bool {
	if saveAll && !skipLoadWait {
		s.WaitForLoadFinished()
	}

	if !s.HasNewExperience() && (!saveAll || s.Positions() == 0) {
		return true
	}

	log := s.log.With().Str("file", path).Bool("save_all", saveAll).Logger()

	backup := ""
	if saveAll {
		var err error
		if backup, err = s.backup(path); err != nil {
			log.Warn().Err(err).Msg("could not back up experience file, saving without backup")
			backup = ""
		}
	}

	s.mu.RLock()
	pv, multiPV := s.newPV, s.newMultiPV
	s.mu.RUnlock()

	written, err := s.write(path, saveAll, pv, multiPV)
	if err != nil {
		log.Error().Err(err).Msg("experience save failed")
		if backup != "" {
			if rerr := s.restore(backup, path); rerr != nil {
				log.Error().Err(rerr).Str("backup", backup).Msg("could not restore experience backup")
			} else {
				log.Info().Str("backup", backup).Msg("experience backup restored")
			}
		}
		return false
	}

	s.mu.Lock()
	s.newPV = s.newPV[len(pv):]
	s.newMultiPV = s.newMultiPV[len(multiPV):]
	s.mu.Unlock()

	log.Info().Int("records", written).Msg("experience saved")
	return true
}

// backup moves path aside and returns the backup name, or "" when there was
// nothing to back up.
func (s *Store) backup(path string) (string, error) {
	exists, err := afero.Exists(s.fs, path)
	if err != nil || !exists {
		return "", err
	}

	bak := path + ".bak"
	if exists, _ := afero.Exists(s.fs, bak); exists {
		if err := s.fs.Remove(bak); err != nil {
			return "", fmt.Errorf("remove old backup: %w", err)
		}
	}
	if err := s.fs.Rename(path, bak); err != nil {
		return "", fmt.Errorf("rename to backup: %w", err)
	}
	return bak, nil
}

func (s *Store) restore(bak, path string) error {
	if err := s.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn().Err(err).Str("file", path).Msg("could not remove partial experience file")
	}
	return s.fs.Rename(bak, path)
}

// write appends staged records to path, or rewrites path from the index when
// saveAll is set.
func (s *Store) write(path string, saveAll bool, staged ...[]Record) (int, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !saveAll {
		if err := s.checkAppendTarget(path); err != nil {
			return 0, err
		}
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	f, err := s.fs.OpenFile(path, flags, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("stat: %w", err)
	}

	w := newRecordWriter(f, s.bufSize)
	if info.Size() == 0 {
		if err := w.WriteSignature(SignatureV2); err != nil {
			f.Close()
			return 0, err
		}
	}

	if saveAll {
		err = s.writeAll(w)
	} else {
		err = s.writeStaged(w, staged...)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close: %w", cerr)
	}
	return w.Records(), err
}

// checkAppendTarget refuses to append to a non-empty file in an older
// schema.
func (s *Store) checkAppendTarget(path string) error {
	f, err := s.fs.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	header := make([]byte, len(SignatureV2))
	n, err := io.ReadFull(f, header)
	if n == 0 {
		return nil
	}
	if err != nil || string(header) != SignatureV2 {
		return ErrNotCurrentVersion
	}
	return nil
}

// writeAll rescales counts chain by chain and dumps every chain. Staged
// evidence is already linked into the chains, so it is not written twice.
func (s *Store) writeAll(w *recordWriter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	s.index.Range(func(head *Node) bool {
		if rescale(head) {
			s.index.Resort(head.Key)
			head = s.index.Probe(head.Key)
		}
		for n := head; n != nil; n = n.next {
			if n.Depth < s.minDepth {
				continue
			}
			if err = w.WriteRecord(&n.Record); err != nil {
				return false
			}
		}
		return true
	})
	return err
}

func (s *Store) writeStaged(w *recordWriter, lists ...[]Record) error {
	for _, staged := range lists {
		for i := range staged {
			if staged[i].Depth < s.minDepth {
				continue
			}
			if err := w.WriteRecord(&staged[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// rescale divides every count in the chain by 1 + max/128, keeping each
// count at least one. It reports whether any count changed.
func rescale(head *Node) bool {
	maxCount := 0
	for n := head; n != nil; n = n.next {
		maxCount = max(maxCount, int(n.Count))
	}
	scale := 1 + maxCount/128
	if scale == 1 {
		return false
	}
	for n := head; n != nil; n = n.next {
		n.Count = uint16(max(int(n.Count)/scale, 1))
	}
	return true
}
