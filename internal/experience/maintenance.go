package experience

import (
	"errors"
	"fmt"
)

// ErrNothingLoaded reports a merge where no input file could be read.
var ErrNothingLoaded = errors.New("no experience file could be loaded")

// newScratch returns a store that never rewrites the files it loads. Only
// the explicit save of a maintenance operation touches disk.
func newScratch(cfg Config) *Store {
	cfg.NoUpgrade = true
	return New(cfg)
}

// Defrag rewrites path in the current schema with every duplicate merged
// and every chain in rank order.
func Defrag(cfg Config, path string) (LoadReport, error) {
	s := newScratch(cfg)
	if !s.Load(path, true) {
		return LoadReport{}, fmt.Errorf("defrag %s: load failed", path)
	}
	report := s.LastLoad()
	if !s.Save(path, true, false) {
		return report, fmt.Errorf("defrag %s: save failed", path)
	}
	return report, nil
}

// Merge loads target and every source into one store and writes the result
// to target. Unreadable inputs are logged and skipped; a missing target is
// created.
func Merge(cfg Config, target string, sources ...string) ([]LoadReport, error) {
	s := newScratch(cfg)
	var reports []LoadReport
	for _, path := range append([]string{target}, sources...) {
		if !s.Load(path, true) {
			continue
		}
		reports = append(reports, s.LastLoad())
	}
	if len(reports) == 0 {
		return nil, ErrNothingLoaded
	}
	if !s.Save(target, true, false) {
		return reports, fmt.Errorf("merge into %s: save failed", target)
	}
	return reports, nil
}

// FileStats loads path into a scratch store and reports its contents.
func FileStats(cfg Config, path string) (LoadReport, error) {
	s := newScratch(cfg)
	if !s.Load(path, true) {
		return LoadReport{}, fmt.Errorf("stats %s: load failed", path)
	}
	return s.LastLoad(), nil
}
