package experience

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt reports a file whose signature is known but whose size or
	// contents are not.
	ErrCorrupt = errors.New("experience file is corrupted")

	// ErrUnknownFormat reports a file no reader recognizes.
	ErrUnknownFormat = errors.New("unknown experience file format")

	// ErrEmpty reports a zero-length file.
	ErrEmpty = errors.New("experience file is empty")

	// ErrLoadCancelled reports a load aborted by CancelLoad.
	ErrLoadCancelled = errors.New("experience load cancelled")

	// ErrNotCurrentVersion reports an incremental save onto a file written
	// in an older schema.
	ErrNotCurrentVersion = errors.New("experience file is not in the current format")

	// ErrInvariant reports an internal consistency failure.
	ErrInvariant = errors.New("experience invariant violated")
)

// invariant aborts the current operation when ok is false: debug builds
// panic, release builds log and return false.
func (s *Store) invariant(ok bool, msg string) bool {
	if ok {
		return true
	}
	if debugBuild {
		panic(fmt.Sprintf("%v: %s", ErrInvariant, msg))
	}
	s.log.Error().Err(ErrInvariant).Msg(msg)
	return false
}
