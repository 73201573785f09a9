package experience

import (
	"bytes"
	"fmt"
)

// formatReader recognizes and decodes one schema version. Readers are tried
// newest first; the first one that accepts the header and size wins.
type formatReader interface {
	Version() int
	Signature() string
	Match(header []byte, size int64) bool
	Decode(buf []byte) Record
}

var formatReaders = []formatReader{v2Reader{}, v1Reader{}}

// maxSignatureLen is how much of a file header identify needs.
var maxSignatureLen = func() int {
	n := 0
	for _, r := range formatReaders {
		n = max(n, len(r.Signature()))
	}
	return n
}()

type v2Reader struct{}

func (v2Reader) Version() int      { return 2 }
func (v2Reader) Signature() string { return SignatureV2 }

func (r v2Reader) Match(header []byte, size int64) bool {
	return matchSignature(r.Signature(), header, size)
}

func (v2Reader) Decode(buf []byte) Record {
	return DecodeRecord(buf)
}

type v1Reader struct{}

func (v1Reader) Version() int      { return 1 }
func (v1Reader) Signature() string { return SignatureV1 }

func (r v1Reader) Match(header []byte, size int64) bool {
	return matchSignature(r.Signature(), header, size)
}

func (v1Reader) Decode(buf []byte) Record {
	old := DecodeRecordV1(buf)
	return old.Upgrade()
}

func matchSignature(sig string, header []byte, size int64) bool {
	n := int64(len(sig))
	if size < n || !bytes.HasPrefix(header, []byte(sig)) {
		return false
	}
	return (size-n)%RecordSize == 0
}

// identify picks the reader for a file and returns the number of records it
// holds.
func identify(header []byte, size int64) (formatReader, int64, error) {
	for _, r := range formatReaders {
		if r.Match(header, size) {
			return r, (size - int64(len(r.Signature()))) / RecordSize, nil
		}
	}
	for _, r := range formatReaders {
		if bytes.HasPrefix(header, []byte(r.Signature())) {
			return nil, 0, fmt.Errorf("%w: version %d file of %d bytes is not a whole number of records",
				ErrCorrupt, r.Version(), size)
		}
	}
	return nil, 0, ErrUnknownFormat
}
