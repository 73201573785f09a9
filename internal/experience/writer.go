package experience

import (
	"bufio"
	"fmt"
	"io"
)

// recordWriter buffers records for a single output file and checks that
// every write lands in full.
type recordWriter struct {
	bw      *bufio.Writer
	buf     [RecordSize]byte
	records int
}

func newRecordWriter(w io.Writer, size int) *recordWriter {
	if size <= 0 {
		size = defaultWriteBufferSize
	}
	return &recordWriter{bw: bufio.NewWriterSize(w, size)}
}

func (w *recordWriter) WriteSignature(sig string) error {
	n, err := w.bw.WriteString(sig)
	if err != nil {
		return fmt.Errorf("write signature: %w", err)
	}
	if n != len(sig) {
		return fmt.Errorf("write signature: short write (%d of %d bytes)", n, len(sig))
	}
	return nil
}

func (w *recordWriter) WriteRecord(r *Record) error {
	r.Encode(w.buf[:])
	n, err := w.bw.Write(w.buf[:])
	if err != nil {
		return fmt.Errorf("write record %d: %w", w.records, err)
	}
	if n != RecordSize {
		return fmt.Errorf("write record %d: short write (%d of %d bytes)", w.records, n, RecordSize)
	}
	w.records++
	return nil
}

func (w *recordWriter) Flush() error {
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Records returns how many records have been written.
func (w *recordWriter) Records() int {
	return w.records
}
