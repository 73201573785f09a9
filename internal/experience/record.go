package experience

import (
	"encoding/binary"
	"math"

	"github.com/freeeve/chessgraph/experience/internal/graph"
)

// Format constants
const (
	// RecordSize is the on-disk size of a record in every schema version.
	RecordSize = 24

	// MinDepth is the shallowest depth written by a save. Shallower records
	// still take part in merging and ranking in memory.
	MinDepth graph.Depth = 4

	// CurrentVersion is the schema written by every save.
	CurrentVersion = 2

	SignatureV1 = "ChessGraphExp"
	SignatureV2 = "ChessGraph Experience version 2"
)

// V1 padding pattern. It carries no meaning.
var v1Padding = [4]byte{0x00, 0xFF, 0x00, 0xFF}

// RecordV1 is the legacy record without an observation count.
//
// Layout (little endian):
//
//	key(8) move(4) value(4) depth(4) padding(4)
type RecordV1 struct {
	Key   graph.Key
	Move  graph.Move
	Value graph.Value
	Depth graph.Depth
}

// Merge folds o into r. The deeper record wins outright; equal depths
// average the values.
func (r *RecordV1) Merge(o *RecordV1) {
	if r.Depth > o.Depth {
		return
	}
	if r.Depth == o.Depth {
		r.Value = (r.Value + o.Value) / 2
		return
	}
	r.Value = o.Value
	r.Depth = o.Depth
}

// Compare ranks r against o for the same position. Positive means r is better.
func (r *RecordV1) Compare(o *RecordV1) int {
	v := int(r.Value)*max(int(r.Depth)/5, 1) - int(o.Value)*max(int(o.Depth)/5, 1)
	if v != 0 {
		return v
	}
	return int(r.Depth) - int(o.Depth)
}

// Upgrade converts r to the current schema with a count of one.
func (r *RecordV1) Upgrade() Record {
	return Record{Key: r.Key, Move: r.Move, Value: r.Value, Depth: r.Depth, Count: 1}
}

// Encode writes r into buf, which must hold RecordSize bytes.
func (r *RecordV1) Encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(r.Key))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(r.Move))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(r.Value))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(r.Depth))
	copy(buf[20:24], v1Padding[:])
}

// DecodeRecordV1 reads a V1 record from buf.
func DecodeRecordV1(buf []byte) RecordV1 {
	return RecordV1{
		Key:   graph.Key(binary.LittleEndian.Uint64(buf[0:8])),
		Move:  graph.Move(binary.LittleEndian.Uint32(buf[8:12])),
		Value: graph.Value(int32(binary.LittleEndian.Uint32(buf[12:16]))),
		Depth: graph.Depth(int32(binary.LittleEndian.Uint32(buf[16:20]))),
	}
}

// Record is the current (V2) record.
//
// Layout (little endian):
//
//	key(8) move(4) value(4) depth(4) count(2) padding(2)
type Record struct {
	Key   graph.Key
	Move  graph.Move
	Value graph.Value
	Depth graph.Depth
	Count uint16 // saturates at 65535
}

// NewRecord returns a record observed once.
func NewRecord(k graph.Key, m graph.Move, v graph.Value, d graph.Depth) Record {
	return Record{Key: k, Move: m, Value: v, Depth: d, Count: 1}
}

// Merge folds o into r: counts add (saturating), then the deeper record's
// value and depth win, and equal depths average the values.
func (r *Record) Merge(o *Record) {
	r.Count = saturatingAdd16(r.Count, o.Count)

	if r.Depth > o.Depth {
		return
	}
	if r.Depth == o.Depth {
		r.Value = (r.Value + o.Value) / 2
		return
	}
	r.Value = o.Value
	r.Depth = o.Depth
}

// Compare ranks r against o for the same position, weighting the value by
// depth and count. Ties go to the higher count, then the deeper record.
func (r *Record) Compare(o *Record) int {
	v := int(r.Value)*max(int(r.Depth)/10, 1)*max(int(r.Count)/3, 1) -
		int(o.Value)*max(int(o.Depth)/10, 1)*max(int(o.Count)/3, 1)
	if v != 0 {
		return v
	}
	if v = int(r.Count) - int(o.Count); v != 0 {
		return v
	}
	return int(r.Depth) - int(o.Depth)
}

// Encode writes r into buf, which must hold RecordSize bytes.
func (r *Record) Encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(r.Key))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(r.Move))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(r.Value))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(r.Depth))
	binary.LittleEndian.PutUint16(buf[20:22], r.Count)
	buf[22] = 0
	buf[23] = 0
}

// DecodeRecord reads a V2 record from buf.
func DecodeRecord(buf []byte) Record {
	return Record{
		Key:   graph.Key(binary.LittleEndian.Uint64(buf[0:8])),
		Move:  graph.Move(binary.LittleEndian.Uint32(buf[8:12])),
		Value: graph.Value(int32(binary.LittleEndian.Uint32(buf[12:16]))),
		Depth: graph.Depth(int32(binary.LittleEndian.Uint32(buf[16:20]))),
		Count: binary.LittleEndian.Uint16(buf[20:22]),
	}
}

func saturatingAdd16(a, b uint16) uint16 {
	sum := uint32(a) + uint32(b)
	if sum > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(sum)
}
