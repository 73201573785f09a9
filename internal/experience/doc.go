// Package experience implements the persistent move-experience store: a
// key-value learning cache that remembers, per position key, which moves were
// found good, at what depth, with what score and how often.
//
// Layers:
//   - Record codec: fixed 24-byte records in two schema versions (V1, V2)
//   - Chain index: position key -> descending-quality chain of move nodes
//   - Reader chain: signature-based schema detection, V1 upcast on load
//   - Persistence: background loader, buffered writer, backup/restore on save
//   - Maintenance: defragment, multi-file merge
//   - Quality ranker: bounded lookahead over the store's own chains
//
// File format:
//
//	[signature][record]*
//
// No length prefix and no checksum; the record count is
// (file size - signature length) / RecordSize and must divide exactly.
package experience
