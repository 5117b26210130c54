// Package part implements the on-disk writer for one immutable part of a
// columnar, log-structured-merge-tree storage engine.
//
// A part is a directory holding, for each physical column stream, a
// compressed data file and a mark file giving a physical locator for every
// Nth logical row ("granule"); a primary-key index keyed on the same mark
// boundaries; a columns descriptor; and a checksum manifest. Readers must
// treat a directory as valid only once checksums.txt is present and every
// file it names matches its recorded checksum.
//
// Terminology:
//
//   - Part: an immutable directory containing one horizontal slice of a
//     table, sorted by the sort key (or unsorted, if no sort key was given).
//   - Granule: a run of `granularity` consecutive rows within a part; the
//     unit between two marks.
//   - Mark: (raw_offset, frame_offset), the physical locator of the first
//     row of a granule inside a column's data file.
//   - Frame: one unit of compression inside a .bin file, bounded by
//     min_frame_bytes/max_frame_bytes.
//   - Offset-sizes stream: per-nesting-level stream encoding array row
//     lengths, shared across sibling columns rooted at the same nested name.
//   - Sort key: ordered list of columns defining a part's physical order and
//     the content of primary.idx.
//   - Manifest: checksums.txt, the per-file integrity record readers
//     validate before opening a part.
package part
