package part

import (
	"encoding/binary"
	"fmt"
)

// writeGranular runs the mark/frame loop for one physical stream, driven
// by (rows, granularity, indexOffset, minFrameBytes): it decides where
// mark boundaries fall and calls writeRange once per granule with the
// [lo, hi) row range to serialize.
//
// Two streams invoked with identical parameters produce identical
// cursor/limit sequences, and therefore identical mark counts, without
// coordinating directly — this is what lets Nullable write its null-map
// and its inner column as two independent calls instead of interleaving
// them row-by-row.
func writeGranular(stream *ColumnStream, granularity, indexOffset, rows, minFrameBytes int, writeRange func(lo, hi int) error) error {
	cursor := 0
	for cursor < rows {
		var limit int
		if cursor == 0 && indexOffset != 0 {
			limit = indexOffset
			if limit > rows {
				limit = rows
			}
		} else {
			limit = granularity
			if cursor+limit > rows {
				limit = rows - cursor
			}
			if err := stream.Data().FrameBoundaryIfThreshold(minFrameBytes); err != nil {
				return err
			}
			if err := stream.AppendMark(); err != nil {
				return err
			}
		}
		if err := writeRange(cursor, cursor+limit); err != nil {
			return err
		}
		if err := stream.Data().NextIfAtEnd(); err != nil {
			return err
		}
		cursor += limit
	}
	return nil
}

// nextIndexOffset implements invariant I5: the index_offset carried into
// the next block given this block's row count.
func nextIndexOffset(granularity, indexOffset, rows int) int {
	writtenForLastMark := (granularity - indexOffset + rows) % granularity
	return (granularity - writtenForLastMark) % granularity
}

// countMarks returns how many marks a block of the given shape produces,
// matching the PartAssembler's index-emission loop: one mark for every
// i = indexOffset, indexOffset+granularity, ... < rows.
func countMarks(granularity, indexOffset, rows int) int {
	if indexOffset >= rows {
		return 0
	}
	return (rows-indexOffset-1)/granularity + 1
}

// writeNullMask writes one byte per row (0 or 1) for rows [lo, hi) of a
// NullableColumn's null bitmap.
func writeNullMask(w interface{ Write([]byte) (int, error) }, nc NullableColumn, lo, hi int) error {
	buf := make([]byte, hi-lo)
	for i := lo; i < hi; i++ {
		if nc.NullAt(i) {
			buf[i-lo] = 1
		}
	}
	_, err := w.Write(buf)
	if err != nil {
		return fmt.Errorf("part: write null mask: %w", err)
	}
	return nil
}

// writeLengths writes rows [lo, hi) of an array-sizes stream: one
// little-endian uint64 per row giving that row's element count.
func writeLengths(w interface{ Write([]byte) (int, error) }, lengths []int, lo, hi int) error {
	buf := make([]byte, 8*(hi-lo))
	for i := lo; i < hi; i++ {
		binary.LittleEndian.PutUint64(buf[8*(i-lo):8*(i-lo)+8], uint64(lengths[i]))
	}
	_, err := w.Write(buf)
	if err != nil {
		return fmt.Errorf("part: write array sizes: %w", err)
	}
	return nil
}
