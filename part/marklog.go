package part

import (
	"bufio"
	"encoding/binary"
	"fmt"

	"github.com/columnforge/partwriter/sys"
)

// MarkLog is the append-only .mrk file for one physical stream: two
// little-endian uint64s per mark, no header, no footer. It is opened with
// truncate+create semantics, matching the donor's mark-buffer handling in
// ColumnStream, and hashes the bytes it writes so ColumnStream.AddToManifest
// never has to re-read the file from disk.
type MarkLog struct {
	path   string
	file   sys.FileHandle
	buf    *bufio.Writer
	hashed *hashingWriter
	marks  int
}

// OpenMarkLog creates (truncating any existing file) the .mrk file at path.
func OpenMarkLog(path string) (*MarkLog, error) {
	f, err := sys.Create(path)
	if err != nil {
		return nil, fmt.Errorf("part: create mark log %s: %w", path, err)
	}
	buf := bufio.NewWriter(f)
	return &MarkLog{
		path:   path,
		file:   f,
		buf:    buf,
		hashed: newHashingWriter(buf),
	}, nil
}

// Append writes one mark: raw_offset then frame_offset, each little-endian
// uint64.
func (m *MarkLog) Append(rawOffset, frameOffset uint64) error {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[0:8], rawOffset)
	binary.LittleEndian.PutUint64(b[8:16], frameOffset)
	if _, err := m.hashed.Write(b[:]); err != nil {
		return fmt.Errorf("part: append mark to %s: %w", m.path, err)
	}
	m.marks++
	return nil
}

// Count returns the number of bytes written so far (16 * number of marks).
func (m *MarkLog) Count() int64 { return m.hashed.Count() }

// Marks returns the number of marks appended so far.
func (m *MarkLog) Marks() int { return m.marks }

// Hash returns the CRC32 digest over every byte written so far.
func (m *MarkLog) Hash() uint32 { return m.hashed.Sum32() }

// Finalize flushes the buffered writer. It is idempotent.
func (m *MarkLog) Finalize() error {
	if err := m.buf.Flush(); err != nil {
		return fmt.Errorf("part: flush mark log %s: %w", m.path, err)
	}
	return nil
}

// Sync fsyncs the underlying mark file.
func (m *MarkLog) Sync() error {
	if err := m.buf.Flush(); err != nil {
		return fmt.Errorf("part: flush mark log %s: %w", m.path, err)
	}
	if err := m.file.Sync(); err != nil {
		return fmt.Errorf("part: sync mark log %s: %w", m.path, err)
	}
	return nil
}

// Close releases the underlying file handle.
func (m *MarkLog) Close() error {
	return m.file.Close()
}
