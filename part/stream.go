package part

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/columnforge/partwriter/core"
	"github.com/columnforge/partwriter/sys"
)

// frameHeaderSize is the on-disk prefix written before every compressed
// frame: the compressed and uncompressed byte counts, each a little-endian
// uint32. Readers need this to know how many raw bytes to hand the
// decompressor for a frame located by a mark's raw_offset.
const frameHeaderSize = 8

// FramedOutputStream is the write pipeline backing one .bin file:
//
//	serializer -> frame buffer -> hash_B -> framed_compressor -> hash_A -> buffered raw file
//
// hash_A accumulates over the bytes actually written to the raw file
// (header + compressed payload, across every frame); hash_B accumulates
// over the uncompressed bytes handed to Write, before any frame is closed.
type FramedOutputStream struct {
	path          string
	file          sys.FileHandle
	raw           *bufio.Writer
	hashA         *hashingWriter
	hashB         *hashingWriter
	frameBuf      bytes.Buffer
	compressor    core.Compressor
	minFrameBytes int
	maxFrameBytes int
	finalized     bool
}

// OpenFramedOutputStream creates (truncating) the .bin file at path and
// wires up its compression pipeline. aioThreshold is the direct-I/O size
// hint: once a stream's frames reach that size, the raw file is given a
// buffer sized to one full frame instead of bufio's small default,
// trading the extra memory for fewer, larger write syscalls on the
// sequential, frame-at-a-time writes this stream produces — a portable
// stand-in for the original engine's min_bytes_to_use_direct_io, without
// depending on O_DIRECT's platform-specific alignment requirements. A
// zero aioThreshold disables the hint and keeps bufio's default buffer.
func OpenFramedOutputStream(path string, compressor core.Compressor, minFrameBytes, maxFrameBytes int, aioThreshold int64) (*FramedOutputStream, error) {
	f, err := sys.Create(path)
	if err != nil {
		return nil, fmt.Errorf("part: create data file %s: %w", path, err)
	}
	var raw *bufio.Writer
	if aioThreshold > 0 && int64(maxFrameBytes) >= aioThreshold {
		raw = bufio.NewWriterSize(f, maxFrameBytes)
	} else {
		raw = bufio.NewWriter(f)
	}
	return &FramedOutputStream{
		path:          path,
		file:          f,
		raw:           raw,
		hashA:         newHashingWriter(raw),
		hashB:         newHashingWriter(&discardCounter{}),
		compressor:    compressor,
		minFrameBytes: minFrameBytes,
		maxFrameBytes: maxFrameBytes,
	}, nil
}

// discardCounter is an io.Writer that drops its input; hashB reuses
// hashingWriter purely for its CRC32 + byte-count bookkeeping, not to
// retain the bytes themselves.
type discardCounter struct{}

func (discardCounter) Write(p []byte) (int, error) { return len(p), nil }

// Write appends uncompressed bytes to the current frame.
func (s *FramedOutputStream) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := s.hashB.Write(p); err != nil {
		return 0, err
	}
	return s.frameBuf.Write(p)
}

// BufferedBytesInCurrentFrame returns how many uncompressed bytes are
// waiting in the frame that has not yet been flushed.
func (s *FramedOutputStream) BufferedBytesInCurrentFrame() int {
	return s.frameBuf.Len()
}

// FrameBoundaryIfThreshold closes the current frame if its buffered size
// has reached min.
func (s *FramedOutputStream) FrameBoundaryIfThreshold(min int) error {
	if s.frameBuf.Len() >= min {
		return s.closeFrame()
	}
	return nil
}

// NextIfAtEnd forces a new frame if the current one is exactly at its
// maximum configured size, so that no mark can ever record a frame_offset
// equal to the frame's full size (ambiguous with offset 0 of the next
// frame).
func (s *FramedOutputStream) NextIfAtEnd() error {
	if s.maxFrameBytes > 0 && s.frameBuf.Len() >= s.maxFrameBytes {
		return s.closeFrame()
	}
	return nil
}

// MarkCursor returns the (raw_offset, frame_offset) pair a mark should
// record if placed right now: raw_offset is where the still-open frame
// will start once flushed, frame_offset is how far into that decompressed
// frame the next row begins.
func (s *FramedOutputStream) MarkCursor() (rawOffset, frameOffset uint64) {
	return uint64(s.hashA.Count()), uint64(s.frameBuf.Len())
}

func (s *FramedOutputStream) closeFrame() error {
	if s.frameBuf.Len() == 0 {
		return nil
	}
	uncompressed := s.frameBuf.Bytes()
	compressedBuf := core.BufferPool.Get()
	defer core.BufferPool.Put(compressedBuf)
	if err := s.compressor.CompressTo(compressedBuf, uncompressed); err != nil {
		return fmt.Errorf("part: compress frame for %s: %w", s.path, err)
	}
	var header [frameHeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(compressedBuf.Len()))
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(uncompressed)))
	if _, err := s.hashA.Write(header[:]); err != nil {
		return fmt.Errorf("part: write frame header for %s: %w", s.path, err)
	}
	if _, err := s.hashA.Write(compressedBuf.Bytes()); err != nil {
		return fmt.Errorf("part: write frame payload for %s: %w", s.path, err)
	}
	s.frameBuf.Reset()
	return nil
}

// Finalize flushes the in-flight frame and the raw file buffer. Safe to
// call more than once.
func (s *FramedOutputStream) Finalize() error {
	if s.finalized {
		return nil
	}
	if err := s.closeFrame(); err != nil {
		return err
	}
	if err := s.raw.Flush(); err != nil {
		return fmt.Errorf("part: flush data file %s: %w", s.path, err)
	}
	s.finalized = true
	return nil
}

// Sync fsyncs the raw file handle. Finalize must be called first for the
// buffered writer's contents to actually reach the descriptor being
// synced.
func (s *FramedOutputStream) Sync() error {
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("part: sync data file %s: %w", s.path, err)
	}
	return nil
}

// Close releases the underlying file handle.
func (s *FramedOutputStream) Close() error {
	return s.file.Close()
}

// ByteCountA is the raw on-disk size of the .bin file (file_size in the
// manifest).
func (s *FramedOutputStream) ByteCountA() int64 { return s.hashA.Count() }

// HashA is the CRC32 digest of the raw on-disk bytes (file_hash).
func (s *FramedOutputStream) HashA() uint32 { return s.hashA.Sum32() }

// ByteCountB is the total uncompressed size handed to Write
// (uncompressed_size in the manifest).
func (s *FramedOutputStream) ByteCountB() int64 { return s.hashB.Count() }

// HashB is the CRC32 digest of the uncompressed bytes (uncompressed_hash).
func (s *FramedOutputStream) HashB() uint32 { return s.hashB.Sum32() }

// ColumnStream is one physical file of one column: its data file and its
// mark file, plus the manifest entries both produce once finalized. The
// same type backs both value streams (.bin/.mrk) and null-map streams
// (.null/.null_mrk); only the file extensions differ.
type ColumnStream struct {
	Name    string // physical stream name, already escaped
	DataExt string
	MarkExt string

	data *FramedOutputStream
	mark *MarkLog
}

// OpenColumnStream creates the data file (name+dataExt) and mark file
// (name+markExt) under dir.
func OpenColumnStream(dir, name, dataExt, markExt string, compressor core.Compressor, minFrameBytes, maxFrameBytes int, aioThreshold int64) (*ColumnStream, error) {
	data, err := OpenFramedOutputStream(dir+"/"+name+dataExt, compressor, minFrameBytes, maxFrameBytes, aioThreshold)
	if err != nil {
		return nil, err
	}
	mark, err := OpenMarkLog(dir + "/" + name + markExt)
	if err != nil {
		data.Close()
		return nil, err
	}
	return &ColumnStream{Name: name, DataExt: dataExt, MarkExt: markExt, data: data, mark: mark}, nil
}

func (cs *ColumnStream) Data() *FramedOutputStream { return cs.data }
func (cs *ColumnStream) Mark() *MarkLog            { return cs.mark }

// AppendMark records a mark at the stream's current write position.
func (cs *ColumnStream) AppendMark() error {
	rawOffset, frameOffset := cs.data.MarkCursor()
	return cs.mark.Append(rawOffset, frameOffset)
}

// Finalize flushes both the data file and the mark log.
func (cs *ColumnStream) Finalize() error {
	if err := cs.data.Finalize(); err != nil {
		return err
	}
	return cs.mark.Finalize()
}

// Sync fsyncs both the data file and the mark file.
func (cs *ColumnStream) Sync() error {
	if err := cs.data.Sync(); err != nil {
		return err
	}
	return cs.mark.Sync()
}

// Close releases both underlying file handles.
func (cs *ColumnStream) Close() error {
	dataErr := cs.data.Close()
	markErr := cs.mark.Close()
	if dataErr != nil {
		return dataErr
	}
	return markErr
}

// AddToManifest appends this stream's two manifest entries (the data file,
// with its on-disk and uncompressed size and hash; the mark file, with its
// size and hash) under the given artifact base name.
func (cs *ColumnStream) AddToManifest(m *Manifest, baseName string) {
	m.Add(ManifestEntry{
		FileName:         baseName + cs.DataExt,
		Compressed:       true,
		Size:             cs.data.ByteCountA(),
		Hash:             cs.data.HashA(),
		UncompressedSize: cs.data.ByteCountB(),
		UncompressedHash: cs.data.HashB(),
	})
	m.Add(ManifestEntry{
		FileName: baseName + cs.MarkExt,
		Size:     cs.mark.Count(),
		Hash:     cs.mark.Hash(),
	})
}
