package part

import "github.com/columnforge/partwriter/core"

// WriterConfig holds the tunables spec.md enumerates for the writer:
// granularity, the frame-size thresholds, the compression method, the
// direct-I/O size hint, and whether a commit blocks on fsync.
type WriterConfig struct {
	// Granularity is the number of rows between consecutive marks.
	Granularity int

	// MinFrameBytes/MaxFrameBytes bound a compression frame's buffered
	// uncompressed size: a frame closes once it reaches MinFrameBytes at
	// a mark boundary, or after any granule write that leaves it at or
	// above MaxFrameBytes. The cap is checked only between granule
	// writes, so a frame can grow past MaxFrameBytes within one granule.
	MinFrameBytes int
	MaxFrameBytes int

	// CompressionMethod is the opaque token handed to the framing
	// compressor.
	CompressionMethod core.CompressionType

	// AIOThreshold is a size hint for direct I/O: once a stream's frames
	// reach this size, its raw file is given a buffer sized to one full
	// frame instead of bufio's small default, cutting the write-syscall
	// count for large sequential frame writes. 0 disables the hint.
	AIOThreshold int64

	// SyncOnFinalize, when true, fsyncs every stream (and primary.idx,
	// for PartAssembler) before FinalizeAndGetManifest returns.
	SyncOnFinalize bool
}

// DefaultWriterConfig returns reasonable defaults matching the literal
// scenarios in spec.md §8 (granularity 8192, no forced frame cap beyond
// a generous default, LZ4 compression).
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		Granularity:       8192,
		MinFrameBytes:     64 * 1024,
		MaxFrameBytes:     1 << 20,
		CompressionMethod: core.CompressionLZ4,
		AIOThreshold:      0,
		SyncOnFinalize:    false,
	}
}
