package part

import "errors"

var (
	// ErrDuplicateSortKeyColumn is returned when a sort key names the same
	// column twice.
	ErrDuplicateSortKeyColumn = errors.New("part: sort key contains duplicate column")

	// ErrNotImplemented is returned by WriteSuffix, which the original
	// engine never supported: the only valid commit path is
	// FinalizeAndGetManifest.
	ErrNotImplemented = errors.New("part: WriteSuffix is not supported, use FinalizeAndGetManifest")

	// ErrAlreadyFinalized is returned when Write or FinalizeAndGetManifest
	// is called again after a part has already been committed or aborted.
	ErrAlreadyFinalized = errors.New("part: assembler already finalized")

	// ErrZeroGranularity is returned at construction when granularity is 0.
	ErrZeroGranularity = errors.New("part: granularity must be positive")

	// ErrBadFrameThresholds is returned at construction when max_frame_bytes
	// is smaller than min_frame_bytes.
	ErrBadFrameThresholds = errors.New("part: max_frame_bytes must be >= min_frame_bytes")

	// ErrColumnNotInBlock is returned when a logical column declared for the
	// part is missing from a block passed to Write.
	ErrColumnNotInBlock = errors.New("part: column missing from block")
)
