package part

import (
	"fmt"

	"github.com/columnforge/partwriter/compressors"
	"github.com/columnforge/partwriter/core"
)

// GetCompressor returns a Compressor instance for the given CompressionType.
// The engine calls it once per part to pick the compressor every
// FramedOutputStream uses. Frame headers record only the compressed and
// uncompressed lengths, not the compression type.
func GetCompressor(compressionType core.CompressionType) (core.Compressor, error) {
	switch compressionType {
	case core.CompressionNone:
		return &compressors.NoCompressionCompressor{}, nil
	case core.CompressionSnappy:
		return &compressors.SnappyCompressor{}, nil
	case core.CompressionLZ4:
		return &compressors.LZ4Compressor{}, nil
	case core.CompressionZSTD:
		return compressors.NewZstdCompressor(), nil
	default:
		return nil, fmt.Errorf("unknown compression type: %d", compressionType)
	}
}
