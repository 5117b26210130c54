package part

import (
	"hash"
	"hash/crc32"
	"io"
)

// hashingWriter forwards every write to an underlying io.Writer while
// accumulating a CRC32 digest and byte count over the bytes that pass
// through it. FramedOutputStream keeps two of these (hash_A over raw
// on-disk bytes, hash_B over pre-compression bytes) so the manifest can
// record both without a second read pass over the file.
type hashingWriter struct {
	w     io.Writer
	hash  hash.Hash32
	count int64
}

func newHashingWriter(w io.Writer) *hashingWriter {
	return &hashingWriter{w: w, hash: crc32.NewIEEE()}
}

func (h *hashingWriter) Write(p []byte) (int, error) {
	n, err := h.w.Write(p)
	if n > 0 {
		h.hash.Write(p[:n])
		h.count += int64(n)
	}
	return n, err
}

func (h *hashingWriter) Count() int64 { return h.count }

func (h *hashingWriter) Sum32() uint32 { return h.hash.Sum32() }
