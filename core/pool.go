package core

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// bufferPool is a custom, GC-friendly pool implementation using a mutex-protected slice.
// Unlike sync.Pool, its contents are not cleared by the garbage collector, making it
// suitable for pooling the scratch buffers used while compressing frames and
// building the per-part index and manifest.
type bufferPool struct {
	mu      sync.Mutex
	items   []*bytes.Buffer
	newFunc func() *bytes.Buffer

	// Metrics
	hits        atomic.Uint64
	misses      atomic.Uint64
	created     atomic.Uint64
	currentSize atomic.Int64
}

// DefaultBlockDecompressionSize is a reasonable default capacity for buffers
// used while compressing/decompressing part frames.
const DefaultBlockDecompressionSize = 4 * 1024

var BufferPool = NewBufferPool(DefaultBlockDecompressionSize)

// NewBufferPool creates a new buffer pool.
// initialCapacity is the pre-allocated capacity for each new buffer.
func NewBufferPool(initialCapacity ...int) *bufferPool {
	capacity := 0
	if len(initialCapacity) > 0 && initialCapacity[0] > 0 {
		capacity = initialCapacity[0]
	}
	const initialPoolSize = 256
	bp := &bufferPool{
		items: make([]*bytes.Buffer, 0, initialPoolSize),
	}
	bp.newFunc = func() *bytes.Buffer {
		bp.created.Add(1)
		return bytes.NewBuffer(make([]byte, 0, capacity))
	}

	for i := 0; i < initialPoolSize; i++ {
		bp.items = append(bp.items, bp.newFunc())
	}
	bp.currentSize.Store(int64(initialPoolSize))

	return bp
}

// Get retrieves a buffer from the pool. If the pool is empty, it creates a new one.
func (bp *bufferPool) Get() *bytes.Buffer {
	bp.mu.Lock()
	if len(bp.items) == 0 {
		bp.mu.Unlock()
		bp.misses.Add(1)
		return bp.newFunc()
	}
	bp.hits.Add(1)
	bp.currentSize.Add(-1)
	item := bp.items[len(bp.items)-1]
	bp.items = bp.items[:len(bp.items)-1]
	bp.mu.Unlock()
	return item
}

// GetMetrics returns the current metrics for the pool.
func (bp *bufferPool) GetMetrics() (hits, misses, created uint64, currentSize int64) {
	return bp.hits.Load(), bp.misses.Load(), bp.created.Load(), bp.currentSize.Load()
}

// Put returns a buffer to the pool. It is never discarded.
func (bp *bufferPool) Put(buf *bytes.Buffer) {
	buf.Reset()
	bp.mu.Lock()
	bp.items = append(bp.items, buf)
	bp.currentSize.Add(1)
	bp.mu.Unlock()
}
