package part

import (
	"fmt"

	"github.com/columnforge/partwriter/core"
)

// engine is the shared machinery behind both PartAssembler and
// AppendAssembler: the stream table and the per-column write dispatch.
// Each assembler exclusively owns one engine for the lifetime of one part
// (or one append operation); the table maps physical stream name plus
// data-file extension to its unique owning ColumnStream, so there are no
// reference cycles or shared ownership to reason about.
type engine struct {
	dir           string
	compressor    core.Compressor
	granularity   int
	minFrameBytes int
	maxFrameBytes int
	aioThreshold  int64

	streams map[string]*ColumnStream
	order   []string // insertion order, preserved for deterministic manifest output
}

func newEngine(dir string, compression core.CompressionType, granularity, minFrameBytes, maxFrameBytes int, aioThreshold int64) (*engine, error) {
	if granularity <= 0 {
		return nil, ErrZeroGranularity
	}
	if maxFrameBytes < minFrameBytes {
		return nil, ErrBadFrameThresholds
	}
	compressor, err := GetCompressor(compression)
	if err != nil {
		return nil, err
	}
	return &engine{
		dir:           dir,
		compressor:    compressor,
		granularity:   granularity,
		minFrameBytes: minFrameBytes,
		maxFrameBytes: maxFrameBytes,
		aioThreshold:  aioThreshold,
		streams:       make(map[string]*ColumnStream),
	}, nil
}

// getOrCreateStream returns the existing stream registered under name and
// dataExt, or opens a new one with the given file extensions. Keying on
// the extension too keeps a Nullable column's null-map stream (.null) and
// its value stream (.bin) apart even though both share one escaped name.
// The returned bool reports whether this call created the stream — callers
// use it to decide whether a shared array-sizes stream still needs its data
// written (I3).
func (e *engine) getOrCreateStream(name, dataExt, markExt string) (*ColumnStream, bool, error) {
	key := name + dataExt
	if s, ok := e.streams[key]; ok {
		return s, false, nil
	}
	s, err := OpenColumnStream(e.dir, name, dataExt, markExt, e.compressor, e.minFrameBytes, e.maxFrameBytes, e.aioThreshold)
	if err != nil {
		return nil, false, err
	}
	e.streams[key] = s
	e.order = append(e.order, key)
	return s, true, nil
}

// finalizeAll finalizes every stream in registration order and returns
// the manifest entries they produce.
func (e *engine) finalizeAll() (*Manifest, error) {
	m := &Manifest{}
	for _, name := range e.order {
		s := e.streams[name]
		if err := s.Finalize(); err != nil {
			return nil, fmt.Errorf("part: finalize stream %s: %w", name, err)
		}
		s.AddToManifest(m, s.Name)
	}
	return m, nil
}

// syncAll fsyncs every open stream.
func (e *engine) syncAll() error {
	for _, name := range e.order {
		if err := e.streams[name].Sync(); err != nil {
			return fmt.Errorf("part: sync stream %s: %w", name, err)
		}
	}
	return nil
}

// closeAll releases every open stream's file handles.
func (e *engine) closeAll() error {
	var firstErr error
	for _, name := range e.order {
		if err := e.streams[name].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
