package part

import (
	"context"
	"fmt"
	"os"

	"github.com/columnforge/partwriter/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PartAssembler is the top-level driver (C6): it owns the directory, the
// primary-key index, and the shared stream engine for every logical
// column declared at construction, across however many blocks are
// written, and commits them all atomically at FinalizeAndGetManifest.
type PartAssembler struct {
	dir     string
	columns []ColumnDesc
	sortKey []string
	cfg     WriterConfig

	engine *engine

	indexFile *os.File
	indexHash *hashingWriter
	indexRows []map[string]RowColumn

	indexOffset int
	marksCount  int
	finalized   bool

	tracer trace.Tracer
}

// NewPartAssembler creates the part directory at dir and prepares to
// receive blocks for the given declared columns and sort key. An empty
// sortKey declares the part unsorted: no primary.idx is opened.
func NewPartAssembler(dir string, columns []ColumnDesc, sortKey []string, cfg WriterConfig, tracer trace.Tracer) (*PartAssembler, error) {
	if err := checkDuplicateSortKey(sortKey); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("part: create part directory %s: %w", dir, err)
	}
	eng, err := newEngine(dir, cfg.CompressionMethod, cfg.Granularity, cfg.MinFrameBytes, cfg.MaxFrameBytes, cfg.AIOThreshold)
	if err != nil {
		return nil, err
	}

	a := &PartAssembler{
		dir:     dir,
		columns: columns,
		sortKey: sortKey,
		cfg:     cfg,
		engine:  eng,
		tracer:  tracer,
	}

	if len(sortKey) > 0 {
		f, err := os.Create(dir + "/" + core.PrimaryIndexName)
		if err != nil {
			return nil, fmt.Errorf("part: create primary index %s: %w", dir, err)
		}
		a.indexFile = f
		a.indexHash = newHashingWriter(f)
	}
	return a, nil
}

func checkDuplicateSortKey(sortKey []string) error {
	seen := make(map[string]bool, len(sortKey))
	for _, name := range sortKey {
		if seen[name] {
			return fmt.Errorf("%w: %s", ErrDuplicateSortKeyColumn, name)
		}
		seen[name] = true
	}
	return nil
}

// WriteBlock writes one input block's columns through the column-layout
// planner and granularity controller, permutes the sort-key columns and
// (lazily, per non-sort-key column) every other column if perm is
// non-nil, emits the corresponding primary.idx entries, and advances
// index_offset per I5. perm may be nil if the block is already in sort
// order (or the part is unsorted).
func (a *PartAssembler) WriteBlock(ctx context.Context, block *Block, perm []int) error {
	if a.finalized {
		return ErrAlreadyFinalized
	}
	var span trace.Span
	if a.tracer != nil {
		_, span = a.tracer.Start(ctx, "PartAssembler.WriteBlock")
		span.SetAttributes(attribute.Int("part.rows", block.Rows), attribute.String("part.dir", a.dir))
		defer span.End()
	}

	rows := block.Rows
	if rows == 0 {
		return nil
	}

	primaryColumns := make(map[string]RowColumn, len(a.sortKey))
	for _, name := range a.sortKey {
		col, ok := block.Column(name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrColumnNotInBlock, name)
		}
		if perm != nil {
			col = PermuteRows(col, perm)
		}
		primaryColumns[name] = col
	}
	isSortKey := make(map[string]bool, len(a.sortKey))
	for _, name := range a.sortKey {
		isSortKey[name] = true
	}

	for _, cd := range a.columns {
		lookup := block.Column
		switch {
		case isSortKey[cd.Name]:
			lookup = func(name string) (RowColumn, bool) {
				col, ok := primaryColumns[name]
				return col, ok
			}
		case perm != nil:
			lookup = func(name string) (RowColumn, bool) {
				base, ok := block.Column(name)
				if !ok {
					return nil, false
				}
				return PermuteRows(base, perm), true
			}
		}
		if err := a.engine.writeColumn(cd.Name, "", cd.Type, lookup, a.indexOffset, rows); err != nil {
			return fmt.Errorf("part: write column %q: %w", cd.Name, err)
		}
	}

	for i := a.indexOffset; i < rows; i += a.cfg.Granularity {
		if len(a.sortKey) > 0 {
			row := make(map[string]RowColumn, len(a.sortKey))
			for _, name := range a.sortKey {
				col := primaryColumns[name]
				pc, ok := col.(PrimitiveColumn)
				if !ok {
					return fmt.Errorf("part: sort key column %q must be a primitive type", name)
				}
				if err := pc.WriteRange(a.indexHash, i, i+1); err != nil {
					return fmt.Errorf("part: write primary index entry: %w", err)
				}
				row[name] = col.Slice(i, i+1)
			}
			a.indexRows = append(a.indexRows, row)
		}
		a.marksCount++
	}

	a.indexOffset = nextIndexOffset(a.cfg.Granularity, a.indexOffset, rows)
	return nil
}

// IndexRows returns the in-memory, deep-copied primary-key rows recorded
// at every mark boundary written so far.
func (a *PartAssembler) IndexRows() []map[string]RowColumn { return a.indexRows }

// WriteSuffix is unsupported; it exists only because the contract this
// writer follows names it explicitly as a rejected call.
func (a *PartAssembler) WriteSuffix() error { return ErrNotImplemented }

// FinalizeAndGetManifest commits the part: flushing primary.idx, finalizing
// every stream, and either writing columns.txt/checksums.txt or, if no
// marks were ever emitted, deleting the directory and returning an empty
// manifest (I6). Callable at most once.
func (a *PartAssembler) FinalizeAndGetManifest(ctx context.Context) (*Manifest, error) {
	if a.finalized {
		return nil, ErrAlreadyFinalized
	}
	a.finalized = true

	var span trace.Span
	if a.tracer != nil {
		_, span = a.tracer.Start(ctx, "PartAssembler.FinalizeAndGetManifest")
		defer span.End()
	}

	manifest := &Manifest{}
	if a.indexFile != nil {
		if a.cfg.SyncOnFinalize {
			if err := a.indexFile.Sync(); err != nil {
				return nil, fmt.Errorf("part: sync primary index: %w", err)
			}
		}
		manifest.Add(ManifestEntry{
			FileName: core.PrimaryIndexName,
			Size:     a.indexHash.Count(),
			Hash:     a.indexHash.Sum32(),
		})
	}

	streamManifest, err := a.engine.finalizeAll()
	if err != nil {
		return nil, err
	}
	manifest.Entries = append(manifest.Entries, streamManifest.Entries...)

	if a.marksCount == 0 {
		a.engine.closeAll()
		if a.indexFile != nil {
			a.indexFile.Close()
		}
		if err := os.RemoveAll(a.dir); err != nil {
			return nil, fmt.Errorf("part: remove empty part directory %s: %w", a.dir, err)
		}
		return &Manifest{}, nil
	}

	if a.cfg.SyncOnFinalize {
		if err := a.engine.syncAll(); err != nil {
			return nil, err
		}
	}

	if err := WriteColumnsFile(a.dir+"/"+core.ColumnsFileName, a.columns); err != nil {
		return nil, err
	}
	if err := WriteManifest(a.dir+"/"+core.ChecksumsFileName, manifest); err != nil {
		return nil, err
	}

	if err := a.engine.closeAll(); err != nil {
		return nil, err
	}
	if a.indexFile != nil {
		if err := a.indexFile.Close(); err != nil {
			return nil, fmt.Errorf("part: close primary index: %w", err)
		}
	}
	return manifest, nil
}
