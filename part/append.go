package part

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AppendAssembler is the narrow facade (C7): it writes a subset of
// columns into an existing part directory on behalf of a merge that adds
// new columns. It never touches primary.idx or columns.txt/checksums.txt
// — the caller is expected to merge FinalizeAndGetManifest's returned
// entries into the part's existing manifest.
type AppendAssembler struct {
	dir       string
	columns   []ColumnDesc
	overrides map[string]string
	cfg       WriterConfig

	engine *engine

	indexOffset int
	marksCount  int
	finalized   bool

	tracer trace.Tracer
}

// NewAppendAssembler prepares to append the given columns to the part
// directory at dir. overrides, if non-nil, maps a logical column name to
// the name used as the escape() input for that column's physical files —
// the caller-provided naming override spec.md calls out to avoid
// collision with files already present in dir. A nil or missing entry
// means use the column's own name, identical to PartAssembler.
func NewAppendAssembler(dir string, columns []ColumnDesc, overrides map[string]string, cfg WriterConfig, tracer trace.Tracer) (*AppendAssembler, error) {
	eng, err := newEngine(dir, cfg.CompressionMethod, cfg.Granularity, cfg.MinFrameBytes, cfg.MaxFrameBytes, cfg.AIOThreshold)
	if err != nil {
		return nil, err
	}
	return &AppendAssembler{
		dir:       dir,
		columns:   columns,
		overrides: overrides,
		cfg:       cfg,
		engine:    eng,
		tracer:    tracer,
	}, nil
}

// Write lazily opens each declared column's streams on its first call and
// runs the same planner/granularity pipeline PartAssembler uses, minus
// sort-key handling and index emission.
func (a *AppendAssembler) Write(ctx context.Context, block *Block) error {
	if a.finalized {
		return ErrAlreadyFinalized
	}
	var span trace.Span
	if a.tracer != nil {
		_, span = a.tracer.Start(ctx, "AppendAssembler.Write")
		span.SetAttributes(attribute.Int("part.rows", block.Rows), attribute.String("part.dir", a.dir))
		defer span.End()
	}

	rows := block.Rows
	if rows == 0 {
		return nil
	}

	for _, cd := range a.columns {
		override := a.overrides[cd.Name]
		if err := a.engine.writeColumn(cd.Name, override, cd.Type, block.Column, a.indexOffset, rows); err != nil {
			return fmt.Errorf("part: append column %q: %w", cd.Name, err)
		}
	}

	a.marksCount += countMarks(a.cfg.Granularity, a.indexOffset, rows)
	a.indexOffset = nextIndexOffset(a.cfg.Granularity, a.indexOffset, rows)
	return nil
}

// WriteSuffix is unsupported, mirroring PartAssembler.
func (a *AppendAssembler) WriteSuffix() error { return ErrNotImplemented }

// FinalizeAndGetManifest finalizes every appended column's streams and
// returns their manifest entries for the caller to merge into the part's
// existing checksums.txt. If SyncOnFinalize is set, every stream is
// fsynced first. Callable at most once.
func (a *AppendAssembler) FinalizeAndGetManifest(ctx context.Context) (*Manifest, error) {
	if a.finalized {
		return nil, ErrAlreadyFinalized
	}
	a.finalized = true

	var span trace.Span
	if a.tracer != nil {
		_, span = a.tracer.Start(ctx, "AppendAssembler.FinalizeAndGetManifest")
		defer span.End()
	}

	manifest, err := a.engine.finalizeAll()
	if err != nil {
		return nil, err
	}
	if a.cfg.SyncOnFinalize {
		if err := a.engine.syncAll(); err != nil {
			return nil, err
		}
	}
	if err := a.engine.closeAll(); err != nil {
		return nil, err
	}
	return manifest, nil
}
