package part

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// RowColumn is the narrow interface the assembler needs from any in-memory
// column, regardless of its type-tree shape: how many rows it holds, and
// how to carve out or reassemble arbitrary row ranges. Slice/Concat are the
// primitives PermuteRows uses to build a sort-key-ordered view of a block
// without every concrete column type having to implement permutation
// itself.
type RowColumn interface {
	Len() int
	Slice(lo, hi int) RowColumn
	Concat(parts []RowColumn) RowColumn
}

// PrimitiveColumn is a RowColumn holding one fixed-width or string value per
// row, i.e. a leaf of the type tree.
type PrimitiveColumn interface {
	RowColumn
	// WriteRange serializes rows [lo, hi) to w using the column's on-disk
	// binary encoding.
	WriteRange(w io.Writer, lo, hi int) error
}

// NullableColumn is a RowColumn wrapping another column with a per-row null
// bit. Its own rows are never written directly: the granularity controller
// writes the null bitmap and the inner column through two independent
// loops sharing the same (rows, granularity, index_offset) parameters.
type NullableColumn interface {
	RowColumn
	NullAt(i int) bool
	Inner() RowColumn
}

// ArrayColumn is a RowColumn whose rows are variable-length lists. Lengths
// gives the element count of each row; Values holds every row's elements
// concatenated, i.e. sum(Lengths) entries. Callers must keep
// Values().Len() == sum(Lengths()): the column-layout planner recurses
// into Values() using its own Len() as the inner level's row count, not a
// sum it recomputes itself.
type ArrayColumn interface {
	RowColumn
	Lengths() []int
	Values() RowColumn
}

// PermuteRows builds the row-permuted view of c described by perm, where
// perm[i] is the source row that should appear at destination row i. It
// works uniformly across primitive, nullable and array columns because all
// three implement RowColumn's Slice/Concat in terms of their own shape.
func PermuteRows(c RowColumn, perm []int) RowColumn {
	if len(perm) == 0 {
		return c.Slice(0, 0)
	}
	parts := make([]RowColumn, len(perm))
	for i, src := range perm {
		parts[i] = c.Slice(src, src+1)
	}
	return parts[0].Concat(parts)
}

// numeric is the set of Go types a fixedColumn can hold.
type numeric interface {
	uint8 | uint16 | uint32 | uint64 | int8 | int16 | int32 | int64 | float32 | float64
}

// fixedColumn is a fixed-width primitive column backed by a flat Go slice.
type fixedColumn[T numeric] struct {
	values []T
}

func NewFixedColumn[T numeric](values []T) *fixedColumn[T] {
	return &fixedColumn[T]{values: values}
}

func (c *fixedColumn[T]) Len() int { return len(c.values) }

func (c *fixedColumn[T]) Slice(lo, hi int) RowColumn {
	out := make([]T, hi-lo)
	copy(out, c.values[lo:hi])
	return &fixedColumn[T]{values: out}
}

func (c *fixedColumn[T]) Concat(parts []RowColumn) RowColumn {
	total := 0
	for _, p := range parts {
		total += p.Len()
	}
	out := make([]T, 0, total)
	for _, p := range parts {
		out = append(out, p.(*fixedColumn[T]).values...)
	}
	return &fixedColumn[T]{values: out}
}

// WriteRange encodes rows [lo, hi) little-endian, one fixed-width value per
// row, using a reused scratch buffer rather than a fresh binary.Write call
// per row.
func (c *fixedColumn[T]) WriteRange(w io.Writer, lo, hi int) error {
	var scratch [8]byte
	for i := lo; i < hi; i++ {
		n := putFixed(scratch[:], c.values[i])
		if _, err := w.Write(scratch[:n]); err != nil {
			return err
		}
	}
	return nil
}

func putFixed[T numeric](buf []byte, v T) int {
	switch x := any(v).(type) {
	case uint8:
		buf[0] = x
		return 1
	case int8:
		buf[0] = byte(x)
		return 1
	case uint16:
		binary.LittleEndian.PutUint16(buf, x)
		return 2
	case int16:
		binary.LittleEndian.PutUint16(buf, uint16(x))
		return 2
	case uint32:
		binary.LittleEndian.PutUint32(buf, x)
		return 4
	case int32:
		binary.LittleEndian.PutUint32(buf, uint32(x))
		return 4
	case float32:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(x))
		return 4
	case uint64:
		binary.LittleEndian.PutUint64(buf, x)
		return 8
	case int64:
		binary.LittleEndian.PutUint64(buf, uint64(x))
		return 8
	case float64:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(x))
		return 8
	default:
		panic(fmt.Sprintf("part: unsupported fixed column element type %T", v))
	}
}

// stringColumn is a variable-length string column: uint32 little-endian
// length prefix followed by the raw bytes, one entry per row.
type stringColumn struct {
	values []string
}

func NewStringColumn(values []string) *stringColumn {
	return &stringColumn{values: values}
}

func (c *stringColumn) Len() int { return len(c.values) }

func (c *stringColumn) Slice(lo, hi int) RowColumn {
	out := make([]string, hi-lo)
	copy(out, c.values[lo:hi])
	return &stringColumn{values: out}
}

func (c *stringColumn) Concat(parts []RowColumn) RowColumn {
	total := 0
	for _, p := range parts {
		total += p.Len()
	}
	out := make([]string, 0, total)
	for _, p := range parts {
		out = append(out, p.(*stringColumn).values...)
	}
	return &stringColumn{values: out}
}

func (c *stringColumn) WriteRange(w io.Writer, lo, hi int) error {
	var lenBuf [4]byte
	for i := lo; i < hi; i++ {
		s := c.values[i]
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return err
		}
		if _, err := io.WriteString(w, s); err != nil {
			return err
		}
	}
	return nil
}

// nullableColumn wraps an inner RowColumn with a per-row null bit.
type nullableColumn struct {
	nulls []bool
	inner RowColumn
}

func NewNullableColumn(nulls []bool, inner RowColumn) *nullableColumn {
	return &nullableColumn{nulls: nulls, inner: inner}
}

func (c *nullableColumn) Len() int           { return len(c.nulls) }
func (c *nullableColumn) NullAt(i int) bool  { return c.nulls[i] }
func (c *nullableColumn) Inner() RowColumn   { return c.inner }

func (c *nullableColumn) Slice(lo, hi int) RowColumn {
	nulls := make([]bool, hi-lo)
	copy(nulls, c.nulls[lo:hi])
	return &nullableColumn{nulls: nulls, inner: c.inner.Slice(lo, hi)}
}

func (c *nullableColumn) Concat(parts []RowColumn) RowColumn {
	total := 0
	for _, p := range parts {
		total += p.Len()
	}
	nulls := make([]bool, 0, total)
	inners := make([]RowColumn, len(parts))
	for i, p := range parts {
		np := p.(*nullableColumn)
		nulls = append(nulls, np.nulls...)
		inners[i] = np.inner
	}
	var mergedInner RowColumn
	if len(inners) > 0 {
		mergedInner = inners[0].Concat(inners)
	}
	return &nullableColumn{nulls: nulls, inner: mergedInner}
}

// arrayColumn holds variable-length rows as a length-per-row slice plus a
// flattened column of every row's elements concatenated together.
type arrayColumn struct {
	lengths []int
	values  RowColumn
}

func NewArrayColumn(lengths []int, values RowColumn) *arrayColumn {
	return &arrayColumn{lengths: lengths, values: values}
}

func (c *arrayColumn) Len() int          { return len(c.lengths) }
func (c *arrayColumn) Lengths() []int    { return c.lengths }
func (c *arrayColumn) Values() RowColumn { return c.values }

func (c *arrayColumn) elementRange(lo, hi int) (int, int) {
	elemLo, elemHi := 0, 0
	for i := 0; i < hi; i++ {
		if i < lo {
			elemLo += c.lengths[i]
		}
		elemHi += c.lengths[i]
	}
	return elemLo, elemHi
}

func (c *arrayColumn) Slice(lo, hi int) RowColumn {
	elemLo, elemHi := c.elementRange(lo, hi)
	lengths := make([]int, hi-lo)
	copy(lengths, c.lengths[lo:hi])
	return &arrayColumn{lengths: lengths, values: c.values.Slice(elemLo, elemHi)}
}

func (c *arrayColumn) Concat(parts []RowColumn) RowColumn {
	totalRows := 0
	for _, p := range parts {
		totalRows += p.Len()
	}
	lengths := make([]int, 0, totalRows)
	values := make([]RowColumn, len(parts))
	for i, p := range parts {
		ap := p.(*arrayColumn)
		lengths = append(lengths, ap.lengths...)
		values[i] = ap.values
	}
	var mergedValues RowColumn
	if len(values) > 0 {
		mergedValues = values[0].Concat(values)
	}
	return &arrayColumn{lengths: lengths, values: mergedValues}
}
