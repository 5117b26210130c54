package part

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/columnforge/partwriter/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(granularity int) WriterConfig {
	return WriterConfig{
		Granularity:       granularity,
		MinFrameBytes:     64 * 1024,
		MaxFrameBytes:     1 << 20,
		CompressionMethod: core.CompressionNone,
	}
}

// Scenario 1 (spec.md §8): a 3-row UInt32 column, granularity 8192,
// produces exactly one mark at the origin and one primary.idx entry equal
// to the first row's value.
func TestScenario1_SingleGranuleOriginMark(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "part1")
	columns := []ColumnDesc{{Name: "n", Type: Primitive(KindUInt32)}}

	a, err := NewPartAssembler(dir, columns, []string{"n"}, testConfig(8192), nil)
	require.NoError(t, err)

	block, err := NewBlock(3, map[string]RowColumn{"n": NewFixedColumn([]uint32{1, 2, 3})})
	require.NoError(t, err)
	require.NoError(t, a.WriteBlock(context.Background(), block, nil))

	require.Len(t, a.IndexRows(), 1)

	manifest, err := a.FinalizeAndGetManifest(context.Background())
	require.NoError(t, err)

	markEntry, ok := manifest.Get("n.mrk")
	require.True(t, ok)
	assert.EqualValues(t, 16, markEntry.Size) // one mark: raw_offset=0, frame_offset=0

	idxEntry, ok := manifest.Get(core.PrimaryIndexName)
	require.True(t, ok)
	assert.EqualValues(t, 4, idxEntry.Size) // one row's UInt32 value

	idxBytes, err := os.ReadFile(filepath.Join(dir, core.PrimaryIndexName))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0, 0}, idxBytes)
}

// Scenario 2 (spec.md §8): 16384 rows, granularity 8192, starting at
// index_offset 0, produces exactly two marks and carries index_offset 0
// into the next block.
func TestScenario2_ExactMultipleOfGranularity(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "part2")
	columns := []ColumnDesc{{Name: "n", Type: Primitive(KindUInt32)}}

	a, err := NewPartAssembler(dir, columns, []string{"n"}, testConfig(8192), nil)
	require.NoError(t, err)

	values := make([]uint32, 16384)
	for i := range values {
		values[i] = uint32(i)
	}
	block, err := NewBlock(len(values), map[string]RowColumn{"n": NewFixedColumn(values)})
	require.NoError(t, err)
	require.NoError(t, a.WriteBlock(context.Background(), block, nil))

	assert.Len(t, a.IndexRows(), 2)
	assert.Equal(t, 0, a.indexOffset)
}

// Scenario 3 (spec.md §8): two blocks of 5000 rows each at granularity
// 8192 produce 1 then 2 marks, and index_offset carries 3192 then 6384.
func TestScenario3_IndexOffsetCarriesAcrossBlocks(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "part3")
	columns := []ColumnDesc{{Name: "n", Type: Primitive(KindUInt32)}}

	a, err := NewPartAssembler(dir, columns, []string{"n"}, testConfig(8192), nil)
	require.NoError(t, err)

	mkBlock := func(n int) *Block {
		values := make([]uint32, n)
		for i := range values {
			values[i] = uint32(i)
		}
		b, err := NewBlock(n, map[string]RowColumn{"n": NewFixedColumn(values)})
		require.NoError(t, err)
		return b
	}

	require.NoError(t, a.WriteBlock(context.Background(), mkBlock(5000), nil))
	assert.Len(t, a.IndexRows(), 1)
	assert.Equal(t, 3192, a.indexOffset)

	require.NoError(t, a.WriteBlock(context.Background(), mkBlock(5000), nil))
	assert.Len(t, a.IndexRows(), 2)
	assert.Equal(t, 6384, a.indexOffset)
}

// Scenario 4 (spec.md §8): Nullable(Array(UInt8)) flattens into a
// null-map stream, a shared sizes stream, and the inner value stream: six
// files total (see DESIGN.md's note on the scenario's literal "5 files"
// wording).
func TestScenario4_NullableArrayFlattening(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "part4")
	columns := []ColumnDesc{{Name: "a", Type: Nullable(Array(Primitive(KindUInt8)))}}

	a, err := NewPartAssembler(dir, columns, nil, testConfig(8192), nil)
	require.NoError(t, err)

	inner := NewFixedColumn([]uint8{1, 2, 3, 4})
	arr := NewArrayColumn([]int{2, 0, 2, 0}, inner)
	nullable := NewNullableColumn([]bool{false, true, false, true}, arr)

	block, err := NewBlock(4, map[string]RowColumn{"a": nullable})
	require.NoError(t, err)
	require.NoError(t, a.WriteBlock(context.Background(), block, nil))

	manifest, err := a.FinalizeAndGetManifest(context.Background())
	require.NoError(t, err)

	for _, name := range []string{"a.null", "a.null_mrk", "a%size0.bin", "a%size0.mrk", "a.bin", "a.mrk"} {
		_, ok := manifest.Get(name)
		assert.True(t, ok, "expected manifest entry %s", name)
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, "expected file %s on disk", name)
	}
}

// Array(Primitive)'s sizes stream and values stream must land their marks
// at identical row-space boundaries (spec.md §4.5: "individual columns do
// not independently count marks"), never at boundaries counted over the
// flattened element domain. A granularity of 2 against rows whose element
// counts are not all 1 is exactly the case that diverges if the values
// stream is (incorrectly) driven by its own element count.
func TestArrayColumn_ValuesStreamSharesRowSpaceMarkCadence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "part_array_cadence")
	columns := []ColumnDesc{{Name: "a", Type: Array(Primitive(KindUInt8))}}

	a, err := NewPartAssembler(dir, columns, nil, testConfig(2), nil)
	require.NoError(t, err)

	lengths := []int{3, 0, 1, 2, 5}
	total := 0
	for _, l := range lengths {
		total += l
	}
	values := make([]uint8, total)
	for i := range values {
		values[i] = uint8(i)
	}
	arr := NewArrayColumn(lengths, NewFixedColumn(values))

	block, err := NewBlock(len(lengths), map[string]RowColumn{"a": arr})
	require.NoError(t, err)
	require.NoError(t, a.WriteBlock(context.Background(), block, nil))

	manifest, err := a.FinalizeAndGetManifest(context.Background())
	require.NoError(t, err)

	sizesMrk, ok := manifest.Get("a%size0.mrk")
	require.True(t, ok)
	valuesMrk, ok := manifest.Get("a.mrk")
	require.True(t, ok)

	wantMarks := countMarks(2, 0, len(lengths))
	assert.EqualValues(t, wantMarks*16, sizesMrk.Size)
	assert.Equal(t, sizesMrk.Size, valuesMrk.Size, "sizes and values streams must emit the same mark count")
}

// Scenario 5 (spec.md §8): Nested("t", [x, y]) flattens into t.x, t.y,
// sharing exactly one t%size0.bin/.mrk pair.
func TestScenario5_NestedSharesSizesStream(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "part5")
	columns := []ColumnDesc{{Name: "t", Type: Nested(
		NestedField{Name: "x", Type: Primitive(KindUInt8)},
		NestedField{Name: "y", Type: Primitive(KindUInt8)},
	)}}

	a, err := NewPartAssembler(dir, columns, nil, testConfig(8192), nil)
	require.NoError(t, err)

	xValues := NewFixedColumn([]uint8{1, 2, 3})
	yValues := NewFixedColumn([]uint8{10, 20, 30})
	block, err := NewBlock(2, map[string]RowColumn{
		"t.x": NewArrayColumn([]int{1, 2}, xValues),
		"t.y": NewArrayColumn([]int{1, 2}, yValues),
	})
	require.NoError(t, err)
	require.NoError(t, a.WriteBlock(context.Background(), block, nil))

	manifest, err := a.FinalizeAndGetManifest(context.Background())
	require.NoError(t, err)

	// Exactly one shared sizes stream for both fields.
	_, ok := manifest.Get("t%size0.bin")
	assert.True(t, ok)
	_, ok = manifest.Get("t%size0.mrk")
	assert.True(t, ok)

	// No per-field sizes stream exists.
	_, ok = manifest.Get("t.x%size0.bin")
	assert.False(t, ok)
	_, ok = manifest.Get("t.y%size0.bin")
	assert.False(t, ok)

	// Each field's own value stream exists, escaped under its dotted name.
	for _, name := range []string{"t%2Ex.bin", "t%2Ex.mrk", "t%2Ey.bin", "t%2Ey.mrk"} {
		_, ok := manifest.Get(name)
		assert.True(t, ok, "expected manifest entry %s", name)
	}
}

// Scenario 6 (spec.md §8): a part with zero blocks written (I6) produces
// no files and an empty manifest; the directory itself is removed.
func TestScenario6_EmptyPartIsRemoved(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "part6")
	columns := []ColumnDesc{{Name: "n", Type: Primitive(KindUInt32)}}

	a, err := NewPartAssembler(dir, columns, []string{"n"}, testConfig(8192), nil)
	require.NoError(t, err)

	manifest, err := a.FinalizeAndGetManifest(context.Background())
	require.NoError(t, err)
	assert.Empty(t, manifest.Entries)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestPartAssembler_DuplicateSortKeyRejected(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "partdup")
	columns := []ColumnDesc{{Name: "n", Type: Primitive(KindUInt32)}}

	_, err := NewPartAssembler(dir, columns, []string{"n", "n"}, testConfig(8192), nil)
	assert.ErrorIs(t, err, ErrDuplicateSortKeyColumn)
}

func TestPartAssembler_WriteBlockWithPermutation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "partperm")
	columns := []ColumnDesc{
		{Name: "k", Type: Primitive(KindUInt32)},
		{Name: "v", Type: Primitive(KindString)},
	}

	a, err := NewPartAssembler(dir, columns, []string{"k"}, testConfig(8192), nil)
	require.NoError(t, err)

	block, err := NewBlock(3, map[string]RowColumn{
		"k": NewFixedColumn([]uint32{3, 1, 2}),
		"v": NewStringColumn([]string{"three", "one", "two"}),
	})
	require.NoError(t, err)

	// perm[i] = source row for destination row i: sort ascending by k.
	perm := []int{1, 2, 0}
	require.NoError(t, a.WriteBlock(context.Background(), block, perm))

	rows := a.IndexRows()
	require.Len(t, rows, 1)
	kCol := rows[0]["k"].(PrimitiveColumn)
	var buf [4]byte
	w := &fixedSliceWriter{buf: buf[:0]}
	require.NoError(t, kCol.WriteRange(w, 0, 1))
	assert.Equal(t, []byte{1, 0, 0, 0}, w.buf)

	_, err = a.FinalizeAndGetManifest(context.Background())
	require.NoError(t, err)
}

func TestPartAssembler_MissingSortKeyColumn(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "partmissing")
	columns := []ColumnDesc{{Name: "n", Type: Primitive(KindUInt32)}}

	a, err := NewPartAssembler(dir, columns, []string{"missing"}, testConfig(8192), nil)
	require.NoError(t, err)

	block, err := NewBlock(1, map[string]RowColumn{"n": NewFixedColumn([]uint32{1})})
	require.NoError(t, err)

	err = a.WriteBlock(context.Background(), block, nil)
	assert.ErrorIs(t, err, ErrColumnNotInBlock)
}

func TestPartAssembler_WriteSuffixUnsupported(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "partsuffix")
	a, err := NewPartAssembler(dir, nil, nil, testConfig(8192), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, a.WriteSuffix(), ErrNotImplemented)
}

func TestPartAssembler_DoubleFinalizeRejected(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "partdouble")
	a, err := NewPartAssembler(dir, nil, nil, testConfig(8192), nil)
	require.NoError(t, err)

	_, err = a.FinalizeAndGetManifest(context.Background())
	require.NoError(t, err)

	_, err = a.FinalizeAndGetManifest(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
}

func TestAppendAssembler_AddsColumnsToExistingPart(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "partappend")
	columns := []ColumnDesc{{Name: "n", Type: Primitive(KindUInt32)}}

	a, err := NewPartAssembler(dir, columns, []string{"n"}, testConfig(8192), nil)
	require.NoError(t, err)
	block, err := NewBlock(3, map[string]RowColumn{"n": NewFixedColumn([]uint32{1, 2, 3})})
	require.NoError(t, err)
	require.NoError(t, a.WriteBlock(context.Background(), block, nil))
	_, err = a.FinalizeAndGetManifest(context.Background())
	require.NoError(t, err)

	appendCols := []ColumnDesc{{Name: "extra", Type: Primitive(KindFloat64)}}
	appender, err := NewAppendAssembler(dir, appendCols, nil, testConfig(8192), nil)
	require.NoError(t, err)

	extraBlock, err := NewBlock(3, map[string]RowColumn{"extra": NewFixedColumn([]float64{1.5, 2.5, 3.5})})
	require.NoError(t, err)
	require.NoError(t, appender.Write(context.Background(), extraBlock))

	manifest, err := appender.FinalizeAndGetManifest(context.Background())
	require.NoError(t, err)

	_, ok := manifest.Get("extra.bin")
	assert.True(t, ok)
	_, ok = manifest.Get("extra.mrk")
	assert.True(t, ok)

	_, err = os.Stat(filepath.Join(dir, "extra.bin"))
	assert.NoError(t, err)
}

func TestAppendAssembler_NameOverrideAvoidsCollision(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "partoverride")
	columns := []ColumnDesc{{Name: "n", Type: Primitive(KindUInt32)}}

	a, err := NewPartAssembler(dir, columns, []string{"n"}, testConfig(8192), nil)
	require.NoError(t, err)
	block, err := NewBlock(2, map[string]RowColumn{"n": NewFixedColumn([]uint32{1, 2})})
	require.NoError(t, err)
	require.NoError(t, a.WriteBlock(context.Background(), block, nil))
	_, err = a.FinalizeAndGetManifest(context.Background())
	require.NoError(t, err)

	appendCols := []ColumnDesc{{Name: "n", Type: Primitive(KindUInt32)}}
	overrides := map[string]string{"n": "n_v2"}
	appender, err := NewAppendAssembler(dir, appendCols, overrides, testConfig(8192), nil)
	require.NoError(t, err)

	extra, err := NewBlock(2, map[string]RowColumn{"n": NewFixedColumn([]uint32{9, 9})})
	require.NoError(t, err)
	require.NoError(t, appender.Write(context.Background(), extra))

	manifest, err := appender.FinalizeAndGetManifest(context.Background())
	require.NoError(t, err)

	_, ok := manifest.Get("n_v2.bin")
	assert.True(t, ok)
	_, ok = manifest.Get("n.bin")
	assert.False(t, ok)
}

// fixedSliceWriter is a minimal io.Writer collecting bytes for assertions
// inside tests, avoiding a bytes.Buffer import where a plain slice will do.
type fixedSliceWriter struct {
	buf []byte
}

func (w *fixedSliceWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}
