// Command partwrite drives PartAssembler end to end against either a
// synthetically generated block or rows read from a CSV file, for manual
// exercising of the writer outside of its test suite.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/columnforge/partwriter/config"
	"github.com/columnforge/partwriter/part"
	"github.com/columnforge/partwriter/sys"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional; defaults used if absent)")
	schemaPath := flag.String("schema", "", "path to a columns.txt-format schema file (required)")
	outDir := flag.String("out", "", "part directory to create (required)")
	sortKeyFlag := flag.String("sort-key", "", "comma-separated sort key column names (optional, unsorted if empty)")
	rows := flag.Int("rows", 1000, "number of synthetic rows to generate (ignored if -csv is set)")
	csvPath := flag.String("csv", "", "path to a CSV file of rows (header must name every primitive column; optional)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *schemaPath == "" || *outDir == "" {
		fmt.Fprintln(os.Stderr, "Error: -schema and -out are required.")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(logger, *configPath, *schemaPath, *outDir, *sortKeyFlag, *rows, *csvPath); err != nil {
		logger.Error("partwrite failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, configPath, schemaPath, outDir, sortKeyFlag string, rows int, csvPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sys.SetDebugMode(cfg.Debug.Enabled)

	compression, err := cfg.Writer.CompressionType()
	if err != nil {
		return err
	}
	writerCfg := part.WriterConfig{
		Granularity:       cfg.Writer.Granularity,
		MinFrameBytes:     cfg.Writer.MinFrameBytes,
		MaxFrameBytes:     cfg.Writer.MaxFrameBytes,
		CompressionMethod: compression,
		AIOThreshold:      cfg.Writer.AIOThresholdBytes,
		SyncOnFinalize:    cfg.Writer.SyncOnFinalize,
	}

	columns, err := part.ReadColumnsFile(schemaPath)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	var sortKey []string
	if sortKeyFlag != "" {
		sortKey = strings.Split(sortKeyFlag, ",")
	}

	var block *part.Block
	if csvPath != "" {
		block, err = loadCSVBlock(csvPath, columns)
	} else {
		block, err = generateSyntheticBlock(columns, rows)
	}
	if err != nil {
		return fmt.Errorf("build block: %w", err)
	}

	tp, tracerCleanup, err := initTracerProvider(cfg.Tracing, logger)
	if err != nil {
		return fmt.Errorf("init tracer provider: %w", err)
	}
	defer tracerCleanup()
	tracer := tp.Tracer("partwriter/cmd/partwrite")

	assembler, err := part.NewPartAssembler(outDir, columns, sortKey, writerCfg, tracer)
	if err != nil {
		return fmt.Errorf("create part assembler: %w", err)
	}

	ctx := context.Background()
	if err := assembler.WriteBlock(ctx, block, nil); err != nil {
		return fmt.Errorf("write block: %w", err)
	}

	manifest, err := assembler.FinalizeAndGetManifest(ctx)
	if err != nil {
		return fmt.Errorf("finalize part: %w", err)
	}

	logger.Info("part written", "dir", outDir, "rows", block.Rows, "files", len(manifest.Entries))
	for _, e := range manifest.Entries {
		logger.Debug("manifest entry", "file", e.FileName, "size", e.Size, "hash", fmt.Sprintf("%08x", e.Hash))
	}
	return nil
}

// initTracerProvider builds the OpenTelemetry TracerProvider every
// PartAssembler/AppendAssembler span in the part package is recorded
// against. With tracing disabled it returns a plain no-op provider so
// every tracer.Start call downstream is still safe to make, just
// discarded, rather than special-cased on a nil tracer.
func initTracerProvider(cfg config.TracingConfig, logger *slog.Logger) (*sdktrace.TracerProvider, func(), error) {
	if !cfg.Enabled {
		logger.Info("distributed tracing is disabled")
		return sdktrace.NewTracerProvider(), func() {}, nil
	}

	logger.Info("initializing distributed tracing", "protocol", cfg.Protocol, "endpoint", cfg.Endpoint)

	ctx := context.Background()
	var exporter sdktrace.SpanExporter
	var err error
	switch strings.ToLower(cfg.Protocol) {
	case "http":
		exporter, err = otlptrace.New(ctx, otlptracehttp.NewClient(otlptracehttp.WithEndpoint(cfg.Endpoint), otlptracehttp.WithInsecure()))
	case "grpc":
		exporter, err = otlptrace.New(ctx, otlptracegrpc.NewClient(otlptracegrpc.WithEndpoint(cfg.Endpoint), otlptracegrpc.WithInsecure()))
	default:
		return nil, nil, fmt.Errorf("unsupported tracing protocol: %q", cfg.Protocol)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String("partwriter")))
	if err != nil {
		return nil, nil, fmt.Errorf("create trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	cleanup := func() {
		logger.Info("shutting down tracer provider")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down tracer provider", "error", err)
		}
	}

	return tp, cleanup, nil
}

// generateSyntheticBlock builds a deterministic, non-random block covering
// every declared column, expanding Nested columns into their flattened
// dotted sub-columns the same way the column-layout planner does.
func generateSyntheticBlock(columns []part.ColumnDesc, rows int) (*part.Block, error) {
	out := make(map[string]part.RowColumn)
	for _, cd := range columns {
		if err := genColumn(cd.Name, cd.Type, rows, out); err != nil {
			return nil, err
		}
	}
	return part.NewBlock(rows, out)
}

func genColumn(name string, typ part.Type, rows int, out map[string]part.RowColumn) error {
	if typ.Kind == part.KindNested {
		for _, f := range typ.Fields {
			if err := genColumn(name+"."+f.Name, part.Array(f.Type), rows, out); err != nil {
				return err
			}
		}
		return nil
	}
	col, err := genValue(typ, rows)
	if err != nil {
		return err
	}
	out[name] = col
	return nil
}

func genValue(typ part.Type, rows int) (part.RowColumn, error) {
	switch typ.Kind {
	case part.KindNullable:
		inner, err := genValue(*typ.Elem, rows)
		if err != nil {
			return nil, err
		}
		nulls := make([]bool, rows)
		for i := range nulls {
			nulls[i] = i%7 == 0
		}
		return part.NewNullableColumn(nulls, inner), nil
	case part.KindArray:
		lengths := make([]int, rows)
		total := 0
		for i := range lengths {
			lengths[i] = i % 4
			total += lengths[i]
		}
		inner, err := genValue(*typ.Elem, total)
		if err != nil {
			return nil, err
		}
		return part.NewArrayColumn(lengths, inner), nil
	default:
		return genPrimitive(typ.Kind, rows)
	}
}

func genPrimitive(k part.Kind, rows int) (part.RowColumn, error) {
	switch k {
	case part.KindUInt8:
		v := make([]uint8, rows)
		for i := range v {
			v[i] = uint8(i)
		}
		return part.NewFixedColumn(v), nil
	case part.KindUInt16:
		v := make([]uint16, rows)
		for i := range v {
			v[i] = uint16(i)
		}
		return part.NewFixedColumn(v), nil
	case part.KindUInt32:
		v := make([]uint32, rows)
		for i := range v {
			v[i] = uint32(i)
		}
		return part.NewFixedColumn(v), nil
	case part.KindUInt64:
		v := make([]uint64, rows)
		for i := range v {
			v[i] = uint64(i)
		}
		return part.NewFixedColumn(v), nil
	case part.KindInt8:
		v := make([]int8, rows)
		for i := range v {
			v[i] = int8(i)
		}
		return part.NewFixedColumn(v), nil
	case part.KindInt16:
		v := make([]int16, rows)
		for i := range v {
			v[i] = int16(i)
		}
		return part.NewFixedColumn(v), nil
	case part.KindInt32:
		v := make([]int32, rows)
		for i := range v {
			v[i] = int32(i)
		}
		return part.NewFixedColumn(v), nil
	case part.KindInt64:
		v := make([]int64, rows)
		for i := range v {
			v[i] = int64(i)
		}
		return part.NewFixedColumn(v), nil
	case part.KindFloat32:
		v := make([]float32, rows)
		for i := range v {
			v[i] = float32(i) / 2
		}
		return part.NewFixedColumn(v), nil
	case part.KindFloat64:
		v := make([]float64, rows)
		for i := range v {
			v[i] = float64(i) / 2
		}
		return part.NewFixedColumn(v), nil
	case part.KindString:
		v := make([]string, rows)
		for i := range v {
			v[i] = "row-" + strconv.Itoa(i)
		}
		return part.NewStringColumn(v), nil
	default:
		return nil, fmt.Errorf("partwrite: cannot synthesize column of kind %s", k)
	}
}

// loadCSVBlock reads a CSV file whose header names every declared column.
// Only flat primitive schemas are supported: Nullable, Array and Nested
// columns have no unambiguous flat text representation, so a schema naming
// one is rejected up front.
func loadCSVBlock(path string, columns []part.ColumnDesc) (*part.Block, error) {
	for _, cd := range columns {
		if !cd.Type.IsPrimitive() {
			return nil, fmt.Errorf("partwrite: -csv only supports flat primitive schemas, column %q is %s", cd.Name, cd.Type.String())
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	colIndex := make(map[string]int, len(header))
	for i, h := range header {
		colIndex[h] = i
	}

	raw := make(map[string][]string)
	for _, cd := range columns {
		if _, ok := colIndex[cd.Name]; !ok {
			return nil, fmt.Errorf("partwrite: csv header missing column %q", cd.Name)
		}
		raw[cd.Name] = nil
	}

	n := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", n, err)
		}
		for _, cd := range columns {
			raw[cd.Name] = append(raw[cd.Name], record[colIndex[cd.Name]])
		}
		n++
	}

	out := make(map[string]part.RowColumn, len(columns))
	for _, cd := range columns {
		col, err := parsePrimitiveStrings(cd.Type.Kind, raw[cd.Name])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", cd.Name, err)
		}
		out[cd.Name] = col
	}
	return part.NewBlock(n, out)
}

func parsePrimitiveStrings(k part.Kind, values []string) (part.RowColumn, error) {
	if k == part.KindString {
		return part.NewStringColumn(values), nil
	}
	switch k {
	case part.KindUInt8, part.KindUInt16, part.KindUInt32, part.KindUInt64:
		return parseUintColumn(k, values)
	case part.KindInt8, part.KindInt16, part.KindInt32, part.KindInt64:
		return parseIntColumn(k, values)
	case part.KindFloat32, part.KindFloat64:
		return parseFloatColumn(k, values)
	default:
		return nil, fmt.Errorf("unsupported primitive kind %s", k)
	}
}

func parseUintColumn(k part.Kind, values []string) (part.RowColumn, error) {
	switch k {
	case part.KindUInt8:
		v := make([]uint8, len(values))
		for i, s := range values {
			n, err := strconv.ParseUint(s, 10, 8)
			if err != nil {
				return nil, err
			}
			v[i] = uint8(n)
		}
		return part.NewFixedColumn(v), nil
	case part.KindUInt16:
		v := make([]uint16, len(values))
		for i, s := range values {
			n, err := strconv.ParseUint(s, 10, 16)
			if err != nil {
				return nil, err
			}
			v[i] = uint16(n)
		}
		return part.NewFixedColumn(v), nil
	case part.KindUInt32:
		v := make([]uint32, len(values))
		for i, s := range values {
			n, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				return nil, err
			}
			v[i] = uint32(n)
		}
		return part.NewFixedColumn(v), nil
	default:
		v := make([]uint64, len(values))
		for i, s := range values {
			n, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return nil, err
			}
			v[i] = n
		}
		return part.NewFixedColumn(v), nil
	}
}

func parseIntColumn(k part.Kind, values []string) (part.RowColumn, error) {
	switch k {
	case part.KindInt8:
		v := make([]int8, len(values))
		for i, s := range values {
			n, err := strconv.ParseInt(s, 10, 8)
			if err != nil {
				return nil, err
			}
			v[i] = int8(n)
		}
		return part.NewFixedColumn(v), nil
	case part.KindInt16:
		v := make([]int16, len(values))
		for i, s := range values {
			n, err := strconv.ParseInt(s, 10, 16)
			if err != nil {
				return nil, err
			}
			v[i] = int16(n)
		}
		return part.NewFixedColumn(v), nil
	case part.KindInt32:
		v := make([]int32, len(values))
		for i, s := range values {
			n, err := strconv.ParseInt(s, 10, 32)
			if err != nil {
				return nil, err
			}
			v[i] = int32(n)
		}
		return part.NewFixedColumn(v), nil
	default:
		v := make([]int64, len(values))
		for i, s := range values {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, err
			}
			v[i] = n
		}
		return part.NewFixedColumn(v), nil
	}
}

func parseFloatColumn(k part.Kind, values []string) (part.RowColumn, error) {
	if k == part.KindFloat32 {
		v := make([]float32, len(values))
		for i, s := range values {
			n, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return nil, err
			}
			v[i] = float32(n)
		}
		return part.NewFixedColumn(v), nil
	}
	v := make([]float64, len(values))
	for i, s := range values {
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		v[i] = n
	}
	return part.NewFixedColumn(v), nil
}
