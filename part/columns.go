package part

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ColumnDesc is one entry of a part's columns.txt: a logical column name
// and its type-tree.
type ColumnDesc struct {
	Name string
	Type Type
}

const columnsFormatVersion = 1

// WriteColumnsFile serializes the ordered column list to path in the
// columns.txt text format.
func WriteColumnsFile(path string, columns []ColumnDesc) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("part: create columns file %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := fmt.Fprintf(w, "columns format version: %d\n", columnsFormatVersion); err != nil {
		return fmt.Errorf("part: write columns file %s: %w", path, err)
	}
	if _, err := fmt.Fprintln(w, len(columns)); err != nil {
		return fmt.Errorf("part: write columns file %s: %w", path, err)
	}
	for _, c := range columns {
		if _, err := fmt.Fprintf(w, "%s %s\n", c.Name, c.Type.String()); err != nil {
			return fmt.Errorf("part: write columns file %s: %w", path, err)
		}
	}
	return w.Flush()
}

// ReadColumnsFile parses the columns.txt text format.
func ReadColumnsFile(path string) ([]ColumnDesc, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("part: open columns file %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, fmt.Errorf("part: columns file %s is empty", path)
	}
	if !strings.HasPrefix(scanner.Text(), "columns format version:") {
		return nil, fmt.Errorf("part: columns file %s: missing version header", path)
	}
	if !scanner.Scan() {
		return nil, fmt.Errorf("part: columns file %s: missing count line", path)
	}
	count, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return nil, fmt.Errorf("part: columns file %s: bad count: %w", path, err)
	}

	columns := make([]ColumnDesc, 0, count)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		name, typeStr, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("part: columns file %s: malformed line %q", path, line)
		}
		t, err := ParseType(typeStr)
		if err != nil {
			return nil, fmt.Errorf("part: columns file %s: %w", path, err)
		}
		columns = append(columns, ColumnDesc{Name: name, Type: t})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("part: read columns file %s: %w", path, err)
	}
	if len(columns) != count {
		return nil, fmt.Errorf("part: columns file %s: declared %d columns, found %d", path, count, len(columns))
	}
	return columns, nil
}
