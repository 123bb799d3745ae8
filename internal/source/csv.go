// Package source reads the tabular input that drives a download job.
//
// The core fetch pipeline never parses the input format itself; it only
// receives the Records produced here. The interactive column prompts mirror
// how the tool has always been driven: print the available columns, ask for
// the RA, DEC and object-id column names, and fail on anything unknown.
package source

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Record is one input row, reduced to the fields the pipeline needs.
// Values are kept as strings; coordinate validation is the locator
// builder's job.
type Record struct {
	RA  string
	Dec string
	ID  string
}

// Columns names the table columns that supply each Record field.
type Columns struct {
	RA  string
	Dec string
	ID  string
}

// Table is a parsed coordinate table with a header row.
type Table struct {
	header []string
	rows   [][]string
}

// ReadTable parses CSV data with a header row.
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("source: input is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("source: read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("source: read rows: %w", err)
	}

	return &Table{header: header, rows: rows}, nil
}

// Header returns the column names in file order.
func (t *Table) Header() []string {
	return t.header
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// ResolveColumns fills any empty column names by prompting on out and
// reading answers from in, after listing the available columns. Already
// filled names are validated, not prompted for.
func (t *Table) ResolveColumns(cols Columns, in io.Reader, out io.Writer) (Columns, error) {
	needPrompt := cols.RA == "" || cols.Dec == "" || cols.ID == ""
	if needPrompt {
		fmt.Fprintf(out, "Select RA, DEC and ObjID columns: %s\n", strings.Join(t.header, ", "))
	}

	reader := bufio.NewReader(in)
	prompt := func(label string) (string, error) {
		fmt.Fprintf(out, "%s column: ", label)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("source: read %s column name: %w", label, err)
		}
		return strings.TrimSpace(line), nil
	}

	var err error
	if cols.RA == "" {
		if cols.RA, err = prompt("RA"); err != nil {
			return Columns{}, err
		}
	}
	if cols.Dec == "" {
		if cols.Dec, err = prompt("DEC"); err != nil {
			return Columns{}, err
		}
	}
	if cols.ID == "" {
		if cols.ID, err = prompt("ObjID"); err != nil {
			return Columns{}, err
		}
	}

	for _, name := range []string{cols.RA, cols.Dec, cols.ID} {
		if _, err := t.columnIndex(name); err != nil {
			return Columns{}, err
		}
	}

	return cols, nil
}

// Records extracts one Record per data row, in file order.
func (t *Table) Records(cols Columns) ([]Record, error) {
	ra, err := t.columnIndex(cols.RA)
	if err != nil {
		return nil, err
	}
	dec, err := t.columnIndex(cols.Dec)
	if err != nil {
		return nil, err
	}
	id, err := t.columnIndex(cols.ID)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(t.rows))
	for _, row := range t.rows {
		records = append(records, Record{
			RA:  strings.TrimSpace(row[ra]),
			Dec: strings.TrimSpace(row[dec]),
			ID:  strings.TrimSpace(row[id]),
		})
	}
	return records, nil
}

func (t *Table) columnIndex(name string) (int, error) {
	for i, h := range t.header {
		if h == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("source: column %q not found (have: %s)", name, strings.Join(t.header, ", "))
}
