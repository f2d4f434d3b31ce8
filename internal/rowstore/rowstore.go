// Package rowstore exposes named sheets as ordered grids of scalar cells,
// read and written the way a spreadsheet is: the first row is the header,
// positions are 1-based and include the header row.
package rowstore

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrSheetNotFound is returned when a sheet name has no backing table.
	ErrSheetNotFound = errors.New("sheet not found")
	// ErrRowOutOfRange is returned for positional writes past the data range.
	ErrRowOutOfRange = errors.New("row out of range")
)

// Record is one data row keyed by header name.
type Record map[string]any

// Store resolves sheets by exact name.
type Store interface {
	Sheet(ctx context.Context, name string) (Sheet, error)
	EnsureSheet(ctx context.Context, name string) (Sheet, error)
	Ping(ctx context.Context) error
}

// Sheet is the positional read/write surface over one table.
type Sheet interface {
	Name() string
	// Values returns the full data range, header row first.
	Values(ctx context.Context) ([][]any, error)
	AppendRows(ctx context.Context, rows [][]any) error
	SetCell(ctx context.Context, row, col int, value any) error
	SetRow(ctx context.Context, row int, values []any) error
	DeleteRow(ctx context.Context, row int) error
}

// Records converts a grid into records. Grids with fewer than two rows
// (empty, or header only) yield no records.
func Records(values [][]any) []Record {
	if len(values) < 2 {
		return []Record{}
	}
	headers := Headers(values)
	out := make([]Record, 0, len(values)-1)
	for _, row := range values[1:] {
		out = append(out, RowRecord(headers, row))
	}
	return out
}

// Headers returns the header row as text.
func Headers(values [][]any) []string {
	if len(values) == 0 {
		return nil
	}
	headers := make([]string, len(values[0]))
	for i, h := range values[0] {
		headers[i] = Text(h)
	}
	return headers
}

// RowRecord zips a header row with one data row. Missing trailing cells
// read as empty strings, as blank spreadsheet cells do.
func RowRecord(headers []string, row []any) Record {
	rec := make(Record, len(headers))
	for i, h := range headers {
		if i < len(row) && row[i] != nil {
			rec[h] = row[i]
		} else {
			rec[h] = ""
		}
	}
	return rec
}

// ColumnIndex returns the 0-based index of a header, or -1.
func ColumnIndex(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns row[col] or an empty string when the row is short.
func Cell(row []any, col int) any {
	if col < 0 || col >= len(row) || row[col] == nil {
		return ""
	}
	return row[col]
}

func checkPosition(row, length int) error {
	if row < 1 || row > length {
		return fmt.Errorf("%w: %d of %d", ErrRowOutOfRange, row, length)
	}
	return nil
}
