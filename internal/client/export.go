package client

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

var (
	intFields   = map[string]bool{"id": true, "grade": true, "teacherId": true, "studentId": true}
	floatFields = map[string]bool{"score": true}
)

// ExportTable fetches one table as CSV and returns typed records. Known
// numeric columns are coerced; blanks in them become nil.
func (c *Client) ExportTable(ctx context.Context, sheet string) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.exportURL+"?sheet="+url.QueryEscape(sheet), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		env, err := readEnvelope(resp)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", sheet, err)
		}
		return nil, &ServerError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	return ParseCSV(resp.Body)
}

// ParseCSV reads a header row and data rows into records.
func ParseCSV(r io.Reader) ([]map[string]any, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	out := []map[string]any{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rec := make(map[string]any, len(header))
		for i, h := range header {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			rec[h] = coerce(h, cell)
		}
		out = append(out, rec)
	}
}

func coerce(field, cell string) any {
	switch {
	case intFields[field]:
		if cell == "" {
			return nil
		}
		if n, err := strconv.Atoi(cell); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(cell, 64); err == nil {
			return int(f)
		}
		return cell
	case floatFields[field]:
		if cell == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(cell, 64); err == nil {
			return f
		}
		return cell
	default:
		return cell
	}
}
