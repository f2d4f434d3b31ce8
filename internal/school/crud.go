package school

import (
	"context"
	"fmt"

	"schooldesk/internal/lock"
	"schooldesk/internal/rowstore"
)

// Add appends item to t with a fresh id and returns it without the password.
// Add does not take the store lock: two concurrent adds can read the same
// max id and collide.
func (s *Service) Add(ctx context.Context, t Table, item rowstore.Record) (rowstore.Record, error) {
	sheet, values, err := s.read(ctx, t.Sheet)
	if err != nil {
		return nil, err
	}
	values, err = ensureHeader(ctx, sheet, values, t.Columns)
	if err != nil {
		return nil, err
	}

	out := make(rowstore.Record, len(item)+1)
	for k, v := range item {
		out[k] = v
	}
	out["id"] = nextID(values)

	row := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		if v, ok := out[c]; ok && !isBlank(v) {
			row[i] = v
		} else {
			row[i] = ""
		}
	}
	if err := sheet.AppendRows(ctx, [][]any{row}); err != nil {
		return nil, fmt.Errorf("append %s: %w", t.Sheet, err)
	}
	return withoutPassword(out), nil
}

// AddStudent creates an admin-managed account, active unless the payload
// says otherwise.
func (s *Service) AddStudent(ctx context.Context, item rowstore.Record) (rowstore.Record, error) {
	if isBlank(item["status"]) {
		item["status"] = StatusActive
	}
	return s.Add(ctx, Students, item)
}

// AddAnnouncement stamps today's date when the payload has none.
func (s *Service) AddAnnouncement(ctx context.Context, item rowstore.Record) (rowstore.Record, error) {
	if isBlank(item["date"]) {
		item["date"] = s.now().Format("2006-01-02")
	}
	return s.Add(ctx, Announcements, item)
}

// Update overwrites the row matching item["id"]. Columns absent from item
// keep their stored value, and a blank password keeps the stored password.
func (s *Service) Update(ctx context.Context, t Table, item rowstore.Record) (rowstore.Record, error) {
	id, ok := item["id"]
	if !ok || isBlank(id) {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidPayload)
	}

	var out rowstore.Record
	err := lock.With(ctx, s.locker, WriteWait, func(ctx context.Context) error {
		sheet, values, err := s.read(ctx, t.Sheet)
		if err != nil {
			return err
		}
		headers := rowstore.Headers(values)
		idCol := rowstore.ColumnIndex(headers, "id")
		if idCol == -1 {
			return missingColumn(t.Sheet, "id")
		}
		idx := findRow(values, idCol, id)
		if idx == -1 {
			return &NotFoundError{Sheet: t.Sheet, ID: id}
		}
		existing := values[idx]

		merged := make(rowstore.Record, len(item))
		for k, v := range item {
			merged[k] = v
		}
		if isBlank(merged[rowstore.PasswordColumn]) {
			if pw := rowstore.ColumnIndex(headers, rowstore.PasswordColumn); pw != -1 {
				merged[rowstore.PasswordColumn] = rowstore.Cell(existing, pw)
			}
		}

		row := make([]any, len(headers))
		for i, h := range headers {
			if v, ok := merged[h]; ok {
				row[i] = v
			} else {
				row[i] = rowstore.Cell(existing, i)
			}
		}
		if err := sheet.SetRow(ctx, idx+1, row); err != nil {
			return err
		}
		out = withoutPassword(merged)
		return nil
	})
	return out, err
}

// Delete removes the row whose id matches.
func (s *Service) Delete(ctx context.Context, t Table, id any) (map[string]any, error) {
	if isBlank(id) {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidPayload)
	}
	err := lock.With(ctx, s.locker, WriteWait, func(ctx context.Context) error {
		sheet, values, err := s.read(ctx, t.Sheet)
		if err != nil {
			return err
		}
		idCol := rowstore.ColumnIndex(rowstore.Headers(values), "id")
		if idCol == -1 {
			return missingColumn(t.Sheet, "id")
		}
		idx := findRow(values, idCol, id)
		if idx == -1 {
			return &NotFoundError{Sheet: t.Sheet, ID: id}
		}
		return sheet.DeleteRow(ctx, idx+1)
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": id, "status": "deleted"}, nil
}

// ApproveStudent activates a student in place. The id and status columns are
// located by name. Like Add, it runs without the store lock.
func (s *Service) ApproveStudent(ctx context.Context, id any) (rowstore.Record, error) {
	if isBlank(id) {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidPayload)
	}
	sheet, values, err := s.read(ctx, Students.Sheet)
	if err != nil {
		return nil, err
	}
	headers := rowstore.Headers(values)
	idCol := rowstore.ColumnIndex(headers, "id")
	statusCol := rowstore.ColumnIndex(headers, "status")
	if idCol == -1 || statusCol == -1 {
		return nil, missingColumn(Students.Sheet, "id", "status")
	}
	idx := findRow(values, idCol, id)
	if idx == -1 {
		return nil, &NotFoundError{Sheet: Students.Sheet, ID: id}
	}
	if err := sheet.SetCell(ctx, idx+1, statusCol+1, StatusActive); err != nil {
		return nil, err
	}

	values, err = sheet.Values(ctx)
	if err != nil {
		return nil, err
	}
	if idx >= len(values) {
		return nil, &NotFoundError{Sheet: Students.Sheet, ID: id}
	}
	return withoutPassword(rowstore.RowRecord(headers, values[idx])), nil
}
