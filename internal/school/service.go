// Package school implements the dashboard's row-level operations on top of
// a row store: id generation, password-preserving updates, and the bulk
// attendance and grade reconciliation.
package school

import (
	"context"
	"fmt"
	"math"
	"time"

	"schooldesk/internal/lock"
	"schooldesk/internal/rowstore"
)

// Options tune a Service. Zero values pick the defaults.
type Options struct {
	AdminSheet string
	Now        func() time.Time
}

// Service coordinates reads and writes against the row store.
type Service struct {
	store      rowstore.Store
	locker     lock.Locker
	adminSheet string
	now        func() time.Time
}

// NewService creates a service backed by store and serialised by locker.
func NewService(store rowstore.Store, locker lock.Locker, opts Options) *Service {
	if opts.AdminSheet == "" {
		opts.AdminSheet = DefaultAdminSheet
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{store: store, locker: locker, adminSheet: opts.AdminSheet, now: opts.Now}
}

// Bootstrap creates missing sheets with their header rows and seeds the
// admin credentials when the admin sheet is empty.
func (s *Service) Bootstrap(ctx context.Context, adminUsername, adminPassword string) error {
	for _, t := range Tables {
		sheet, err := s.store.EnsureSheet(ctx, t.Sheet)
		if err != nil {
			return fmt.Errorf("ensure %s: %w", t.Sheet, err)
		}
		values, err := sheet.Values(ctx)
		if err != nil {
			return err
		}
		if _, err := ensureHeader(ctx, sheet, values, t.Columns); err != nil {
			return err
		}
	}

	sheet, err := s.store.EnsureSheet(ctx, s.adminSheet)
	if err != nil {
		return fmt.Errorf("ensure %s: %w", s.adminSheet, err)
	}
	values, err := sheet.Values(ctx)
	if err != nil {
		return err
	}
	if len(values) == 0 && adminUsername != "" {
		return sheet.AppendRows(ctx, [][]any{{adminUsername}, {adminPassword}})
	}
	return nil
}

func (s *Service) read(ctx context.Context, name string) (rowstore.Sheet, [][]any, error) {
	sheet, err := s.store.Sheet(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	values, err := sheet.Values(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", name, err)
	}
	return sheet, values, nil
}

// ensureHeader writes columns as the header row of an empty sheet and
// returns the grid as it now stands.
func ensureHeader(ctx context.Context, sheet rowstore.Sheet, values [][]any, columns []string) ([][]any, error) {
	if len(values) > 0 && !blankRow(values[0]) {
		return values, nil
	}
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if len(values) > 0 {
		if err := sheet.SetRow(ctx, 1, header); err != nil {
			return nil, err
		}
		values[0] = header
		return values, nil
	}
	if err := sheet.AppendRows(ctx, [][]any{header}); err != nil {
		return nil, err
	}
	return [][]any{header}, nil
}

func blankRow(row []any) bool {
	for _, v := range row {
		if rowstore.Text(v) != "" {
			return false
		}
	}
	return true
}

// nextID is one more than the largest numeric id in the first column of the
// data rows, or 1 for an empty sheet.
func nextID(values [][]any) float64 {
	maxID := 0.0
	for i := 1; i < len(values); i++ {
		if n, ok := rowstore.Number(rowstore.Cell(values[i], 0)); ok && n > maxID {
			maxID = n
		}
	}
	return math.Floor(maxID) + 1
}

// findRow returns the grid index of the first data row whose col equals id.
func findRow(values [][]any, col int, id any) int {
	for i := 1; i < len(values); i++ {
		if rowstore.LooseEqual(rowstore.Cell(values[i], col), id) {
			return i
		}
	}
	return -1
}

func withoutPassword(rec rowstore.Record) rowstore.Record {
	if rec == nil {
		return nil
	}
	out := make(rowstore.Record, len(rec))
	for k, v := range rec {
		if k != rowstore.PasswordColumn {
			out[k] = v
		}
	}
	return out
}

func isBlank(v any) bool {
	return v == nil || rowstore.Text(v) == ""
}
