package school

import (
	"context"
	"fmt"
	"sort"

	"schooldesk/internal/lock"
	"schooldesk/internal/rowstore"
)

// SaveAttendance upserts one status per student for date. Existing
// (studentId, date) rows are overwritten in place; the rest are appended in
// a single batch after the scan.
func (s *Service) SaveAttendance(ctx context.Context, date string, records map[string]string) (map[string]any, error) {
	ids := sortedIDs(records)
	for _, id := range ids {
		if _, ok := rowstore.Number(id); !ok {
			return nil, fmt.Errorf("%w: studentId %q is not numeric", ErrInvalidPayload, id)
		}
		switch records[id] {
		case AttendancePresent, AttendanceAbsent, AttendanceLate:
		default:
			return nil, fmt.Errorf("%w: status %q for student %s is not present, absent or late", ErrInvalidPayload, records[id], id)
		}
	}

	saved := make([]AttendanceRecord, 0, len(ids))
	err := lock.With(ctx, s.locker, WriteWait, func(ctx context.Context) error {
		sheet, values, err := s.read(ctx, Attendance.Sheet)
		if err != nil {
			return err
		}
		values, err = ensureHeader(ctx, sheet, values, Attendance.Columns)
		if err != nil {
			return err
		}

		// Positions are taken from the grid as read; nothing is deleted in
		// this batch, so they stay valid while cells are overwritten.
		existing := make(map[string]int, len(values))
		for i := 1; i < len(values); i++ {
			existing[rowstore.Key(rowstore.Cell(values[i], 0), rowstore.Cell(values[i], 1))] = i + 1
		}

		var newRows [][]any
		for _, id := range ids {
			status := records[id]
			studentID, _ := rowstore.Number(id)
			if pos, ok := existing[rowstore.Key(id, date)]; ok {
				if err := sheet.SetCell(ctx, pos, 3, status); err != nil {
					return err
				}
			} else {
				newRows = append(newRows, []any{studentID, date, status})
			}
			saved = append(saved, AttendanceRecord{StudentID: studentID, Date: date, Status: status})
		}
		if len(newRows) > 0 {
			return sheet.AppendRows(ctx, newRows)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"savedRecords": saved}, nil
}

// SaveGrades reconciles scores for one subject: existing rows are updated,
// or deleted when the score is nil; missing rows with a score are appended.
// Deletions run last, bottom-up, so earlier ones never shift later targets.
func (s *Service) SaveGrades(ctx context.Context, subject string, entries []GradeEntry) (map[string]any, error) {
	for _, e := range entries {
		if e.Score != nil && (*e.Score < MinScore || *e.Score > MaxScore) {
			return nil, fmt.Errorf("%w: score %v for student %s is outside %d-%d",
				ErrInvalidPayload, *e.Score, rowstore.Text(e.StudentID), MinScore, MaxScore)
		}
	}
	err := lock.With(ctx, s.locker, GradesWait, func(ctx context.Context) error {
		sheet, values, err := s.read(ctx, Grades.Sheet)
		if err != nil {
			return err
		}
		values, err = ensureHeader(ctx, sheet, values, Grades.Columns)
		if err != nil {
			return err
		}

		rows := make(map[string]int)
		for i := 1; i < len(values); i++ {
			if rowstore.Text(rowstore.Cell(values[i], 1)) == subject {
				rows[rowstore.Text(rowstore.Cell(values[i], 0))] = i + 1
			}
		}

		updates := make(map[int]float64)
		deletes := make(map[int]struct{})
		for _, e := range entries {
			pos, ok := rows[rowstore.Text(e.StudentID)]
			switch {
			case ok && e.Score == nil:
				deletes[pos] = struct{}{}
			case ok:
				updates[pos] = *e.Score
			case e.Score != nil:
				if err := sheet.AppendRows(ctx, [][]any{{e.StudentID, subject, *e.Score}}); err != nil {
					return err
				}
			}
		}

		positions := make([]int, 0, len(updates))
		for pos := range updates {
			positions = append(positions, pos)
		}
		sort.Ints(positions)
		for _, pos := range positions {
			if err := sheet.SetCell(ctx, pos, 3, updates[pos]); err != nil {
				return err
			}
		}

		doomed := make([]int, 0, len(deletes))
		for pos := range deletes {
			doomed = append(doomed, pos)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(doomed)))
		for _, pos := range doomed {
			if err := sheet.DeleteRow(ctx, pos); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "success"}, nil
}

// sortedIDs orders student ids numerically.
func sortedIDs(records map[string]string) []string {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, aok := rowstore.Number(ids[i])
		b, bok := rowstore.Number(ids[j])
		if aok && bok && a != b {
			return a < b
		}
		return ids[i] < ids[j]
	})
	return ids
}
