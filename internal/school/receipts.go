package school

import (
	"context"
	"time"

	"schooldesk/internal/lock"
	"schooldesk/internal/rowstore"
)

// ReadAnnouncementIDs lists the announcements a student has marked read.
func (s *Service) ReadAnnouncementIDs(ctx context.Context, studentID any) (map[string]any, error) {
	_, values, err := s.read(ctx, ReadReceipts.Sheet)
	if err != nil {
		return nil, err
	}
	ids := []any{}
	for _, r := range rowstore.Records(values) {
		if rowstore.LooseEqual(r["studentId"], studentID) {
			ids = append(ids, r["announcementId"])
		}
	}
	return map[string]any{"readAnnouncementIds": ids}, nil
}

// MarkAnnouncementsRead appends a receipt for each announcement the student
// has not read yet. Re-marking is a no-op per id.
func (s *Service) MarkAnnouncementsRead(ctx context.Context, studentID any, announcementIDs []any) (map[string]any, error) {
	err := lock.With(ctx, s.locker, WriteWait, func(ctx context.Context) error {
		sheet, values, err := s.read(ctx, ReadReceipts.Sheet)
		if err != nil {
			return err
		}
		values, err = ensureHeader(ctx, sheet, values, ReadReceipts.Columns)
		if err != nil {
			return err
		}

		seen := make(map[string]bool)
		for _, r := range rowstore.Records(values) {
			if rowstore.LooseEqual(r["studentId"], studentID) {
				seen[rowstore.Text(r["announcementId"])] = true
			}
		}

		stamp := s.now().UTC().Format(time.RFC3339)
		var rows [][]any
		for _, id := range announcementIDs {
			key := rowstore.Text(id)
			if seen[key] {
				continue
			}
			seen[key] = true
			rows = append(rows, []any{studentID, id, stamp})
		}
		if len(rows) == 0 {
			return nil
		}
		return sheet.AppendRows(ctx, rows)
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "marked as read"}, nil
}
