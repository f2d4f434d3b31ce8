// Package audit turns the change feed into rows of the AuditLog sheet.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"schooldesk/internal/queue"
	"schooldesk/internal/rowstore"
	"schooldesk/internal/school"
)

const maxSummary = 256

type Recorder struct {
	store  rowstore.Store
	logger *slog.Logger
	newID  func() string
}

func NewRecorder(store rowstore.Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger, newID: uuid.NewString}
}

// Record appends one audit row for c.
func (r *Recorder) Record(ctx context.Context, c queue.Change) error {
	sheet, err := r.store.EnsureSheet(ctx, school.AuditLog.Sheet)
	if err != nil {
		return err
	}
	values, err := sheet.Values(ctx)
	if err != nil {
		return err
	}

	var rows [][]any
	if len(values) == 0 {
		header := make([]any, len(school.AuditLog.Columns))
		for i, col := range school.AuditLog.Columns {
			header[i] = col
		}
		rows = append(rows, header)
	}
	rows = append(rows, []any{r.newID(), c.Action, c.RequestID, c.At.UTC().Format(time.RFC3339), Summary(c)})
	return sheet.AppendRows(ctx, rows)
}

// Run consumes the feed until ctx is done or the feed closes. Messages that
// fail to decode or record are logged and skipped.
func (r *Recorder) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	r.logger.InfoContext(ctx, "audit consumer started")
	for msg := range messages {
		if msg.Type != queue.TypeChange {
			continue
		}
		c, err := queue.DecodeChange(msg)
		if err != nil {
			r.logger.WarnContext(ctx, "skipping change", "error", err)
			continue
		}
		if err := r.Record(ctx, c); err != nil {
			r.logger.ErrorContext(ctx, "audit append failed", "action", c.Action, "request_id", c.RequestID, "error", err)
			continue
		}
		r.logger.DebugContext(ctx, "audit recorded", "action", c.Action, "request_id", c.RequestID)
	}
	r.logger.InfoContext(ctx, "audit consumer stopped")
	return nil
}

// Summary renders the change payload as compact JSON, cut to a readable
// length.
func Summary(c queue.Change) string {
	if c.Data == nil {
		return ""
	}
	b, err := json.Marshal(c.Data)
	if err != nil {
		return fmt.Sprint(c.Data)
	}
	s := []rune(string(b))
	if len(s) > maxSummary {
		return string(s[:maxSummary-3]) + "..."
	}
	return string(s)
}
