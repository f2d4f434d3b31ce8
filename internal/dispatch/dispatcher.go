// Package dispatch routes {action, payload} requests to the school service
// and folds every outcome, panics included, into an Envelope.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"schooldesk/internal/lock"
	"schooldesk/internal/metrics"
	"schooldesk/internal/queue"
	"schooldesk/internal/rowstore"
	"schooldesk/internal/school"
)

type handlerFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// Options wire the optional collaborators of a Dispatcher.
type Options struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Publisher queue.Publisher
	Now       func() time.Time
}

type Dispatcher struct {
	svc       *school.Service
	validate  *validator.Validate
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher queue.Publisher
	now       func() time.Time
	handlers  map[string]handlerFunc
}

func New(svc *school.Service, opts Options) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	d := &Dispatcher{
		svc:       svc,
		validate:  newValidator(),
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		publisher: opts.Publisher,
		now:       opts.Now,
	}
	d.handlers = map[string]handlerFunc{
		GetAdminCredentials: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return d.svc.AdminInfo(ctx)
		},
		GetAllStudents: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return d.svc.AllStudents(ctx)
		},
		LoginAdmin:                    d.loginAdmin,
		LoginStudent:                  d.loginStudent,
		RegisterStudent:               d.recordHandler(d.svc.RegisterStudent),
		GetReadAnnouncementsByStudent: d.readAnnouncements,
		AddStudent:                    d.recordHandler(d.svc.AddStudent),
		AddTeacher:                    d.addHandler(school.Teachers),
		AddSubject:                    d.addHandler(school.Subjects),
		AddAnnouncement:               d.recordHandler(d.svc.AddAnnouncement),
		UpdateStudent:                 d.updateHandler(school.Students),
		UpdateTeacher:                 d.updateHandler(school.Teachers),
		UpdateSubject:                 d.updateHandler(school.Subjects),
		UpdateAnnouncement:            d.updateHandler(school.Announcements),
		ApproveStudent:                d.approveStudent,
		DeleteStudent:                 d.deleteHandler(school.Students),
		DeleteTeacher:                 d.deleteHandler(school.Teachers),
		DeleteSubject:                 d.deleteHandler(school.Subjects),
		DeleteAnnouncement:            d.deleteHandler(school.Announcements),
		SaveAttendance:                d.saveAttendance,
		SaveGrades:                    d.saveGrades,
		MarkAnnouncementsAsRead:       d.markRead,
	}
	return d
}

// Dispatch runs one action. It never returns an error: every failure is an
// error envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Envelope {
	start := time.Now()
	reqID := RequestID(ctx)
	log := d.logger.With("action", req.Action, "request_id", reqID)

	h, ok := d.handlers[req.Action]
	if !ok {
		log.WarnContext(ctx, "unknown action")
		d.metrics.RecordAction("unknown", StatusError, time.Since(start))
		return Failure(fmt.Sprintf("Unknown action: %s", req.Action))
	}

	data, err := d.run(ctx, h, req.Payload)
	elapsed := time.Since(start)
	if err != nil {
		if isBusinessError(err) {
			log.InfoContext(ctx, "action rejected", "status", StatusError, "duration", elapsed, "error", err)
		} else {
			log.ErrorContext(ctx, "action failed", "status", StatusError, "duration", elapsed, "error", err)
		}
		d.metrics.RecordAction(req.Action, StatusError, elapsed)
		return Failure(err.Error())
	}

	log.InfoContext(ctx, "action handled", "status", StatusSuccess, "duration", elapsed)
	d.metrics.RecordAction(req.Action, StatusSuccess, elapsed)
	if info, _ := Lookup(req.Action); info.Write {
		d.publish(ctx, req.Action, reqID, data)
	}
	return Success(data)
}

func (d *Dispatcher) run(ctx context.Context, h handlerFunc, payload json.RawMessage) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return h(ctx, payload)
}

// publish puts a change event on the feed. Failures are logged only; the
// write has already happened.
func (d *Dispatcher) publish(ctx context.Context, action, reqID string, data any) {
	if d.publisher == nil {
		return
	}
	msg, err := queue.NewChangeMessage(queue.Change{Action: action, RequestID: reqID, At: d.now().UTC(), Data: data})
	if err != nil {
		d.logger.WarnContext(ctx, "change encode failed", "action", action, "error", err)
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := d.publisher.Publish(pubCtx, msg); err != nil {
		d.logger.WarnContext(ctx, "change publish failed", "action", action, "request_id", reqID, "error", err)
	}
}

func isBusinessError(err error) bool {
	for _, target := range []error{
		school.ErrNotFound,
		school.ErrDuplicateUsername,
		school.ErrAccountPending,
		school.ErrAccountDisabled,
		school.ErrInvalidPayload,
		lock.ErrTimeout,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (d *Dispatcher) loginAdmin(ctx context.Context, raw json.RawMessage) (any, error) {
	var c credentials
	if err := d.decode(raw, &c); err != nil {
		return nil, err
	}
	admin, err := d.svc.LoginAdmin(ctx, string(c.Username), string(c.Password))
	if err != nil || admin == nil {
		return nil, err
	}
	return admin, nil
}

func (d *Dispatcher) loginStudent(ctx context.Context, raw json.RawMessage) (any, error) {
	var c credentials
	if err := d.decode(raw, &c); err != nil {
		return nil, err
	}
	student, err := d.svc.LoginStudent(ctx, string(c.Username), string(c.Password))
	if err != nil || student == nil {
		return nil, err
	}
	return student, nil
}

func (d *Dispatcher) recordHandler(fn func(context.Context, rowstore.Record) (rowstore.Record, error)) handlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		rec, err := d.decodeRecord(raw)
		if err != nil {
			return nil, err
		}
		return fn(ctx, rec)
	}
}

func (d *Dispatcher) addHandler(t school.Table) handlerFunc {
	return d.recordHandler(func(ctx context.Context, rec rowstore.Record) (rowstore.Record, error) {
		return d.svc.Add(ctx, t, rec)
	})
}

func (d *Dispatcher) updateHandler(t school.Table) handlerFunc {
	return d.recordHandler(func(ctx context.Context, rec rowstore.Record) (rowstore.Record, error) {
		return d.svc.Update(ctx, t, rec)
	})
}

func (d *Dispatcher) deleteHandler(t school.Table) handlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var ref idRef
		if err := d.decode(raw, &ref); err != nil {
			return nil, err
		}
		return d.svc.Delete(ctx, t, ref.ID)
	}
}

func (d *Dispatcher) approveStudent(ctx context.Context, raw json.RawMessage) (any, error) {
	var ref idRef
	if err := d.decode(raw, &ref); err != nil {
		return nil, err
	}
	return d.svc.ApproveStudent(ctx, ref.ID)
}

func (d *Dispatcher) readAnnouncements(ctx context.Context, raw json.RawMessage) (any, error) {
	var ref studentRef
	if err := d.decode(raw, &ref); err != nil {
		return nil, err
	}
	return d.svc.ReadAnnouncementIDs(ctx, ref.StudentID)
}

func (d *Dispatcher) saveAttendance(ctx context.Context, raw json.RawMessage) (any, error) {
	var p attendancePayload
	if err := d.decode(raw, &p); err != nil {
		return nil, err
	}
	return d.svc.SaveAttendance(ctx, p.Date, p.Records)
}

func (d *Dispatcher) saveGrades(ctx context.Context, raw json.RawMessage) (any, error) {
	var p gradesPayload
	if err := d.decode(raw, &p); err != nil {
		return nil, err
	}
	return d.svc.SaveGrades(ctx, p.Subject, p.GradesToSave)
}

func (d *Dispatcher) markRead(ctx context.Context, raw json.RawMessage) (any, error) {
	var p markReadPayload
	if err := d.decode(raw, &p); err != nil {
		return nil, err
	}
	return d.svc.MarkAnnouncementsRead(ctx, p.StudentID, p.AnnouncementIDs)
}
