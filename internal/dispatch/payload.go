package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"schooldesk/internal/rowstore"
	"schooldesk/internal/school"
)

// text accepts any JSON scalar and keeps its display form, so a numeric
// password compares against the stored cell as a string.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*t = text(rowstore.Text(v))
	return nil
}

type credentials struct {
	Username text `json:"username"`
	Password text `json:"password"`
}

type studentRef struct {
	StudentID any `json:"studentId" validate:"required"`
}

type idRef struct {
	ID any `json:"id" validate:"required"`
}

type attendancePayload struct {
	Date    string            `json:"date" validate:"required"`
	Records map[string]string `json:"records" validate:"required,dive,oneof=present absent late"`
}

type gradesPayload struct {
	Subject      string              `json:"subject" validate:"required"`
	GradesToSave []school.GradeEntry `json:"gradesToSave" validate:"dive"`
}

type markReadPayload struct {
	StudentID       any   `json:"studentId" validate:"required"`
	AnnouncementIDs []any `json:"announcementIds"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode unmarshals a payload into dst and validates it. A missing payload
// decodes as an empty object.
func (d *Dispatcher) decode(raw json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", school.ErrInvalidPayload, err)
	}
	if reflect.Indirect(reflect.ValueOf(dst)).Kind() != reflect.Struct {
		return nil
	}
	if err := d.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func (d *Dispatcher) decodeRecord(raw json.RawMessage) (rowstore.Record, error) {
	var rec rowstore.Record
	if err := d.decode(raw, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		rec = rowstore.Record{}
	}
	return rec, nil
}

func validationError(err error) error {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return fmt.Errorf("%w: %v", school.ErrInvalidPayload, err)
	}
	msgs := make([]string, 0, len(fields))
	for _, fe := range fields {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", school.ErrInvalidPayload, strings.Join(msgs, ", "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}
