package dispatch

import (
	"encoding/json"
	"errors"
	"strings"
)

// Envelope statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrEmptyRequest is returned for a request without a body.
var ErrEmptyRequest = errors.New("invalid request: no POST data received")

// Request is the body of a dispatch call.
type Request struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeRequest parses a raw body. The content type is not consulted, so
// browsers can post text/plain and skip the CORS preflight.
func DecodeRequest(body []byte) (Request, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return Request{}, ErrEmptyRequest
	}
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return Request{}, errors.New("invalid request: " + err.Error())
	}
	return req, nil
}

// Envelope is the only shape a dispatch call ever answers with. Success
// carries data, which may be null; error carries message.
type Envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func Success(data any) Envelope {
	return Envelope{Status: StatusSuccess, Data: data}
}

func Failure(message string) Envelope {
	return Envelope{Status: StatusError, Message: message}
}

// OK reports whether e is a success envelope.
func (e Envelope) OK() bool { return e.Status == StatusSuccess }

// MarshalJSON always emits data on success, even when it is null.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Status == StatusError {
		return json.Marshal(struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}{e.Status, e.Message})
	}
	return json.Marshal(struct {
		Status string `json:"status"`
		Data   any    `json:"data"`
	}{e.Status, e.Data})
}
