package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// TypeChange marks a message carrying a Change.
const TypeChange = "change"

// Change describes one successful write action.
type Change struct {
	Action    string    `json:"action"`
	RequestID string    `json:"requestId"`
	At        time.Time `json:"at"`
	Data      any       `json:"data,omitempty"`
}

// NewChangeMessage encodes c for publishing.
func NewChangeMessage(c Change) (Message, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return Message{}, fmt.Errorf("encode change: %w", err)
	}
	return Message{Type: TypeChange, Body: body}, nil
}

// DecodeChange reads a Change from a message of TypeChange.
func DecodeChange(msg Message) (Change, error) {
	if msg.Type != TypeChange {
		return Change{}, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	var c Change
	if err := json.Unmarshal(msg.Body, &c); err != nil {
		return Change{}, fmt.Errorf("decode change: %w", err)
	}
	return c, nil
}
