package gateway

import (
	"encoding/json"
	"fmt"
)

// Frame is the wire envelope, both directions: a named event with a
// JSON payload.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeFrame serializes an event and payload into wire bytes.
func EncodeFrame(event string, payload any) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", event, err)
		}
		data = b
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

// DecodeFrame parses wire bytes into a Frame.
func DecodeFrame(msg []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		return Frame{}, fmt.Errorf("parsing frame: %w", err)
	}
	if f.Event == "" {
		return Frame{}, fmt.Errorf("frame missing event")
	}
	return f, nil
}
