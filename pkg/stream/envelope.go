package stream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope is one parsed inbound message. Field access reports precise
// errors so rejections can be diagnosed from the restricted log channel.
type Envelope struct {
	fields map[string]any
	raw    []byte
}

// Timestamps on the rapid are local datetimes without a zone, with varying
// sub-second precision.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

func ParseEnvelope(raw []byte) (*Envelope, error) {
	var fields map[string]any

	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("message is not a JSON object: %w", err)
	}

	return &Envelope{fields: fields, raw: raw}, nil
}

// Raw returns the original message payload, for diagnostic logging.
func (e *Envelope) Raw() []byte {
	return e.raw
}

// EventName returns "@event_name", or "" when absent.
func (e *Envelope) EventName() string {
	name, _ := e.fields["@event_name"].(string)

	return name
}

// String returns the string at a dotted path like "@forårsaket_av.event_name".
func (e *Envelope) String(path ...string) (string, error) {
	value, err := e.lookup(path)
	if err != nil {
		return "", err
	}

	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("field %s is not a string", joinPath(path))
	}

	return s, nil
}

func (e *Envelope) UUID(path ...string) (uuid.UUID, error) {
	s, err := e.String(path...)
	if err != nil {
		return uuid.Nil, err
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("field %s is not a valid UUID: %w", joinPath(path), err)
	}

	return id, nil
}

func (e *Envelope) Time(path ...string) (time.Time, error) {
	s, err := e.String(path...)
	if err != nil {
		return time.Time{}, err
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("field %s is not a valid timestamp: %q", joinPath(path), s)
}

// StringSlice returns the string array at path, or (nil, nil) when the
// field is absent.
func (e *Envelope) StringSlice(path ...string) ([]string, error) {
	value, err := e.lookup(path)
	if err != nil {
		return nil, nil
	}

	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("field %s is not an array", joinPath(path))
	}

	strings := make([]string, 0, len(items))

	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("field %s contains a non-string element", joinPath(path))
		}

		strings = append(strings, s)
	}

	return strings, nil
}

func (e *Envelope) lookup(path []string) (any, error) {
	var current any = e.fields

	for i, key := range path {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %s is not an object", joinPath(path[:i]))
		}

		current, ok = object[key]
		if !ok {
			return nil, fmt.Errorf("field %s is missing", joinPath(path[:i+1]))
		}
	}

	return current, nil
}

func joinPath(path []string) string {
	joined := ""

	for i, key := range path {
		if i > 0 {
			joined += "."
		}

		joined += key
	}

	return joined
}
