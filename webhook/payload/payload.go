package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// eventTypePattern validates event types: hierarchical, full-stop delimited, [a-zA-Z0-9_.]
var eventTypePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+(\.[a-zA-Z0-9_]+)*$`)

/* Decode errors
 * ErrEmpty and ErrMalformed reject the request, ErrMissingField is raised by
 * normalizers once the event type is known to be handled
 */
var (
	ErrEmpty        = errors.New("payload is empty")
	ErrMalformed    = errors.New("payload is malformed")
	ErrMissingField = errors.New("payload is missing a required field")
)

// MissingFieldError names the first required field a normalizer could not find
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingField, e.Field)
}

// Is makes errors.Is(err, ErrMissingField) hold for every missing field
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// Event is a verified processor notification
// Object keeps data.object untouched; destructuring it is the normalizer's job
type Event struct {
	// ID is the processor event id, kept for logging only
	ID string

	// Type is a full-stop delimited event type, e.g. "charge.succeeded"
	Type string

	// Object is the raw JSON of data.object
	Object json.RawMessage
}

// envelope mirrors the processor event layout
type envelope struct {
	ID   string          `json:"id,omitempty"`
	Type json.RawMessage `json:"type"`
	Data json.RawMessage `json:"data"`
}

type envelopeData struct {
	Object json.RawMessage `json:"object"`
}

// Decode parses a verified request body into an Event
func Decode(body []byte) (Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return Event{}, ErrEmpty
	}

	var env envelope
	if err := unmarshalObject(body, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var eventType string
	if err := json.Unmarshal(env.Type, &eventType); err != nil || eventType == "" {
		return Event{}, fmt.Errorf("%w: type must be a non-empty string", ErrMalformed)
	}

	var data envelopeData
	if err := unmarshalObject(env.Data, &data); err != nil {
		return Event{}, fmt.Errorf("%w: data must be an object", ErrMalformed)
	}

	if !isObject(data.Object) {
		return Event{}, fmt.Errorf("%w: data.object must be an object", ErrMalformed)
	}

	return Event{
		ID:     env.ID,
		Type:   eventType,
		Object: data.Object,
	}, nil
}

// Encode serializes an Event back into the processor envelope layout
func Encode(e Event) ([]byte, error) {
	typ, err := json.Marshal(e.Type)
	if err != nil {
		return nil, fmt.Errorf("marshaling type: %w", err)
	}
	data, err := json.Marshal(envelopeData{Object: e.Object})
	if err != nil {
		return nil, fmt.Errorf("marshaling data: %w", err)
	}
	return json.Marshal(envelope{ID: e.ID, Type: typ, Data: data})
}

// ValidateEventType validates an event type format
func ValidateEventType(eventType string) error {
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}

	if !eventTypePattern.MatchString(eventType) {
		return fmt.Errorf("event type must be hierarchical and contain only [a-zA-Z0-9_.]: %s", eventType)
	}

	return nil
}

// unmarshalObject decodes raw into v only when raw is a JSON object
func unmarshalObject(raw json.RawMessage, v interface{}) error {
	if !isObject(raw) {
		return fmt.Errorf("expected a JSON object")
	}
	return json.Unmarshal(raw, v)
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}
