package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnparseable indicates a message body that can never decode into a valid
// envelope. It is terminal for that message: the caller acknowledges and
// discards it, since redelivery cannot make it parseable.
var ErrUnparseable = errors.New("unparseable event body")

// DecodeEnvelope decodes raw message bytes into an Envelope. It is a pure
// function: the result is either a fully valid envelope or ErrUnparseable,
// never a partial one. A body fails to decode when it is not a JSON object,
// when "id" or "subject" is absent or not a non-empty string, or when "data"
// is present but not an object.
func DecodeEnvelope(body []byte) (Envelope, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	id, err := requiredString(raw, "id")
	if err != nil {
		return Envelope{}, err
	}

	subject, err := requiredString(raw, "subject")
	if err != nil {
		return Envelope{}, err
	}

	env := Envelope{ID: id, Subject: Subject(subject), Data: map[string]any{}}

	if rawSource, ok := raw["source"]; ok {
		// A malformed source is tolerated; the field is optional metadata.
		_ = json.Unmarshal(rawSource, &env.Source)
	}

	if rawData, ok := raw["data"]; ok {
		var data map[string]any
		if err := json.Unmarshal(rawData, &data); err != nil {
			return Envelope{}, fmt.Errorf("%w: field %q is not an object", ErrUnparseable, "data")
		}
		if data != nil {
			env.Data = data
		}
	}

	return env, nil
}

func requiredString(raw map[string]json.RawMessage, field string) (string, error) {
	rawVal, ok := raw[field]
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", ErrUnparseable, field)
	}

	var val string
	if err := json.Unmarshal(rawVal, &val); err != nil {
		return "", fmt.Errorf("%w: field %q is not a string", ErrUnparseable, field)
	}
	if val == "" {
		return "", fmt.Errorf("%w: field %q is empty", ErrUnparseable, field)
	}

	return val, nil
}
