package model

import (
	"errors"

	json "github.com/goccy/go-json"
)

// MessageID is the opaque id the platform assigns to a message. It is carried
// verbatim: the only invariant is that it is non-empty.
type MessageID string

// ErrEmptyMessageID is returned when parsing an empty message id.
var ErrEmptyMessageID = errors.New("invalid message id (empty)")

// ParseMessageID validates and wraps a wire-form message id.
func ParseMessageID(s string) (MessageID, error) {
	if s == "" {
		return "", ErrEmptyMessageID
	}
	return MessageID(s), nil
}

func (id MessageID) String() string {
	return string(id)
}

// IsZero reports whether the id is unset.
func (id MessageID) IsZero() bool {
	return id == ""
}

// MarshalJSON encodes the id as a JSON string.
func (id MessageID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

// UnmarshalJSON decodes and validates the id.
func (id *MessageID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMessageID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
