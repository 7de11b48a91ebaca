package model

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// EmojiType discriminates the two emoji tables the platform exposes.
type EmojiType uint32

const (
	// EmojiSystem is a platform-defined emoji.
	EmojiSystem EmojiType = 1
	// EmojiRaw is a unicode emoji identified by its code point.
	EmojiRaw EmojiType = 2
)

// Emoji identifies a single emoji by table and id. The JSON form is
// {"type": n, "id": "..."} with the id string-encoded.
type Emoji struct {
	Type EmojiType
	ID   uint32
}

// SystemEmoji builds a system-table emoji.
func SystemEmoji(id uint32) Emoji { return Emoji{Type: EmojiSystem, ID: id} }

// RawEmoji builds a unicode emoji from its code point.
func RawEmoji(id uint32) Emoji { return Emoji{Type: EmojiRaw, ID: id} }

// SubPath renders the "{type}/{id}" path segment used by the reaction
// endpoints.
func (e Emoji) SubPath() string {
	return fmt.Sprintf("%d/%d", e.Type, e.ID)
}

// String renders the same external form as SubPath.
func (e Emoji) String() string { return e.SubPath() }

// ParseEmoji parses the "{type}/{id}" external form.
func ParseEmoji(s string) (Emoji, error) {
	kind, id, ok := strings.Cut(s, "/")
	if !ok {
		return Emoji{}, fmt.Errorf("invalid emoji %q: missing separator", s)
	}
	t, err := strconv.ParseUint(kind, 10, 32)
	if err != nil {
		return Emoji{}, fmt.Errorf("invalid emoji type %q: %w", kind, err)
	}
	if EmojiType(t) != EmojiSystem && EmojiType(t) != EmojiRaw {
		return Emoji{}, fmt.Errorf("unknown emoji type %d", t)
	}
	v, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return Emoji{}, fmt.Errorf("invalid emoji id %q: %w", id, err)
	}
	return Emoji{Type: EmojiType(t), ID: uint32(v)}, nil
}

type emojiJSON struct {
	Type EmojiType `json:"type"`
	ID   string    `json:"id"`
}

// MarshalJSON encodes the wire envelope with the id as a string.
func (e Emoji) MarshalJSON() ([]byte, error) {
	return json.Marshal(emojiJSON{Type: e.Type, ID: strconv.FormatUint(uint64(e.ID), 10)})
}

// UnmarshalJSON decodes the wire envelope, rejecting unknown tables.
func (e *Emoji) UnmarshalJSON(data []byte) error {
	var raw emojiJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type != EmojiSystem && raw.Type != EmojiRaw {
		return fmt.Errorf("unknown emoji type %d", raw.Type)
	}
	id, err := strconv.ParseUint(raw.ID, 10, 32)
	if err != nil {
		return fmt.Errorf("cannot parse emoji id %q: %w", raw.ID, err)
	}
	*e = Emoji{Type: raw.Type, ID: uint32(id)}
	return nil
}
