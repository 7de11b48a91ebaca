package model

import (
	"strconv"

	json "github.com/goccy/go-json"
)

// ID is a numeric snowflake-style identifier. The platform encodes these as
// decimal strings on the wire; some endpoints return them as bare numbers, so
// both forms decode.
type ID uint64

// String returns the decimal form used in URL paths and JSON.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID parses the decimal wire form of an ID.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}

// MarshalJSON encodes the ID as a decimal string.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON accepts either a decimal string or a bare number.
func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return err
		}
		*id = ID(v)
		return nil
	}
	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*id = ID(v)
	return nil
}

// GuildID identifies a guild.
type GuildID = ID

// ChannelID identifies a channel within a guild.
type ChannelID = ID

// UserID identifies a user.
type UserID = ID
