package model

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmojiJSON(t *testing.T) {
	cases := []struct {
		emoji Emoji
		wire  string
	}{
		{SystemEmoji(4), `{"type":1,"id":"4"}`},
		{RawEmoji(127801), `{"type":2,"id":"127801"}`},
	}
	for _, tc := range cases {
		got, err := json.Marshal(tc.emoji)
		require.NoError(t, err)
		assert.Equal(t, tc.wire, string(got))

		var back Emoji
		require.NoError(t, json.Unmarshal([]byte(tc.wire), &back))
		assert.Equal(t, tc.emoji, back)
	}
}

func TestEmojiSubPath(t *testing.T) {
	assert.Equal(t, "1/4", SystemEmoji(4).SubPath())
	assert.Equal(t, "2/127801", RawEmoji(127801).SubPath())
}

func TestEmojiExternalFormRoundTrip(t *testing.T) {
	for _, e := range []Emoji{SystemEmoji(4), RawEmoji(127801)} {
		got, err := ParseEmoji(e.String())
		require.NoError(t, err)
		assert.Equal(t, e, got)
	}
}

func TestEmojiRejectsUnknownType(t *testing.T) {
	var e Emoji
	assert.Error(t, json.Unmarshal([]byte(`{"type":3,"id":"1"}`), &e))

	_, err := ParseEmoji("3/1")
	assert.Error(t, err)
	_, err = ParseEmoji("nonsense")
	assert.Error(t, err)
}
