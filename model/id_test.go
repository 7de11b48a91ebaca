package model

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDDecodesStringAndNumber(t *testing.T) {
	var id ID
	require.NoError(t, json.Unmarshal([]byte(`"531490081531249901"`), &id))
	assert.Equal(t, ID(531490081531249901), id)

	require.NoError(t, json.Unmarshal([]byte(`42`), &id))
	assert.Equal(t, ID(42), id)
}

func TestIDEncodesAsString(t *testing.T) {
	out, err := json.Marshal(ID(7))
	require.NoError(t, err)
	assert.Equal(t, `"7"`, string(out))
}

func TestMessageIDRoundTrip(t *testing.T) {
	id, err := ParseMessageID("08e3ab3c87a9a3e4f2")
	require.NoError(t, err)
	assert.Equal(t, "08e3ab3c87a9a3e4f2", id.String())

	back, err := ParseMessageID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, back)
}

func TestMessageIDRejectsEmpty(t *testing.T) {
	_, err := ParseMessageID("")
	assert.ErrorIs(t, err, ErrEmptyMessageID)

	var id MessageID
	assert.Error(t, json.Unmarshal([]byte(`""`), &id))
}
