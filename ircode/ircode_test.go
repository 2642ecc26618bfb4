package ircode

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripBytes(t *testing.T) {
	codes := [][]byte{
		{0x00},
		{0xa1, 0xb2, 0xc3},
		{0x26, 0x00, 0x50, 0x00, 0x00, 0x01, 0x29, 0x94, 0x13, 0x12, 0xff},
	}
	for _, c := range codes {
		decoded, err := Decode(Encode(c))
		require.NoError(t, err)
		assert.Equal(t, c, []byte(decoded))
	}
}

func TestRoundTripHex(t *testing.T) {
	for _, s := range []string{"a1b2c3", "A1B2C3", "00ff", "2600"} {
		decoded, err := Decode(s)
		require.NoError(t, err)
		assert.Equal(t, strings.ToLower(s), Encode(decoded))
	}
}

func TestDecodeKnownBytes(t *testing.T) {
	decoded, err := Decode("a1b2c3")
	require.NoError(t, err)
	assert.Equal(t, IRCommand{0xA1, 0xB2, 0xC3}, decoded)
}

func TestDecodeInvalid(t *testing.T) {
	for _, s := range []string{"", "abc", "zz", "a1b2c", "0x12", "a1 b2"} {
		_, err := Decode(s)
		require.Error(t, err, s)
		assert.True(t, IsInvalid(err), s)
	}
	assert.False(t, IsInvalid(nil))
}

func TestJSON(t *testing.T) {
	var v struct {
		Code IRCommand `json:"code"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"code":"A1B2"}`), &v))
	assert.Equal(t, IRCommand{0xa1, 0xb2}, v.Code)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"a1b2"}`, string(out))

	err = json.Unmarshal([]byte(`{"code":"xyz"}`), &v)
	assert.True(t, IsInvalid(err))
}

func TestUnmarshalText(t *testing.T) {
	var c IRCommand
	require.NoError(t, c.UnmarshalText([]byte("ff00")))
	assert.Equal(t, "ff00", c.String())
}
