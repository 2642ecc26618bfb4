package ircode

import (
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrInvalidCode is the cause of every decode failure.
var ErrInvalidCode = errors.New("invalid IR code")

// IRCommand is a raw captured IR/RF waveform, carried as hex outside the process.
type IRCommand []byte

// Encode returns the lowercase hex form of a code.
func Encode(code []byte) string {
	return hex.EncodeToString(code)
}

// Decode parses an even-length hex string into a code.
func Decode(s string) (IRCommand, error) {
	if s == "" {
		return nil, errors.Wrap(ErrInvalidCode, "empty code")
	}
	out, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidCode, err.Error())
	}
	return out, nil
}

// IsInvalid reports whether err was caused by a malformed code.
func IsInvalid(err error) bool {
	return err != nil && errors.Cause(err) == ErrInvalidCode
}

func (i IRCommand) String() string {
	return Encode(i)
}

func (i *IRCommand) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	out, err := Decode(s)
	if err != nil {
		return err
	}

	*i = out
	return nil
}

func (i IRCommand) MarshalJSON() ([]byte, error) {
	return json.Marshal(Encode(i))
}

// UnmarshalText lets config decoders read codes straight from strings.
func (i *IRCommand) UnmarshalText(b []byte) error {
	out, err := Decode(string(b))
	if err != nil {
		return err
	}
	*i = out
	return nil
}
