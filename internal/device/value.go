package device

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// nullLiteral is the JSON encoding of an absent Value.
var nullLiteral = []byte("null")

// Value is an opaque telemetry value passed through from a reporting client.
//
// It holds the compact JSON encoding of whatever the client sent: a number
// from a JSON body stays a number, a form or query field stays a string.
// The zero Value is absent and encodes as null.
//
// Values are immutable once constructed, so copies may share the
// underlying bytes.
type Value struct {
	raw []byte
}

// StringValue returns a Value holding s as a JSON string.
func StringValue(s string) Value {
	b, err := json.Marshal(s)
	if err != nil {
		// Marshalling a Go string cannot fail.
		return Value{}
	}
	return Value{raw: b}
}

// NumberValue returns a Value holding f as a JSON number.
func NumberValue(f float64) Value {
	return Value{raw: strconv.AppendFloat(nil, f, 'g', -1, 64)}
}

// RawValue returns a Value from raw JSON. A JSON null (or empty input)
// yields the absent Value.
//
// Returns an error if raw is not valid JSON.
func RawValue(raw []byte) (Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, nullLiteral) {
		return Value{}, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return Value{}, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	return Value{raw: buf.Bytes()}, nil
}

// IsZero reports whether the value is absent.
func (v Value) IsZero() bool {
	return len(v.raw) == 0
}

// IsString reports whether the value is a JSON string.
func (v Value) IsString() bool {
	return len(v.raw) > 0 && v.raw[0] == '"'
}

// String returns the value as text: JSON strings are unquoted, every other
// kind is returned as its JSON literal. The absent Value returns "".
func (v Value) String() string {
	if v.IsZero() {
		return ""
	}
	if v.IsString() {
		var s string
		if err := json.Unmarshal(v.raw, &s); err == nil {
			return s
		}
	}
	return string(v.raw)
}

// Float64 interprets the value as a number. JSON numbers and strings holding
// a numeric literal are accepted.
func (v Value) Float64() (float64, bool) {
	if v.IsZero() {
		return 0, false
	}
	text := string(v.raw)
	if v.IsString() {
		text = v.String()
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Equal reports whether both values carry the same JSON encoding.
func (v Value) Equal(other Value) bool {
	return bytes.Equal(v.raw, other.raw)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsZero() {
		return []byte("null"), nil
	}
	out := make([]byte, len(v.raw))
	copy(out, v.raw)
	return out, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := RawValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
