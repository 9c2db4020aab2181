package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexInt is an integer that the gateway may encode as a JSON number, a
// numeric string, or null. Anything unparseable decodes to 0.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (n *FlexInt) UnmarshalJSON(b []byte) error {
	*n = FlexInt(ParseInt(b))
	return nil
}

// Int returns n as a plain int.
func (n FlexInt) Int() int { return int(n) }

// ParseInt leniently converts a raw JSON value to an int.
// Strings like "100" and numbers like 310 or 310.0 are accepted; everything
// else yields 0.
func ParseInt(raw []byte) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
	}
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// FlexBool decodes true/false, 1/0 and "1"/"0"/"true"/"false".
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "true", `"true"`:
		*b = true
		return nil
	case "false", `"false"`, "null", `""`:
		*b = false
		return nil
	}
	*b = ParseInt(raw) != 0
	return nil
}
