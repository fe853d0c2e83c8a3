// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidID is returned when a JSON id is neither a string nor a number.
var ErrInvalidID = errors.New("id must be a string or a number")

// ID identifies a note. Callers may send it as a JSON string or number;
// the value is normalized once at decode time:
//   - numbers are canonicalized ("1.0" and "1e0" both become "1") and keep
//     their numeric flavour so they re-encode as JSON numbers;
//   - strings are kept verbatim apart from surrounding whitespace.
//
// The zero ID means "absent".
type ID struct {
	key     string
	num     float64
	numeric bool
}

// StringID returns an ID holding s verbatim.
func StringID(s string) ID {
	return ID{key: strings.TrimSpace(s)}
}

// NumberID returns a numeric ID.
func NumberID(f float64) ID {
	return ID{key: strconv.FormatFloat(f, 'f', -1, 64), num: f, numeric: true}
}

// String returns the canonical text of the id.
func (id ID) String() string { return id.key }

// IsZero reports whether the id is absent.
func (id ID) IsZero() bool { return id.key == "" }

// Numeric reports whether the id was supplied as a JSON number.
func (id ID) Numeric() bool { return id.numeric }

// Matches reports whether a raw path parameter addresses this id.
// A string id matches only the identical string. A numeric id matches any
// parameter that parses to the same number, so note 7 is reachable as
// /notes/7, /notes/7.0 and /notes/07.
func (id ID) Matches(param string) bool {
	if id.IsZero() {
		return false
	}
	param = strings.TrimSpace(param)
	if !id.numeric {
		return id.key == param
	}
	f, err := strconv.ParseFloat(param, 64)
	if err != nil {
		return false
	}
	return f == id.num
}

// Equal compares two ids with the same rules as Matches: when either side
// is numeric the other side's text is read as a number.
func (id ID) Equal(other ID) bool {
	switch {
	case id.IsZero() || other.IsZero():
		return false
	case id.numeric:
		return id.Matches(other.key)
	default:
		return other.Matches(id.key)
	}
}

// MarshalJSON encodes numeric ids as numbers, string ids as strings and
// the zero id as null.
func (id ID) MarshalJSON() ([]byte, error) {
	switch {
	case id.IsZero():
		return []byte("null"), nil
	case id.numeric:
		return []byte(id.key), nil
	default:
		return json.Marshal(id.key)
	}
}

// UnmarshalJSON accepts a string, a number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*id = ID{}
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return ErrInvalidID
	}
	f, err := n.Float64()
	if err != nil {
		return ErrInvalidID
	}
	*id = NumberID(f)
	return nil
}
