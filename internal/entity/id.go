package entity

import (
	"bytes"
	"fmt"
	"strconv"
)

// ID is a numeric API identifier. The bookstore API is not consistent about
// quoting ids (users come back as strings), so both forms are accepted.
type ID int64

func (id *ID) UnmarshalJSON(b []byte) error {
	raw := string(bytes.Trim(b, `"`))
	if raw == "" || raw == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s: %w", b, err)
	}
	*id = ID(v)
	return nil
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID parses a path segment into an ID. Zero and negative values are rejected.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return ID(v), nil
}

// Money is a decimal amount in dollars. Decimal columns are serialized as
// strings by the API ("12.99"), plain numbers are accepted too.
type Money float64

func (m *Money) UnmarshalJSON(b []byte) error {
	raw := string(bytes.Trim(b, `"`))
	if raw == "" || raw == "null" {
		*m = 0
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", b, err)
	}
	*m = Money(v)
	return nil
}

func (m Money) Float() float64 { return float64(m) }
