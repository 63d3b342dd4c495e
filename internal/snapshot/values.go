package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a scalar the backend sends either as a JSON string or a JSON
// number. The textual form is kept as received and re-encoded in the
// same shape.
type Value struct {
	text   string
	number bool
}

func Text(s string) Value {
	return Value{text: s}
}

func Number(f float64) Value {
	return Value{text: strconv.FormatFloat(f, 'f', -1, 64), number: true}
}

func (v Value) String() string {
	return v.text
}

func (v Value) IsNumber() bool {
	return v.number
}

// Float parses the value as a finite number.
func (v Value) Float() (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (v Value) Equal(other Value) bool {
	return v.text == other.text && v.number == other.number
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value{text: s}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = Value{text: n.String(), number: true}
	case 'n':
		*v = Value{}
	default:
		return fmt.Errorf("expected string or number, got %s", data)
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.number {
		return []byte(v.text), nil
	}
	return json.Marshal(v.text)
}

// Reviews holds review text that arrives either as one markdown string or
// as an ordered list of markdown fragments.
type Reviews struct {
	items []string
	list  bool
}

func ReviewText(s string) Reviews {
	if s == "" {
		return Reviews{}
	}
	return Reviews{items: []string{s}}
}

func ReviewList(items ...string) Reviews {
	return Reviews{items: append([]string(nil), items...), list: true}
}

func (r Reviews) Items() []string {
	return append([]string(nil), r.items...)
}

func (r Reviews) IsList() bool {
	return r.list
}

// Joined concatenates list items with a single newline, preserving order.
func (r Reviews) Joined() string {
	return strings.Join(r.items, "\n")
}

func (r Reviews) IsEmpty() bool {
	return strings.TrimSpace(r.Joined()) == ""
}

func (r Reviews) Equal(other Reviews) bool {
	if r.list != other.list || len(r.items) != len(other.items) {
		return false
	}
	for i := range r.items {
		if r.items[i] != other.items[i] {
			return false
		}
	}
	return true
}

func (r *Reviews) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty reviews")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = ReviewText(s)
	case '[':
		var raw []*string
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("reviews list: %w", err)
		}
		items := make([]string, 0, len(raw))
		for _, item := range raw {
			if item != nil {
				items = append(items, *item)
			}
		}
		*r = Reviews{items: items, list: true}
	case 'n':
		*r = Reviews{}
	default:
		return fmt.Errorf("expected string or list of strings, got %s", data)
	}
	return nil
}

func (r Reviews) MarshalJSON() ([]byte, error) {
	if r.list {
		if r.items == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(r.items)
	}
	return json.Marshal(r.Joined())
}
