package profiler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Kind identifies which variant a Value holds
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

// Member is one key/value pair of an Object, kept in source order
type Member struct {
	Key   string
	Value Value
}

// Value is a decoded JSON document node. Objects keep their keys in the
// order they appeared in the source so traversals are deterministic.
type Value struct {
	kind    Kind
	boolean bool
	number  float64
	text    string
	items   []Value
	members []Member
}

func NullValue() Value { return Value{kind: Null} }

func BoolValue(b bool) Value { return Value{kind: Bool, boolean: b} }

func NumberValue(n float64) Value { return Value{kind: Number, number: n} }

func StringValue(s string) Value { return Value{kind: String, text: s} }

func ArrayValue(items ...Value) Value { return Value{kind: Array, items: items} }

func ObjectValue(members ...Member) Value { return Value{kind: Object, members: members} }

// Kind returns the variant of v
func (v Value) Kind() Kind { return v.kind }

// AsString returns the string payload
func (v Value) AsString() (string, bool) {
	return v.text, v.kind == String
}

// AsNumber returns the numeric payload
func (v Value) AsNumber() (float64, bool) {
	return v.number, v.kind == Number
}

// AsBool returns the boolean payload
func (v Value) AsBool() (bool, bool) {
	return v.boolean, v.kind == Bool
}

// AsArray returns the elements of an Array
func (v Value) AsArray() ([]Value, bool) {
	return v.items, v.kind == Array
}

// Members returns the members of an Object in source order
func (v Value) Members() ([]Member, bool) {
	return v.members, v.kind == Object
}

// Get returns the member named key of an Object
func (v Value) Get(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	for _, member := range v.members {
		if member.Key == key {
			return member.Value, true
		}
	}
	return Value{}, false
}

// GetString returns the string member named key, or "" when absent
func (v Value) GetString(key string) string {
	member, ok := v.Get(key)
	if !ok {
		return ""
	}
	s, _ := member.AsString()
	return strings.TrimSpace(s)
}

// Decode parses a single JSON document from data
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	value, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, fmt.Errorf("unexpected trailing data after document")
	}
	return value, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	token, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := token.(type) {
	case json.Delim:
		switch t {
		case '{':
			var members []Member
			for dec.More() {
				keyToken, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyToken.(string)
				if !ok {
					return Value{}, fmt.Errorf("unexpected object key %v", keyToken)
				}
				value, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				members = append(members, Member{Key: key, Value: value})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return ObjectValue(members...), nil
		case '[':
			var items []Value
			for dec.More() {
				value, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, value)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return ArrayValue(items...), nil
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return StringValue(t), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t, err)
		}
		return NumberValue(n), nil
	case bool:
		return BoolValue(t), nil
	case nil:
		return NullValue(), nil
	default:
		return Value{}, fmt.Errorf("unexpected token %v", token)
	}
}
