package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ValueKind tags which variant a TextValue holds.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueString
	ValueScalar // number or bool, kept in its JSON spelling
	ValueMapping
	ValueSequence
)

// Field is one key of a mapping, in document order.
type Field struct {
	Key   string
	Value TextValue
}

// TextValue decodes a JSON value whose shape varies per record
// (string | mapping | sequence | scalar) while keeping mapping key order.
type TextValue struct {
	Kind   ValueKind
	Str    string
	Fields []Field
	Items  []TextValue
}

// textKeys are tried, in order, before falling back to joining all values.
var textKeys = []string{"#text", "text", "value", "name", "title"}

// Flatten collapses the value into one display string: strings as-is,
// scalars in JSON spelling, mappings by their first well-known text key or
// else their values joined with single spaces, sequences joined likewise.
func (v TextValue) Flatten() string {
	switch v.Kind {
	case ValueString, ValueScalar:
		return v.Str
	case ValueMapping:
		for _, k := range textKeys {
			if f, ok := v.Get(k); ok {
				return f.Flatten()
			}
		}
		parts := make([]string, 0, len(v.Fields))
		for _, f := range v.Fields {
			parts = append(parts, f.Value.Flatten())
		}
		return strings.TrimSpace(strings.Join(parts, " "))
	case ValueSequence:
		parts := make([]string, 0, len(v.Items))
		for _, it := range v.Items {
			parts = append(parts, it.Flatten())
		}
		return strings.TrimSpace(strings.Join(parts, " "))
	}
	return ""
}

// Get returns the first field with the given key.
func (v TextValue) Get(key string) (TextValue, bool) {
	for _, f := range v.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return TextValue{}, false
}

// First returns the flattened text of the first key whose value is
// non-empty, mirroring `a or b or c` lookups on loosely typed records.
func (v TextValue) First(keys ...string) string {
	for _, k := range keys {
		if f, ok := v.Get(k); ok {
			if s := strings.TrimSpace(f.Flatten()); s != "" {
				return s
			}
		}
	}
	return ""
}

func (v *TextValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	val, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func decodeValue(dec *json.Decoder) (TextValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return TextValue{}, err
	}
	switch t := tok.(type) {
	case nil:
		return TextValue{Kind: ValueNull}, nil
	case string:
		return TextValue{Kind: ValueString, Str: t}, nil
	case json.Number:
		return TextValue{Kind: ValueScalar, Str: t.String()}, nil
	case bool:
		return TextValue{Kind: ValueScalar, Str: fmt.Sprint(t)}, nil
	case json.Delim:
		switch t {
		case '{':
			out := TextValue{Kind: ValueMapping}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return TextValue{}, err
				}
				key, _ := keyTok.(string)
				val, err := decodeValue(dec)
				if err != nil {
					return TextValue{}, err
				}
				out.Fields = append(out.Fields, Field{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return TextValue{}, err
			}
			return out, nil
		case '[':
			out := TextValue{Kind: ValueSequence}
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return TextValue{}, err
				}
				out.Items = append(out.Items, val)
			}
			if _, err := dec.Token(); err != nil {
				return TextValue{}, err
			}
			return out, nil
		}
	}
	return TextValue{}, fmt.Errorf("unexpected JSON token %v", tok)
}
