package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tags the shape of an answer value.
type Kind string

// Answer kinds.
const (
	KindYesNo Kind = "yes_no"
	KindText  Kind = "text"
)

// Value is an answer: a yes/no flag or free text.
//
// On the wire it is the tagged object {"kind":"yes_no","value":true}. Bare
// JSON is accepted on input: booleans become yes/no values, strings and
// numbers become text. Coercing text like "Yes" to a yes/no value happens
// where the question's response type is known.
type Value struct {
	Kind Kind
	Bool bool
	Text string
}

// YesNo returns a yes/no value.
func YesNo(b bool) Value { return Value{Kind: KindYesNo, Bool: b} }

// Text returns a text value.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// IsZero reports whether v carries no kind.
func (v Value) IsZero() bool { return v.Kind == "" }

// String renders the value for reports: "Yes"/"No" or the text.
func (v Value) String() string {
	switch v.Kind {
	case KindYesNo:
		if v.Bool {
			return "Yes"
		}
		return "No"
	default:
		return v.Text
	}
}

// ParseYesNo interprets common spellings of yes and no.
func ParseYesNo(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "y", "1":
		return true, true
	case "no", "false", "n", "0":
		return false, true
	}
	return false, false
}

type taggedValue struct {
	Kind  Kind            `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON writes the tagged form.
func (v Value) MarshalJSON() ([]byte, error) {
	var raw []byte
	var err error
	switch v.Kind {
	case KindYesNo:
		raw, err = json.Marshal(v.Bool)
	case KindText:
		raw, err = json.Marshal(v.Text)
	default:
		return []byte("null"), nil
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggedValue{Kind: v.Kind, Value: raw})
}

// UnmarshalJSON accepts the tagged form or a bare boolean, string or number.
// JSON null leaves v unchanged.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '{' {
		var tv taggedValue
		if err := json.Unmarshal(data, &tv); err != nil {
			return fmt.Errorf("answer value: %w", err)
		}
		switch tv.Kind {
		case KindYesNo, KindText:
		default:
			return fmt.Errorf("answer value: unknown kind %q", tv.Kind)
		}
		if len(tv.Value) == 0 {
			return fmt.Errorf("answer value: missing value for kind %q", tv.Kind)
		}
		var bare Value
		if err := bare.unmarshalBare(tv.Value); err != nil {
			return err
		}
		if tv.Kind == KindYesNo && bare.Kind == KindText {
			b, ok := ParseYesNo(bare.Text)
			if !ok {
				return fmt.Errorf("answer value: %q is not yes or no", bare.Text)
			}
			bare = YesNo(b)
		}
		if tv.Kind == KindText && bare.Kind == KindYesNo {
			bare = Text(bare.String())
		}
		*v = bare
		return nil
	}

	return v.unmarshalBare(data)
}

func (v *Value) unmarshalBare(data []byte) error {
	var decoded interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return fmt.Errorf("answer value: %w", err)
	}
	switch x := decoded.(type) {
	case bool:
		*v = YesNo(x)
	case string:
		*v = Text(x)
	case json.Number:
		*v = Text(x.String())
	default:
		return fmt.Errorf("answer value: unsupported JSON type %T", decoded)
	}
	return nil
}
