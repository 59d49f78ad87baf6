package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// DataType is the declared type of a parameter's value, stored alongside it.
type DataType string

const (
	DataTypeString DataType = "STRING"
	DataTypeNumber DataType = "NUMBER"
	DataTypeBool   DataType = "BOOLEAN"
	DataTypeArray  DataType = "ARRAY"
	DataTypeObject DataType = "OBJECT"
)

// ErrMalformedValue marks a stored value that does not match its declared type.
var ErrMalformedValue = errors.New("malformed parameter value")

// Value is a decoded parameter value. The concrete types below are the only
// implementations.
type Value interface {
	DataType() DataType
	// JSON returns the canonical encoding of the value.
	JSON() json.RawMessage
	isValue()
}

type StringValue string

type NumberValue struct{ decimal.Decimal }

type BoolValue bool

type ArrayValue []json.RawMessage

type ObjectValue map[string]json.RawMessage

func (StringValue) DataType() DataType { return DataTypeString }
func (NumberValue) DataType() DataType { return DataTypeNumber }
func (BoolValue) DataType() DataType   { return DataTypeBool }
func (ArrayValue) DataType() DataType  { return DataTypeArray }
func (ObjectValue) DataType() DataType { return DataTypeObject }

func (StringValue) isValue() {}
func (NumberValue) isValue() {}
func (BoolValue) isValue()   {}
func (ArrayValue) isValue()  {}
func (ObjectValue) isValue() {}

func (v StringValue) JSON() json.RawMessage { return mustMarshal(string(v)) }
func (v NumberValue) JSON() json.RawMessage { return json.RawMessage(v.Decimal.String()) }
func (v BoolValue) JSON() json.RawMessage   { return mustMarshal(bool(v)) }
func (v ArrayValue) JSON() json.RawMessage  { return mustMarshal([]json.RawMessage(v)) }
func (v ObjectValue) JSON() json.RawMessage { return mustMarshal(map[string]json.RawMessage(v)) }

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal parameter value: %v", err))
	}
	return b
}

// DecodeValue checks raw against dataType. A mismatch is never coerced:
// "90" is not a NUMBER and 1 is not a BOOLEAN.
func DecodeValue(dataType DataType, raw json.RawMessage) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: empty value for %s", ErrMalformedValue, dataType)
	}
	switch dataType {
	case DataTypeString:
		if raw[0] != '"' {
			return nil, mismatch(dataType, raw)
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, mismatch(dataType, raw)
		}
		return StringValue(s), nil
	case DataTypeNumber:
		if raw[0] == '"' {
			return nil, mismatch(dataType, raw)
		}
		d, err := decimal.NewFromString(string(raw))
		if err != nil {
			return nil, mismatch(dataType, raw)
		}
		return NumberValue{d}, nil
	case DataTypeBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, mismatch(dataType, raw)
		}
		return BoolValue(b), nil
	case DataTypeArray:
		if raw[0] != '[' {
			return nil, mismatch(dataType, raw)
		}
		var a []json.RawMessage
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, mismatch(dataType, raw)
		}
		return ArrayValue(a), nil
	case DataTypeObject:
		if raw[0] != '{' {
			return nil, mismatch(dataType, raw)
		}
		var o map[string]json.RawMessage
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, mismatch(dataType, raw)
		}
		return ObjectValue(o), nil
	default:
		return nil, fmt.Errorf("%w: unknown data type %q", ErrMalformedValue, dataType)
	}
}

func mismatch(dataType DataType, raw json.RawMessage) error {
	const maxShown = 64
	shown := string(raw)
	if len(shown) > maxShown {
		shown = shown[:maxShown] + "..."
	}
	return fmt.Errorf("%w: %s is not a valid %s", ErrMalformedValue, shown, dataType)
}

// AsStrings reads an ARRAY of strings.
func AsStrings(v Value) ([]string, error) {
	arr, ok := v.(ArrayValue)
	if !ok {
		return nil, typeError(v, DataTypeArray)
	}
	out := make([]string, 0, len(arr))
	for i, item := range arr {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return nil, fmt.Errorf("%w: element %d is not a string", ErrMalformedValue, i)
		}
		out = append(out, s)
	}
	return out, nil
}

// AsDecimal reads a NUMBER.
func AsDecimal(v Value) (decimal.Decimal, error) {
	n, ok := v.(NumberValue)
	if !ok {
		return decimal.Zero, typeError(v, DataTypeNumber)
	}
	return n.Decimal, nil
}

// AsInt reads a NUMBER that must be integral.
func AsInt(v Value) (int, error) {
	d, err := AsDecimal(v)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() || d.Abs().GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
		return 0, fmt.Errorf("%w: %s is not an integer", ErrMalformedValue, d.String())
	}
	return int(d.IntPart()), nil
}

// AsBool reads a BOOLEAN.
func AsBool(v Value) (bool, error) {
	b, ok := v.(BoolValue)
	if !ok {
		return false, typeError(v, DataTypeBool)
	}
	return bool(b), nil
}

// AsString reads a STRING.
func AsString(v Value) (string, error) {
	s, ok := v.(StringValue)
	if !ok {
		return "", typeError(v, DataTypeString)
	}
	return string(s), nil
}

// Native converts v to plain Go values (string, float64, bool, []any, map[string]any)
// for consumers such as rule guards.
func Native(v Value) any {
	if n, ok := v.(NumberValue); ok {
		f, _ := n.Float64()
		return f
	}
	var out any
	if err := json.Unmarshal(v.JSON(), &out); err != nil {
		return nil
	}
	return out
}

func typeError(v Value, want DataType) error {
	got := DataType("<nil>")
	if v != nil {
		got = v.DataType()
	}
	return fmt.Errorf("%w: expected %s, got %s", ErrMalformedValue, want, got)
}
