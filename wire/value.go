// Package wire defines the tagged-union messages exchanged between a
// subscriber and a console, and a hand-rolled gRPC transport for them.
//
// There is no .proto file here: the code-generation layer is treated as an
// external collaborator (see SPEC_FULL.md §6) and the service descriptor
// below is written by hand against the same grpc.ServiceDesc shape protoc
// would otherwise produce.
package wire

import (
	"fmt"
	"strconv"
)

// ValueKind tags the payload carried by a Value.
type ValueKind uint8

const (
	ValueInt64 ValueKind = iota + 1
	ValueUint64
	ValueBool
	ValueString
	ValueDebug // a debug-formatted ("%+v"-style) string, distinct from ValueString
)

// Value is a single named field on a span or event: {field_name, typed_value}.
type Value struct {
	Field string
	Kind  ValueKind

	i   int64
	u   uint64
	b   bool
	str string
}

func Int64Value(field string, v int64) Value   { return Value{Field: field, Kind: ValueInt64, i: v} }
func Uint64Value(field string, v uint64) Value  { return Value{Field: field, Kind: ValueUint64, u: v} }
func BoolValue(field string, v bool) Value      { return Value{Field: field, Kind: ValueBool, b: v} }
func StringValue(field string, v string) Value  { return Value{Field: field, Kind: ValueString, str: v} }
func DebugValue(field string, v string) Value   { return Value{Field: field, Kind: ValueDebug, str: v} }

// Int64 returns the value as an int64, with ok=false if Kind != ValueInt64.
func (v Value) Int64() (int64, bool) { return v.i, v.Kind == ValueInt64 }

// Uint64 returns the value as a uint64, with ok=false if Kind != ValueUint64.
func (v Value) Uint64() (uint64, bool) { return v.u, v.Kind == ValueUint64 }

// Bool returns the value as a bool, with ok=false if Kind != ValueBool.
func (v Value) Bool() (bool, bool) { return v.b, v.Kind == ValueBool }

// Str returns the value as a raw string, with ok=false unless Kind is
// ValueString or ValueDebug.
func (v Value) Str() (string, bool) {
	return v.str, v.Kind == ValueString || v.Kind == ValueDebug
}

// String renders the value's stringified form, used throughout the query
// engine (filter modifiers compare against this form, never the typed
// value directly — see Modifier.Apply in console/query/filter.go).
func (v Value) String() string {
	switch v.Kind {
	case ValueInt64:
		return strconv.FormatInt(v.i, 10)
	case ValueUint64:
		return strconv.FormatUint(v.u, 10)
	case ValueBool:
		return strconv.FormatBool(v.b)
	case ValueString, ValueDebug:
		return v.str
	default:
		return fmt.Sprintf("<unknown value kind %d>", v.Kind)
	}
}

// GobEncode/GobDecode let Value round-trip through the gob codec in wire/codec.go
// despite carrying unexported fields (gob ignores unexported fields by default).
type gobValue struct {
	Field string
	Kind  ValueKind
	I     int64
	U     uint64
	B     bool
	Str   string
}

func (v Value) GobEncode() ([]byte, error) {
	return gobEncode(gobValue{v.Field, v.Kind, v.i, v.u, v.b, v.str})
}

func (v *Value) GobDecode(data []byte) error {
	var g gobValue
	if err := gobDecode(data, &g); err != nil {
		return err
	}
	*v = Value{Field: g.Field, Kind: g.Kind, i: g.I, u: g.U, b: g.B, str: g.Str}
	return nil
}
