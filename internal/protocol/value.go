// Package protocol defines the wire types exchanged between the game
// client and the session runtime: Update/Event on the way in, Message on
// the way out, and the Value tagged union carried inside both. Grounded
// on original_source/src/bot/protocol.rs; encoded as a discriminated
// {"type": ..., ...} JSON envelope per variant, in the same spirit as the
// teacher's tagged persistence rows.
package protocol

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/elsid/hafen-botserver/internal/vec2"
)

type ValueKind string

const (
	ValueNil      ValueKind = "nil"
	ValueInt      ValueKind = "int"
	ValueLong     ValueKind = "long"
	ValueStr      ValueKind = "str"
	ValueCoord    ValueKind = "coord"
	ValueBytes    ValueKind = "bytes"
	ValueColor    ValueKind = "color"
	ValueFloat32  ValueKind = "float32"
	ValueFloat64  ValueKind = "float64"
	ValueFCoord64 ValueKind = "fcoord64"
	ValueList     ValueKind = "list"
)

// Color is an RGBA color, carried verbatim in widget argument lists.
type Color struct {
	R, G, B, A uint8
}

// Value is the tagged union carried in event and message argument lists.
// Exactly one field is meaningful, selected by Kind.
type Value struct {
	Kind     ValueKind
	Int      int32
	Long     int64
	Str      string
	Coord    vec2.I
	Bytes    []byte
	Color    Color
	Float32  float32
	Float64  float64
	FCoord64 vec2.F
	List     []Value
}

func Nil() Value                   { return Value{Kind: ValueNil} }
func Int(v int32) Value            { return Value{Kind: ValueInt, Int: v} }
func Long(v int64) Value           { return Value{Kind: ValueLong, Long: v} }
func Str(v string) Value           { return Value{Kind: ValueStr, Str: v} }
func Coord(v vec2.I) Value         { return Value{Kind: ValueCoord, Coord: v} }
func Bytes(v []byte) Value         { return Value{Kind: ValueBytes, Bytes: v} }
func ColorValue(v Color) Value     { return Value{Kind: ValueColor, Color: v} }
func Float32Value(v float32) Value { return Value{Kind: ValueFloat32, Float32: v} }
func Float64Value(v float64) Value { return Value{Kind: ValueFloat64, Float64: v} }
func FCoord64(v vec2.F) Value      { return Value{Kind: ValueFCoord64, FCoord64: v} }
func List(v []Value) Value         { return Value{Kind: ValueList, List: v} }

// IsNil reports whether v is the nil variant, the common "absent argument"
// case checked by tasks before matching on a concrete payload.
func (v Value) IsNil() bool { return v.Kind == ValueNil }

// EqualsInt reports whether v is an Int or Long variant equal to want,
// mirroring the original's PartialEq<T> scalar-comparison helpers used
// throughout task matching code.
func (v Value) EqualsInt(want int64) bool {
	switch v.Kind {
	case ValueInt:
		return int64(v.Int) == want
	case ValueLong:
		return v.Long == want
	default:
		return false
	}
}

// EqualsStr reports whether v is a Str variant equal to want.
func (v Value) EqualsStr(want string) bool {
	return v.Kind == ValueStr && v.Str == want
}

// Equals reports whether v and other carry the same tagged value,
// comparing List/Bytes structurally since Value itself isn't comparable
// with == (it embeds slices). Used where a task needs to match an
// argument against an arbitrary previously-recorded Value, such as
// PutItem matching the drop position it asked for.
func (v Value) Equals(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case ValueNil:
		return true
	case ValueInt:
		return v.Int == other.Int
	case ValueLong:
		return v.Long == other.Long
	case ValueStr:
		return v.Str == other.Str
	case ValueCoord:
		return v.Coord == other.Coord
	case ValueBytes:
		return bytes.Equal(v.Bytes, other.Bytes)
	case ValueColor:
		return v.Color == other.Color
	case ValueFloat32:
		return v.Float32 == other.Float32
	case ValueFloat64:
		return v.Float64 == other.Float64
	case ValueFCoord64:
		return v.FCoord64 == other.FCoord64
	case ValueList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equals(other.List[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

type jsonValue struct {
	Type     ValueKind   `json:"type"`
	Int      *int32      `json:"int,omitempty"`
	Long     *int64      `json:"long,omitempty"`
	Str      *string     `json:"str,omitempty"`
	Coord    *vec2.I     `json:"coord,omitempty"`
	Bytes    *string     `json:"bytes,omitempty"`
	Color    *Color      `json:"color,omitempty"`
	Float32  *float32    `json:"float32,omitempty"`
	Float64  *float64    `json:"float64,omitempty"`
	FCoord64 *vec2.F     `json:"fcoord64,omitempty"`
	List     []jsonValue `json:"list,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	j := jsonValue{Type: v.Kind}
	switch v.Kind {
	case ValueNil:
	case ValueInt:
		j.Int = &v.Int
	case ValueLong:
		j.Long = &v.Long
	case ValueStr:
		j.Str = &v.Str
	case ValueCoord:
		j.Coord = &v.Coord
	case ValueBytes:
		encoded := base64.StdEncoding.EncodeToString(v.Bytes)
		j.Bytes = &encoded
	case ValueColor:
		j.Color = &v.Color
	case ValueFloat32:
		j.Float32 = &v.Float32
	case ValueFloat64:
		j.Float64 = &v.Float64
	case ValueFCoord64:
		j.FCoord64 = &v.FCoord64
	case ValueList:
		j.List = make([]jsonValue, len(v.List))
		for i, item := range v.List {
			encoded, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			if err := json.Unmarshal(encoded, &j.List[i]); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("protocol: unknown value kind %q", v.Kind)
	}
	return json.Marshal(j)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var j jsonValue
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	return v.fromJSON(j)
}

func (v *Value) fromJSON(j jsonValue) error {
	v.Kind = j.Type
	switch j.Type {
	case ValueNil:
	case ValueInt:
		if j.Int == nil {
			return fmt.Errorf("protocol: value type int missing int field")
		}
		v.Int = *j.Int
	case ValueLong:
		if j.Long == nil {
			return fmt.Errorf("protocol: value type long missing long field")
		}
		v.Long = *j.Long
	case ValueStr:
		if j.Str == nil {
			return fmt.Errorf("protocol: value type str missing str field")
		}
		v.Str = *j.Str
	case ValueCoord:
		if j.Coord == nil {
			return fmt.Errorf("protocol: value type coord missing coord field")
		}
		v.Coord = *j.Coord
	case ValueBytes:
		if j.Bytes == nil {
			return fmt.Errorf("protocol: value type bytes missing bytes field")
		}
		decoded, err := base64.StdEncoding.DecodeString(*j.Bytes)
		if err != nil {
			return fmt.Errorf("protocol: decode bytes value: %w", err)
		}
		v.Bytes = decoded
	case ValueColor:
		if j.Color == nil {
			return fmt.Errorf("protocol: value type color missing color field")
		}
		v.Color = *j.Color
	case ValueFloat32:
		if j.Float32 == nil {
			return fmt.Errorf("protocol: value type float32 missing float32 field")
		}
		v.Float32 = *j.Float32
	case ValueFloat64:
		if j.Float64 == nil {
			return fmt.Errorf("protocol: value type float64 missing float64 field")
		}
		v.Float64 = *j.Float64
	case ValueFCoord64:
		if j.FCoord64 == nil {
			return fmt.Errorf("protocol: value type fcoord64 missing fcoord64 field")
		}
		v.FCoord64 = *j.FCoord64
	case ValueList:
		v.List = make([]Value, len(j.List))
		for i, item := range j.List {
			if err := v.List[i].fromJSON(item); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("protocol: unknown value type %q", j.Type)
	}
	return nil
}
