package protocol

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/elsid/hafen-botserver/internal/vec2"
)

func roundTrip(t *testing.T, v Value) Value {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal(%v): %v", v, err)
	}
	var got Value
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal(%s): %v", data, err)
	}
	return got
}

func TestValueRoundTrip(t *testing.T) {
	cases := []Value{
		Nil(),
		Int(42),
		Long(-1234567890123),
		Str("hello"),
		Coord(vec2.NewI(3, -4)),
		Bytes([]byte{0, 1, 2, 255}),
		ColorValue(Color{R: 1, G: 2, B: 3, A: 4}),
		Float32Value(1.5),
		Float64Value(2.25),
		FCoord64(vec2.NewF(1.5, -2.5)),
		List([]Value{Int(1), Str("a"), List([]Value{Nil()})}),
	}
	for _, c := range cases {
		got := roundTrip(t, c)
		if !reflect.DeepEqual(got, c) {
			t.Fatalf("round trip %v = %v, want %v", c, got, c)
		}
	}
}

func TestValueEqualsIntAcrossIntAndLong(t *testing.T) {
	if !Int(7).EqualsInt(7) {
		t.Fatal("Int(7).EqualsInt(7) = false")
	}
	if !Long(7).EqualsInt(7) {
		t.Fatal("Long(7).EqualsInt(7) = false")
	}
	if Str("7").EqualsInt(7) {
		t.Fatal("Str(7).EqualsInt(7) = true, want false")
	}
}

func TestValueIsNil(t *testing.T) {
	if !Nil().IsNil() {
		t.Fatal("Nil().IsNil() = false")
	}
	if Int(0).IsNil() {
		t.Fatal("Int(0).IsNil() = true")
	}
}
