package irkind_test

import (
	"testing"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/tac/build/ir/irkind"
)

func TestDType(t *testing.T) {
	tests := []struct {
		kind irkind.Kind
		bits int
		want dtype.DataType
	}{
		{kind: irkind.Bool, bits: 1, want: dtype.Bool},
		{kind: irkind.Int, bits: 32, want: dtype.Int32},
		{kind: irkind.Int, bits: 64, want: dtype.Int64},
		{kind: irkind.Uint, bits: 32, want: dtype.Uint32},
		{kind: irkind.Float, bits: 32, want: dtype.Float32},
		{kind: irkind.Float, bits: 64, want: dtype.Float64},
		{kind: irkind.Float, bits: 16, want: dtype.Invalid},
		{kind: irkind.Int, bits: 8, want: dtype.Invalid},
	}
	for i, test := range tests {
		got := irkind.DType(test.kind, test.bits)
		if got != test.want {
			t.Errorf("test %d: %s%d: got %v but want %v", i, test.kind, test.bits, got, test.want)
		}
	}
}

func TestFromDType(t *testing.T) {
	for _, dt := range []dtype.DataType{dtype.Bool, dtype.Int32, dtype.Int64, dtype.Uint32, dtype.Uint64, dtype.Float32, dtype.Float64} {
		knd, bits := irkind.FromDType(dt)
		if got := irkind.DType(knd, bits); got != dt {
			t.Errorf("%v: round trip returned %v", dt, got)
		}
	}
	if knd, _ := irkind.FromDType(dtype.Invalid); knd != irkind.Invalid {
		t.Errorf("invalid data type: got kind %s but want %s", knd, irkind.Invalid)
	}
}
