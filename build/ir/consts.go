// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ir

import (
	"math"

	"github.com/gx-org/tac/build/fmterr"
)

// Const returns an immediate of the given type with value val
// (like make_const in other tensor compilers).
func Const(typ Type, val float64) Expr {
	if typ.IsFloat() {
		return &FloatImm{Typ: typ, Val: val}
	}
	if typ.IsBool() {
		if val != 0 {
			return &IntImm{Typ: typ, Val: 1}
		}
		return &IntImm{Typ: typ, Val: 0}
	}
	return &IntImm{Typ: typ, Val: int64(math.Trunc(val))}
}

// IntConst returns an int32 immediate.
func IntConst(val int64) *IntImm {
	return &IntImm{Typ: Int(32), Val: val}
}

// BoolConst returns a boolean immediate.
func BoolConst(val bool) *IntImm {
	if val {
		return &IntImm{Typ: Bool(), Val: 1}
	}
	return &IntImm{Typ: Bool(), Val: 0}
}

// IsConst returns true if the expression is an immediate.
func IsConst(expr Expr) bool {
	switch expr.(type) {
	case *IntImm, *FloatImm:
		return true
	}
	return false
}

// ConstValue returns the value of an immediate.
func ConstValue(expr Expr) (float64, bool) {
	switch exprT := expr.(type) {
	case *IntImm:
		return float64(exprT.Val), true
	case *FloatImm:
		return exprT.Val, true
	}
	return 0, false
}

// IsConstValue returns true if the expression is an immediate equal to val.
func IsConstValue(expr Expr, val float64) bool {
	v, ok := ConstValue(expr)
	return ok && v == val
}

// IsZero returns true if the expression is a zero immediate.
func IsZero(expr Expr) bool {
	return IsConstValue(expr, 0)
}

// Read returns an expression reading an element of a tensor.
func Read(t *Tensor, args ...Expr) *Call {
	fmterr.Check(len(args) == len(t.Shape), "reading tensor %s of rank %d with %d indices", t.Name, len(t.Shape), len(args))
	return &Call{
		Typ:    t.DType,
		Name:   t.Name,
		Args:   args,
		Kind:   Halide,
		Tensor: t,
	}
}

// Intrinsic returns a call to a named pure intrinsic.
func Intrinsic(typ Type, name string, args ...Expr) *Call {
	return &Call{
		Typ:  typ,
		Name: name,
		Args: args,
		Kind: PureIntrinsic,
	}
}

// IsIntrinsic returns true if expr is a non-Halide call with the given name.
func IsIntrinsic(expr Expr, names ...string) bool {
	call, ok := expr.(*Call)
	if !ok || call.IsHalide() {
		return false
	}
	for _, name := range names {
		if call.Name == name {
			return true
		}
	}
	return false
}

// NewBinary returns a binary expression.
func NewBinary(op Op, x, y Expr) *Binary {
	return &Binary{Op: op, X: x, Y: y}
}
