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

import "github.com/gx-org/tac/build/fmterr"

// Equal returns true if two expressions are structurally equal.
// Variables and tensors are compared by identity.
func Equal(x, y Expr) bool {
	if x == y {
		return true
	}
	if x == nil || y == nil {
		return false
	}
	switch xT := x.(type) {
	case *IntImm:
		yT, ok := y.(*IntImm)
		return ok && xT.Typ == yT.Typ && xT.Val == yT.Val
	case *FloatImm:
		yT, ok := y.(*FloatImm)
		return ok && xT.Typ == yT.Typ && xT.Val == yT.Val
	case *Var:
		yT, ok := y.(*Var)
		return ok && xT.ID == yT.ID
	case *Cast:
		yT, ok := y.(*Cast)
		return ok && xT.Typ == yT.Typ && Equal(xT.X, yT.X)
	case *Neg:
		yT, ok := y.(*Neg)
		return ok && Equal(xT.X, yT.X)
	case *Not:
		yT, ok := y.(*Not)
		return ok && Equal(xT.X, yT.X)
	case *Binary:
		yT, ok := y.(*Binary)
		return ok && xT.Op == yT.Op && Equal(xT.X, yT.X) && Equal(xT.Y, yT.Y)
	case *Select:
		yT, ok := y.(*Select)
		return ok && Equal(xT.Cond, yT.Cond) && Equal(xT.True, yT.True) && Equal(xT.False, yT.False)
	case *Call:
		yT, ok := y.(*Call)
		if !ok || xT.Kind != yT.Kind || xT.Name != yT.Name || xT.Typ != yT.Typ {
			return false
		}
		if !SameTensor(xT.Tensor, yT.Tensor) {
			return false
		}
		return EqualList(xT.Args, yT.Args)
	default:
		fmterr.Fail("expression type %T not supported", x)
	}
	return false
}

// EqualList returns true if two lists of expressions are structurally equal.
func EqualList(xs, ys []Expr) bool {
	if len(xs) != len(ys) {
		return false
	}
	for i, x := range xs {
		if !Equal(x, ys[i]) {
			return false
		}
	}
	return true
}

// SameTensor returns true if two tensors have the same identity.
func SameTensor(x, y *Tensor) bool {
	if x == nil || y == nil {
		return x == y
	}
	return x.ID == y.ID
}

// ReadsTensor returns true if the expression reads the tensor t.
func ReadsTensor(expr Expr, t *Tensor) bool {
	found := false
	Walk(expr, func(e Expr) {
		if call, ok := e.(*Call); ok && call.IsHalide() && SameTensor(call.Tensor, t) {
			found = true
		}
	})
	return found
}
